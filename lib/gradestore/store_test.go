package gradestore

import (
	"context"
	"testing"
	"time"

	"ntust-grades/lib/platforms/ntust/grades"
	"ntust-grades/lib/timezone"

	"github.com/stretchr/testify/require"
)

func TestDriverFor(t *testing.T) {
	require.Equal(t, "sqlite", driverFor(":memory:"))
	require.Equal(t, "sqlite", driverFor("grades.db"))
	require.Equal(t, "libsql", driverFor("libsql://grades-user.turso.io?authToken=x"))
	require.Equal(t, "libsql", driverFor("http://127.0.0.1:8080"))
}

func TestStore(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	store, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Latest(ctx)
	require.ErrorIs(t, err, ErrNoSnapshot)

	morning := time.Date(2024, time.January, 10, 9, 0, 0, 0, timezone.Location)
	first := []grades.Course{
		{Semester: "1121", CourseId: "CS1001301", CourseName: "計算機概論", Credits: "3", Grade: "A+"},
		{Semester: "1121", CourseId: "GE1101301", CourseName: "大學國文", Credits: "2", Grade: "成績未到"},
	}
	_, err = store.Push(ctx, morning, first)
	require.NoError(t, err)

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	require.Equal(t, first, latest.Courses)
	require.True(t, morning.Equal(latest.Time))

	// same day replaces the morning snapshot
	evening := morning.Add(10 * time.Hour)
	updated := []grades.Course{
		{Semester: "1121", CourseId: "CS1001301", CourseName: "計算機概論", Credits: "3", Grade: "A+"},
		{Semester: "1121", CourseId: "GE1101301", CourseName: "大學國文", Credits: "2", Grade: "B"},
	}
	_, err = store.Push(ctx, evening, updated)
	require.NoError(t, err)

	var count int
	err = store.db.QueryRowContext(ctx, `select count(*) from snapshot`).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	// the next day is kept alongside
	nextDay := morning.Add(24 * time.Hour)
	_, err = store.Push(ctx, nextDay, []grades.Course{})
	require.NoError(t, err)

	latest, err = store.Latest(ctx)
	require.NoError(t, err)
	require.True(t, nextDay.Equal(latest.Time))
	require.Empty(t, latest.Courses)

	err = store.db.QueryRowContext(ctx, `select count(*) from snapshot_course`).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}
