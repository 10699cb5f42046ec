package gradestore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"ntust-grades/lib/platforms/ntust/grades"
	"ntust-grades/lib/timezone"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

var ErrNoSnapshot = errors.New("no snapshot has been stored")

type Store struct {
	db *sql.DB
}

func driverFor(dsn string) string {
	for _, prefix := range []string{"libsql://", "https://", "http://", "wss://", "ws://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "libsql"
		}
	}
	return "sqlite"
}

// Open connects to a local sqlite file (or ":memory:") or a remote libsql
// database and makes sure the schema exists.
func Open(ctx context.Context, dsn string) (Store, error) {
	database, err := sql.Open(driverFor(dsn), dsn)
	if err != nil {
		return Store{}, err
	}
	if dsn == ":memory:" {
		// every pooled connection would get its own empty database
		database.SetMaxOpenConns(1)
	}
	store := NewStore(database)
	err = store.Migrate(ctx)
	if err != nil {
		database.Close()
		return Store{}, err
	}
	return store, nil
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

func (s Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		_, err := s.db.ExecContext(ctx, stmt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s Store) Close() error {
	return s.db.Close()
}

type Snapshot struct {
	Id      int64
	Time    time.Time
	Courses []grades.Course
}

// Push stores courses as the snapshot for the day of t, replacing any
// snapshot taken earlier that same day.
func (s Store) Push(ctx context.Context, t time.Time, courses []grades.Course) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	local := t.In(timezone.Location)
	startOfToday := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, timezone.Location).Unix()
	startOfTomorrow := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, timezone.Location).Unix()

	_, err = tx.ExecContext(
		ctx,
		`delete from snapshot_course where snapshot_id in (
			select id from snapshot where time >= ? and time < ?
		)`,
		startOfToday, startOfTomorrow,
	)
	if err != nil {
		return 0, err
	}
	_, err = tx.ExecContext(ctx, `delete from snapshot where time >= ? and time < ?`, startOfToday, startOfTomorrow)
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `insert into snapshot(time) values (?)`, t.Unix())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for i, c := range courses {
		_, err = tx.ExecContext(
			ctx,
			`insert into snapshot_course(snapshot_id, idx, semester, course_id, course_name, credits, grade)
			values (?, ?, ?, ?, ?, ?, ?)`,
			id, i, c.Semester, c.CourseId, c.CourseName, c.Credits, c.Grade,
		)
		if err != nil {
			return 0, err
		}
	}

	return id, tx.Commit()
}

// Latest returns the most recent snapshot with its courses in the order
// they were pushed.
func (s Store) Latest(ctx context.Context) (Snapshot, error) {
	var snapshot Snapshot
	var unix int64
	err := s.db.QueryRowContext(ctx, `select id, time from snapshot order by time desc, id desc limit 1`).
		Scan(&snapshot.Id, &unix)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, err
	}
	snapshot.Time = time.Unix(unix, 0).In(timezone.Location)

	rows, err := s.db.QueryContext(
		ctx,
		`select semester, course_id, course_name, credits, grade
		from snapshot_course where snapshot_id = ? order by idx`,
		snapshot.Id,
	)
	if err != nil {
		return Snapshot{}, err
	}
	defer rows.Close()

	snapshot.Courses = []grades.Course{}
	for rows.Next() {
		var c grades.Course
		err = rows.Scan(&c.Semester, &c.CourseId, &c.CourseName, &c.Credits, &c.Grade)
		if err != nil {
			return Snapshot{}, err
		}
		snapshot.Courses = append(snapshot.Courses, c)
	}
	return snapshot, rows.Err()
}
