package commands

import (
	"fmt"
	"io"

	"ntust-grades/lib/jsonutil"
	"ntust-grades/lib/platforms/ntust/grades"

	"github.com/jedib0t/go-pretty/v6/table"
)

const (
	formatJson  = "json"
	formatTable = "table"
)

type loginFailure struct {
	Error string `json:"error"`
}

// writeLoginFailure keeps non-ASCII unescaped while writeCourses escapes
// it, consumers of the json output depend on both.
func writeLoginFailure(out io.Writer) error {
	return jsonutil.WriteUnicode(out, loginFailure{Error: "Login failed"})
}

func writeCourses(out io.Writer, format string, courses []grades.Course) error {
	switch format {
	case formatJson:
		return jsonutil.WriteASCII(out, courses)
	case formatTable:
		t := table.NewWriter()
		t.SetOutputMirror(out)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Semester", "Course ID", "Course", "Credits", "Grade"})
		for _, c := range courses {
			t.AppendRow(table.Row{c.Semester, c.CourseId, c.CourseName, c.Credits, c.Grade})
		}
		t.AppendFooter(table.Row{"", "", "", "Total", len(courses)})
		t.Render()
		return nil
	default:
		return fmt.Errorf("unknown format %q, expected %q or %q", format, formatJson, formatTable)
	}
}
