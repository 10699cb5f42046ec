package grades

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"ntust-grades/lib/htmlutil"
	"ntust-grades/lib/platforms/ntust/core"
	"ntust-grades/lib/telemetry"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("platforms/ntust/grades")
	meter  = otel.Meter("platforms/ntust/grades")
)

const (
	report_fetch   = "grades.fetch"
	report_records = "grades.records"
)

// TableMarker is the "course name" header, the grade table is the first
// table that contains it anywhere in its text.
const TableMarker = "課程名稱"

// rows need cells 1 through 5, cell 0 is the row number
const minCells = 6

var ErrGradesStatus = errors.New("grades page returned an error status")

type Course struct {
	Semester   string `json:"semester"`
	CourseId   string `json:"course_id"`
	CourseName string `json:"course_name"`
	Credits    string `json:"credits"`
	Grade      string `json:"grade"`
}

type Extractor struct {
	session *core.Session
	tel     telemetry.API
	records metric.Int64Counter
}

func NewExtractor(session *core.Session, tel telemetry.API) Extractor {
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	records, _ := meter.Int64Counter(
		"ntust.grades.records",
		metric.WithDescription("course records extracted from the grade table"),
	)
	return Extractor{
		session: session,
		tel:     tel,
		records: records,
	}
}

// FetchGrades is Fetch with every failure collapsed into an empty result,
// the cause goes to telemetry. The result is never nil.
func (e Extractor) FetchGrades(ctx context.Context) []Course {
	courses, err := e.Fetch(ctx)
	if err != nil {
		e.tel.ReportWarning(report_fetch, err)
		return []Course{}
	}
	return courses
}

// Fetch downloads the grade display page with the session's cookies and
// parses it. A page without a grade table is not an error.
func (e Extractor) Fetch(ctx context.Context) ([]Course, error) {
	ctx, span := tracer.Start(ctx, "extractor:Fetch")
	defer span.End()

	res, err := e.session.Http.R().
		SetContext(ctx).
		Get(e.session.Endpoints.GradesDisplay)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return nil, fmt.Errorf("fetch grades: %w", err)
	}
	// anything but 2xx, including a 3xx the client could not follow
	if !res.IsSuccess() {
		span.SetStatus(codes.Error, ErrGradesStatus.Error())
		return nil, fmt.Errorf("%w: %s", ErrGradesStatus, res.Status())
	}

	courses, err := ParseHTML(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return nil, err
	}
	if len(courses) == 0 {
		e.tel.ReportDebug("no grade records found")
	}

	span.SetAttributes(attribute.Int("records", len(courses)))
	e.tel.ReportCount(report_records, int64(len(courses)))
	if e.records != nil {
		e.records.Add(ctx, int64(len(courses)))
	}
	return courses, nil
}

func ParseHTML(r io.Reader) ([]Course, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return Parse(doc), nil
}

// Parse maps the rows of the grade table to courses in document order.
//
// The mapping is positional and only matches the page layout as it is
// currently served: rows with fewer than 6 cells are skipped, cells 1..5
// are semester, course id, course name, credits and grade, rows without a
// course name are skipped.
func Parse(doc *goquery.Document) []Course {
	courses := []Course{}

	table := htmlutil.FirstContaining(doc.Find("table"), TableMarker)
	if table.Length() == 0 {
		return courses
	}

	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < minCells {
			return
		}
		course := Course{
			Semester:   htmlutil.StrippedText(cells.Eq(1)),
			CourseId:   htmlutil.StrippedText(cells.Eq(2)),
			CourseName: htmlutil.StrippedText(cells.Eq(3)),
			Credits:    htmlutil.StrippedText(cells.Eq(4)),
			Grade:      htmlutil.StrippedText(cells.Eq(5)),
		}
		if course.CourseName == "" {
			return
		}
		courses = append(courses, course)
	})

	return courses
}
