package telemetry

import "sync"

type ReportKind int

const (
	ReportKindBroken ReportKind = iota
	ReportKindWarning
	ReportKindDebug
	ReportKindCount
)

type Report struct {
	Kind   ReportKind
	Id     string
	Params []any
	Count  int64
}

// RecorderAPI keeps every report in memory, tests use it to assert on what
// a component reported.
type RecorderAPI struct {
	lock    sync.Mutex
	reports []Report
}

func (r *RecorderAPI) record(report Report) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.reports = append(r.reports, report)
}

func (r *RecorderAPI) ReportBroken(id string, params ...any) {
	r.record(Report{Kind: ReportKindBroken, Id: id, Params: params})
}

func (r *RecorderAPI) ReportWarning(id string, params ...any) {
	r.record(Report{Kind: ReportKindWarning, Id: id, Params: params})
}

func (r *RecorderAPI) ReportDebug(msg string, params ...any) {
	r.record(Report{Kind: ReportKindDebug, Id: msg, Params: params})
}

func (r *RecorderAPI) ReportCount(id string, count int64) {
	r.record(Report{Kind: ReportKindCount, Id: id, Count: count})
}

func (r *RecorderAPI) Reports() []Report {
	r.lock.Lock()
	defer r.lock.Unlock()
	out := make([]Report, len(r.reports))
	copy(out, r.reports)
	return out
}

// Find returns the reports of the given kind and id.
func (r *RecorderAPI) Find(kind ReportKind, id string) []Report {
	var out []Report
	for _, report := range r.Reports() {
		if report.Kind == kind && report.Id == id {
			out = append(out, report)
		}
	}
	return out
}
