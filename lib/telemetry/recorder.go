package telemetry

import (
	"strings"
	"sync"
)

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityWarning
	SeverityBroken
	SeverityCount
)

type Report struct {
	Severity Severity
	Id       string
	Params   []any
}

// Recorder is an API that keeps every report in memory, it is meant for
// making assertions on reported events in tests.
type Recorder struct {
	lock    sync.Mutex
	reports []Report
}

func (r *Recorder) push(report Report) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.reports = append(r.reports, report)
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.push(Report{Severity: SeverityBroken, Id: id, Params: params})
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.push(Report{Severity: SeverityWarning, Id: id, Params: params})
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.push(Report{Severity: SeverityDebug, Id: msg, Params: params})
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.push(Report{Severity: SeverityCount, Id: id, Params: []any{count}})
}

func (r *Recorder) Reports() []Report {
	r.lock.Lock()
	defer r.lock.Unlock()
	out := make([]Report, len(r.reports))
	copy(out, r.reports)
	return out
}

// Count returns the number of reports with the given severity whose id
// contains the given substring.
func (r *Recorder) Count(severity Severity, idContains string) int {
	count := 0
	for _, report := range r.Reports() {
		if report.Severity == severity && strings.Contains(report.Id, idContains) {
			count++
		}
	}
	return count
}
