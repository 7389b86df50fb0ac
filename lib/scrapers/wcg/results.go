package wcg

import (
	"context"
	"regexp"
	"strings"

	"boincstats/lib/boinc"
	"boincstats/lib/htmlutil"
	"boincstats/lib/scrapers/core"
	"boincstats/lib/telemetry"
	"boincstats/lib/textutil"

	"golang.org/x/net/html"
)

const (
	FieldDevice        = "device"
	FieldResultName    = "result name"
	// FieldDueOrReturned is the "Time Due / Return Time" column: the deadline
	// while a result is in progress, the return time once it is back. It is
	// stored as the task deadline.
	FieldDueOrReturned = "due or returned"
)

// ResultsLayout are the columns of the results status page.
var ResultsLayout = core.Layout{
	Name: "wcg-results",
	Fields: []string{
		core.FieldProject,
		FieldDevice,
		FieldResultName,
		core.FieldStatus,
		core.FieldSent,
		FieldDueOrReturned,
		core.FieldCPUTime,
		core.FieldCredit,
	},
}

var pageNumRegex = regexp.MustCompile(`[?&]pageNum=(\d+)`)

// ResultsExtractor reconstructs the rows of the results status pages and
// collects the page numbers linked from them.
type ResultsExtractor struct {
	Rows []core.Row

	tel     telemetry.API
	pending core.PendingPages
	links   core.PageLinks
	scanner core.TableScanner
}

func NewResultsExtractor(tel telemetry.API) *ResultsExtractor {
	e := &ResultsExtractor{tel: telemetry.OrDefault(tel)}
	e.links = core.PageLinks{Pattern: pageNumRegex, Pages: &e.pending}
	e.scanner = core.TableScanner{
		IsTable: isResultsTable,
		OnRow:   e.onRow,
		OnAnchor: func(href string) {
			e.links.Match(href)
		},
	}
	return e
}

func isResultsTable(attrs []html.Attribute) bool {
	return htmlutil.AttrContains(attrs, "id", "result") ||
		htmlutil.AttrContains(attrs, "class", "result")
}

func (e *ResultsExtractor) onRow(cells []string) {
	row, ok := core.Accept(e.tel, cells, ResultsLayout)
	if !ok {
		return
	}
	e.Rows = append(e.Rows, row)
}

func (e *ResultsExtractor) Feed(_ context.Context, content []byte) error {
	return htmlutil.Feed(&e.scanner, content)
}

func (e *ResultsExtractor) Pending() *core.PendingPages {
	return &e.pending
}

// grantedCredit picks the granted part of a "claimed / granted" cell.
func grantedCredit(cell string) float64 {
	parts := strings.Split(cell, "/")
	credit, _ := core.ParseNumber(parts[len(parts)-1])
	return credit
}

// Tasks converts the accepted rows.
func (e *ResultsExtractor) Tasks(states *boinc.StateSet) []boinc.Task {
	tasks := make([]boinc.Task, 0, len(e.Rows))
	for _, row := range e.Rows {
		tasks = append(tasks, taskFromRow(row, states))
	}
	return tasks
}

func taskFromRow(row core.Row, states *boinc.StateSet) boinc.Task {
	long, short := textutil.SplitName(row.Get(core.FieldProject))
	task := boinc.Task{
		Site:         SiteName,
		Project:      long,
		ProjectShort: short,
		Name:         row.Get(FieldResultName),
		Device:       row.Get(FieldDevice),
		State:        states.Normalize(row.Get(core.FieldStatus)),
		Credit:       grantedCredit(row.Get(core.FieldCredit)),
	}
	task.Sent, _ = core.ParseTime(row.Get(core.FieldSent))
	task.Deadline, _ = core.ParseTime(row.Get(FieldDueOrReturned))
	task.CPUTime, _ = core.ParseHours(row.Get(core.FieldCPUTime))
	return task
}
