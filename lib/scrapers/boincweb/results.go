package boincweb

import (
	"context"
	"regexp"
	"strings"

	"boincstats/lib/boinc"
	"boincstats/lib/htmlutil"
	"boincstats/lib/scrapers/core"
	"boincstats/lib/telemetry"

	"golang.org/x/net/html"
)

// ResultsLayout is the results table of current servers.
var ResultsLayout = core.Layout{
	Name: "boinc-results",
	Fields: []string{
		core.FieldTask,
		core.FieldWorkunit,
		core.FieldComputer,
		core.FieldSent,
		core.FieldDeadline,
		core.FieldStatus,
		core.FieldRunTime,
		core.FieldCPUTime,
		core.FieldCredit,
		core.FieldApplication,
	},
}

// ResultsLayoutNoApp is the results table of servers (or projects) that
// do not show the application column.
var ResultsLayoutNoApp = core.Layout{
	Name: "boinc-results-noapp",
	Fields: []string{
		core.FieldTask,
		core.FieldWorkunit,
		core.FieldComputer,
		core.FieldSent,
		core.FieldDeadline,
		core.FieldStatus,
		core.FieldRunTime,
		core.FieldCPUTime,
		core.FieldCredit,
	},
}

// DefaultLayouts are tried in order on every row.
var DefaultLayouts = []core.Layout{ResultsLayout, ResultsLayoutNoApp}

var (
	offsetRegex   = regexp.MustCompile(`results\.php\?(?:.*&)?offset=(\d+)`)
	workunitRegex = regexp.MustCompile(`workunit\.php\?wuid=(\d+)`)
)

// DetailResolver turns the link of a row to its detail page into the value
// that page holds.
type DetailResolver interface {
	Resolve(ctx context.Context, href string) string
}

// ResultsExtractor reconstructs the rows of results.php pages. Links to
// workunit pages found in a row are resolved while the row is read and the
// result is kept as the Detail of the row.
type ResultsExtractor struct {
	Rows []core.Row

	layouts  []core.Layout
	resolver DetailResolver
	tel      telemetry.API

	// ctx of the running Feed, used by nested resolution
	ctx     context.Context
	detail  string
	pending core.PendingPages
	links   core.PageLinks
	scanner core.TableScanner
}

// NewResultsExtractor creates an extractor for the given layouts
// (DefaultLayouts when empty). The resolver may be nil, detail links are
// then ignored.
func NewResultsExtractor(layouts []core.Layout, resolver DetailResolver, tel telemetry.API) *ResultsExtractor {
	if len(layouts) == 0 {
		layouts = DefaultLayouts
	}
	e := &ResultsExtractor{
		layouts:  layouts,
		resolver: resolver,
		tel:      telemetry.OrDefault(tel),
	}
	e.links = core.PageLinks{Pattern: offsetRegex, Pages: &e.pending}
	e.scanner = core.TableScanner{
		IsTable:    isResultsTable,
		OnRowStart: e.onRowStart,
		OnRow:      e.onRow,
		OnAnchor:   e.onAnchor,
	}
	return e
}

func isResultsTable(attrs []html.Attribute) bool {
	return htmlutil.AttrContains(attrs, "class", "table") ||
		htmlutil.AttrContains(attrs, "class", "bordered")
}

func (e *ResultsExtractor) onRowStart() {
	e.detail = ""
}

func (e *ResultsExtractor) onAnchor(href string) {
	if e.links.Match(href) {
		return
	}
	if e.resolver == nil || !e.scanner.InRow() || !workunitRegex.MatchString(href) {
		return
	}
	ctx := e.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	e.detail = e.resolver.Resolve(ctx, href)
}

func (e *ResultsExtractor) onRow(cells []string) {
	row, ok := core.Accept(e.tel, cells, e.layouts...)
	if !ok {
		return
	}
	row.Detail = e.detail
	e.Rows = append(e.Rows, row)
}

func (e *ResultsExtractor) Feed(ctx context.Context, content []byte) error {
	e.ctx = ctx
	defer func() {
		e.ctx = nil
	}()
	return htmlutil.Feed(&e.scanner, content)
}

func (e *ResultsExtractor) Pending() *core.PendingPages {
	return &e.pending
}

// rawState picks the state column of a row. Layouts that split the state
// into server state and outcome report the outcome once the server is done
// with the task.
func rawState(row core.Row) string {
	if row.Has(core.FieldStatus) {
		return row.Get(core.FieldStatus)
	}
	server := row.Get(core.FieldServerState)
	outcome := row.Get(core.FieldOutcome)
	if strings.EqualFold(server, "over") && outcome != "" {
		return outcome
	}
	return server
}

// TaskFromRow maps a row of any results layout onto a task of project.
func TaskFromRow(row core.Row, site, project string, states *boinc.StateSet) boinc.Task {
	task := boinc.Task{
		Site:        site,
		Project:     project,
		Name:        row.Get(core.FieldTask),
		Workunit:    row.Get(core.FieldWorkunit),
		Device:      row.Get(core.FieldComputer),
		Application: row.Get(core.FieldApplication),
		State:       states.Normalize(rawState(row)),
	}
	if row.Detail != "" {
		task.Application = row.Detail
	}
	task.Sent, _ = core.ParseTime(row.Get(core.FieldSent))
	task.Deadline, _ = core.ParseTime(row.Get(core.FieldDeadline))
	task.RunTime, _ = core.ParseDuration(row.Get(core.FieldRunTime))
	task.CPUTime, _ = core.ParseDuration(row.Get(core.FieldCPUTime))
	task.Credit, _ = core.ParseNumber(row.Get(core.FieldCredit))
	return task
}
