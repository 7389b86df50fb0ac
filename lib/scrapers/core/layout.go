package core

import (
	"fmt"

	"boincstats/lib/telemetry"
)

// Field names shared between the row layouts of the different sites.
const (
	FieldTask        = "task"
	FieldWorkunit    = "workunit"
	FieldComputer    = "computer"
	FieldProject     = "project"
	FieldSent        = "sent"
	FieldDeadline    = "deadline"
	FieldStatus      = "status"
	FieldServerState = "server state"
	FieldOutcome     = "outcome"
	FieldClientState = "client state"
	FieldExitStatus  = "exit status"
	FieldRunTime     = "run time"
	FieldCPUTime     = "cpu time"
	FieldCredit      = "credit"
	FieldApplication = "application"
)

// Layout is one known shape of a table row: the semantic name of every
// column, in order. Rows are matched to a layout by their exact cell count.
type Layout struct {
	Name   string
	Fields []string
}

func (l Layout) Len() int {
	return len(l.Fields)
}

func (l Layout) index(field string) int {
	for i, f := range l.Fields {
		if f == field {
			return i
		}
	}
	return -1
}

// Row is a table row accepted under a layout.
type Row struct {
	Layout Layout
	Cells  []string
	// Detail holds the value recovered from the detail page linked by the
	// row, if any.
	Detail string
}

// Get returns the cell of a field, or "" if the layout has no such field.
func (r Row) Get(field string) string {
	idx := r.Layout.index(field)
	if idx < 0 || idx >= len(r.Cells) {
		return ""
	}
	return r.Cells[idx]
}

func (r Row) Has(field string) bool {
	return r.Layout.index(field) >= 0
}

// MatchLayout returns the first layout whose field count is exactly the
// number of cells.
func MatchLayout(cells []string, layouts ...Layout) (Layout, bool) {
	for _, l := range layouts {
		if l.Len() == len(cells) {
			return l, true
		}
	}
	return Layout{}, false
}

// Accept builds a Row from cells when they fit one of the layouts. Rows
// that fit none are reported at debug level and dropped.
func Accept(tel telemetry.API, cells []string, layouts ...Layout) (Row, bool) {
	layout, ok := MatchLayout(cells, layouts...)
	if !ok {
		expected := make([]int, len(layouts))
		for i, l := range layouts {
			expected[i] = l.Len()
		}
		tel.ReportDebug(
			"dropping row",
			fmt.Sprintf("got %d fields, expected one of %v", len(cells), expected),
			cells,
		)
		return Row{}, false
	}

	copied := make([]string, len(cells))
	copy(copied, cells)
	return Row{Layout: layout, Cells: copied}, true
}
