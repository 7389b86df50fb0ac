package core

import (
	"strings"

	"boincstats/lib/htmlutil"
	"boincstats/lib/textutil"

	"golang.org/x/net/html"
)

// TableScanner reconstructs the rows of a table from tag events.
//
// Only the table accepted by IsTable (any table when nil) is scanned, rows
// and cells of tables nested inside it are folded into the text of the
// enclosing cell. Missing </td> and </tr> tags are tolerated.
type TableScanner struct {
	IsTable func(attrs []html.Attribute) bool
	// OnRowStart is called at every row of the scanned table.
	OnRowStart func()
	// OnRow is called at the end of every row that has at least one cell.
	OnRow func(cells []string)
	// OnAnchor is called for every link in the document, inside the table
	// or not.
	OnAnchor func(href string)

	depth  int
	inRow  bool
	inCell bool
	cell   strings.Builder
	cells  []string
}

// InTable reports if the scanner is inside the scanned table.
func (s *TableScanner) InTable() bool {
	return s.depth > 0
}

// InRow reports if the scanner is inside a row of the scanned table.
func (s *TableScanner) InRow() bool {
	return s.depth == 1 && s.inRow
}

// Cell is the index of the current cell in its row, -1 outside of a cell.
func (s *TableScanner) Cell() int {
	if !s.inCell {
		return -1
	}
	return len(s.cells)
}

func (s *TableScanner) closeCell() {
	if !s.inCell {
		return
	}
	s.cells = append(s.cells, textutil.CleanText(s.cell.String()))
	s.cell.Reset()
	s.inCell = false
}

func (s *TableScanner) closeRow() {
	if !s.inRow {
		return
	}
	s.closeCell()
	cells := s.cells
	s.cells = nil
	s.inRow = false
	if len(cells) > 0 && s.OnRow != nil {
		s.OnRow(cells)
	}
}

func (s *TableScanner) StartTag(name string, attrs []html.Attribute) {
	switch name {
	case "table":
		if s.depth > 0 {
			s.depth++
			return
		}
		if s.IsTable == nil || s.IsTable(attrs) {
			s.depth = 1
		}
	case "tr":
		if s.depth != 1 {
			return
		}
		s.closeRow()
		s.inRow = true
		if s.OnRowStart != nil {
			s.OnRowStart()
		}
	case "td":
		if s.depth != 1 || !s.inRow {
			return
		}
		s.closeCell()
		s.inCell = true
	case "br":
		if s.inCell {
			s.cell.WriteByte(' ')
		}
	case "a":
		href, ok := htmlutil.Attr(attrs, "href")
		if ok && s.OnAnchor != nil {
			s.OnAnchor(href)
		}
	}
}

func (s *TableScanner) EndTag(name string) {
	switch name {
	case "td":
		if s.depth == 1 {
			s.closeCell()
		}
	case "tr":
		if s.depth == 1 {
			s.closeRow()
		}
	case "table":
		if s.depth == 0 {
			return
		}
		if s.depth == 1 {
			s.closeRow()
		}
		s.depth--
	}
}

func (s *TableScanner) Text(text string) {
	if s.inCell {
		s.cell.WriteString(text)
		s.cell.WriteByte(' ')
	}
}
