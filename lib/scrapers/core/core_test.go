package core

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"boincstats/lib/htmlutil"
	"boincstats/lib/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func scanRows(t testing.TB, content string, isTable func([]html.Attribute) bool) ([][]string, []string) {
	var rows [][]string
	var anchors []string
	scanner := &TableScanner{
		IsTable: isTable,
		OnRow: func(cells []string) {
			rows = append(rows, cells)
		},
		OnAnchor: func(href string) {
			anchors = append(anchors, href)
		},
	}
	require.NoError(t, htmlutil.Feed(scanner, []byte(content)))
	return rows, anchors
}

func TestTableScanner(t *testing.T) {
	cases := []struct {
		name    string
		content string
		isTable func([]html.Attribute) bool
		rows    [][]string
		anchors []string
	}{
		{
			name: "basic",
			content: `<table>
				<tr><th>Task</th><th>Credit</th></tr>
				<tr><td>task_1</td><td> 12.5 </td></tr>
				<tr><td><a href="workunit.php?wuid=7">7</a></td><td>3<br>4</td></tr>
			</table>`,
			rows: [][]string{
				{"task_1", "12.5"},
				{"7", "3 4"},
			},
			anchors: []string{"workunit.php?wuid=7"},
		},
		{
			name: "predicate selects table",
			content: `<table class="nav"><tr><td>menu</td></tr></table>
				<table class="results"><tr><td>a</td><td>b</td></tr></table>`,
			isTable: func(attrs []html.Attribute) bool {
				return htmlutil.AttrContains(attrs, "class", "results")
			},
			rows: [][]string{{"a", "b"}},
		},
		{
			name: "nested table folds into cell",
			content: `<table>
				<tr><td>outer</td><td><table><tr><td>inner 1</td><td>inner 2</td></tr></table></td></tr>
				<tr><td>after</td><td>nested</td></tr>
			</table>`,
			rows: [][]string{
				{"outer", "inner 1 inner 2"},
				{"after", "nested"},
			},
		},
		{
			name:    "missing end tags",
			content: `<table><tr><td>a<td>b<tr><td>c<td>d</table>`,
			rows: [][]string{
				{"a", "b"},
				{"c", "d"},
			},
		},
		{
			name:    "anchors outside the table",
			content: `<p><a href="?offset=20">Next</a></p><table><tr><td>x</td></tr></table><a>no href</a>`,
			rows:    [][]string{{"x"}},
			anchors: []string{"?offset=20"},
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			rows, anchors := scanRows(t, test.content, test.isTable)
			if diff := cmp.Diff(test.rows, rows); diff != "" {
				t.Fatalf("rows (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(test.anchors, anchors); diff != "" {
				t.Fatalf("anchors (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTableScannerPosition(t *testing.T) {
	var cellAtAnchor []int
	scanner := &TableScanner{}
	scanner.OnAnchor = func(string) {
		cellAtAnchor = append(cellAtAnchor, scanner.Cell())
	}
	content := `<a href="x">out</a><table><tr><td>a</td><td><a href="y">b</a></td></tr></table>`
	require.NoError(t, htmlutil.Feed(scanner, []byte(content)))
	require.Equal(t, []int{-1, 1}, cellAtAnchor)
	require.False(t, scanner.InTable())
}

func TestAccept(t *testing.T) {
	primary := Layout{Name: "primary", Fields: []string{FieldTask, FieldCredit, FieldApplication}}
	secondary := Layout{Name: "secondary", Fields: []string{FieldTask, FieldCredit}}

	rec := &telemetry.Recorder{}
	row, ok := Accept(rec, []string{"t1", "10", "app"}, primary, secondary)
	require.True(t, ok)
	require.Equal(t, "primary", row.Layout.Name)
	require.Equal(t, "app", row.Get(FieldApplication))

	row, ok = Accept(rec, []string{"t2", "11"}, primary, secondary)
	require.True(t, ok)
	require.Equal(t, "secondary", row.Layout.Name)
	require.Equal(t, "11", row.Get(FieldCredit))
	require.Equal(t, "", row.Get(FieldApplication))
	require.False(t, row.Has(FieldApplication))

	for _, cells := range [][]string{{"1"}, {"1", "2", "3", "4"}} {
		_, ok = Accept(rec, cells, primary, secondary)
		require.False(t, ok)
	}
	require.Equal(t, 2, rec.Count(telemetry.SeverityDebug, "dropping row"))
}

func TestPendingPages(t *testing.T) {
	var pages PendingPages
	pages.MarkSeen("0")
	require.False(t, pages.Add("0"))
	require.True(t, pages.Add("20"))
	require.False(t, pages.Add("20"))
	require.True(t, pages.Add("40"))
	require.Equal(t, []string{"20", "40"}, pages.Take())
	require.Equal(t, 0, pages.Len())
	require.False(t, pages.Add("40"))
}

type stubBrowser struct {
	pages  map[string]string
	visits map[string]int
}

func (b *stubBrowser) Visit(_ context.Context, page string) []byte {
	b.visits[page]++
	return []byte(b.pages[page])
}

func (b *stubBrowser) VisitURL(context.Context, string, string) []byte {
	return nil
}

// countingExtractor counts the rows of every page and follows offset links.
type countingExtractor struct {
	pending PendingPages
	rows    int
}

func (e *countingExtractor) Pending() *PendingPages {
	return &e.pending
}

func (e *countingExtractor) Feed(_ context.Context, content []byte) error {
	links := PageLinks{Pattern: regexp.MustCompile(`offset=(\d+)`), Pages: &e.pending}
	scanner := &TableScanner{
		OnRow:    func([]string) { e.rows++ },
		OnAnchor: func(href string) { links.Match(href) },
	}
	return htmlutil.Feed(scanner, content)
}

func TestExtractPaginates(t *testing.T) {
	page := func(rows int, links ...string) string {
		var sb strings.Builder
		sb.WriteString("<table>")
		for range rows {
			sb.WriteString("<tr><td>row</td></tr>")
		}
		sb.WriteString("</table>")
		for _, l := range links {
			sb.WriteString(`<a href="results.php?offset=` + l + `">` + l + `</a>`)
		}
		return sb.String()
	}
	browser := &stubBrowser{
		pages: map[string]string{
			"0":  page(3, "0", "20", "40"),
			"20": page(2, "0", "20", "40", "60"),
			"40": page(1, "20"),
			"60": page(4),
		},
		visits: map[string]int{},
	}

	e := &countingExtractor{}
	fed := Extract(context.Background(), browser, e, "0")
	require.Equal(t, 4, fed)
	require.Equal(t, 10, e.rows)
	require.Equal(t, map[string]int{"0": 1, "20": 1, "40": 1, "60": 1}, browser.visits)
}

func TestExtractEmptyFirstPage(t *testing.T) {
	browser := &stubBrowser{pages: map[string]string{}, visits: map[string]int{}}
	e := &countingExtractor{}
	require.Equal(t, 0, Extract(context.Background(), browser, e, "1"))
	require.Equal(t, 0, e.rows)
}

func TestParseTime(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"19 Oct 2026, 14:05:33 UTC", time.Date(2026, 10, 19, 14, 5, 33, 0, time.UTC), true},
		{"19 Oct 2026 | 14:05:33 UTC", time.Date(2026, 10, 19, 14, 5, 33, 0, time.UTC), true},
		{"10/19/26 14:05:33", time.Date(2026, 10, 19, 14, 5, 33, 0, time.UTC), true},
		{"2026-10-19T14:05:33", time.Date(2026, 10, 19, 14, 5, 33, 0, time.UTC), true},
		{"2026/10/19", time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), true},
		{"---", time.Time{}, false},
		{"", time.Time{}, false},
		{"not a time", time.Time{}, false},
		{"12:30", time.Time{}, false},
		{"1.5", time.Time{}, false},
		{"1/", time.Time{}, false},
		{"2024-", time.Time{}, false},
	}
	for _, test := range cases {
		got, ok := ParseTime(test.in)
		require.Equal(t, test.ok, ok, test.in)
		require.True(t, test.want.Equal(got), "%s: %v != %v", test.in, test.want, got)
	}
}

func TestParseDurations(t *testing.T) {
	d, ok := ParseSeconds("12,345.5")
	require.True(t, ok)
	require.Equal(t, 12345500*time.Millisecond, d)

	d, ok = ParseHours("1.25")
	require.True(t, ok)
	require.Equal(t, 75*time.Minute, d)

	d, ok = ParseDuration("1:02:03")
	require.True(t, ok)
	require.Equal(t, time.Hour+2*time.Minute+3*time.Second, d)

	d, ok = ParseDuration("2:01:00:00")
	require.True(t, ok)
	require.Equal(t, 49*time.Hour, d)

	_, ok = ParseDuration("1:xx")
	require.False(t, ok)
	_, ok = ParseDuration("---")
	require.False(t, ok)
	_, ok = ParseDuration("-5")
	require.False(t, ok)
	_, ok = ParseHours("-0.5")
	require.False(t, ok)

	n, ok := ParseNumber("1,024.75")
	require.True(t, ok)
	require.Equal(t, 1024.75, n)
}
