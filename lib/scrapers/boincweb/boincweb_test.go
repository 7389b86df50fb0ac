package boincweb

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"boincstats/lib/boinc"
	"boincstats/lib/diskcache"
	"boincstats/lib/htmlutil"
	"boincstats/lib/scrapers/core"
	"boincstats/lib/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const stubBase = "https://universe.example.org/universe/"

type stubBrowser struct {
	pages   map[string]string
	details map[string]string

	visits    map[string]int
	urlVisits map[string]int
}

func newStubBrowser(pages, details map[string]string) *stubBrowser {
	return &stubBrowser{
		pages:     pages,
		details:   details,
		visits:    map[string]int{},
		urlVisits: map[string]int{},
	}
}

func (b *stubBrowser) Visit(_ context.Context, page string) []byte {
	b.visits[page]++
	return []byte(b.pages[page])
}

func (b *stubBrowser) VisitURL(_ context.Context, link, _ string) []byte {
	b.urlVisits[link]++
	return []byte(b.details[link])
}

type resultRow struct {
	task, wuid, host, sent, deadline, status, runTime, cpuTime, credit, app string
}

func (r resultRow) html(withApp bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<tr><td><a href="result.php?resultid=%s">%s</a></td>`, r.task, r.task)
	fmt.Fprintf(&sb, `<td><a href="workunit.php?wuid=%s">%s</a></td>`, r.wuid, r.wuid)
	fmt.Fprintf(&sb, `<td><a href="show_host_detail.php?hostid=%s">%s</a></td>`, r.host, r.host)
	for _, cell := range []string{r.sent, r.deadline, r.status, r.runTime, r.cpuTime, r.credit} {
		fmt.Fprintf(&sb, "<td>%s</td>", cell)
	}
	if withApp {
		fmt.Fprintf(&sb, "<td>%s</td>", r.app)
	}
	sb.WriteString("</tr>\n")
	return sb.String()
}

func row(task, wuid string) resultRow {
	return resultRow{
		task:     task,
		wuid:     wuid,
		host:     "9",
		sent:     "19 Oct 2026, 14:05:33 UTC",
		deadline: "20 Oct 2026, 02:11:09 UTC",
		status:   "Completed and validated",
		runTime:  "3,600.00",
		cpuTime:  "3,550.50",
		credit:   "120.50",
		app:      "Universe BHspin v2 v0.01 (x86_64-pc-linux-gnu)",
	}
}

func resultsPage(rows []string, offsets ...int) string {
	var sb strings.Builder
	sb.WriteString("<html><body>\n")
	sb.WriteString(`<table class="table table-condensed table-striped">` + "\n")
	sb.WriteString("<tr><th>Task</th><th>Work unit</th><th>Computer</th><th>Sent</th><th>Time reported or deadline</th>" +
		"<th>Status</th><th>Run time (sec)</th><th>CPU time (sec)</th><th>Credit</th><th>Application</th></tr>\n")
	for _, r := range rows {
		sb.WriteString(r)
	}
	sb.WriteString("</table>\n")
	for _, offset := range offsets {
		fmt.Fprintf(&sb, `<a href="results.php?userid=7&amp;offset=%d&amp;show_names=0">%d</a>`+"\n", offset, offset)
	}
	sb.WriteString("</body></html>\n")
	return sb.String()
}

func workunitPage(app string) string {
	return `<html><body><table>
<tr><td class="fieldname">name</td><td class="fieldvalue">wu_55</td></tr>
<tr><td class="fieldname">application</td><td class="fieldvalue">` + app + `</td></tr>
<tr><td class="fieldname">created</td><td class="fieldvalue">18 Oct 2026</td></tr>
</table></body></html>`
}

func TestRecordAcceptance(t *testing.T) {
	full := []string{"1", "2", "3", "sent", "deadline", "status", "10", "9", "1.5", "app"}
	cases := []struct {
		name   string
		cells  []string
		layout string
	}{
		{name: "primary", cells: full, layout: ResultsLayout.Name},
		{name: "secondary", cells: full[:9], layout: ResultsLayoutNoApp.Name},
		{name: "too short", cells: full[:8]},
		{name: "too long", cells: append(append([]string{}, full...), "extra")},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			rec := &telemetry.Recorder{}
			e := NewResultsExtractor(nil, nil, rec)

			var sb strings.Builder
			sb.WriteString(`<table class="table"><tr>`)
			for _, c := range test.cells {
				sb.WriteString("<td>" + c + "</td>")
			}
			sb.WriteString("</tr></table>")
			require.NoError(t, e.Feed(context.Background(), []byte(sb.String())))

			if test.layout == "" {
				require.Empty(t, e.Rows)
				require.Equal(t, 1, rec.Count(telemetry.SeverityDebug, "dropping row"))
				return
			}
			require.Len(t, e.Rows, 1)
			require.Equal(t, test.layout, e.Rows[0].Layout.Name)
			require.Equal(t, test.cells, e.Rows[0].Cells)
		})
	}
}

func TestPaginationAndDetail(t *testing.T) {
	base, err := url.Parse(stubBase)
	require.NoError(t, err)

	browser := newStubBrowser(
		map[string]string{
			"20": resultsPage([]string{row("201", "56").html(true), row("202", "55").html(true)}, 0, 20, 40),
			"40": resultsPage([]string{row("401", "57").html(true), row("402", "57").html(true), row("403", "56").html(true)}, 20),
		},
		map[string]string{
			stubBase + "workunit.php?wuid=55": workunitPage("Universe BHspin v2"),
			stubBase + "workunit.php?wuid=56": workunitPage("Universe BHspin v2"),
			stubBase + "workunit.php?wuid=57": workunitPage("Universe Classic"),
		},
	)
	rec := &telemetry.Recorder{}
	e := NewResultsExtractor(nil, NewWorkunitResolver(browser, base, rec), rec)
	e.Pending().MarkSeen(FirstPage)

	first := resultsPage([]string{row("101", "55").html(true)}, 20, 40, 20)
	require.NoError(t, e.Feed(context.Background(), []byte(first)))

	require.Len(t, e.Rows, 1)
	require.Equal(t, "Universe BHspin v2", e.Rows[0].Detail)
	require.Equal(t, 2, e.Pending().Len())

	fed := core.Paginate(context.Background(), browser, e)
	require.Equal(t, 2, fed)
	require.Len(t, e.Rows, 1+2+3)
	require.Equal(t, map[string]int{"20": 1, "40": 1}, browser.visits)

	details := make([]string, len(e.Rows))
	for i, r := range e.Rows {
		details[i] = r.Detail
	}
	require.Equal(t, []string{
		"Universe BHspin v2",
		"Universe BHspin v2",
		"Universe BHspin v2",
		"Universe Classic",
		"Universe Classic",
		"Universe BHspin v2",
	}, details)
	for link, count := range browser.urlVisits {
		require.Equal(t, 1, count, link)
	}
}

func TestTaskFromRow(t *testing.T) {
	states := boinc.DefaultStates()
	r := row("101", "55")

	rows := []core.Row{
		{Layout: ResultsLayout, Cells: []string{r.task, r.wuid, r.host, r.sent, r.deadline, r.status, r.runTime, r.cpuTime, r.credit, r.app}},
		{Layout: ResultsLayoutNoApp, Cells: []string{r.task, r.wuid, r.host, r.sent, r.deadline, "Error while computing", r.runTime, r.cpuTime, "pending"}, Detail: "Universe Classic"},
	}
	expected := []boinc.Task{
		{
			Site:        "universe",
			Project:     "Universe@Home",
			Application: r.app,
			Name:        "101",
			Workunit:    "55",
			Device:      "9",
			State:       boinc.StateValid,
			Sent:        time.Date(2026, 10, 19, 14, 5, 33, 0, time.UTC),
			Deadline:    time.Date(2026, 10, 20, 2, 11, 9, 0, time.UTC),
			RunTime:     time.Hour,
			CPUTime:     3550*time.Second + 500*time.Millisecond,
			Credit:      120.5,
		},
		{
			Site:        "universe",
			Project:     "Universe@Home",
			Application: "Universe Classic",
			Name:        "101",
			Workunit:    "55",
			Device:      "9",
			State:       boinc.StateError,
			Sent:        time.Date(2026, 10, 19, 14, 5, 33, 0, time.UTC),
			Deadline:    time.Date(2026, 10, 20, 2, 11, 9, 0, time.UTC),
			RunTime:     time.Hour,
			CPUTime:     3550*time.Second + 500*time.Millisecond,
		},
	}

	for i, row := range rows {
		task := TaskFromRow(row, "universe", "Universe@Home", states)
		if diff := cmp.Diff(expected[i], task); diff != "" {
			t.Fatalf("task %d (-want +got):\n%s", i, diff)
		}
	}
}

func TestExtractApplication(t *testing.T) {
	app, err := ExtractApplication([]byte(workunitPage("Universe Classic")))
	require.NoError(t, err)
	require.Equal(t, "Universe Classic", app)

	app, err = ExtractApplication([]byte(`<table><tr><th>Application:</th><td> Asteroids </td></tr></table>`))
	require.NoError(t, err)
	require.Equal(t, "Asteroids", app)

	app, err = ExtractApplication([]byte(`<p>nothing here</p>`))
	require.NoError(t, err)
	require.Equal(t, "", app)
}

const userPage = `<html><body>
<table class="table">
<tr><td>Name</td><td>alice</td></tr>
<tr><td>Badges</td><td>
  <img title="Gold badge for 1 million credit" src="img/badges/gold.png">
  <img alt="Silver badge" src="img/badges/silver.png">
  <img title="no source">
</td></tr>
<tr><td>Country</td><td><img title="flag" src="img/flag.png"></td></tr>
</table>
</body></html>`

func TestBadgeExtractor(t *testing.T) {
	rec := &telemetry.Recorder{}
	e := NewBadgeExtractor("Universe@Home", rec)
	require.NoError(t, htmlutil.Feed(e, []byte(userPage)))
	require.Equal(t, []boinc.Badge{
		{Project: "Universe@Home", Name: "Gold badge for 1 million credit", URL: "img/badges/gold.png"},
		{Project: "Universe@Home", Name: "Silver badge", URL: "img/badges/silver.png"},
	}, e.Badges)
	require.Equal(t, 1, rec.Count(telemetry.SeverityDebug, "without src"))
}

type fakeServer struct {
	*httptest.Server

	lock   sync.Mutex
	counts map[string]int
}

func (s *fakeServer) count(key string) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.counts[key]
}

func newFakeServer(t testing.TB) *fakeServer {
	pages := map[string]string{
		"0":  resultsPage([]string{row("1", "55").html(true)}, 0, 20),
		"20": resultsPage([]string{row("2", "55").html(true), row("3", "55").html(true)}, 0, 20),
	}
	s := &fakeServer{counts: map[string]int{}}

	mux := http.NewServeMux()
	mux.HandleFunc("/universe/results.php", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pages[r.URL.Query().Get("offset")]))
	})
	mux.HandleFunc("/universe/workunit.php", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(workunitPage("Universe BHspin v2")))
	})
	mux.HandleFunc("/universe/show_user.php", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(userPage))
	})
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.lock.Lock()
		s.counts[r.URL.Path]++
		s.lock.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func TestClientScrape(t *testing.T) {
	server := newFakeServer(t)
	cache, err := diskcache.New(diskcache.Options{Dir: t.TempDir(), Tel: &telemetry.Recorder{}})
	require.NoError(t, err)

	client, err := NewClient(ClientOptions{
		Name:     "universe",
		Project:  "Universe@Home",
		BaseURL:  server.URL + "/universe/",
		UserID:   "7",
		Email:    "alice@example.org",
		Password: "hunter2",
		Cache:    cache,
		Tel:      &telemetry.Recorder{},
	})
	require.NoError(t, err)
	require.Equal(t, server.URL+"/universe/show_user.php?userid=7", client.UserURL())

	harvest := client.Scrape(context.Background())
	require.Equal(t, "universe", harvest.Site)
	require.Equal(t, []boinc.Project{{Name: "Universe@Home", URL: server.URL + "/universe/"}}, harvest.Projects)
	require.Len(t, harvest.Tasks, 3)
	for _, task := range harvest.Tasks {
		require.Equal(t, "Universe BHspin v2", task.Application)
		require.Equal(t, "Universe@Home", task.Project)
	}
	require.Len(t, harvest.Badges, 2)
	require.Equal(t, server.URL+"/universe/img/badges/gold.png", harvest.Badges[0].URL)

	require.Equal(t, 2, server.count("/universe/results.php"))
	require.Equal(t, 1, server.count("/universe/workunit.php"))
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	cache, err := diskcache.New(diskcache.Options{Dir: t.TempDir()})
	require.NoError(t, err)
	_, err = NewClient(ClientOptions{Name: "nowhere", Cache: cache})
	require.Error(t, err)
}
