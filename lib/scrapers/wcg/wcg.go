// Package wcg scrapes the results and member statistics of World Community
// Grid.
package wcg

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"boincstats/lib/boinc"
	"boincstats/lib/browser"
	"boincstats/lib/diskcache"
	"boincstats/lib/htmlutil"
	"boincstats/lib/scrapers/core"
	"boincstats/lib/telemetry"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("boincstats/scrapers/wcg")

const (
	SiteName       = "worldcommunitygrid"
	DefaultBaseURL = "https://www.worldcommunitygrid.org"
	// LoginMarker is in the first line of the page served in place of a
	// members only page when the session is gone.
	LoginMarker = "Please log in"
	// FirstPage is the page number of the first results page.
	FirstPage = "1"
)

type ClientOptions struct {
	// Name defaults to SiteName.
	Name    string
	BaseURL string

	Username string
	Password string
	// VerificationCode is the member's code for the statistics export.
	VerificationCode string

	RequestsPerSecond float64
	CloudflareBypass  bool

	Cache  *diskcache.Cache
	States *boinc.StateSet
	Tel    telemetry.API
}

type Client struct {
	Browser core.Browser

	baseURL          string
	username         string
	verificationCode string
	states           *boinc.StateSet
	tel              telemetry.API
	name             string
}

// ResultsTemplate is the url of the results status pages of a site root.
func ResultsTemplate(baseURL string) string {
	return strings.TrimSuffix(baseURL, "/") +
		"/ms/viewBoincResults.do?filterDevice=0&filterStatus=-1&projectId=-1&sortBy=sentTime&pageNum=" +
		browser.PageToken
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Name == "" {
		opts.Name = SiteName
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.States == nil {
		opts.States = boinc.DefaultStates()
	}
	base := strings.TrimSuffix(opts.BaseURL, "/")
	tel := telemetry.NewScopedAPI("wcg", telemetry.OrDefault(opts.Tel))

	b, err := browser.New(browser.Options{
		Site: browser.Site{
			Name:         opts.Name,
			PageTemplate: ResultsTemplate(base),
			LoginURL:     base + "/j_security_check",
			LoginForm: map[string]string{
				"j_username": opts.Username,
				"j_password": opts.Password,
			},
			LoginMarker:       LoginMarker,
			RequestsPerSecond: opts.RequestsPerSecond,
			CloudflareBypass:  opts.CloudflareBypass,
		},
		Cache: opts.Cache,
		Tel:   opts.Tel,
	})
	if err != nil {
		return nil, fmt.Errorf("wcg: %w", err)
	}

	return &Client{
		Browser:          b,
		baseURL:          base,
		username:         opts.Username,
		verificationCode: opts.VerificationCode,
		states:           opts.States,
		tel:              tel,
		name:             opts.Name,
	}, nil
}

func (c *Client) Name() string {
	return c.name
}

// Tasks reads every results page reachable from the first one.
func (c *Client) Tasks(ctx context.Context) []boinc.Task {
	ctx, span := tracer.Start(ctx, "wcg:Tasks")
	defer span.End()

	e := NewResultsExtractor(c.tel)
	pages := core.Extract(ctx, c.Browser, e, FirstPage)
	c.tel.ReportDebug("read results", pages, len(e.Rows))

	tasks := e.Tasks(c.states)
	for i := range tasks {
		tasks[i].Site = c.name
	}
	return tasks
}

// StatisticsURL is the member statistics export of a member.
func (c *Client) StatisticsURL() string {
	query := url.Values{}
	query.Set("name", c.username)
	query.Set("code", c.verificationCode)
	return c.baseURL + "/verifyMember.do?" + query.Encode()
}

// Statistics reads the member statistics export. An empty extractor is
// returned when the export cannot be fetched.
func (c *Client) Statistics(ctx context.Context) *StatsExtractor {
	ctx, span := tracer.Start(ctx, "wcg:Statistics")
	defer span.End()

	e := NewStatsExtractor(c.tel)
	if c.verificationCode == "" {
		c.tel.ReportDebug("no verification code, skipping statistics", c.name)
		return e
	}
	content := c.Browser.VisitURL(ctx, c.StatisticsURL(), diskcache.ExtXML)
	if len(content) == 0 {
		return e
	}
	err := htmlutil.Feed(e, content)
	if err != nil {
		c.tel.ReportWarning(report_wcg_statistics, fmt.Errorf("read statistics: %w", err))
	}
	return e
}

// Scrape runs the whole pipeline of the site.
func (c *Client) Scrape(ctx context.Context) boinc.Harvest {
	stats := c.Statistics(ctx)
	tasks := c.Tasks(ctx)
	return boinc.Harvest{
		Site:     c.name,
		Projects: stats.Projects,
		Tasks:    tasks,
		Badges:   stats.Badges,
	}
}
