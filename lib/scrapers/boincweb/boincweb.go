// Package boincweb scrapes the web front end every BOINC project server
// ships: the results pages of a user, the workunit pages they link to and
// the badges of the user page.
package boincweb

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

var tracer = otel.Tracer("boincstats/scrapers/boincweb")

// FirstPage is the offset of the first results page.
const FirstPage = "0"

type ClientOptions struct {
	// Name identifies the site, it names the session file.
	Name string
	// Project is the display name of the project, defaults to Name.
	Project string
	// BaseURL is the project root, the directory results.php lives in.
	BaseURL string
	UserID  string

	Email    string
	Password string

	// Layouts of the results table, DefaultLayouts when empty.
	Layouts []core.Layout

	RequestsPerSecond float64
	CloudflareBypass  bool

	Cache  *diskcache.Cache
	States *boinc.StateSet
	Tel    telemetry.API
}

type Client struct {
	Browser core.Browser

	name     string
	project  string
	base     *url.URL
	userID   string
	layouts  []core.Layout
	resolver *WorkunitResolver
	states   *boinc.StateSet
	tel      telemetry.API
}

// ResultsTemplate is the url of the results pages of a user.
func ResultsTemplate(baseURL, userID string) string {
	return strings.TrimSuffix(baseURL, "/") +
		"/results.php?userid=" + url.QueryEscape(userID) +
		"&offset=" + browser.PageToken +
		"&show_names=0&state=0&appid="
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("boincweb: no base url for %q", opts.Name)
	}
	if opts.Project == "" {
		opts.Project = opts.Name
	}
	if opts.States == nil {
		opts.States = boinc.DefaultStates()
	}
	root := strings.TrimSuffix(opts.BaseURL, "/")
	base, err := url.Parse(root + "/")
	if err != nil {
		return nil, fmt.Errorf("boincweb: parse base url: %w", err)
	}
	tel := telemetry.NewScopedAPI("boincweb", telemetry.OrDefault(opts.Tel))

	b, err := browser.New(browser.Options{
		Site: browser.Site{
			Name:         opts.Name,
			PageTemplate: ResultsTemplate(root, opts.UserID),
			LoginURL:     root + "/login_action.php",
			LoginForm: map[string]string{
				"email_addr":     opts.Email,
				"passwd":         opts.Password,
				"stay_logged_in": "on",
			},
			RequestsPerSecond: opts.RequestsPerSecond,
			CloudflareBypass:  opts.CloudflareBypass,
		},
		Cache: opts.Cache,
		Tel:   opts.Tel,
	})
	if err != nil {
		return nil, fmt.Errorf("boincweb: %w", err)
	}

	return &Client{
		Browser:  b,
		name:     opts.Name,
		project:  opts.Project,
		base:     base,
		userID:   opts.UserID,
		layouts:  opts.Layouts,
		resolver: NewWorkunitResolver(b, base, tel),
		states:   opts.States,
		tel:      tel,
	}, nil
}

func (c *Client) Name() string {
	return c.name
}

// Rows reads every results page reachable from the first one, resolving
// the workunit page of every row on the way.
func (c *Client) Rows(ctx context.Context) []core.Row {
	ctx, span := tracer.Start(ctx, "boincweb:Rows")
	defer span.End()

	e := NewResultsExtractor(c.layouts, c.resolver, c.tel)
	pages := core.Extract(ctx, c.Browser, e, FirstPage)
	c.tel.ReportDebug("read results", c.name, pages, len(e.Rows))
	return e.Rows
}

func (c *Client) Tasks(ctx context.Context) []boinc.Task {
	rows := c.Rows(ctx)
	tasks := make([]boinc.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, TaskFromRow(row, c.name, c.project, c.states))
	}
	return tasks
}

// UserURL is the public page of the user, home.php when the user id is
// unknown.
func (c *Client) UserURL() string {
	if c.userID == "" {
		return c.base.JoinPath("home.php").String()
	}
	u := c.base.JoinPath("show_user.php")
	u.RawQuery = url.Values{"userid": {c.userID}}.Encode()
	return u.String()
}

func (c *Client) Badges(ctx context.Context) []boinc.Badge {
	ctx, span := tracer.Start(ctx, "boincweb:Badges")
	defer span.End()

	content := c.Browser.VisitURL(ctx, c.UserURL(), diskcache.ExtHTML)
	if len(content) == 0 {
		return nil
	}
	e := NewBadgeExtractor(c.project, c.tel)
	err := htmlutil.Feed(e, content)
	if err != nil {
		c.tel.ReportWarning(report_boincweb_badges, fmt.Errorf("read user page: %w", err))
	}
	for i, b := range e.Badges {
		ref, err := url.Parse(b.URL)
		if err != nil {
			continue
		}
		e.Badges[i].URL = c.base.ResolveReference(ref).String()
	}
	return e.Badges
}

// Scrape runs the whole pipeline of the site.
func (c *Client) Scrape(ctx context.Context) boinc.Harvest {
	return boinc.Harvest{
		Site:     c.name,
		Projects: []boinc.Project{{Name: c.project, URL: c.base.String()}},
		Tasks:    c.Tasks(ctx),
		Badges:   c.Badges(ctx),
	}
}
