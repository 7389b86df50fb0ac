// Package browser is a caching, authenticating web client for a single site.
//
// A Browser owns the session (cookie jar) of its site and reads through a
// diskcache.Cache. It is not safe for concurrent use, run one Browser per
// site pipeline.
package browser

import (
	"bytes"
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"boincstats/lib/diskcache"
	"boincstats/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("boincstats/browser")

const (
	report_browser_visit_url    = "browser.visit-url"
	report_browser_authenticate = "browser.authenticate"
	report_browser_session      = "browser.session"
)

// PageToken is the placeholder substituted in Site.PageTemplate.
const PageToken = "{page}"

// maxRedirects caps the redirects followed by a single fetch.
const maxRedirects = 10

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// Site describes where the pages of a site live and how to log into it.
type Site struct {
	// Name identifies the session file of the site.
	Name string
	// PageTemplate is the url of a listing page, PageToken is replaced by
	// the page number or offset.
	PageTemplate string
	LoginURL     string
	LoginForm    map[string]string
	// LoginMarker is a substring that is present in the first line of a
	// page only when the site served its login prompt instead.
	LoginMarker string
	// PageExt is the cache extension of listing pages, defaults to ".html".
	PageExt string

	// 0 means unlimited
	RequestsPerSecond float64
	CloudflareBypass  bool
	// 0 leaves the http client default
	Timeout time.Duration
}

func (s Site) PageURL(token string) string {
	return strings.ReplaceAll(s.PageTemplate, PageToken, token)
}

type Options struct {
	Site  Site
	Cache *diskcache.Cache
	Tel   telemetry.API
}

type Browser struct {
	site    Site
	cache   *diskcache.Cache
	http    *resty.Client
	jar     *cookiejar.Jar
	tel     telemetry.API
	visited map[string]struct{}
}

func New(opts Options) (*Browser, error) {
	if opts.Cache == nil {
		return nil, fmt.Errorf("browser: no cache given")
	}
	if opts.Site.PageExt == "" {
		opts.Site.PageExt = diskcache.ExtHTML
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	tel := telemetry.NewScopedAPI("browser", telemetry.OrDefault(opts.Tel))

	client := resty.New()
	client.SetCookieJar(jar)
	client.SetHeader("user-agent", userAgent)
	if opts.Site.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	if opts.Site.Timeout > 0 {
		client.SetTimeout(opts.Site.Timeout)
	}
	redirects := []any{resty.FlexibleRedirectPolicy(maxRedirects)}
	if opts.Site.LoginURL != "" {
		loginUrl, err := url.Parse(opts.Site.LoginURL)
		if err != nil {
			return nil, fmt.Errorf("browser: parse login url: %w", err)
		}
		redirects = append(redirects, resty.DomainCheckRedirectPolicy(loginUrl.Hostname()))
	}
	client.SetRedirectPolicy(redirects...)
	if opts.Site.RequestsPerSecond > 0 {
		limiter := rate.NewLimiter(rate.Limit(opts.Site.RequestsPerSecond), 1)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}
	telemetry.InstrumentResty(client, tel)

	b := &Browser{
		site:    opts.Site,
		cache:   opts.Cache,
		http:    client,
		jar:     jar,
		tel:     tel,
		visited: map[string]struct{}{},
	}
	b.loadSession()
	return b, nil
}

func (b *Browser) Site() Site {
	return b.site
}

func (b *Browser) Cache() *diskcache.Cache {
	return b.cache
}

// Visit fetches the listing page of a page token. A page url that was
// already visited by this Browser yields empty content without a fetch.
func (b *Browser) Visit(ctx context.Context, page string) []byte {
	link := b.site.PageURL(page)
	if _, seen := b.visited[link]; seen {
		b.tel.ReportDebug("already visited", link)
		return nil
	}
	b.visited[link] = struct{}{}
	return b.VisitURL(ctx, link, b.site.PageExt)
}

// VisitURL returns the contents of link from the cache, or fetches it. When
// the site redirects to its login, the Browser authenticates and retries
// exactly once. Any failure yields empty content.
func (b *Browser) VisitURL(ctx context.Context, link, ext string) []byte {
	return b.visitURL(ctx, link, ext, false)
}

func (b *Browser) visitURL(ctx context.Context, link, ext string, retry bool) []byte {
	ctx, span := tracer.Start(ctx, "browser:VisitURL")
	defer span.End()
	span.SetAttributes(
		attribute.String("url", link),
		attribute.Bool("custom.retry", retry),
	)

	cached, ok := b.cache.Lookup(link, ext)
	if ok {
		span.SetStatus(codes.Ok, "CACHE HIT")
		return cached
	}

	res, err := b.http.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		b.tel.ReportWarning(report_browser_visit_url, fmt.Errorf("fetch: %w", err), link)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return nil
	}
	if res.IsError() {
		b.tel.ReportWarning(report_browser_visit_url, fmt.Errorf("fetch: unexpected status %s", res.Status()), link)
		span.SetStatus(codes.Error, res.Status())
		return nil
	}

	body := res.Body()
	if b.redirected(link, res) {
		if retry {
			b.tel.ReportBroken(
				report_browser_visit_url,
				fmt.Errorf("still redirected to login after authenticating, giving up"),
				link,
			)
			span.SetStatus(codes.Error, "authentication did not take")
			return nil
		}
		b.tel.ReportDebug("redirected to login", link)
		b.Authenticate(ctx)
		return b.visitURL(ctx, link, ext, true)
	}

	err = b.cache.Store(link, body, ext)
	if err != nil {
		span.RecordError(err)
	}
	return body
}

func firstLine(body []byte) []byte {
	idx := bytes.IndexByte(body, '\n')
	if idx < 0 {
		return body
	}
	return body[:idx]
}

func sameURL(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return a == b
	}
	ub, err := url.Parse(b)
	if err != nil {
		return a == b
	}
	return ua.String() == ub.String()
}

func (b *Browser) redirected(link string, res *resty.Response) bool {
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		final := res.RawResponse.Request.URL.String()
		if !sameURL(link, final) {
			b.tel.ReportDebug("response url differs", link, final)
			return true
		}
	}
	if b.site.LoginMarker != "" && bytes.Contains(firstLine(res.Body()), []byte(b.site.LoginMarker)) {
		return true
	}
	return false
}

// Authenticate posts the login form of the site and persists the resulting
// session, whether the login went through or not.
func (b *Browser) Authenticate(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "browser:Authenticate")
	defer span.End()

	if b.site.LoginURL == "" {
		b.tel.ReportWarning(report_browser_authenticate, fmt.Errorf("site %q has no login url", b.site.Name))
		return
	}

	b.tel.ReportDebug("authenticating", b.site.Name, b.site.LoginURL)
	_, err := b.http.R().
		SetContext(ctx).
		SetFormData(b.site.LoginForm).
		Post(b.site.LoginURL)
	if err != nil {
		b.tel.ReportWarning(report_browser_authenticate, fmt.Errorf("login request: %w", err), b.site.LoginURL)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to post login")
	}

	b.saveSession()
}
