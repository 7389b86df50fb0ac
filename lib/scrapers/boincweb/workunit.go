package boincweb

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"boincstats/lib/diskcache"
	"boincstats/lib/scrapers/core"
	"boincstats/lib/telemetry"
	"boincstats/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ExtractApplication reads the application name off a workunit page.
func ExtractApplication(content []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", err
	}

	var application string
	doc.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Children().Filter("td, th")
		if cells.Length() < 2 {
			return true
		}
		label := strings.TrimSuffix(textutil.CleanText(cells.Eq(0).Text()), ":")
		if !strings.EqualFold(label, "application") {
			return true
		}
		application = textutil.CleanText(cells.Eq(1).Text())
		return false
	})
	return application, nil
}

// WorkunitResolver resolves workunit links to the name of their
// application. Resolved names are remembered for the lifetime of the
// resolver on top of the disk cache.
type WorkunitResolver struct {
	browser core.Browser
	base    *url.URL
	memo    *expirable.LRU[string, string]
	tel     telemetry.API
}

func NewWorkunitResolver(browser core.Browser, base *url.URL, tel telemetry.API) *WorkunitResolver {
	return &WorkunitResolver{
		browser: browser,
		base:    base,
		memo:    expirable.NewLRU[string, string](4096, nil, time.Hour*24),
		tel:     telemetry.OrDefault(tel),
	}
}

func (r *WorkunitResolver) Resolve(ctx context.Context, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		r.tel.ReportDebug("unparsable workunit link", href)
		return ""
	}
	link := ref.String()
	if r.base != nil {
		link = r.base.ResolveReference(ref).String()
	}

	name, ok := r.memo.Get(link)
	if ok {
		return name
	}

	content := r.browser.VisitURL(ctx, link, diskcache.ExtHTML)
	if len(content) == 0 {
		return ""
	}
	name, err = ExtractApplication(content)
	if err != nil {
		r.tel.ReportWarning(report_boincweb_workunit, fmt.Errorf("parse workunit: %w", err), link)
		return ""
	}
	r.memo.Add(link, name)
	return name
}
