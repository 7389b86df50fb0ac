package core

import (
	"context"
	"regexp"

	"boincstats/lib/htmlutil"
)

// Browser is what extractors need from a browser.Browser.
type Browser interface {
	// Visit returns the listing page of a page token, empty when it cannot
	// be fetched or was already visited.
	Visit(ctx context.Context, page string) []byte
	// VisitURL returns the contents of an arbitrary url, empty on failure.
	VisitURL(ctx context.Context, url, ext string) []byte
}

// PendingPages is an ordered set of page tokens left to visit. A token is
// only ever queued once, even after it was taken.
type PendingPages struct {
	seen  map[string]struct{}
	queue []string
}

// MarkSeen records a token as visited without queueing it.
func (p *PendingPages) MarkSeen(token string) {
	if p.seen == nil {
		p.seen = map[string]struct{}{}
	}
	p.seen[token] = struct{}{}
}

// Add queues a token, it returns false if the token was already known.
func (p *PendingPages) Add(token string) bool {
	if _, ok := p.seen[token]; ok {
		return false
	}
	p.MarkSeen(token)
	p.queue = append(p.queue, token)
	return true
}

// Take removes and returns all queued tokens.
func (p *PendingPages) Take() []string {
	queue := p.queue
	p.queue = nil
	return queue
}

func (p *PendingPages) Len() int {
	return len(p.queue)
}

// Paginated is an extractor that discovers further pages while parsing.
type Paginated interface {
	Feed(ctx context.Context, content []byte) error
	Pending() *PendingPages
}

// Paginate visits the pending pages of e until none are left, feeding every
// page back into e. It returns the number of pages fed.
func Paginate(ctx context.Context, browser Browser, e Paginated) int {
	fed := 0
	for e.Pending().Len() > 0 {
		for _, token := range e.Pending().Take() {
			if ctx.Err() != nil {
				return fed
			}
			content := browser.Visit(ctx, token)
			if len(content) == 0 {
				continue
			}
			// a page that fails to tokenize still contributes its rows up
			// to the error
			_ = e.Feed(ctx, content)
			fed++
		}
	}
	return fed
}

// Extract feeds the first page into e and then paginates. It returns the
// number of pages fed.
func Extract(ctx context.Context, browser Browser, e Paginated, first string) int {
	e.Pending().MarkSeen(first)
	content := browser.Visit(ctx, first)
	if len(content) == 0 {
		return 0
	}
	_ = e.Feed(ctx, content)
	return 1 + Paginate(ctx, browser, e)
}

// PageLinks matches hrefs against a pattern whose first group is the page
// token and queues the tokens it finds.
type PageLinks struct {
	Pattern *regexp.Regexp
	Pages   *PendingPages
}

func (l PageLinks) Match(href string) bool {
	m := l.Pattern.FindStringSubmatch(href)
	if len(m) < 2 {
		return false
	}
	l.Pages.Add(m[1])
	return true
}

var _ htmlutil.Handler = (*TableScanner)(nil)
