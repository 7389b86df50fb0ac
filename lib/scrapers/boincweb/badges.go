package boincweb

import (
	"strings"

	"boincstats/lib/boinc"
	"boincstats/lib/htmlutil"
	"boincstats/lib/telemetry"
	"boincstats/lib/textutil"

	"golang.org/x/net/html"
)

// BadgeExtractor finds the badges of a user page. They are the images of
// the table row labelled "Badges".
type BadgeExtractor struct {
	Badges []boinc.Badge

	project string
	tel     telemetry.API

	inRow        bool
	cell         int
	label        strings.Builder
	inBadgeField bool
}

func NewBadgeExtractor(project string, tel telemetry.API) *BadgeExtractor {
	return &BadgeExtractor{project: project, tel: telemetry.OrDefault(tel)}
}

func (e *BadgeExtractor) StartTag(name string, attrs []html.Attribute) {
	switch name {
	case "tr":
		e.inRow = true
		e.cell = 0
		e.label.Reset()
		e.inBadgeField = false
	case "td", "th":
		if e.inRow {
			e.cell++
		}
	case "img":
		if !e.inBadgeField {
			return
		}
		src, ok := htmlutil.Attr(attrs, "src")
		if !ok || src == "" {
			e.tel.ReportDebug("badge image without src")
			return
		}
		title := htmlutil.AttrOr(attrs, "title", "")
		if title == "" {
			title = htmlutil.AttrOr(attrs, "alt", "")
		}
		e.Badges = append(e.Badges, boinc.Badge{
			Project: e.project,
			Name:    textutil.CleanText(title),
			URL:     src,
		})
	}
}

func (e *BadgeExtractor) EndTag(name string) {
	switch name {
	case "td", "th":
		if e.inRow && e.cell == 1 {
			e.inBadgeField = strings.EqualFold(textutil.CleanText(e.label.String()), "badges")
		}
	case "tr":
		e.inRow = false
		e.inBadgeField = false
	}
}

func (e *BadgeExtractor) Text(text string) {
	if e.inRow && e.cell == 1 {
		e.label.WriteString(text)
	}
}
