package wcg

import (
	"strconv"
	"strings"

	"boincstats/lib/boinc"
	"boincstats/lib/htmlutil"
	"boincstats/lib/scrapers/core"
	"boincstats/lib/telemetry"
	"boincstats/lib/textutil"

	"golang.org/x/net/html"
)

// StatsExtractor reads the member statistics document: the totals of the
// member, one entry per project contributed to and the badges earned.
type StatsExtractor struct {
	Projects []boinc.Project
	Badges   []boinc.Badge
	Totals   boinc.Statistics

	tel telemetry.API

	inProjects bool
	inProject  bool
	inBadge    bool
	inTotals   bool

	text    strings.Builder
	project boinc.Project
	stats   boinc.Statistics
	badge   boinc.Badge
}

func NewStatsExtractor(tel telemetry.API) *StatsExtractor {
	return &StatsExtractor{tel: telemetry.OrDefault(tel)}
}

func (e *StatsExtractor) StartTag(name string, attrs []html.Attribute) {
	e.text.Reset()
	switch name {
	case "memberstatsbyprojects":
		e.inProjects = true
	case "project":
		if e.inProjects {
			e.inProject = true
			e.project = boinc.Project{}
			e.stats = boinc.Statistics{}
		}
	case "statisticstotals":
		e.inTotals = true
	case "badge":
		e.inBadge = true
		e.badge = boinc.Badge{}
	case "resource":
		if e.inBadge {
			e.badge.URL = htmlutil.AttrOr(attrs, "url", "")
		}
	}
}

func (e *StatsExtractor) Text(text string) {
	e.text.WriteString(text)
}

func parseCount(s string) int {
	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return 0
	}
	return n
}

// fillStats sets the statistics field a closing tag holds, it reports if
// the tag was one.
func fillStats(stats *boinc.Statistics, name, value string) bool {
	switch name {
	case "runtime":
		stats.RunTime, _ = core.ParseSeconds(value)
	case "points":
		stats.Credit, _ = core.ParseNumber(value)
	case "results":
		stats.Results = parseCount(value)
	default:
		return false
	}
	return true
}

func (e *StatsExtractor) EndTag(name string) {
	value := textutil.CleanText(e.text.String())
	e.text.Reset()

	switch {
	case e.inBadge:
		switch name {
		case "projectname":
			e.badge.Project = value
		case "resource":
			e.badge.Name = value
		case "badge":
			e.inBadge = false
			if e.badge.URL == "" {
				e.tel.ReportDebug("dropping badge without url", e.badge.Project, e.badge.Name)
				return
			}
			e.Badges = append(e.Badges, e.badge)
		}
	case e.inProject:
		switch name {
		case "projectname":
			long, short := textutil.SplitName(value)
			e.project.Name = long
			if e.project.ShortName == "" {
				e.project.ShortName = short
			}
		case "projectshortname":
			e.project.ShortName = value
		case "project":
			e.inProject = false
			if e.project.Name == "" {
				e.tel.ReportDebug("dropping project without name", e.project.ShortName)
				return
			}
			stats := e.stats
			e.project.Reported = &stats
			e.Projects = append(e.Projects, e.project)
		default:
			fillStats(&e.stats, name, value)
		}
	case e.inTotals:
		if name == "statisticstotals" {
			e.inTotals = false
			return
		}
		fillStats(&e.Totals, name, value)
	case name == "memberstatsbyprojects":
		e.inProjects = false
	}
}

// ProjectNames are the long names of the projects in document order,
// mapped to their short names.
func (e *StatsExtractor) ProjectNames() ([]string, map[string]string) {
	order := make([]string, 0, len(e.Projects))
	short := make(map[string]string, len(e.Projects))
	for _, p := range e.Projects {
		order = append(order, p.Name)
		short[p.Name] = p.ShortName
	}
	return order, short
}
