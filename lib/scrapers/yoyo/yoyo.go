// Package yoyo scrapes yoyo@home, a BOINC project whose server still shows
// the older eleven column results table.
package yoyo

import (
	"boincstats/lib/scrapers/boincweb"
	"boincstats/lib/scrapers/core"
)

const (
	SiteName       = "yoyo"
	ProjectName    = "yoyo@home"
	DefaultBaseURL = "https://www.rechenkraft.net/yoyo"
)

// ResultsLayout splits the state of a task into the state on the server,
// its outcome and the state the client reported.
var ResultsLayout = core.Layout{
	Name: "yoyo-results",
	Fields: []string{
		core.FieldTask,
		core.FieldWorkunit,
		core.FieldComputer,
		core.FieldSent,
		core.FieldDeadline,
		core.FieldServerState,
		core.FieldOutcome,
		core.FieldClientState,
		core.FieldExitStatus,
		core.FieldCPUTime,
		core.FieldCredit,
	},
}

// NewClient is a boincweb client with the defaults of yoyo@home. The
// application of a task is only known from its workunit page.
func NewClient(opts boincweb.ClientOptions) (*boincweb.Client, error) {
	if opts.Name == "" {
		opts.Name = SiteName
	}
	if opts.Project == "" {
		opts.Project = ProjectName
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if len(opts.Layouts) == 0 {
		opts.Layouts = []core.Layout{ResultsLayout}
	}
	return boincweb.NewClient(opts)
}
