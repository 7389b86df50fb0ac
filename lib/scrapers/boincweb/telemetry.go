package boincweb

const (
	report_boincweb_workunit = "boincweb.workunit"
	report_boincweb_badges   = "boincweb.badges"
)
