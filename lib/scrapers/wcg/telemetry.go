package wcg

const (
	report_wcg_statistics = "wcg.statistics"
)
