package scorecard

const (
	DefaultTrendPeriods = 6
	MaxTrendPeriods     = 24
)

// Metric view labels.
const (
	viewSubject  = "subject"
	viewTrend    = "trend"
	viewTeam     = "team"
	viewOverview = "overview"
)
