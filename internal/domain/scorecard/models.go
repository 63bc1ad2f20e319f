// Package scorecard assembles the score views the dashboards and reports
// show. It loads KPI, profile and review snapshots and hands them to the
// scoring package; it never computes a score itself.
package scorecard

import (
	"time"

	"kpiboard/internal/domain/scoring"
)

type LineStatus string

const (
	StatusMet         LineStatus = "met"
	StatusNotMet      LineStatus = "not_met"
	StatusNotReviewed LineStatus = "not_reviewed"
	// StatusRemoved marks a review of a removed KPI dated on or after the
	// removal. It is shown but does not count.
	StatusRemoved LineStatus = "removed"
	StatusUnknown LineStatus = "unknown_kpi"
)

// Line is one KPI row of a scorecard.
type Line struct {
	KPIID   string     `json:"kpiId"`
	Name    string     `json:"name"`
	Weight  int        `json:"weight"`
	Met     *bool      `json:"met"`
	Status  LineStatus `json:"status"`
	Counted bool       `json:"counted"`
}

type Scorecard struct {
	SubjectID    string            `json:"subjectId"`
	SubjectName  string            `json:"subjectName"`
	Role         string            `json:"role"`
	Period       scoring.PeriodKey `json:"period"`
	Start        time.Time         `json:"start"`
	End          time.Time         `json:"end"`
	Percentage   int               `json:"percentage"`
	TotalWeight  int               `json:"totalWeight"`
	EarnedWeight int               `json:"earnedWeight"`
	NoData       bool              `json:"noData"`
	Lines        []Line            `json:"lines"`
}

type TrendPoint struct {
	Period scoring.PeriodKey `json:"period"`
	Score  int               `json:"score"`
	NoData bool              `json:"noData"`
}

// TrendView lists period scores oldest first. Periods without reviews are
// listed but left out of the trend.
type TrendView struct {
	SubjectID   string              `json:"subjectId"`
	SubjectName string              `json:"subjectName"`
	Granularity scoring.Granularity `json:"granularity"`
	Points      []TrendPoint        `json:"points"`
	Trend       scoring.Trend       `json:"trend"`
}

type MemberScore struct {
	SubjectID string `json:"subjectId"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	NoData    bool   `json:"noData"`
}

type TeamView struct {
	DirectorID    string             `json:"directorId"`
	DirectorName  string             `json:"directorName"`
	DirectorScore MemberScore        `json:"directorScore"`
	Period        scoring.PeriodKey  `json:"period"`
	Rollup        scoring.TeamRollup `json:"rollup"`
	Members       []MemberScore      `json:"members"`
}

type OverviewView struct {
	Period     scoring.PeriodKey `json:"period"`
	Teams      []TeamView        `json:"teams"`
	Unassigned []MemberScore     `json:"unassigned"`
}
