// Package scoring turns per-KPI pass/fail reviews into weighted percentage
// scores, buckets review dates into reporting periods, and derives trends and
// director roll-ups from period scores.
//
// Everything here is pure: callers fetch KPI and review snapshots and pass
// them in. Nothing in the package performs I/O or keeps state between calls.
package scoring

import "time"

// KPI is the scoring view of a KPI definition. Inactive KPIs are removed
// definitions; RemovedAt marks when they stopped accepting reviews.
type KPI struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Weight    int       `json:"weight" yaml:"weight"`
	Active    bool      `json:"active" yaml:"active"`
	RemovedAt time.Time `json:"removedAt,omitzero" yaml:"removedAt,omitempty"`
}

// ReviewRecord is one pass/fail assessment of a subject against a KPI.
// A nil Met means the KPI has not been reviewed for the period yet.
type ReviewRecord struct {
	SubjectID       string    `json:"subjectId" yaml:"subjectId"`
	KPIID           string    `json:"kpiId" yaml:"kpiId"`
	Met             *bool     `json:"met" yaml:"met"`
	PeriodTimestamp time.Time `json:"periodTimestamp" yaml:"periodTimestamp"`
	ReviewerID      string    `json:"reviewerId,omitempty" yaml:"reviewerId,omitempty"`
	RecordedAt      time.Time `json:"recordedAt,omitzero" yaml:"recordedAt,omitempty"`
}

// Reviewed reports whether the record carries a met/not-met outcome.
func (r ReviewRecord) Reviewed() bool {
	return r.Met != nil
}

// Outcome returns a pointer suitable for ReviewRecord.Met.
func Outcome(met bool) *bool {
	return &met
}

// Result is the full outcome of a score computation. Percentage is what the
// dashboards show; the weights let callers tell a no-data zero from an
// all-failed zero.
type Result struct {
	Percentage   int `json:"percentage"`
	TotalWeight  int `json:"totalWeight"`
	EarnedWeight int `json:"earnedWeight"`
	Counted      int `json:"counted"`
	Skipped      int `json:"skipped"`
}

// NoData reports whether no qualifying review contributed to the score.
func (r Result) NoData() bool {
	return r.TotalWeight == 0
}

type Direction string

const (
	DirectionUp     Direction = "up"
	DirectionDown   Direction = "down"
	DirectionStable Direction = "stable"
)

type Trend struct {
	Direction      Direction `json:"direction"`
	MagnitudeDelta int       `json:"magnitudeDelta"`
}

// TeamRollup is a director's aggregate for one period.
type TeamRollup struct {
	DirectorID string `json:"directorId"`
	Score      int    `json:"score"`
	Assigned   int    `json:"assigned"`
	Reported   int    `json:"reported"`
}

// NoAssignees reports whether the roll-up score is the empty-team default.
func (r TeamRollup) NoAssignees() bool {
	return r.Assigned == 0
}
