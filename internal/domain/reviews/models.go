package reviews

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"kpiboard/internal/domain/scoring"
)

// Review is the authoritative outcome for one (subject, KPI, period).
type Review struct {
	ID          string              `json:"id"`
	SubjectID   string              `json:"subjectId"`
	KPIID       string              `json:"kpiId"`
	Met         *bool               `json:"met"`
	Granularity scoring.Granularity `json:"granularity"`
	Period      string              `json:"period"`
	PeriodAt    time.Time           `json:"periodAt"`
	ReviewerID  string              `json:"reviewerId,omitempty"`
	Notes       string              `json:"notes,omitempty"`
	Plan        string              `json:"improvementPlan,omitempty"`
	FileRef     string              `json:"fileRef,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// Record is the scoring view of the review. The last write time decides
// which record wins if a caller passes duplicates.
func (r Review) Record() scoring.ReviewRecord {
	return scoring.ReviewRecord{
		SubjectID:       r.SubjectID,
		KPIID:           r.KPIID,
		Met:             r.Met,
		PeriodTimestamp: r.PeriodAt,
		ReviewerID:      r.ReviewerID,
		RecordedAt:      r.UpdatedAt,
	}
}

func Records(reviews []Review) []scoring.ReviewRecord {
	out := make([]scoring.ReviewRecord, 0, len(reviews))
	for _, r := range reviews {
		out = append(out, r.Record())
	}
	return out
}

// Submission replaces whatever review exists for its (subject, KPI, period).
// A nil Met clears the outcome back to "not reviewed".
type Submission struct {
	SubjectID   string              `json:"subjectId" validate:"required"`
	KPIID       string              `json:"kpiId" validate:"required"`
	Met         *bool               `json:"met"`
	PeriodAt    time.Time           `json:"periodAt" validate:"required"`
	Granularity scoring.Granularity `json:"granularity" validate:"omitempty,oneof=month week"`
	ReviewerID  string              `json:"-"`
	Notes       string              `json:"notes" validate:"max=10000"`
	Plan        string              `json:"improvementPlan" validate:"max=10000"`
	FileRef     string              `json:"fileRef" validate:"max=500"`

	// dateOnly marks a periodAt given as YYYY-MM-DD; the service anchors it
	// at noon in the bucketing zone.
	dateOnly bool
}

// UnmarshalJSON accepts periodAt as RFC3339 or as a bare YYYY-MM-DD date.
// Unknown fields are rejected.
func (s *Submission) UnmarshalJSON(data []byte) error {
	type plain Submission
	var aux struct {
		*plain
		PeriodAt string `json:"periodAt"`
	}
	aux.plain = (*plain)(s)
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&aux); err != nil {
		return err
	}

	raw := strings.TrimSpace(aux.PeriodAt)
	s.PeriodAt, s.dateOnly = time.Time{}, false
	if raw == "" {
		return nil
	}
	if at, err := time.Parse(time.RFC3339, raw); err == nil {
		s.PeriodAt = at
		return nil
	}
	at, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return fmt.Errorf("periodAt %q: expected RFC3339 or YYYY-MM-DD", raw)
	}
	s.PeriodAt, s.dateOnly = at, true
	return nil
}

// row is a submission with its period resolved.
type row struct {
	Submission
	Period scoring.PeriodKey
}
