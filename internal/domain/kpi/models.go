package kpi

import (
	"time"

	"kpiboard/internal/domain/scoring"
)

type KPI struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Weight      int        `json:"weight"`
	Active      bool       `json:"active"`
	RemovedAt   *time.Time `json:"removedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type Input struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Weight      int    `json:"weight" validate:"min=1,max=100"`
}

// Scoring converts a definition to the shape the aggregator consumes.
func (k KPI) Scoring() scoring.KPI {
	out := scoring.KPI{ID: k.ID, Name: k.Name, Weight: k.Weight, Active: k.Active}
	if k.RemovedAt != nil {
		out.RemovedAt = *k.RemovedAt
	}
	return out
}

func ToScoring(kpis []KPI) []scoring.KPI {
	out := make([]scoring.KPI, 0, len(kpis))
	for _, k := range kpis {
		out = append(out, k.Scoring())
	}
	return out
}
