package shared

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"kpiboard/internal/domain/people"
	"kpiboard/internal/domain/scorecard"
	"kpiboard/internal/domain/scoring"
	"kpiboard/internal/transport/http/api"
)

// FailScore maps errors from the score views. A malformed KPI is a data
// fault and is reported with the offending KPI id.
func FailScore(w http.ResponseWriter, err error, reqID string) {
	var malformed *scoring.MalformedKPIError
	switch {
	case errors.As(err, &malformed):
		slog.Error("malformed kpi definition", "kpi_id", malformed.KPIID, "err", err)
		api.FailWithDetails(w, http.StatusUnprocessableEntity, "malformed_kpi", "kpi definition is malformed",
			map[string]string{"kpiId": malformed.KPIID}, reqID)
	case errors.Is(err, people.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "person_not_found", "person not found", reqID)
	case errors.Is(err, scorecard.ErrNotDirector):
		api.Fail(w, http.StatusNotFound, "director_not_found", "director not found", reqID)
	case errors.Is(err, scorecard.ErrInvalidTrendRange):
		FailValidation(w, reqID, []ValidationIssue{{Field: "periods", Reason: err.Error()}})
	default:
		slog.Error("score view failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "score_failed", "failed to compute score", reqID)
	}
}

// PeriodQuery reads the period and granularity query parameters. It writes a
// 400 and returns false when either is invalid.
func PeriodQuery(w http.ResponseWriter, r *http.Request, bucketer scoring.Bucketer, now func() time.Time, reqID string) (scoring.PeriodKey, bool) {
	q := r.URL.Query()
	granularity, err := scoring.ParseGranularity(q.Get("granularity"))
	if err != nil {
		FailValidation(w, reqID, []ValidationIssue{{Field: "granularity", Reason: "must be month or week"}})
		return scoring.PeriodKey{}, false
	}
	key, err := ParsePeriod(q.Get("period"), granularity, bucketer, now())
	if err != nil {
		FailValidation(w, reqID, []ValidationIssue{{Field: "period", Reason: "must be a period key or a date"}})
		return scoring.PeriodKey{}, false
	}
	return key, true
}
