package scoreshandler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"kpiboard/internal/domain/auth"
	"kpiboard/internal/domain/scorecard"
	"kpiboard/internal/domain/scoring"
	"kpiboard/internal/transport/http/api"
	"kpiboard/internal/transport/http/middleware"
	"kpiboard/internal/transport/http/shared"
)

type ScoreService interface {
	SubjectScore(ctx context.Context, subjectID string, key scoring.PeriodKey) (scorecard.Scorecard, error)
	SubjectTrend(ctx context.Context, subjectID string, g scoring.Granularity, asOf time.Time, periods int) (scorecard.TrendView, error)
	TeamRollup(ctx context.Context, directorID string, key scoring.PeriodKey) (scorecard.TeamView, error)
	Overview(ctx context.Context, key scoring.PeriodKey) (scorecard.OverviewView, error)
	Bucketer() scoring.Bucketer
}

type Handler struct {
	Service  ScoreService
	Profiles shared.ProfileLookup
	Perms    middleware.PermissionStore
	Now      func() time.Time
}

func NewHandler(service ScoreService, profiles shared.ProfileLookup, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Profiles: profiles, Perms: perms, Now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermScoresRead, h.Perms)
	r.Route("/scores", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermScoresOverview, h.Perms)).Get("/overview", h.handleOverview)
		r.With(read).Get("/directors/{directorID}/rollup", h.handleRollup)
		r.With(read).Get("/{subjectID}", h.handleSubject)
		r.With(read).Get("/{subjectID}/trend", h.handleTrend)
	})
}

func (h *Handler) handleSubject(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	subjectID, ok := h.visibleSubject(w, r, "subjectID")
	if !ok {
		return
	}
	key, ok := shared.PeriodQuery(w, r, h.Service.Bucketer(), h.Now, reqID)
	if !ok {
		return
	}
	card, err := h.Service.SubjectScore(r.Context(), subjectID, key)
	if err != nil {
		shared.FailScore(w, err, reqID)
		return
	}
	api.Success(w, card, reqID)
}

// handleTrend reads granularity, periods (1-24, default 6) and at, the date
// whose period closes the series.
func (h *Handler) handleTrend(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	subjectID, ok := h.visibleSubject(w, r, "subjectID")
	if !ok {
		return
	}

	q := r.URL.Query()
	v := shared.NewValidator()
	granularity, err := scoring.ParseGranularity(q.Get("granularity"))
	if err != nil {
		v.Add("granularity", "must be month or week")
	}
	periods := 0
	if raw := strings.TrimSpace(q.Get("periods")); raw != "" {
		if periods, err = strconv.Atoi(raw); err != nil {
			v.Add("periods", "must be a number")
		}
	}
	var asOf time.Time
	if raw := strings.TrimSpace(q.Get("at")); raw != "" {
		asOf, _ = v.Date("at", raw)
	}
	if v.Reject(w, reqID) {
		return
	}

	view, err := h.Service.SubjectTrend(r.Context(), subjectID, granularity, asOf, periods)
	if err != nil {
		shared.FailScore(w, err, reqID)
		return
	}
	api.Success(w, view, reqID)
}

func (h *Handler) handleRollup(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	directorID, ok := h.visibleSubject(w, r, "directorID")
	if !ok {
		return
	}
	key, ok := shared.PeriodQuery(w, r, h.Service.Bucketer(), h.Now, reqID)
	if !ok {
		return
	}
	team, err := h.Service.TeamRollup(r.Context(), directorID, key)
	if err != nil {
		shared.FailScore(w, err, reqID)
		return
	}
	api.Success(w, team, reqID)
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	key, ok := shared.PeriodQuery(w, r, h.Service.Bucketer(), h.Now, reqID)
	if !ok {
		return
	}
	overview, err := h.Service.Overview(r.Context(), key)
	if err != nil {
		shared.FailScore(w, err, reqID)
		return
	}
	api.Success(w, overview, reqID)
}

func (h *Handler) visibleSubject(w http.ResponseWriter, r *http.Request, param string) (string, bool) {
	actor, ok := shared.Actor(w, r, h.Profiles)
	if !ok {
		return "", false
	}
	subject, ok := shared.Subject(w, r, h.Profiles, actor, chi.URLParam(r, param))
	if !ok {
		return "", false
	}
	return subject.Info().ID, true
}
