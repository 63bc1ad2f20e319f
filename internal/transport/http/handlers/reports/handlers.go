package reportshandler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kpiboard/internal/domain/auth"
	"kpiboard/internal/domain/reports"
	"kpiboard/internal/domain/scoring"
	"kpiboard/internal/transport/http/api"
	"kpiboard/internal/transport/http/middleware"
	"kpiboard/internal/transport/http/shared"
)

type ReportService interface {
	Scorecard(ctx context.Context, subjectID string, key scoring.PeriodKey) (reports.Document, error)
	Team(ctx context.Context, directorID string, key scoring.PeriodKey) (reports.Document, error)
}

type Handler struct {
	Service  ReportService
	Profiles shared.ProfileLookup
	Perms    middleware.PermissionStore
	Bucketer scoring.Bucketer
	Now      func() time.Time
}

func NewHandler(service ReportService, profiles shared.ProfileLookup, perms middleware.PermissionStore, bucketer scoring.Bucketer) *Handler {
	return &Handler{Service: service, Profiles: profiles, Perms: perms, Bucketer: bucketer, Now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	export := middleware.RequirePermission(auth.PermReportsExport, h.Perms)
	r.Route("/reports", func(r chi.Router) {
		r.With(export).Get("/scorecards/{subjectID}", h.handleScorecard)
		r.With(export).Get("/teams/{directorID}", h.handleTeam)
	})
}

func (h *Handler) handleScorecard(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	subjectID, key, ok := h.target(w, r, "subjectID")
	if !ok {
		return
	}
	doc, err := h.Service.Scorecard(r.Context(), subjectID, key)
	if err != nil {
		shared.FailScore(w, err, reqID)
		return
	}
	api.PDF(w, doc.Filename, doc.Content)
}

func (h *Handler) handleTeam(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	directorID, key, ok := h.target(w, r, "directorID")
	if !ok {
		return
	}
	doc, err := h.Service.Team(r.Context(), directorID, key)
	if err != nil {
		shared.FailScore(w, err, reqID)
		return
	}
	api.PDF(w, doc.Filename, doc.Content)
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request, param string) (string, scoring.PeriodKey, bool) {
	actor, ok := shared.Actor(w, r, h.Profiles)
	if !ok {
		return "", scoring.PeriodKey{}, false
	}
	subject, ok := shared.Subject(w, r, h.Profiles, actor, chi.URLParam(r, param))
	if !ok {
		return "", scoring.PeriodKey{}, false
	}
	key, ok := shared.PeriodQuery(w, r, h.Bucketer, h.Now, middleware.GetRequestID(r.Context()))
	if !ok {
		return "", scoring.PeriodKey{}, false
	}
	return subject.Info().ID, key, true
}
