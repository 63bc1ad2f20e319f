package reviewshandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kpiboard/internal/domain/audit"
	"kpiboard/internal/domain/auth"
	"kpiboard/internal/domain/notifications"
	"kpiboard/internal/domain/people"
	"kpiboard/internal/domain/reviews"
	"kpiboard/internal/domain/scoring"
	"kpiboard/internal/transport/http/api"
	"kpiboard/internal/transport/http/middleware"
	"kpiboard/internal/transport/http/shared"
)

type ReviewService interface {
	Replace(ctx context.Context, sub reviews.Submission) (reviews.Review, error)
	ReplaceBatch(ctx context.Context, subs []reviews.Submission) ([]reviews.Review, error)
	ListForSubject(ctx context.Context, subjectID string, key scoring.PeriodKey) ([]reviews.Review, error)
	Bucketer() scoring.Bucketer
}

type Notifier interface {
	Create(ctx context.Context, userID, ntype, title, body string) error
}

type Handler struct {
	Service  ReviewService
	Profiles shared.ProfileLookup
	Perms    middleware.PermissionStore
	Audit    shared.Auditor
	Notifier Notifier
	Now      func() time.Time
}

func NewHandler(service ReviewService, profiles shared.ProfileLookup, perms middleware.PermissionStore, auditor shared.Auditor, notifier Notifier) *Handler {
	return &Handler{Service: service, Profiles: profiles, Perms: perms, Audit: auditor, Notifier: notifier, Now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermReviewsRead, h.Perms)
	write := middleware.RequirePermission(auth.PermReviewsWrite, h.Perms)
	r.Route("/reviews", func(r chi.Router) {
		r.With(read).Get("/", h.handleList)
		r.With(write).Put("/", h.handleReplace)
		r.With(write).Put("/batch", h.handleReplaceBatch)
	})
}

type batchRequest struct {
	Items []reviews.Submission `json:"items" validate:"required,min=1,max=500,dive"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, ok := shared.Actor(w, r, h.Profiles)
	if !ok {
		return
	}
	subjectID := r.URL.Query().Get("subjectId")
	if subjectID == "" {
		subjectID = actor.Info().ID
	}
	key, ok := shared.PeriodQuery(w, r, h.Service.Bucketer(), h.Now, reqID)
	if !ok {
		return
	}
	if _, ok := shared.Subject(w, r, h.Profiles, actor, subjectID); !ok {
		return
	}

	items, err := h.Service.ListForSubject(r.Context(), subjectID, key)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "review_list_failed", "failed to list reviews", reqID)
		return
	}
	shared.SetTotal(w, len(items))
	api.Success(w, items, reqID)
}

func (h *Handler) handleReplace(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, ok := shared.Actor(w, r, h.Profiles)
	if !ok {
		return
	}
	var sub reviews.Submission
	if !shared.DecodeJSON(w, r, &sub, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(sub)
	if v.Reject(w, reqID) {
		return
	}
	if !h.authorize(w, r, actor, []reviews.Submission{sub}) {
		return
	}

	sub.ReviewerID = actor.Info().ID
	saved, err := h.Service.Replace(r.Context(), sub)
	if err != nil {
		failReview(w, err, reqID)
		return
	}
	h.afterWrite(r, []reviews.Review{saved})
	api.Success(w, saved, reqID)
}

// handleReplaceBatch stores every submission or none of them.
func (h *Handler) handleReplaceBatch(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, ok := shared.Actor(w, r, h.Profiles)
	if !ok {
		return
	}
	var payload batchRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}
	if !h.authorize(w, r, actor, payload.Items) {
		return
	}

	for i := range payload.Items {
		payload.Items[i].ReviewerID = actor.Info().ID
	}
	saved, err := h.Service.ReplaceBatch(r.Context(), payload.Items)
	if err != nil {
		failReview(w, err, reqID)
		return
	}
	h.afterWrite(r, saved)
	shared.SetTotal(w, len(saved))
	api.Success(w, saved, reqID)
}

// authorize checks that actor may review every subject in subs.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, actor people.Profile, subs []reviews.Submission) bool {
	reqID := middleware.GetRequestID(r.Context())
	checked := make(map[string]bool, len(subs))
	for _, sub := range subs {
		if checked[sub.SubjectID] {
			continue
		}
		subject, err := h.Profiles.Get(r.Context(), sub.SubjectID)
		if errors.Is(err, people.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "person_not_found", "person not found", reqID)
			return false
		}
		if err != nil {
			api.Fail(w, http.StatusInternalServerError, "profile_failed", "failed to load profile", reqID)
			return false
		}
		if !people.CanReview(actor, subject) {
			api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to review "+sub.SubjectID, reqID)
			return false
		}
		checked[sub.SubjectID] = true
	}
	return true
}

func (h *Handler) afterWrite(r *http.Request, saved []reviews.Review) {
	notified := make(map[string]bool)
	for _, rev := range saved {
		shared.Audit(r, h.Audit, audit.Entry{Action: audit.ActionReview, EntityType: audit.EntityReview, EntityID: rev.ID, After: rev})
		if h.Notifier == nil || notified[rev.SubjectID] {
			continue
		}
		notified[rev.SubjectID] = true
		if err := h.Notifier.Create(r.Context(), rev.SubjectID, notifications.TypeReviewRecorded,
			"Review recorded", "A review for period "+rev.Period+" was recorded."); err != nil {
			slog.Warn("review notification failed", "user_id", rev.SubjectID, "err", err)
		}
	}
}

func failReview(w http.ResponseWriter, err error, reqID string) {
	switch {
	case errors.Is(err, reviews.ErrKPIRemoved):
		api.Fail(w, http.StatusConflict, "kpi_removed", err.Error(), reqID)
	case errors.Is(err, reviews.ErrUnknownKPI):
		api.Fail(w, http.StatusUnprocessableEntity, "unknown_kpi", err.Error(), reqID)
	case errors.Is(err, reviews.ErrInvalidSubmission), errors.Is(err, reviews.ErrEmptyBatch):
		api.Fail(w, http.StatusBadRequest, "invalid_review", err.Error(), reqID)
	default:
		slog.Error("review write failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "review_write_failed", "failed to save review", reqID)
	}
}
