package peoplehandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"kpiboard/internal/domain/audit"
	"kpiboard/internal/domain/auth"
	"kpiboard/internal/domain/notifications"
	"kpiboard/internal/domain/people"
	"kpiboard/internal/transport/http/api"
	"kpiboard/internal/transport/http/middleware"
	"kpiboard/internal/transport/http/shared"
)

type PeopleService interface {
	List(ctx context.Context, filter people.Filter) ([]people.Profile, error)
	Get(ctx context.Context, id string) (people.Profile, error)
	Create(ctx context.Context, input people.CreateInput) (people.Profile, error)
	Update(ctx context.Context, id string, input people.UpdateInput) (people.Profile, error)
	AssignSupervisor(ctx context.Context, clinicianID, directorID string) (people.Profile, error)
}

type Notifier interface {
	Create(ctx context.Context, userID, ntype, title, body string) error
}

type Handler struct {
	Service  PeopleService
	Perms    middleware.PermissionStore
	Audit    shared.Auditor
	Notifier Notifier
}

func NewHandler(service PeopleService, perms middleware.PermissionStore, auditor shared.Auditor, notifier Notifier) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditor, Notifier: notifier}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermPeopleRead, h.Perms)
	write := middleware.RequirePermission(auth.PermPeopleWrite, h.Perms)
	r.Route("/people", func(r chi.Router) {
		r.With(read).Get("/", h.handleList)
		r.With(write).Post("/", h.handleCreate)
		r.With(read).Get("/{personID}", h.handleGet)
		r.With(write).Put("/{personID}", h.handleUpdate)
		r.With(write).Put("/{personID}/supervisor", h.handleAssign)
	})
}

type assignRequest struct {
	DirectorID string `json:"directorId" validate:"omitempty,uuid"`
}

// handleList returns the people the caller may see, narrowed by the role,
// supervisorId, unassigned and active query parameters.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	actor, ok := shared.Actor(w, r, h.Service)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := people.Filter{Role: q.Get("role"), SupervisorID: q.Get("supervisorId")}
	filter.Unassigned, _ = strconv.ParseBool(q.Get("unassigned"))
	filter.ActiveOnly, _ = strconv.ParseBool(q.Get("active"))
	if filter.Role != "" && !auth.ValidRole(filter.Role) {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "role", Reason: "unknown role"}})
		return
	}

	profiles, err := h.Service.List(r.Context(), filter)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "people_list_failed", "failed to list people", reqID)
		return
	}
	visible := make([]people.Profile, 0, len(profiles))
	for _, p := range profiles {
		if people.CanView(actor, p) {
			visible = append(visible, p)
		}
	}

	page := shared.ParsePagination(r, shared.DefaultPageSize, shared.MaxPageSize)
	shared.SetTotal(w, len(visible))
	api.Success(w, people.Views(shared.Window(visible, page)), reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.Actor(w, r, h.Service)
	if !ok {
		return
	}
	subject, ok := shared.Subject(w, r, h.Service, actor, chi.URLParam(r, "personID"))
	if !ok {
		return
	}
	api.Success(w, people.ViewOf(subject), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var input people.CreateInput
	if !shared.DecodeJSON(w, r, &input, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(input)
	if v.Reject(w, reqID) {
		return
	}

	created, err := h.Service.Create(r.Context(), input)
	if err != nil {
		failPeople(w, err, reqID)
		return
	}
	view := people.ViewOf(created)
	shared.Audit(r, h.Audit, audit.Entry{Action: audit.ActionCreate, EntityType: audit.EntityProfile, EntityID: view.ID, After: view})
	if view.SupervisorID != "" {
		h.notifyAssignment(r.Context(), view)
	}
	api.Created(w, view, reqID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	id := chi.URLParam(r, "personID")
	var input people.UpdateInput
	if !shared.DecodeJSON(w, r, &input, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(input)
	if v.Reject(w, reqID) {
		return
	}

	before, err := h.Service.Get(r.Context(), id)
	if err != nil {
		failPeople(w, err, reqID)
		return
	}
	updated, err := h.Service.Update(r.Context(), id, input)
	if err != nil {
		failPeople(w, err, reqID)
		return
	}
	view := people.ViewOf(updated)
	shared.Audit(r, h.Audit, audit.Entry{Action: audit.ActionUpdate, EntityType: audit.EntityProfile, EntityID: id, Before: people.ViewOf(before), After: view})
	api.Success(w, view, reqID)
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	id := chi.URLParam(r, "personID")
	var payload assignRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}

	before, err := h.Service.Get(r.Context(), id)
	if err != nil {
		failPeople(w, err, reqID)
		return
	}
	updated, err := h.Service.AssignSupervisor(r.Context(), id, payload.DirectorID)
	if err != nil {
		failPeople(w, err, reqID)
		return
	}
	view := people.ViewOf(updated)
	shared.Audit(r, h.Audit, audit.Entry{Action: audit.ActionAssign, EntityType: audit.EntityProfile, EntityID: id, Before: people.ViewOf(before), After: view})
	h.notifyAssignment(r.Context(), view)
	api.Success(w, view, reqID)
}

func (h *Handler) notifyAssignment(ctx context.Context, clinician people.View) {
	if h.Notifier == nil {
		return
	}
	body := "You are no longer assigned to a director."
	if clinician.SupervisorID != "" {
		body = "Your director assignment has changed."
		if err := h.Notifier.Create(ctx, clinician.SupervisorID, notifications.TypeAssignmentChanged,
			"New team member", clinician.FullName+" is now on your team."); err != nil {
			slog.Warn("assignment notification failed", "user_id", clinician.SupervisorID, "err", err)
		}
	}
	if err := h.Notifier.Create(ctx, clinician.ID, notifications.TypeAssignmentChanged, "Assignment updated", body); err != nil {
		slog.Warn("assignment notification failed", "user_id", clinician.ID, "err", err)
	}
}

func failPeople(w http.ResponseWriter, err error, reqID string) {
	switch {
	case errors.Is(err, people.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "person_not_found", "person not found", reqID)
	case errors.Is(err, people.ErrEmailTaken):
		api.Fail(w, http.StatusConflict, "email_taken", "email already in use", reqID)
	case errors.Is(err, people.ErrInvalidAssignment):
		api.Fail(w, http.StatusUnprocessableEntity, "invalid_assignment", err.Error(), reqID)
	case errors.Is(err, people.ErrInvalidProfile):
		api.Fail(w, http.StatusBadRequest, "invalid_profile", err.Error(), reqID)
	default:
		api.Fail(w, http.StatusInternalServerError, "people_write_failed", "failed to save person", reqID)
	}
}
