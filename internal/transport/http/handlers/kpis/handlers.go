package kpihandler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"kpiboard/internal/domain/audit"
	"kpiboard/internal/domain/auth"
	"kpiboard/internal/domain/kpi"
	"kpiboard/internal/transport/http/api"
	"kpiboard/internal/transport/http/middleware"
	"kpiboard/internal/transport/http/shared"
)

type KPIService interface {
	List(ctx context.Context, includeRemoved bool) ([]kpi.KPI, error)
	Get(ctx context.Context, id string) (kpi.KPI, error)
	Create(ctx context.Context, input kpi.Input) (kpi.KPI, error)
	Update(ctx context.Context, id string, input kpi.Input) (kpi.KPI, error)
	Remove(ctx context.Context, id string) (kpi.KPI, error)
	Restore(ctx context.Context, id string) (kpi.KPI, error)
}

type Handler struct {
	Service KPIService
	Perms   middleware.PermissionStore
	Audit   shared.Auditor
}

func NewHandler(service KPIService, perms middleware.PermissionStore, auditor shared.Auditor) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditor}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermKPIsRead, h.Perms)
	write := middleware.RequirePermission(auth.PermKPIsWrite, h.Perms)
	r.Route("/kpis", func(r chi.Router) {
		r.With(read).Get("/", h.handleList)
		r.With(write).Post("/", h.handleCreate)
		r.With(read).Get("/{kpiID}", h.handleGet)
		r.With(write).Put("/{kpiID}", h.handleUpdate)
		r.With(write).Delete("/{kpiID}", h.handleRemove)
		r.With(write).Post("/{kpiID}/restore", h.handleRestore)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	includeRemoved, _ := strconv.ParseBool(r.URL.Query().Get("includeRemoved"))
	items, err := h.Service.List(r.Context(), includeRemoved)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "kpi_list_failed", "failed to list kpis", middleware.GetRequestID(r.Context()))
		return
	}
	shared.SetTotal(w, len(items))
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	item, err := h.Service.Get(r.Context(), chi.URLParam(r, "kpiID"))
	if err != nil {
		failKPI(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, item, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	input, ok := decodeInput(w, r, reqID)
	if !ok {
		return
	}
	created, err := h.Service.Create(r.Context(), input)
	if err != nil {
		failKPI(w, err, reqID)
		return
	}
	shared.Audit(r, h.Audit, audit.Entry{Action: audit.ActionCreate, EntityType: audit.EntityKPI, EntityID: created.ID, After: created})
	api.Created(w, created, reqID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	id := chi.URLParam(r, "kpiID")
	input, ok := decodeInput(w, r, reqID)
	if !ok {
		return
	}
	before, err := h.Service.Get(r.Context(), id)
	if err != nil {
		failKPI(w, err, reqID)
		return
	}
	updated, err := h.Service.Update(r.Context(), id, input)
	if err != nil {
		failKPI(w, err, reqID)
		return
	}
	shared.Audit(r, h.Audit, audit.Entry{Action: audit.ActionUpdate, EntityType: audit.EntityKPI, EntityID: id, Before: before, After: updated})
	api.Success(w, updated, reqID)
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	removed, err := h.Service.Remove(r.Context(), chi.URLParam(r, "kpiID"))
	if err != nil {
		failKPI(w, err, reqID)
		return
	}
	shared.Audit(r, h.Audit, audit.Entry{Action: audit.ActionRemove, EntityType: audit.EntityKPI, EntityID: removed.ID, After: removed})
	api.Success(w, removed, reqID)
}

func (h *Handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	restored, err := h.Service.Restore(r.Context(), chi.URLParam(r, "kpiID"))
	if err != nil {
		failKPI(w, err, reqID)
		return
	}
	shared.Audit(r, h.Audit, audit.Entry{Action: audit.ActionRestore, EntityType: audit.EntityKPI, EntityID: restored.ID, After: restored})
	api.Success(w, restored, reqID)
}

func decodeInput(w http.ResponseWriter, r *http.Request, reqID string) (kpi.Input, bool) {
	var input kpi.Input
	if !shared.DecodeJSON(w, r, &input, reqID) {
		return kpi.Input{}, false
	}
	v := shared.NewValidator()
	v.Struct(input)
	if v.Reject(w, reqID) {
		return kpi.Input{}, false
	}
	return input, true
}

func failKPI(w http.ResponseWriter, err error, reqID string) {
	switch {
	case errors.Is(err, kpi.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "kpi_not_found", "kpi not found", reqID)
	case errors.Is(err, kpi.ErrNameRequired), errors.Is(err, kpi.ErrNameTooLong):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "name", Reason: err.Error()}})
	case errors.Is(err, kpi.ErrInvalidWeight):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "weight", Reason: err.Error()}})
	case errors.Is(err, kpi.ErrAlreadyRemoved), errors.Is(err, kpi.ErrNotRemoved):
		api.Fail(w, http.StatusConflict, "kpi_state_conflict", err.Error(), reqID)
	default:
		api.Fail(w, http.StatusInternalServerError, "kpi_write_failed", "failed to save kpi", reqID)
	}
}
