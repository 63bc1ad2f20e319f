package authhandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kpiboard/internal/domain/audit"
	"kpiboard/internal/domain/auth"
	"kpiboard/internal/domain/people"
	"kpiboard/internal/transport/http/api"
	"kpiboard/internal/transport/http/middleware"
	"kpiboard/internal/transport/http/shared"
)

type LoginService interface {
	Login(ctx context.Context, email, password string) (auth.LoginResult, error)
}

type Handler struct {
	Service  LoginService
	Profiles shared.ProfileLookup
	Audit    shared.Auditor
}

func NewHandler(service LoginService, profiles shared.ProfileLookup, auditor shared.Auditor) *Handler {
	return &Handler{Service: service, Profiles: profiles, Audit: auditor}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.HandleLogin)
	r.With(middleware.RequireAuth).Get("/me", h.HandleMe)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type meResponse struct {
	people.View
	Permissions []string `json:"permissions"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload loginRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}

	result, err := h.Service.Login(r.Context(), payload.Email, payload.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", reqID)
		return
	}
	if err != nil {
		slog.Error("login failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "login_failed", "failed to sign in", reqID)
		return
	}

	shared.Audit(r, h.Audit, audit.Entry{
		ActorID:    result.User.ID,
		Action:     audit.ActionLogin,
		EntityType: audit.EntitySession,
		EntityID:   result.User.ID,
	})
	api.Success(w, result, reqID)
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	profile, ok := shared.Actor(w, r, h.Profiles)
	if !ok {
		return
	}
	perms := append([]string(nil), auth.RolePermissions[profile.Role()]...)
	api.Success(w, meResponse{View: people.ViewOf(profile), Permissions: perms}, middleware.GetRequestID(r.Context()))
}
