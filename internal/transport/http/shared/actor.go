package shared

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"kpiboard/internal/domain/people"
	"kpiboard/internal/requestctx"
	"kpiboard/internal/transport/http/api"
)

type ProfileLookup interface {
	Get(ctx context.Context, id string) (people.Profile, error)
}

// Actor loads the caller's profile and writes 401 when there is none.
// Tokens outlive deactivation, so an inactive profile is rejected here too.
func Actor(w http.ResponseWriter, r *http.Request, profiles ProfileLookup) (people.Profile, bool) {
	reqID := requestctx.GetRequestID(r.Context())
	user, ok := requestctx.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
		return nil, false
	}
	actor, err := profiles.Get(r.Context(), user.UserID)
	if errors.Is(err, people.ErrNotFound) || (err == nil && !actor.Info().Active) {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "account is not active", reqID)
		return nil, false
	}
	if err != nil {
		slog.Error("actor lookup failed", "user_id", user.UserID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "profile_failed", "failed to load profile", reqID)
		return nil, false
	}
	return actor, true
}

// Subject loads the person a request is about and checks that actor may see
// them. Hidden subjects get the same 404 as missing ones.
func Subject(w http.ResponseWriter, r *http.Request, profiles ProfileLookup, actor people.Profile, id string) (people.Profile, bool) {
	reqID := requestctx.GetRequestID(r.Context())
	subject, err := profiles.Get(r.Context(), id)
	if errors.Is(err, people.ErrNotFound) || (err == nil && !people.CanView(actor, subject)) {
		api.Fail(w, http.StatusNotFound, "person_not_found", "person not found", reqID)
		return nil, false
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "profile_failed", "failed to load profile", reqID)
		return nil, false
	}
	return subject, true
}
