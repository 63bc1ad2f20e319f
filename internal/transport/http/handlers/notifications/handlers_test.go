package notificationshandler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"kpiboard/internal/domain/auth"
	"kpiboard/internal/domain/notifications"
	"kpiboard/internal/requestctx"
)

type fakeNotifications struct {
	owner map[string]string
}

func (f fakeNotifications) List(_ context.Context, userID string, _ bool, limit, _ int) ([]notifications.Notification, error) {
	var out []notifications.Notification
	for id, owner := range f.owner {
		if owner == userID && len(out) < limit {
			out = append(out, notifications.Notification{ID: id})
		}
	}
	return out, nil
}

func (f fakeNotifications) Count(_ context.Context, userID string, _ bool) (int, error) {
	n := 0
	for _, owner := range f.owner {
		if owner == userID {
			n++
		}
	}
	return n, nil
}

func (f fakeNotifications) MarkRead(_ context.Context, userID, id string) error {
	if f.owner[id] != userID {
		return notifications.ErrNotFound
	}
	return nil
}

func setup() chi.Router {
	r := chi.NewRouter()
	NewHandler(fakeNotifications{owner: map[string]string{"n1": "c1", "n2": "c1", "n3": "d1"}}).RegisterRoutes(r)
	return r
}

func call(router chi.Router, method, path, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if userID != "" {
		req = req.WithContext(requestctx.WithUser(req.Context(), auth.UserContext{UserID: userID, Role: auth.RoleClinician}))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestListReturnsOwnNotifications(t *testing.T) {
	rec := call(setup(), http.MethodGet, "/notifications", "c1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Total-Count") != "2" {
		t.Fatalf("expected total 2, got %q", rec.Header().Get("X-Total-Count"))
	}
}

func TestMarkRead(t *testing.T) {
	router := setup()
	if rec := call(router, http.MethodPost, "/notifications/n1/read", "c1"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := call(router, http.MethodPost, "/notifications/n3/read", "c1"); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for someone else's notification, got %d", rec.Code)
	}
	if rec := call(router, http.MethodPost, "/notifications/n1/read", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a user, got %d", rec.Code)
	}
}
