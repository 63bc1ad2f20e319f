package audithandler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"kpiboard/internal/domain/audit"
	"kpiboard/internal/domain/auth"
	"kpiboard/internal/requestctx"
)

type fakeAudit struct {
	lastFilter audit.Filter
	lastLimit  int
}

func (f *fakeAudit) Count(_ context.Context, filter audit.Filter) (int, error) {
	return 1, nil
}

func (f *fakeAudit) List(_ context.Context, filter audit.Filter, _ bool, limit, _ int) ([]audit.Event, error) {
	f.lastFilter, f.lastLimit = filter, limit
	return []audit.Event{{
		ID:         "e1",
		ActorID:    "admin",
		Action:     audit.ActionRemove,
		EntityType: audit.EntityKPI,
		EntityID:   "k1",
		CreatedAt:  time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC),
	}}, nil
}

func call(router chi.Router, path, role string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = req.WithContext(requestctx.WithUser(req.Context(), auth.UserContext{UserID: "u1", Role: role}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuditRoutes(t *testing.T) {
	service := &fakeAudit{}
	r := chi.NewRouter()
	NewHandler(service, auth.StaticPermissions{}).RegisterRoutes(r)

	if rec := call(r, "/audit", auth.RoleDirector); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for director, got %d", rec.Code)
	}

	rec := call(r, "/audit?entityType=kpi&entityId=k1&limit=10", auth.RoleSuperAdmin)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if service.lastFilter.EntityType != "kpi" || service.lastFilter.EntityID != "k1" || service.lastLimit != 10 {
		t.Fatalf("unexpected filter %+v limit %d", service.lastFilter, service.lastLimit)
	}

	rec = call(r, "/audit/export", auth.RoleSuperAdmin)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "text/csv" {
		t.Fatalf("expected csv export, got %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "e1,admin,remove,kpi,k1,,,2024-03-01T12:00:00Z") {
		t.Fatalf("unexpected csv body %q", rec.Body.String())
	}
}
