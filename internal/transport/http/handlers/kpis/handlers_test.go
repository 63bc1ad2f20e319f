package kpihandler

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
	"kpiboard/internal/domain/kpi"
	"kpiboard/internal/requestctx"
)

type fakeKPIs struct {
	items map[string]kpi.KPI
}

func (f *fakeKPIs) List(_ context.Context, includeRemoved bool) ([]kpi.KPI, error) {
	var out []kpi.KPI
	for _, item := range f.items {
		if item.Active || includeRemoved {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeKPIs) Get(_ context.Context, id string) (kpi.KPI, error) {
	item, ok := f.items[id]
	if !ok {
		return kpi.KPI{}, kpi.ErrNotFound
	}
	return item, nil
}

func (f *fakeKPIs) Create(_ context.Context, input kpi.Input) (kpi.KPI, error) {
	item := kpi.KPI{ID: "k-new", Name: input.Name, Weight: input.Weight, Active: true}
	f.items[item.ID] = item
	return item, nil
}

func (f *fakeKPIs) Update(ctx context.Context, id string, input kpi.Input) (kpi.KPI, error) {
	item, err := f.Get(ctx, id)
	if err != nil {
		return kpi.KPI{}, err
	}
	item.Name, item.Weight = input.Name, input.Weight
	f.items[id] = item
	return item, nil
}

func (f *fakeKPIs) Remove(ctx context.Context, id string) (kpi.KPI, error) {
	item, err := f.Get(ctx, id)
	if err != nil {
		return kpi.KPI{}, err
	}
	if !item.Active {
		return kpi.KPI{}, kpi.ErrAlreadyRemoved
	}
	now := time.Now()
	item.Active, item.RemovedAt = false, &now
	f.items[id] = item
	return item, nil
}

func (f *fakeKPIs) Restore(ctx context.Context, id string) (kpi.KPI, error) {
	item, err := f.Get(ctx, id)
	if err != nil {
		return kpi.KPI{}, err
	}
	item.Active, item.RemovedAt = true, nil
	f.items[id] = item
	return item, nil
}

type recordingAuditor struct{ entries []audit.Entry }

func (r *recordingAuditor) Record(_ context.Context, entry audit.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func setup() (chi.Router, *recordingAuditor) {
	service := &fakeKPIs{items: map[string]kpi.KPI{
		"k1": {ID: "k1", Name: "Notes on time", Weight: 5, Active: true},
	}}
	auditor := &recordingAuditor{}
	r := chi.NewRouter()
	NewHandler(service, auth.StaticPermissions{}, auditor).RegisterRoutes(r)
	return r, auditor
}

func as(req *http.Request, role string) *http.Request {
	return req.WithContext(requestctx.WithUser(req.Context(), auth.UserContext{UserID: "u-" + role, Role: role}))
}

func TestKPIRoutes(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		role   string
		want   int
	}{
		{"clinician lists", http.MethodGet, "/kpis", "", auth.RoleClinician, http.StatusOK},
		{"clinician cannot create", http.MethodPost, "/kpis", `{"name":"x","weight":3}`, auth.RoleClinician, http.StatusForbidden},
		{"admin creates", http.MethodPost, "/kpis", `{"name":"Care plan","weight":10}`, auth.RoleSuperAdmin, http.StatusCreated},
		{"zero weight rejected", http.MethodPost, "/kpis", `{"name":"Care plan","weight":0}`, auth.RoleSuperAdmin, http.StatusBadRequest},
		{"missing kpi", http.MethodGet, "/kpis/nope", "", auth.RoleDirector, http.StatusNotFound},
		{"admin updates", http.MethodPut, "/kpis/k1", `{"name":"Notes","weight":6}`, auth.RoleSuperAdmin, http.StatusOK},
		{"admin removes", http.MethodDelete, "/kpis/k1", "", auth.RoleSuperAdmin, http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router, _ := setup()
			req := as(httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body)), tc.role)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRemoveTwiceConflictsAndRestoreAudits(t *testing.T) {
	router, auditor := setup()

	for i, want := range []int{http.StatusOK, http.StatusConflict} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, as(httptest.NewRequest(http.MethodDelete, "/kpis/k1", nil), auth.RoleSuperAdmin))
		if rec.Code != want {
			t.Fatalf("remove %d: expected %d, got %d", i+1, want, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, as(httptest.NewRequest(http.MethodPost, "/kpis/k1/restore", nil), auth.RoleSuperAdmin))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected restore 200, got %d", rec.Code)
	}

	if len(auditor.entries) != 2 {
		t.Fatalf("expected remove and restore audit entries, got %d", len(auditor.entries))
	}
	if auditor.entries[0].Action != audit.ActionRemove || auditor.entries[1].Action != audit.ActionRestore {
		t.Fatalf("unexpected audit actions %+v", auditor.entries)
	}
	if auditor.entries[0].ActorID != "u-"+auth.RoleSuperAdmin {
		t.Fatalf("expected actor from context, got %q", auditor.entries[0].ActorID)
	}
}
