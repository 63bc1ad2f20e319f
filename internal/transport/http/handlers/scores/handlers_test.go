package scoreshandler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"kpiboard/internal/domain/auth"
	"kpiboard/internal/domain/people"
	"kpiboard/internal/domain/scorecard"
	"kpiboard/internal/domain/scoring"
	"kpiboard/internal/requestctx"
)

type fakeProfiles map[string]people.Profile

func (f fakeProfiles) Get(_ context.Context, id string) (people.Profile, error) {
	p, ok := f[id]
	if !ok {
		return nil, people.ErrNotFound
	}
	return p, nil
}

type fakeScores struct {
	lastKey     scoring.PeriodKey
	lastPeriods int
	lastAsOf    time.Time
}

func (f *fakeScores) SubjectScore(_ context.Context, subjectID string, key scoring.PeriodKey) (scorecard.Scorecard, error) {
	f.lastKey = key
	if subjectID == "c2" {
		return scorecard.Scorecard{}, fmt.Errorf("scoring c2: %w", &scoring.MalformedKPIError{KPIID: "bad", Weight: 0})
	}
	return scorecard.Scorecard{SubjectID: subjectID, Period: key, NoData: true}, nil
}

func (f *fakeScores) SubjectTrend(_ context.Context, subjectID string, g scoring.Granularity, asOf time.Time, periods int) (scorecard.TrendView, error) {
	f.lastPeriods, f.lastAsOf = periods, asOf
	if periods > scorecard.MaxTrendPeriods {
		return scorecard.TrendView{}, scorecard.ErrInvalidTrendRange
	}
	return scorecard.TrendView{SubjectID: subjectID, Granularity: g}, nil
}

func (f *fakeScores) TeamRollup(_ context.Context, directorID string, key scoring.PeriodKey) (scorecard.TeamView, error) {
	f.lastKey = key
	return scorecard.TeamView{DirectorID: directorID, Period: key}, nil
}

func (f *fakeScores) Overview(_ context.Context, key scoring.PeriodKey) (scorecard.OverviewView, error) {
	f.lastKey = key
	return scorecard.OverviewView{Period: key}, nil
}

func (f *fakeScores) Bucketer() scoring.Bucketer { return scoring.NewBucketer(time.UTC) }

func active(id string) people.Base {
	return people.Base{ID: id, FullName: id, Active: true}
}

func setup() (chi.Router, *fakeScores) {
	profiles := fakeProfiles{
		"admin": people.SuperAdmin{Base: active("admin")},
		"d1":    people.Director{Base: active("d1")},
		"d2":    people.Director{Base: active("d2")},
		"c1":    people.Clinician{Base: active("c1"), SupervisorID: "d1"},
		"c2":    people.Clinician{Base: active("c2"), SupervisorID: "d1"},
	}
	scores := &fakeScores{}
	h := NewHandler(scores, profiles, auth.StaticPermissions{})
	h.Now = func() time.Time { return time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r, scores
}

func get(router chi.Router, path, userID, role string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = req.WithContext(requestctx.WithUser(req.Context(), auth.UserContext{UserID: userID, Role: role}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSubjectScoreAccess(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		caller string
		role   string
		want   int
	}{
		{"own score", "/scores/c1", "c1", auth.RoleClinician, http.StatusOK},
		{"peer score hidden", "/scores/c2", "c1", auth.RoleClinician, http.StatusNotFound},
		{"director sees team", "/scores/c1", "d1", auth.RoleDirector, http.StatusOK},
		{"other director hidden", "/scores/c1", "d2", auth.RoleDirector, http.StatusNotFound},
		{"admin sees anyone", "/scores/c1", "admin", auth.RoleSuperAdmin, http.StatusOK},
		{"bad period", "/scores/c1?period=2024-13", "c1", auth.RoleClinician, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router, _ := setup()
			if rec := get(router, tc.path, tc.caller, tc.role); rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestSubjectScorePeriodSelection(t *testing.T) {
	router, scores := setup()

	get(router, "/scores/c1", "c1", auth.RoleClinician)
	if scores.lastKey.String() != "2024-03" {
		t.Fatalf("expected the current month, got %s", scores.lastKey)
	}
	get(router, "/scores/c1?period=2024-01-20&granularity=week", "c1", auth.RoleClinician)
	if scores.lastKey.String() != "2024-W03" {
		t.Fatalf("expected the week of the date, got %s", scores.lastKey)
	}
}

func TestMalformedKPIIsSurfaced(t *testing.T) {
	router, _ := setup()
	rec := get(router, "/scores/c2", "d1", auth.RoleDirector)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var body struct {
		Error struct {
			Code    string            `json:"code"`
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "malformed_kpi" || body.Error.Details["kpiId"] != "bad" {
		t.Fatalf("unexpected error body %+v", body.Error)
	}
}

func TestTrendParameters(t *testing.T) {
	router, scores := setup()

	rec := get(router, "/scores/c1/trend?periods=3&at=2024-02-10", "c1", auth.RoleClinician)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if scores.lastPeriods != 3 || scores.lastAsOf.Month() != time.February {
		t.Fatalf("unexpected trend args periods=%d at=%s", scores.lastPeriods, scores.lastAsOf)
	}

	if rec := get(router, "/scores/c1/trend?periods=40", "c1", auth.RoleClinician); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for too many periods, got %d", rec.Code)
	}
	if rec := get(router, "/scores/c1/trend?periods=x", "c1", auth.RoleClinician); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a non-numeric range, got %d", rec.Code)
	}
}

func TestRollupAndOverviewPermissions(t *testing.T) {
	router, _ := setup()

	if rec := get(router, "/scores/directors/d1/rollup", "d1", auth.RoleDirector); rec.Code != http.StatusOK {
		t.Fatalf("expected director to read own rollup, got %d", rec.Code)
	}
	if rec := get(router, "/scores/directors/d1/rollup", "d2", auth.RoleDirector); rec.Code != http.StatusNotFound {
		t.Fatalf("expected another director to be refused, got %d", rec.Code)
	}
	if rec := get(router, "/scores/overview", "d1", auth.RoleDirector); rec.Code != http.StatusForbidden {
		t.Fatalf("expected overview to need scores.overview, got %d", rec.Code)
	}
	if rec := get(router, "/scores/overview?period=2024-02", "admin", auth.RoleSuperAdmin); rec.Code != http.StatusOK {
		t.Fatalf("expected admin overview, got %d", rec.Code)
	}
}
