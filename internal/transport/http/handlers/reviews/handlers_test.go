package reviewshandler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"kpiboard/internal/domain/audit"
	"kpiboard/internal/domain/auth"
	"kpiboard/internal/domain/people"
	"kpiboard/internal/domain/reviews"
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

type fakeReviews struct {
	bucketer scoring.Bucketer
	saved    []reviews.Submission
	batches  int
}

func (f *fakeReviews) Replace(_ context.Context, sub reviews.Submission) (reviews.Review, error) {
	if sub.KPIID == "removed" {
		return reviews.Review{}, fmt.Errorf("%w: %s", reviews.ErrKPIRemoved, sub.KPIID)
	}
	f.saved = append(f.saved, sub)
	return reviews.Review{ID: "r1", SubjectID: sub.SubjectID, KPIID: sub.KPIID, Met: sub.Met, ReviewerID: sub.ReviewerID, Period: "2024-03"}, nil
}

func (f *fakeReviews) ReplaceBatch(ctx context.Context, subs []reviews.Submission) ([]reviews.Review, error) {
	f.batches++
	out := make([]reviews.Review, 0, len(subs))
	for _, sub := range subs {
		r, err := f.Replace(ctx, sub)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeReviews) ListForSubject(_ context.Context, subjectID string, key scoring.PeriodKey) ([]reviews.Review, error) {
	return []reviews.Review{{ID: "r1", SubjectID: subjectID, Period: key.String()}}, nil
}

func (f *fakeReviews) Bucketer() scoring.Bucketer { return f.bucketer }

type recordingNotifier struct{ recipients []string }

func (r *recordingNotifier) Create(_ context.Context, userID, _, _, _ string) error {
	r.recipients = append(r.recipients, userID)
	return nil
}

type recordingAuditor struct{ entries []audit.Entry }

func (r *recordingAuditor) Record(_ context.Context, entry audit.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

type fixture struct {
	router   chi.Router
	reviews  *fakeReviews
	notifier *recordingNotifier
	auditor  *recordingAuditor
}

func active(id string) people.Base {
	return people.Base{ID: id, FullName: id, Active: true}
}

func setup() fixture {
	profiles := fakeProfiles{
		"d1": people.Director{Base: active("d1")},
		"d2": people.Director{Base: active("d2")},
		"c1": people.Clinician{Base: active("c1"), SupervisorID: "d1"},
		"c2": people.Clinician{Base: active("c2"), SupervisorID: "d1"},
		"c3": people.Clinician{Base: active("c3"), SupervisorID: "d2"},
	}
	f := fixture{
		reviews:  &fakeReviews{bucketer: scoring.NewBucketer(time.UTC)},
		notifier: &recordingNotifier{},
		auditor:  &recordingAuditor{},
	}
	h := NewHandler(f.reviews, profiles, auth.StaticPermissions{}, f.auditor, f.notifier)
	h.Now = func() time.Time { return time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	f.router = r
	return f
}

func (f fixture) do(method, path, body, userID, role string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req = req.WithContext(requestctx.WithUser(req.Context(), auth.UserContext{UserID: userID, Role: role}))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

const submission = `{"subjectId":"%s","kpiId":"%s","met":true,"periodAt":"2024-03-12T09:00:00Z"}`

func TestReplaceSetsReviewerAndNotifies(t *testing.T) {
	f := setup()
	rec := f.do(http.MethodPut, "/reviews", fmt.Sprintf(submission, "c1", "k1"), "d1", auth.RoleDirector)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(f.reviews.saved) != 1 || f.reviews.saved[0].ReviewerID != "d1" {
		t.Fatalf("expected reviewer from caller, got %+v", f.reviews.saved)
	}
	if len(f.notifier.recipients) != 1 || f.notifier.recipients[0] != "c1" {
		t.Fatalf("expected subject notified, got %v", f.notifier.recipients)
	}
	if len(f.auditor.entries) != 1 || f.auditor.entries[0].Action != audit.ActionReview {
		t.Fatalf("expected review audit entry, got %+v", f.auditor.entries)
	}
}

func TestReplaceAuthorization(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		caller  string
		role    string
		want    int
	}{
		{"other director's clinician", "c3", "d1", auth.RoleDirector, http.StatusForbidden},
		{"self review", "c1", "c1", auth.RoleClinician, http.StatusForbidden},
		{"unknown subject", "ghost", "d1", auth.RoleDirector, http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := setup()
			rec := f.do(http.MethodPut, "/reviews", fmt.Sprintf(submission, tc.subject, "k1"), tc.caller, tc.role)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
			if len(f.reviews.saved) != 0 {
				t.Fatalf("nothing should be saved, got %+v", f.reviews.saved)
			}
		})
	}
}

func TestReplaceRemovedKPIConflicts(t *testing.T) {
	f := setup()
	rec := f.do(http.MethodPut, "/reviews", fmt.Sprintf(submission, "c1", "removed"), "d1", auth.RoleDirector)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestReplaceValidation(t *testing.T) {
	f := setup()
	rec := f.do(http.MethodPut, "/reviews", `{"kpiId":"k1","met":true}`, "d1", auth.RoleDirector)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "subjectId") {
		t.Fatalf("expected field validation error, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestReplaceBatch(t *testing.T) {
	f := setup()
	body := `{"items":[` + fmt.Sprintf(submission, "c1", "k1") + `,` + fmt.Sprintf(submission, "c2", "k1") + `]}`
	rec := f.do(http.MethodPut, "/reviews/batch", body, "d1", auth.RoleDirector)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if f.reviews.batches != 1 || len(f.reviews.saved) != 2 {
		t.Fatalf("expected one batch of two, got %d batches %d saved", f.reviews.batches, len(f.reviews.saved))
	}

	f = setup()
	body = `{"items":[` + fmt.Sprintf(submission, "c1", "k1") + `,` + fmt.Sprintf(submission, "c3", "k1") + `]}`
	rec = f.do(http.MethodPut, "/reviews/batch", body, "d1", auth.RoleDirector)
	if rec.Code != http.StatusForbidden || f.reviews.batches != 0 {
		t.Fatalf("expected the whole batch refused, got %d with %d batches", rec.Code, f.reviews.batches)
	}

	rec = f.do(http.MethodPut, "/reviews/batch", `{"items":[]}`, "d1", auth.RoleDirector)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an empty batch, got %d", rec.Code)
	}
}

func TestListChecksVisibilityAndPeriod(t *testing.T) {
	f := setup()
	rec := f.do(http.MethodGet, "/reviews?subjectId=c1&period=2024-02", "", "d1", auth.RoleDirector)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"period":"2024-02"`) {
		t.Fatalf("expected february reviews, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(http.MethodGet, "/reviews", "", "c1", auth.RoleClinician)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"period":"2024-03"`) {
		t.Fatalf("expected own reviews for the current month, got %d: %s", rec.Code, rec.Body.String())
	}

	if rec := f.do(http.MethodGet, "/reviews?subjectId=c3", "", "d1", auth.RoleDirector); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another team, got %d", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/reviews?period=march", "", "c1", auth.RoleClinician); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad period, got %d", rec.Code)
	}
}
