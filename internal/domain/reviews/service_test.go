package reviews

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"kpiboard/internal/domain/kpi"
	"kpiboard/internal/domain/scoring"
)

type kpiTable map[string]kpi.KPI

func (t kpiTable) Get(_ context.Context, id string) (kpi.KPI, error) {
	k, ok := t[id]
	if !ok {
		return kpi.KPI{}, kpi.ErrNotFound
	}
	return k, nil
}

type tripleKey struct {
	subject, kpi, period string
}

// memoryStore mimics the unique index on (subject, kpi, period).
type memoryStore struct {
	seq     int
	clock   time.Time
	reviews map[tripleKey]Review
	batches int
	failAt  int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{reviews: map[tripleKey]Review{}, clock: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), failAt: -1}
}

func (m *memoryStore) UpsertReview(_ context.Context, r row) (Review, error) {
	m.clock = m.clock.Add(time.Second)
	key := tripleKey{r.SubjectID, r.KPIID, r.Period.String()}
	existing, ok := m.reviews[key]
	if !ok {
		m.seq++
		existing = Review{ID: fmt.Sprintf("r%d", m.seq), CreatedAt: m.clock}
	}
	existing.SubjectID, existing.KPIID, existing.Met = r.SubjectID, r.KPIID, r.Met
	existing.Granularity, existing.Period, existing.PeriodAt = r.Period.Granularity, r.Period.String(), r.PeriodAt
	existing.ReviewerID, existing.Notes, existing.Plan = r.ReviewerID, r.Notes, r.Plan
	existing.UpdatedAt = m.clock
	m.reviews[key] = existing
	return existing, nil
}

func (m *memoryStore) UpsertReviews(ctx context.Context, rows []row) ([]Review, error) {
	m.batches++
	snapshot := make(map[tripleKey]Review, len(m.reviews))
	for k, v := range m.reviews {
		snapshot[k] = v
	}
	var out []Review
	for i, r := range rows {
		if i == m.failAt {
			m.reviews = snapshot
			return nil, errors.New("write failed")
		}
		saved, _ := m.UpsertReview(ctx, r)
		out = append(out, saved)
	}
	return out, nil
}

func (m *memoryStore) ListBySubjectPeriod(_ context.Context, subjectID string, key scoring.PeriodKey) ([]Review, error) {
	var out []Review
	for k, v := range m.reviews {
		if k.subject == subjectID && k.period == key.String() && v.Granularity == key.Granularity {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memoryStore) ListByPeriod(_ context.Context, key scoring.PeriodKey) ([]Review, error) {
	var out []Review
	for k, v := range m.reviews {
		if k.period == key.String() && v.Granularity == key.Granularity {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memoryStore) ListBySubjectRange(_ context.Context, subjectID string, g scoring.Granularity, from, to time.Time) ([]Review, error) {
	var out []Review
	for k, v := range m.reviews {
		if k.subject == subjectID && v.Granularity == g && !v.PeriodAt.Before(from) && v.PeriodAt.Before(to) {
			out = append(out, v)
		}
	}
	return out, nil
}

type countingMetrics struct{ replaced int }

func (c *countingMetrics) ReviewsReplaced(n int) { c.replaced += n }

func testKPIs() kpiTable {
	removedAt := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	return kpiTable{
		"k5":  {ID: "k5", Weight: 5, Active: true},
		"k10": {ID: "k10", Weight: 10, Active: true},
		"old": {ID: "old", Weight: 3, Active: false, RemovedAt: &removedAt},
	}
}

func TestReplaceKeepsOneRecordPerPeriod(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, testKPIs(), scoring.NewBucketer(nil))
	metrics := &countingMetrics{}
	svc.Metrics = metrics
	ctx := context.Background()

	first := Submission{SubjectID: "c1", KPIID: "k5", Met: scoring.Outcome(false), PeriodAt: time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC)}
	second := Submission{SubjectID: "c1", KPIID: "k5", Met: scoring.Outcome(true), PeriodAt: time.Date(2024, time.March, 25, 0, 0, 0, 0, time.UTC)}

	if _, err := svc.Replace(ctx, first); err != nil {
		t.Fatalf("first replace: %v", err)
	}
	saved, err := svc.Replace(ctx, second)
	if err != nil {
		t.Fatalf("second replace: %v", err)
	}
	if saved.Period != "2024-03" || saved.Granularity != scoring.Monthly {
		t.Fatalf("unexpected period %s/%s", saved.Granularity, saved.Period)
	}

	key := scoring.PeriodKey{Granularity: scoring.Monthly, Year: 2024, Index: 3}
	list, err := svc.ListForSubject(ctx, "c1", key)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || !*list[0].Met {
		t.Fatalf("expected a single met review, got %+v", list)
	}

	score, err := scoring.ComputeScore(Records(list), kpi.ToScoring([]kpi.KPI{testKPIs()["k5"]}))
	if err != nil || score != 100 {
		t.Fatalf("expected score 100, got %d (%v)", score, err)
	}
	if metrics.replaced != 2 {
		t.Fatalf("expected 2 replacements counted, got %d", metrics.replaced)
	}
}

func TestReplaceRejectsRemovedAndUnknownKPIs(t *testing.T) {
	svc := NewService(newMemoryStore(), testKPIs(), scoring.NewBucketer(nil))
	ctx := context.Background()
	at := time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		sub  Submission
		want error
	}{
		{"removed kpi", Submission{SubjectID: "c1", KPIID: "old", Met: scoring.Outcome(true), PeriodAt: at}, ErrKPIRemoved},
		{"unknown kpi", Submission{SubjectID: "c1", KPIID: "ghost", Met: scoring.Outcome(true), PeriodAt: at}, ErrUnknownKPI},
		{"missing subject", Submission{KPIID: "k5", PeriodAt: at}, ErrInvalidSubmission},
		{"missing date", Submission{SubjectID: "c1", KPIID: "k5"}, ErrInvalidSubmission},
		{"bad granularity", Submission{SubjectID: "c1", KPIID: "k5", PeriodAt: at, Granularity: "year"}, ErrInvalidSubmission},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Replace(ctx, tc.sub); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestReplaceBatchIsAllOrNothing(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, testKPIs(), scoring.NewBucketer(nil))
	ctx := context.Background()
	at := time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC)

	_, err := svc.ReplaceBatch(ctx, []Submission{
		{SubjectID: "c1", KPIID: "k5", Met: scoring.Outcome(true), PeriodAt: at},
		{SubjectID: "c1", KPIID: "old", Met: scoring.Outcome(true), PeriodAt: at},
	})
	if !errors.Is(err, ErrKPIRemoved) {
		t.Fatalf("expected removed kpi error, got %v", err)
	}
	if store.batches != 0 || len(store.reviews) != 0 {
		t.Fatalf("expected nothing written, got %d batches and %d reviews", store.batches, len(store.reviews))
	}

	store.failAt = 1
	_, err = svc.ReplaceBatch(ctx, []Submission{
		{SubjectID: "c1", KPIID: "k5", Met: scoring.Outcome(true), PeriodAt: at},
		{SubjectID: "c1", KPIID: "k10", Met: scoring.Outcome(true), PeriodAt: at},
	})
	if err == nil || len(store.reviews) != 0 {
		t.Fatalf("expected failed batch to roll back, got %v with %d reviews", err, len(store.reviews))
	}

	if _, err := svc.ReplaceBatch(ctx, nil); !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("expected empty batch error, got %v", err)
	}
}

func TestReplaceBatchCollapsesDuplicates(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, testKPIs(), scoring.NewBucketer(nil))
	ctx := context.Background()

	saved, err := svc.ReplaceBatch(ctx, []Submission{
		{SubjectID: "c1", KPIID: "k5", Met: scoring.Outcome(false), PeriodAt: time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC), Granularity: scoring.Weekly},
		{SubjectID: "c1", KPIID: "k10", Met: scoring.Outcome(true), PeriodAt: time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC), Granularity: scoring.Weekly},
		{SubjectID: "c1", KPIID: "k5", Met: scoring.Outcome(true), PeriodAt: time.Date(2024, time.March, 10, 23, 0, 0, 0, time.UTC), Granularity: scoring.Weekly},
	})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("expected 2 saved reviews, got %d", len(saved))
	}
	if saved[0].KPIID != "k5" || !*saved[0].Met || saved[0].Period != "2024-W10" {
		t.Fatalf("expected the later k5 review in week 10, got %+v", saved[0])
	}
}

func TestListForSubjectRange(t *testing.T) {
	store := newMemoryStore()
	bucketer := scoring.NewBucketer(nil)
	svc := NewService(store, testKPIs(), bucketer)
	ctx := context.Background()

	for _, month := range []time.Month{time.January, time.February, time.March} {
		sub := Submission{SubjectID: "c1", KPIID: "k5", Met: scoring.Outcome(true), PeriodAt: time.Date(2024, month, 15, 0, 0, 0, 0, time.UTC)}
		if _, err := svc.Replace(ctx, sub); err != nil {
			t.Fatalf("replace: %v", err)
		}
	}

	from, _ := bucketer.Bounds(scoring.PeriodKey{Granularity: scoring.Monthly, Year: 2024, Index: 2})
	_, to := bucketer.Bounds(scoring.PeriodKey{Granularity: scoring.Monthly, Year: 2024, Index: 3})
	got, err := svc.ListForSubjectRange(ctx, "c1", scoring.Monthly, from, to)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected february and march, got %d reviews", len(got))
	}
}

func TestSubmissionAcceptsDateOnlyPeriodAt(t *testing.T) {
	zone := time.FixedZone("UTC-5", -5*60*60)
	svc := NewService(newMemoryStore(), testKPIs(), scoring.NewBucketer(zone))
	ctx := context.Background()

	var dated Submission
	if err := json.Unmarshal([]byte(`{"subjectId":"c1","kpiId":"k5","met":true,"periodAt":"2024-03-01"}`), &dated); err != nil {
		t.Fatalf("decode date-only: %v", err)
	}
	saved, err := svc.Replace(ctx, dated)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if saved.Period != "2024-03" {
		t.Fatalf("expected a bare date to stay in its own local month, got %s", saved.Period)
	}
	if want := time.Date(2024, time.March, 1, 12, 0, 0, 0, zone); !saved.PeriodAt.Equal(want) {
		t.Fatalf("expected period anchored at %s, got %s", want, saved.PeriodAt)
	}

	var instant Submission
	if err := json.Unmarshal([]byte(`{"subjectId":"c1","kpiId":"k10","met":true,"periodAt":"2024-03-01T00:00:00Z"}`), &instant); err != nil {
		t.Fatalf("decode rfc3339: %v", err)
	}
	saved, err = svc.Replace(ctx, instant)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if saved.Period != "2024-02" {
		t.Fatalf("expected the instant to bucket in the local zone, got %s", saved.Period)
	}
}

func TestSubmissionRejectsBadJSON(t *testing.T) {
	for _, raw := range []string{
		`{"subjectId":"c1","kpiId":"k5","periodAt":"03/01/2024"}`,
		`{"subjectId":"c1","kpiId":"k5","periodAt":"2024-03-01","extra":1}`,
	} {
		var sub Submission
		if err := json.Unmarshal([]byte(raw), &sub); err == nil {
			t.Fatalf("expected error for %s", raw)
		}
	}

	var missing Submission
	if err := json.Unmarshal([]byte(`{"subjectId":"c1","kpiId":"k5"}`), &missing); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !missing.PeriodAt.IsZero() {
		t.Fatalf("expected zero periodAt, got %s", missing.PeriodAt)
	}
}
