package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kpiboard/internal/domain/kpi"
	"kpiboard/internal/domain/scoring"
)

// KPILookup resolves the definition a submission refers to.
type KPILookup interface {
	Get(ctx context.Context, id string) (kpi.KPI, error)
}

type Metrics interface {
	ReviewsReplaced(n int)
}

type Service struct {
	store    StoreAPI
	kpis     KPILookup
	bucketer scoring.Bucketer
	Metrics  Metrics
}

func NewService(store StoreAPI, kpis KPILookup, bucketer scoring.Bucketer) *Service {
	return &Service{store: store, kpis: kpis, bucketer: bucketer}
}

func (s *Service) Bucketer() scoring.Bucketer {
	return s.bucketer
}

// Replace records the outcome for the submission's (subject, KPI, period),
// overwriting any earlier review of the same triple.
func (s *Service) Replace(ctx context.Context, sub Submission) (Review, error) {
	r, err := s.prepare(ctx, sub)
	if err != nil {
		return Review{}, err
	}
	saved, err := s.store.UpsertReview(ctx, r)
	if err != nil {
		return Review{}, err
	}
	s.recordReplaced(1)
	return saved, nil
}

// ReplaceBatch validates every submission before writing any of them, then
// stores the batch atomically. Duplicate triples inside the batch collapse to
// the last one.
func (s *Service) ReplaceBatch(ctx context.Context, subs []Submission) ([]Review, error) {
	if len(subs) == 0 {
		return nil, ErrEmptyBatch
	}
	type triple struct {
		subject, kpi string
		period       scoring.PeriodKey
	}
	index := make(map[triple]int, len(subs))
	rows := make([]row, 0, len(subs))
	for i, sub := range subs {
		r, err := s.prepare(ctx, sub)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		key := triple{r.SubjectID, r.KPIID, r.Period}
		if pos, ok := index[key]; ok {
			rows[pos] = r
			continue
		}
		index[key] = len(rows)
		rows = append(rows, r)
	}

	saved, err := s.store.UpsertReviews(ctx, rows)
	if err != nil {
		return nil, err
	}
	s.recordReplaced(len(saved))
	return saved, nil
}

func (s *Service) ListForSubject(ctx context.Context, subjectID string, key scoring.PeriodKey) ([]Review, error) {
	return s.store.ListBySubjectPeriod(ctx, subjectID, key)
}

func (s *Service) ListForPeriod(ctx context.Context, key scoring.PeriodKey) ([]Review, error) {
	return s.store.ListByPeriod(ctx, key)
}

// ListForSubjectRange returns reviews whose period falls in [from, to).
func (s *Service) ListForSubjectRange(ctx context.Context, subjectID string, g scoring.Granularity, from, to time.Time) ([]Review, error) {
	return s.store.ListBySubjectRange(ctx, subjectID, g, from, to)
}

func (s *Service) prepare(ctx context.Context, sub Submission) (row, error) {
	sub.SubjectID = strings.TrimSpace(sub.SubjectID)
	sub.KPIID = strings.TrimSpace(sub.KPIID)
	sub.Notes = strings.TrimSpace(sub.Notes)
	sub.Plan = strings.TrimSpace(sub.Plan)
	if sub.SubjectID == "" || sub.KPIID == "" {
		return row{}, fmt.Errorf("%w: subject and kpi are required", ErrInvalidSubmission)
	}
	if sub.PeriodAt.IsZero() {
		return row{}, fmt.Errorf("%w: period date is required", ErrInvalidSubmission)
	}
	if sub.dateOnly {
		y, m, d := sub.PeriodAt.Date()
		sub.PeriodAt = time.Date(y, m, d, 12, 0, 0, 0, s.bucketer.Location())
		sub.dateOnly = false
	}
	if sub.Granularity == "" {
		sub.Granularity = scoring.Monthly
	}
	if !sub.Granularity.Valid() {
		return row{}, fmt.Errorf("%w: unknown granularity %q", ErrInvalidSubmission, sub.Granularity)
	}

	def, err := s.kpis.Get(ctx, sub.KPIID)
	if errors.Is(err, kpi.ErrNotFound) {
		return row{}, fmt.Errorf("%w: %s", ErrUnknownKPI, sub.KPIID)
	}
	if err != nil {
		return row{}, err
	}
	if !def.Active {
		return row{}, fmt.Errorf("%w: %s", ErrKPIRemoved, sub.KPIID)
	}

	return row{Submission: sub, Period: s.bucketer.Bucket(sub.Granularity, sub.PeriodAt)}, nil
}

func (s *Service) recordReplaced(n int) {
	if s.Metrics != nil {
		s.Metrics.ReviewsReplaced(n)
	}
}
