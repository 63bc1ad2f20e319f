package reviews

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"kpiboard/internal/domain/scoring"
	"kpiboard/internal/platform/querier"
)

const reviewColumns = "id, subject_id, kpi_id, met, period_kind, period_key, period_at, COALESCE(reviewer_id::text, ''), notes_enc, plan_enc, COALESCE(file_ref, ''), created_at, updated_at"

const upsertReviewSQL = `
    INSERT INTO kpi_reviews (subject_id, kpi_id, met, period_kind, period_key, period_at, reviewer_id, notes_enc, plan_enc, file_ref)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    ON CONFLICT (subject_id, kpi_id, period_kind, period_key) DO UPDATE
      SET met = EXCLUDED.met,
          period_at = EXCLUDED.period_at,
          reviewer_id = EXCLUDED.reviewer_id,
          notes_enc = EXCLUDED.notes_enc,
          plan_enc = EXCLUDED.plan_enc,
          file_ref = EXCLUDED.file_ref,
          updated_at = clock_timestamp()
    RETURNING ` + reviewColumns

// UpsertReview is a single statement, so concurrent submissions for the same
// triple serialize on the unique index and the later one wins.
func (s *Store) UpsertReview(ctx context.Context, r row) (Review, error) {
	return s.upsert(ctx, s.DB, r)
}

// UpsertReviews writes a whole batch in one transaction.
func (s *Store) UpsertReviews(ctx context.Context, rows []row) ([]Review, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out := make([]Review, 0, len(rows))
	for _, r := range rows {
		saved, err := s.upsert(ctx, tx, r)
		if err != nil {
			return nil, fmt.Errorf("review %s/%s: %w", r.SubjectID, r.KPIID, err)
		}
		out = append(out, saved)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) upsert(ctx context.Context, q querier.Querier, r row) (Review, error) {
	notes, err := s.Crypto.EncryptString(r.Notes)
	if err != nil {
		return Review{}, err
	}
	plan, err := s.Crypto.EncryptString(r.Plan)
	if err != nil {
		return Review{}, err
	}
	return s.scan(q.QueryRow(ctx, upsertReviewSQL,
		r.SubjectID, r.KPIID, r.Met, string(r.Period.Granularity), r.Period.String(), r.PeriodAt,
		nullIfEmpty(r.ReviewerID), notes, plan, nullIfEmpty(r.FileRef)))
}

func (s *Store) ListBySubjectPeriod(ctx context.Context, subjectID string, key scoring.PeriodKey) ([]Review, error) {
	return s.list(ctx, `
    SELECT `+reviewColumns+`
    FROM kpi_reviews
    WHERE subject_id = $1 AND period_kind = $2 AND period_key = $3
    ORDER BY kpi_id
  `, subjectID, string(key.Granularity), key.String())
}

func (s *Store) ListByPeriod(ctx context.Context, key scoring.PeriodKey) ([]Review, error) {
	return s.list(ctx, `
    SELECT `+reviewColumns+`
    FROM kpi_reviews
    WHERE period_kind = $1 AND period_key = $2
    ORDER BY subject_id, kpi_id
  `, string(key.Granularity), key.String())
}

func (s *Store) ListBySubjectRange(ctx context.Context, subjectID string, g scoring.Granularity, from, to time.Time) ([]Review, error) {
	return s.list(ctx, `
    SELECT `+reviewColumns+`
    FROM kpi_reviews
    WHERE subject_id = $1 AND period_kind = $2 AND period_at >= $3 AND period_at < $4
    ORDER BY period_at, kpi_id
  `, subjectID, string(g), from, to)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]Review, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Review
	for rows.Next() {
		review, err := s.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, review)
	}
	return out, rows.Err()
}

func (s *Store) scan(r pgx.Row) (Review, error) {
	var review Review
	var kind string
	var notesEnc, planEnc []byte
	if err := r.Scan(&review.ID, &review.SubjectID, &review.KPIID, &review.Met, &kind, &review.Period, &review.PeriodAt,
		&review.ReviewerID, &notesEnc, &planEnc, &review.FileRef, &review.CreatedAt, &review.UpdatedAt); err != nil {
		return Review{}, err
	}
	review.Granularity = scoring.Granularity(kind)

	notes, err := s.Crypto.DecryptString(notesEnc)
	if err != nil {
		return Review{}, fmt.Errorf("decrypt notes: %w", err)
	}
	plan, err := s.Crypto.DecryptString(planEnc)
	if err != nil {
		return Review{}, fmt.Errorf("decrypt plan: %w", err)
	}
	review.Notes, review.Plan = notes, plan
	return review, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
