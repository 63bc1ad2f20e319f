package reviews

import (
	"context"
	"time"

	"kpiboard/internal/domain/scoring"
)

type StoreAPI interface {
	UpsertReview(ctx context.Context, r row) (Review, error)
	UpsertReviews(ctx context.Context, rows []row) ([]Review, error)
	ListBySubjectPeriod(ctx context.Context, subjectID string, key scoring.PeriodKey) ([]Review, error)
	ListByPeriod(ctx context.Context, key scoring.PeriodKey) ([]Review, error)
	ListBySubjectRange(ctx context.Context, subjectID string, g scoring.Granularity, from, to time.Time) ([]Review, error)
}
