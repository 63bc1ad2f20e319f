package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"kpiboard/internal/platform/querier"
)

// Run is one row of the job_runs ledger.
type Run struct {
	ID          string          `json:"id"`
	JobType     string          `json:"jobType"`
	Status      string          `json:"status"`
	Details     json.RawMessage `json:"details,omitempty"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

type Ledger interface {
	StartRun(ctx context.Context, jobType string) (string, error)
	FinishRun(ctx context.Context, runID, status string, details []byte) error
	ListRuns(ctx context.Context, jobType string, limit, offset int) ([]Run, error)
}

type PGLedger struct {
	DB querier.Querier
}

func NewLedger(db querier.Querier) *PGLedger {
	return &PGLedger{DB: db}
}

func (l *PGLedger) StartRun(ctx context.Context, jobType string) (string, error) {
	var id string
	err := l.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_type, status)
    VALUES ($1,$2)
    RETURNING id
  `, jobType, StatusRunning).Scan(&id)
	return id, err
}

func (l *PGLedger) FinishRun(ctx context.Context, runID, status string, details []byte) error {
	_, err := l.DB.Exec(ctx, `
    UPDATE job_runs
    SET status = $1, details_json = $2, completed_at = now()
    WHERE id = $3
  `, status, details, runID)
	return err
}

func (l *PGLedger) ListRuns(ctx context.Context, jobType string, limit, offset int) ([]Run, error) {
	query := "SELECT id, job_type, status, details_json, started_at, completed_at FROM job_runs"
	var args []any
	if jobType != "" {
		args = append(args, jobType)
		query += " WHERE job_type = $1"
	}
	query += fmt.Sprintf(" ORDER BY started_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := l.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Run{}
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.JobType, &run.Status, &run.Details, &run.StartedAt, &run.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
