package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

const (
	JobReviewReminder = "review_reminder"

	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunFunc does the work of one job run and returns details for the ledger.
type RunFunc func(context.Context) (any, error)

type Metrics interface {
	JobRun(jobType, status string)
}

type Service struct {
	ledger   Ledger
	queue    chan job
	Metrics  Metrics
	Reminder RunFunc
	// ReminderInterval of zero disables the reminder scheduler.
	ReminderInterval time.Duration
}

type job struct {
	Type string
	Run  RunFunc
}

func New(ledger Ledger) *Service {
	return &Service{
		ledger: ledger,
		queue:  make(chan job, 128),
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.ReminderInterval > 0 && s.Reminder != nil {
		go s.schedule(ctx, JobReviewReminder, s.ReminderInterval, s.Reminder)
	}
}

// Enqueue hands a job to the worker. A full queue drops the job.
func (s *Service) Enqueue(jobType string, run RunFunc) bool {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
		return true
	default:
		slog.Warn("job queue full", "job_type", jobType)
		return false
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run RunFunc) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

func (s *Service) Runs(ctx context.Context, jobType string, limit, offset int) ([]Run, error) {
	return s.ledger.ListRuns(ctx, jobType, limit, offset)
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "job_type", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID, err := s.ledger.StartRun(ctx, j.Type)
	if err != nil {
		slog.Warn("job run insert failed", "job_type", j.Type, "err", err)
	}

	details, err := j.Run(ctx)
	status := StatusCompleted
	if err != nil {
		status = StatusFailed
		details = map[string]any{"error": err.Error(), "details": details}
	}
	if s.Metrics != nil {
		s.Metrics.JobRun(j.Type, status)
	}

	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "job_type", j.Type, "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if updErr := s.ledger.FinishRun(ctx, runID, status, detailsJSON); updErr != nil {
			slog.Warn("job run update failed", "job_type", j.Type, "err", updErr)
		}
	}
	return details, err
}

func (s *Service) schedule(ctx context.Context, jobType string, interval time.Duration, run RunFunc) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(jobType, run)
		}
	}
}
