package jobshandler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"kpiboard/internal/domain/audit"
	"kpiboard/internal/domain/auth"
	"kpiboard/internal/platform/jobs"
	"kpiboard/internal/transport/http/api"
	"kpiboard/internal/transport/http/middleware"
	"kpiboard/internal/transport/http/shared"
)

type JobRunner interface {
	RunNow(ctx context.Context, jobType string, run jobs.RunFunc) (any, error)
	Enqueue(jobType string, run jobs.RunFunc) bool
	Runs(ctx context.Context, jobType string, limit, offset int) ([]jobs.Run, error)
}

type Handler struct {
	Jobs     JobRunner
	Reminder jobs.RunFunc
	Perms    middleware.PermissionStore
	Audit    shared.Auditor
}

func NewHandler(runner JobRunner, reminder jobs.RunFunc, perms middleware.PermissionStore, auditor shared.Auditor) *Handler {
	return &Handler{Jobs: runner, Reminder: reminder, Perms: perms, Audit: auditor}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/jobs", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermJobsAdmin, h.Perms))
		r.Post("/review-reminders", h.handleReviewReminders)
		r.Get("/runs", h.handleRuns)
	})
}

// handleReviewReminders runs the reminder job inline and returns its
// summary. With async=true it is queued and 202 is returned.
func (h *Handler) handleReviewReminders(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	shared.Audit(r, h.Audit, audit.Entry{Action: audit.ActionRunJob, EntityType: audit.EntityJob, EntityID: jobs.JobReviewReminder})

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		if !h.Jobs.Enqueue(jobs.JobReviewReminder, h.Reminder) {
			api.Fail(w, http.StatusServiceUnavailable, "job_queue_full", "job queue is full", reqID)
			return
		}
		api.WriteJSON(w, http.StatusAccepted, api.Envelope{Success: true, Data: map[string]string{"status": "queued"}, RequestID: reqID})
		return
	}

	details, err := h.Jobs.RunNow(r.Context(), jobs.JobReviewReminder, h.Reminder)
	if err != nil {
		api.FailWithDetails(w, http.StatusInternalServerError, "job_failed", "review reminder job failed", details, reqID)
		return
	}
	api.Success(w, details, reqID)
}

func (h *Handler) handleRuns(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 50, shared.MaxPageSize)
	runs, err := h.Jobs.Runs(r.Context(), r.URL.Query().Get("jobType"), page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "job_runs_failed", "failed to list job runs", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, runs, middleware.GetRequestID(r.Context()))
}
