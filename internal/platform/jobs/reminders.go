package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"kpiboard/internal/domain/notifications"
	"kpiboard/internal/domain/people"
	"kpiboard/internal/domain/reviews"
	"kpiboard/internal/domain/scoring"
)

type ProfileLister interface {
	List(ctx context.Context, filter people.Filter) ([]people.Profile, error)
}

type PeriodReviews interface {
	ListForPeriod(ctx context.Context, key scoring.PeriodKey) ([]reviews.Review, error)
}

type Notifier interface {
	Create(ctx context.Context, userID, ntype, title, body string) error
}

// Reminders tells each director which of their clinicians have no reviewed
// KPI yet in the current month.
type Reminders struct {
	Profiles ProfileLister
	Reviews  PeriodReviews
	Notifier Notifier
	Bucketer scoring.Bucketer
	Now      func() time.Time
}

type ReminderSummary struct {
	Period    string `json:"period"`
	Directors int    `json:"directors"`
	Pending   int    `json:"pending"`
	Notified  int    `json:"notified"`
	Failed    int    `json:"failed"`
	// Unsupervised counts pending clinicians with no active director to tell.
	Unsupervised int `json:"unsupervised"`
}

func (r *Reminders) Run(ctx context.Context) (any, error) {
	return r.Send(ctx)
}

func (r *Reminders) Send(ctx context.Context) (ReminderSummary, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	key := r.Bucketer.Month(now())
	summary := ReminderSummary{Period: key.String()}

	profiles, err := r.Profiles.List(ctx, people.Filter{ActiveOnly: true})
	if err != nil {
		return summary, err
	}
	list, err := r.Reviews.ListForPeriod(ctx, key)
	if err != nil {
		return summary, err
	}
	reviewed := make(map[string]bool)
	for _, review := range list {
		if review.Met != nil {
			reviewed[review.SubjectID] = true
		}
	}

	unsupervised := make(map[string]bool)
	for _, clinician := range people.Unsupervised(profiles) {
		unsupervised[clinician.ID] = true
	}
	pending := make(map[string][]string)
	for _, clinician := range people.Clinicians(profiles) {
		if reviewed[clinician.ID] {
			continue
		}
		if unsupervised[clinician.ID] {
			summary.Unsupervised++
			continue
		}
		pending[clinician.SupervisorID] = append(pending[clinician.SupervisorID], clinician.FullName)
	}

	var errs []error
	for _, director := range people.ActiveDirectors(profiles) {
		summary.Directors++
		names := pending[director.ID]
		if len(names) == 0 {
			continue
		}
		sort.Strings(names)
		summary.Pending += len(names)
		title := fmt.Sprintf("KPI reviews pending for %s", key)
		body := fmt.Sprintf("%d clinician(s) have no reviewed KPI yet: %s", len(names), strings.Join(names, ", "))
		if err := r.Notifier.Create(ctx, director.ID, notifications.TypeReviewReminder, title, body); err != nil {
			slog.Warn("review reminder failed", "director_id", director.ID, "period", key.String(), "err", err)
			summary.Failed++
			errs = append(errs, fmt.Errorf("notify director %s: %w", director.ID, err))
			continue
		}
		summary.Notified++
	}
	return summary, errors.Join(errs...)
}
