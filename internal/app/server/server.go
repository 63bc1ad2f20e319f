// Package server wires stores, services and HTTP handlers into a running
// API process.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kpiboard/internal/domain/audit"
	"kpiboard/internal/domain/auth"
	"kpiboard/internal/domain/kpi"
	"kpiboard/internal/domain/notifications"
	"kpiboard/internal/domain/people"
	"kpiboard/internal/domain/reports"
	"kpiboard/internal/domain/reviews"
	"kpiboard/internal/domain/scorecard"
	"kpiboard/internal/domain/scoring"
	"kpiboard/internal/platform/config"
	cryptoutil "kpiboard/internal/platform/crypto"
	"kpiboard/internal/platform/db"
	"kpiboard/internal/platform/email"
	"kpiboard/internal/platform/jobs"
	"kpiboard/internal/platform/metrics"
	"kpiboard/internal/platform/tracing"
	audithandler "kpiboard/internal/transport/http/handlers/audit"
	authhandler "kpiboard/internal/transport/http/handlers/auth"
	jobshandler "kpiboard/internal/transport/http/handlers/jobs"
	kpihandler "kpiboard/internal/transport/http/handlers/kpis"
	notificationshandler "kpiboard/internal/transport/http/handlers/notifications"
	peoplehandler "kpiboard/internal/transport/http/handlers/people"
	reportshandler "kpiboard/internal/transport/http/handlers/reports"
	reviewshandler "kpiboard/internal/transport/http/handlers/reviews"
	scoreshandler "kpiboard/internal/transport/http/handlers/scores"
	"kpiboard/internal/transport/http/middleware"
)

const shutdownTimeout = 15 * time.Second

// Registrar mounts a handler group under /api/v1.
type Registrar interface {
	RegisterRoutes(r chi.Router)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	Config  config.Config
	DB      *db.Pool
	Router  http.Handler
	Jobs    *jobs.Service
	Metrics *metrics.Collector
}

// Build wires every service against pool. It starts nothing.
func Build(cfg config.Config, pool *db.Pool) (*App, error) {
	crypto, err := cryptoutil.New(cfg.DataEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.New()
	}
	bucketer := scoring.NewBucketer(cfg.Location())
	perms := auth.StaticPermissions{}
	auditLog := audit.New(pool)

	kpiService := kpi.NewService(kpi.NewStore(pool))
	peopleService := people.NewService(people.NewStore(pool))
	reviewService := reviews.NewService(reviews.NewStore(pool, crypto), kpiService, bucketer)
	scoreService := scorecard.NewService(kpiService, peopleService, reviewService, bucketer)
	reportService := reports.NewService(scoreService)
	authService := auth.NewService(auth.NewStore(pool), cfg.JWTSecret, cfg.TokenTTL)

	notificationService := notifications.New(notifications.NewStore(pool), email.New(cfg))
	notificationService.EmailEnabled = cfg.EmailEnabled
	notificationService.DefaultFrom = cfg.EmailFrom

	// Assigning a nil *Collector to an interface field would make it non-nil.
	if collector != nil {
		reviewService.Metrics = collector
		scoreService.Metrics = collector
	}

	reminders := &jobs.Reminders{
		Profiles: peopleService,
		Reviews:  reviewService,
		Notifier: notificationService,
		Bucketer: bucketer,
	}
	jobService := jobs.New(jobs.NewLedger(pool))
	jobService.Reminder = reminders.Run
	jobService.ReminderInterval = cfg.ReviewReminderInterval
	if collector != nil {
		jobService.Metrics = collector
	}

	handlers := []Registrar{
		authhandler.NewHandler(authService, peopleService, auditLog),
		kpihandler.NewHandler(kpiService, perms, auditLog),
		peoplehandler.NewHandler(peopleService, perms, auditLog, notificationService),
		reviewshandler.NewHandler(reviewService, peopleService, perms, auditLog, notificationService),
		scoreshandler.NewHandler(scoreService, peopleService, perms),
		reportshandler.NewHandler(reportService, peopleService, perms, bucketer),
		notificationshandler.NewHandler(notificationService),
		audithandler.NewHandler(auditLog, perms),
		jobshandler.NewHandler(jobService, reminders.Run, perms, auditLog),
	}

	return &App{
		Config:  cfg,
		DB:      pool,
		Router:  NewRouter(cfg, pool, collector, handlers...),
		Jobs:    jobService,
		Metrics: collector,
	}, nil
}

// NewRouter builds the middleware chain, health endpoints and API routes.
// collector may be nil.
func NewRouter(cfg config.Config, pinger Pinger, collector *metrics.Collector, handlers ...Registrar) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	if cfg.TracingEnabled {
		router.Use(tracing.Middleware)
	}
	var recorder middleware.RequestRecorder
	if collector != nil {
		recorder = collector
	}
	router.Use(middleware.Logger(recorder))
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pinger.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if collector != nil {
		router.Handle("/metrics", collector.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))
		for _, h := range handlers {
			h.RegisterRoutes(r)
		}
	})

	return router
}

// Run connects, migrates and seeds as configured, then serves until ctx is
// cancelled.
func Run(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.TracingEnabled {
		shutdown, err := tracing.Init(tracing.ServiceName, cfg.TracingEndpoint)
		if err != nil {
			return fmt.Errorf("tracing init: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				slog.Warn("tracing shutdown failed", "err", err)
			}
		}()
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	app, err := Build(cfg, pool)
	if err != nil {
		return err
	}

	jobCtx, stopJobs := context.WithCancel(ctx)
	defer stopJobs()
	app.Jobs.Start(jobCtx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("kpiboard listening", "addr", cfg.Addr, "env", cfg.Environment, "bucket_tz", cfg.Location().String())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
