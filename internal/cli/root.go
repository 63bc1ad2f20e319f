// Package cli holds the kpiboard command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kpiboard/internal/app/server"
	"kpiboard/internal/platform/config"
	"kpiboard/internal/platform/db"
	"kpiboard/internal/platform/logging"
)

// NewRootCommand returns the command tree. Running it without a subcommand
// serves the API.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "kpiboard",
		Short: "Clinical KPI scoring service",
		Long: `kpiboard records monthly or weekly KPI reviews for clinicians and
aggregates them into weighted scores, trends and director roll-ups.

Configuration comes from the environment (or a .env file); set
KPIBOARD_CONFIG to read a config file as well.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(newServeCommand(), newMigrateCommand(), newSeedCommand(), newScoreCommand())
	return root
}

func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the background jobs",
		RunE:  runServe,
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd, func(ctx context.Context, cfg config.Config, pool *db.Pool) error {
				return db.Migrate(ctx, pool)
			})
		},
	}
}

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the initial super admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd, func(ctx context.Context, cfg config.Config, pool *db.Pool) error {
				return db.Seed(ctx, pool, cfg)
			})
		},
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, closer, err := loadConfig()
	if err != nil {
		return err
	}
	defer closer()

	ctx, stop := signal.NotifyContext(baseContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.Run(ctx, cfg)
}

func withPool(cmd *cobra.Command, fn func(context.Context, config.Config, *db.Pool) error) error {
	cfg, closer, err := loadConfig()
	if err != nil {
		return err
	}
	defer closer()
	ctx := baseContext(cmd)
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()
	return fn(ctx, cfg, pool)
}

func loadConfig() (config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	logs := logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	return cfg, func() { _ = logs.Close() }, nil
}

func baseContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
