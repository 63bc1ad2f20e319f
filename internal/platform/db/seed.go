package db

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"

	"kpiboard/internal/domain/auth"
	"kpiboard/internal/platform/config"
)

// Seed makes sure a super admin can sign in to an empty database. It never
// touches an existing profile.
func Seed(ctx context.Context, pool *Pool, cfg config.Config) error {
	email := strings.ToLower(strings.TrimSpace(cfg.SeedAdminEmail))
	if email == "" {
		return nil
	}
	if strings.TrimSpace(cfg.SeedAdminPassword) == "" {
		return errors.New("SEED_ADMIN_PASSWORD is required when SEED_ADMIN_EMAIL is set")
	}
	return ensureAdminProfile(ctx, pool, email, cfg.SeedAdminName, cfg.SeedAdminPassword)
}

func ensureAdminProfile(ctx context.Context, pool *Pool, email, name, password string) error {
	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM profiles WHERE lower(email) = $1", email).Scan(&id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		name = "Administrator"
	}
	if _, err := pool.Exec(ctx, `
    INSERT INTO profiles (email, full_name, role, password_hash)
    VALUES ($1,$2,$3,$4)
    ON CONFLICT (email) DO NOTHING
  `, email, name, auth.RoleSuperAdmin, hash); err != nil {
		return err
	}
	slog.Info("seeded super admin", "email", email)
	return nil
}
