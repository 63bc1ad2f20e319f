package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"kpiboard/internal/platform/querier"
)

type AuthUser struct {
	ID       string
	Email    string
	Name     string
	Role     string
	Password string
}

type StoreAPI interface {
	FindActiveUserByEmail(ctx context.Context, email string) (AuthUser, error)
	UpdateLastLogin(ctx context.Context, userID string) error
}

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) FindActiveUserByEmail(ctx context.Context, email string) (AuthUser, error) {
	var out AuthUser
	err := s.DB.QueryRow(ctx, `
    SELECT id, email, full_name, role, COALESCE(password_hash, '')
    FROM profiles
    WHERE lower(email) = lower($1) AND active = true
  `, email).Scan(&out.ID, &out.Email, &out.Name, &out.Role, &out.Password)
	if errors.Is(err, pgx.ErrNoRows) {
		return AuthUser{}, ErrInvalidCredentials
	}
	return out, err
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE profiles SET last_login = now() WHERE id = $1", userID)
	return err
}
