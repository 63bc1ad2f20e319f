package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      UserInfo  `json:"user"`
}

type UserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type Service struct {
	store  StoreAPI
	Secret string
	TTL    time.Duration
}

func NewService(store StoreAPI, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Service{store: store, Secret: secret, TTL: ttl}
}

// Login checks the password and issues a stateless bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}
	user, err := s.store.FindActiveUserByEmail(ctx, email)
	if err != nil {
		return LoginResult{}, err
	}
	if user.Password == "" || CheckPassword(user.Password, password) != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	expires := time.Now().Add(s.TTL)
	token, err := GenerateToken(s.Secret, Claims{UserID: user.ID, Role: user.Role, Email: user.Email}, s.TTL)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.store.UpdateLastLogin(ctx, user.ID); err != nil {
		slog.Warn("update last_login failed", "userId", user.ID, "err", err)
	}
	return LoginResult{
		Token:     token,
		ExpiresAt: expires,
		User:      UserInfo{ID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role},
	}, nil
}
