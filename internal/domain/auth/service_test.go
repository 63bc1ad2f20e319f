package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeStore struct {
	users    map[string]AuthUser
	lastSeen []string
}

func (f *fakeStore) FindActiveUserByEmail(_ context.Context, email string) (AuthUser, error) {
	user, ok := f.users[email]
	if !ok {
		return AuthUser{}, ErrInvalidCredentials
	}
	return user, nil
}

func (f *fakeStore) UpdateLastLogin(_ context.Context, userID string) error {
	f.lastSeen = append(f.lastSeen, userID)
	return nil
}

func TestLogin(t *testing.T) {
	hash, err := HashPassword("Passw0rd!")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	store := &fakeStore{users: map[string]AuthUser{
		"dir@example.com":    {ID: "d1", Email: "dir@example.com", Name: "Dana", Role: RoleDirector, Password: hash},
		"nopass@example.com": {ID: "c1", Email: "nopass@example.com", Role: RoleClinician},
	}}
	svc := NewService(store, "secret", time.Hour)

	result, err := svc.Login(context.Background(), " dir@example.com ", "Passw0rd!")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	claims, err := ParseToken("secret", result.Token)
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if claims.UserID != "d1" || claims.Role != RoleDirector {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if len(store.lastSeen) != 1 || store.lastSeen[0] != "d1" {
		t.Fatalf("expected last login to be recorded, got %v", store.lastSeen)
	}

	cases := []struct {
		email, password string
	}{
		{"dir@example.com", "wrong"},
		{"missing@example.com", "Passw0rd!"},
		{"nopass@example.com", "anything"},
		{"", "Passw0rd!"},
	}
	for _, tc := range cases {
		if _, err := svc.Login(context.Background(), tc.email, tc.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("login %q: expected invalid credentials, got %v", tc.email, err)
		}
	}
}
