package requestctx

import (
	"context"
	"testing"

	"kpiboard/internal/domain/auth"
)

func TestRequestValues(t *testing.T) {
	ctx := context.Background()
	if GetRequestID(ctx) != "" {
		t.Fatal("expected empty request id")
	}
	if _, ok := GetUser(ctx); ok {
		t.Fatal("expected no user")
	}

	ctx = WithRequestID(ctx, "req-1")
	ctx = WithUser(ctx, auth.UserContext{UserID: "u1", Role: auth.RoleDirector})
	if GetRequestID(ctx) != "req-1" {
		t.Fatalf("unexpected request id %q", GetRequestID(ctx))
	}
	user, ok := GetUser(ctx)
	if !ok || user.UserID != "u1" || user.Role != auth.RoleDirector {
		t.Fatalf("unexpected user %+v", user)
	}

	if _, ok := GetUser(WithUser(context.Background(), auth.UserContext{})); ok {
		t.Fatal("a user without id should not count as authenticated")
	}
}
