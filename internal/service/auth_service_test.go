package service

import (
	"context"
	"testing"

	"github.com/spec-kit/marketplace-service/internal/auth"
	"github.com/spec-kit/marketplace-service/internal/domain"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.auth.Register(ctx, RegisterInput{
		Name: "Sam", Email: " Sam@Example.com ", Password: "s3cret!", Role: domain.RoleSeller,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.Token == "" || res.User.Email != "sam@example.com" || res.User.Role != domain.RoleSeller {
		t.Fatalf("unexpected result: %+v", res.User)
	}

	if _, err := env.auth.Register(ctx, RegisterInput{Name: "Sam", Email: "sam@example.com", Password: "s3cret!"}); !apperrors.HasCode(err, apperrors.CodeConflict) {
		t.Fatalf("duplicate email: %v", err)
	}

	logged, err := env.auth.Login(ctx, "SAM@example.com", "s3cret!")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if logged.User.ID != res.User.ID {
		t.Fatalf("login returned another user")
	}
	if _, err := env.auth.Login(ctx, "sam@example.com", "wrong"); !apperrors.HasCode(err, apperrors.CodeUnauthorized) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, err := env.auth.Login(ctx, "nobody@example.com", "s3cret!"); !apperrors.HasCode(err, apperrors.CodeUnauthorized) {
		t.Fatalf("unknown email: %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	cases := map[string]RegisterInput{
		"admin role":     {Name: "A", Email: "a@example.com", Password: "secret1", Role: domain.RoleAdmin},
		"bad email":      {Name: "A", Email: "not-an-email", Password: "secret1"},
		"short password": {Name: "A", Email: "a@example.com", Password: "abc"},
		"missing name":   {Email: "a@example.com", Password: "secret1"},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := env.auth.Register(context.Background(), input); !apperrors.HasCode(err, apperrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestRegisterDefaultsToBuyer(t *testing.T) {
	env := newTestEnv(t)
	res, err := env.auth.Register(context.Background(), RegisterInput{Name: "B", Email: "b@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.User.Role != domain.RoleBuyer {
		t.Fatalf("expected buyer, got %s", res.User.Role)
	}
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := env.auth.EnsureAdmin(ctx, "root@example.com", "rootpass"); err != nil {
			t.Fatalf("ensure admin %d: %v", i, err)
		}
	}
	n, err := env.store.Repositories().Users.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one user, got %d", n)
	}
	res, err := env.auth.Login(ctx, "root@example.com", "rootpass")
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	if res.User.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got %s", res.User.Role)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	revoker := auth.NewMemoryRevoker()
	tokens := auth.NewTokenManager("test-secret", 0)
	svc := NewAuthService(AuthDependencies{Store: env.store, Tokens: tokens, Revoker: revoker, BcryptCost: 4})

	res, err := svc.Register(ctx, RegisterInput{Name: "B", Email: "b@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	claims, err := tokens.ParseToken(res.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	principal := &auth.Principal{User: res.User, TokenID: claims.ID, ExpiresAt: res.ExpiresAt}
	if err := svc.Logout(ctx, principal); err != nil {
		t.Fatalf("logout: %v", err)
	}
	revoked, err := revoker.IsRevoked(ctx, claims.ID)
	if err != nil || !revoked {
		t.Fatalf("expected revoked token, got %v %v", revoked, err)
	}
}
