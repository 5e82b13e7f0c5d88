package service

import (
	"context"
	"testing"

	"github.com/spec-kit/marketplace-service/internal/domain"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util"
)

func TestAdminStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.user(t, "admin", domain.RoleAdmin)
	seller := env.user(t, "seller", domain.RoleSeller)
	buyer := env.user(t, "buyer", domain.RoleBuyer)

	sold := env.listing(t, seller, "10")
	env.listing(t, seller, "20")
	req, err := env.requests.Create(ctx, buyer, sold.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := env.requests.Accept(ctx, seller, req.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := env.requests.Complete(ctx, seller, req.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	stats, err := env.admin.Stats(ctx, admin)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Users.Total != 3 {
		t.Fatalf("users: %d", stats.Users.Total)
	}
	if stats.Listings.Total != 2 || stats.Listings.Active != 1 || stats.Listings.Sold != 1 {
		t.Fatalf("listings: %+v", stats.Listings)
	}
	if stats.Requests.Total != 1 || stats.Requests.Completed != 1 || stats.Requests.Pending != 0 {
		t.Fatalf("requests: %+v", stats.Requests)
	}

	all, err := env.admin.Listings(ctx, admin, 0, 0)
	if err != nil {
		t.Fatalf("admin listings: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("admin listings should include sold ones, got %d", len(all))
	}
	users, err := env.admin.Users(ctx, admin, 0, 2)
	if err != nil {
		t.Fatalf("admin users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("limit not applied, got %d", len(users))
	}
	requests, err := env.admin.Requests(ctx, admin, 0, 0)
	if err != nil {
		t.Fatalf("admin requests: %v", err)
	}
	if len(requests) != 1 {
		t.Fatalf("admin requests: got %d", len(requests))
	}
}

func TestAdminViewsRequireAdmin(t *testing.T) {
	env := newTestEnv(t)
	seller := env.user(t, "seller", domain.RoleSeller)
	if _, err := env.admin.Stats(context.Background(), seller); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := env.admin.Users(context.Background(), seller, 0, 10); !apperrors.HasCode(err, apperrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
