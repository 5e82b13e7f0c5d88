package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/marketplace-service/internal/access"
	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/repository"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util"
)

type stubUsers struct {
	repository.UserRepository
	users map[string]*domain.User
}

func (s stubUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func newTestApp(t *testing.T, revoker Revoker) (*fiber.App, *TokenManager) {
	t.Helper()
	tm := NewTokenManager("secret", time.Hour)
	users := stubUsers{users: map[string]*domain.User{
		"seller-1": {ID: "seller-1", Role: domain.RoleSeller},
		"admin-1":  {ID: "admin-1", Role: domain.RoleAdmin},
		"buyer-1":  {ID: "buyer-1", Role: domain.RoleBuyer},
	}}
	mw := NewAuthMiddleware(tm, revoker, users)

	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		de := apperrors.ToDomainError(err)
		return c.Status(de.HTTPStatus).SendString(de.Code)
	}})
	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.SendString(p.User.ID)
	})
	app.Get("/admin", mw.Handle, RequireAction(access.ActionAdminView), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app, tm
}

func doGet(t *testing.T, app *fiber.App, path, token string) int {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request %s: %v", path, err)
	}
	return resp.StatusCode
}

func TestMiddlewareRejectsMissingAndBadTokens(t *testing.T) {
	app, _ := newTestApp(t, NewMemoryRevoker())
	if got := doGet(t, app, "/me", ""); got != fiber.StatusUnauthorized {
		t.Fatalf("missing header: got %d", got)
	}
	if got := doGet(t, app, "/me", "garbage"); got != fiber.StatusUnauthorized {
		t.Fatalf("bad token: got %d", got)
	}
}

func TestMiddlewareRejectsUnknownUser(t *testing.T) {
	app, tm := newTestApp(t, NewMemoryRevoker())
	issued, _ := tm.GenerateToken("ghost", domain.RoleBuyer)
	if got := doGet(t, app, "/me", issued.Token); got != fiber.StatusUnauthorized {
		t.Fatalf("unknown user: got %d", got)
	}
}

func TestRequireActionAdminView(t *testing.T) {
	app, tm := newTestApp(t, NewMemoryRevoker())
	seller, _ := tm.GenerateToken("seller-1", domain.RoleSeller)
	admin, _ := tm.GenerateToken("admin-1", domain.RoleAdmin)

	if got := doGet(t, app, "/admin", ""); got != fiber.StatusUnauthorized {
		t.Fatalf("anonymous: got %d", got)
	}
	if got := doGet(t, app, "/admin", seller.Token); got != fiber.StatusForbidden {
		t.Fatalf("seller: got %d", got)
	}
	if got := doGet(t, app, "/admin", admin.Token); got != fiber.StatusNoContent {
		t.Fatalf("admin: got %d", got)
	}
}

func TestRevokedTokenIsRejected(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	revoker := NewRedisRevoker(client)

	app, tm := newTestApp(t, revoker)
	issued, _ := tm.GenerateToken("buyer-1", domain.RoleBuyer)
	if got := doGet(t, app, "/me", issued.Token); got != fiber.StatusOK {
		t.Fatalf("before revoke: got %d", got)
	}
	if err := revoker.Revoke(context.Background(), issued.ID, time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if got := doGet(t, app, "/me", issued.Token); got != fiber.StatusUnauthorized {
		t.Fatalf("after revoke: got %d", got)
	}

	mr.FastForward(2 * time.Minute)
	revoked, err := revoker.IsRevoked(context.Background(), issued.ID)
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if revoked {
		t.Fatalf("revocation should expire with the token")
	}
}

func TestMemoryRevokerIgnoresNonPositiveTTL(t *testing.T) {
	r := NewMemoryRevoker()
	if err := r.Revoke(context.Background(), "jti", 0); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if revoked, _ := r.IsRevoked(context.Background(), "jti"); revoked {
		t.Fatalf("zero ttl must not revoke")
	}
}
