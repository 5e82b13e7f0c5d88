package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/marketplace-service/internal/access"
	"github.com/spec-kit/marketplace-service/internal/api/http/handlers"
	"github.com/spec-kit/marketplace-service/internal/auth"
	"github.com/spec-kit/marketplace-service/internal/ratelimit"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Listings       *handlers.ListingsHandler
	Requests       *handlers.RequestsHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
	// AuthLimiter throttles register and login. Nil disables throttling.
	AuthLimiter *ratelimit.FixedWindowLimiter
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authn := cfg.AuthMiddleware.Handle

	limit := ratelimit.Middleware(cfg.AuthLimiter)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", limit, cfg.Auth.Register)
	authGroup.Post("/login", limit, cfg.Auth.Login)
	authGroup.Get("/me", authn, auth.RequireAuthenticated(), cfg.Auth.Me)
	authGroup.Post("/logout", authn, auth.RequireAuthenticated(), cfg.Auth.Logout)

	listings := app.Group("/listings")
	listings.Get("/", cfg.Listings.List)
	listings.Get("/:id", cfg.Listings.Get)
	listings.Post("/", authn, auth.RequireAction(access.ActionCreateListing), cfg.Listings.Create)
	listings.Put("/:id", authn, auth.RequireAuthenticated(), cfg.Listings.Update)
	listings.Delete("/:id", authn, auth.RequireAuthenticated(), cfg.Listings.Delete)

	requests := app.Group("/requests", authn, auth.RequireAuthenticated())
	requests.Post("/", cfg.Requests.Create)
	requests.Get("/my-requests", cfg.Requests.Mine)
	requests.Get("/incoming", cfg.Requests.Incoming)
	requests.Put("/:id/accept", cfg.Requests.Accept)
	requests.Put("/:id/reject", cfg.Requests.Reject)
	requests.Put("/:id/complete", cfg.Requests.Complete)

	admin := app.Group("/admin", authn, auth.RequireAction(access.ActionAdminView))
	admin.Get("/stats", cfg.Admin.Stats)
	admin.Get("/users", cfg.Admin.Users)
	admin.Get("/listings", cfg.Admin.Listings)
	admin.Get("/requests", cfg.Admin.Requests)
	admin.Get("/metrics", cfg.Admin.Metrics)
}
