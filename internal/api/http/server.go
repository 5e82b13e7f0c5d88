package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// ServerConfig configures the fiber application.
type ServerConfig struct {
	AppName      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BodyLimit    int
}

// NewApp builds a fiber application with middlewares and routes registered.
func NewApp(server ServerConfig, middleware MiddlewareConfig, routes RouteConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               server.AppName,
		ReadTimeout:           server.ReadTimeout,
		WriteTimeout:          server.WriteTimeout,
		BodyLimit:             server.BodyLimit,
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(app, middleware)
	RegisterRoutes(app, routes)
	return app
}
