package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/spec-kit/marketplace-service/internal/api/http"
	"github.com/spec-kit/marketplace-service/internal/api/http/handlers"
	"github.com/spec-kit/marketplace-service/internal/auth"
	"github.com/spec-kit/marketplace-service/internal/config"
	"github.com/spec-kit/marketplace-service/internal/events"
	"github.com/spec-kit/marketplace-service/internal/observability"
	"github.com/spec-kit/marketplace-service/internal/persistence"
	"github.com/spec-kit/marketplace-service/internal/ratelimit"
	"github.com/spec-kit/marketplace-service/internal/repository"
	"github.com/spec-kit/marketplace-service/internal/repository/sqlitestore"
	"github.com/spec-kit/marketplace-service/internal/service"
	"github.com/spec-kit/marketplace-service/internal/worker"
)

const streamMaxLen = 10000

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer store.Close()

	rdb := persistence.NewRedis(cfg.Redis, logger)
	defer rdb.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	var (
		revoker     auth.Revoker = auth.NewMemoryRevoker()
		authLimiter *ratelimit.FixedWindowLimiter
		relay       *worker.StreamRelay
		sink        service.EventSink
		healthDeps  = map[string]handlers.Pinger{"store": store}
	)
	if rdb != nil {
		revoker = auth.NewRedisRevoker(rdb.Client)
		healthDeps["redis"] = rdb
		if cfg.RateLimit.AuthPerMinute > 0 {
			authLimiter, err = ratelimit.NewFixedWindowLimiter(rdb.Client, "marketplace:ratelimit:auth",
				cfg.RateLimit.AuthPerMinute, time.Minute)
			if err != nil {
				logger.Fatal("failed to build rate limiter", zap.Error(err))
			}
		}
		if cfg.Events.StreamName != "" {
			writer, err := events.NewStreamWriter(rdb.Client, cfg.Events.StreamName, streamMaxLen)
			if err != nil {
				logger.Fatal("failed to build event stream writer", zap.Error(err))
			}
			relay = worker.NewStreamRelay(writer, 0, logger)
			sink = relay
		}
	} else {
		logger.Warn("redis unavailable, using in-memory token revocation without rate limiting")
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	authService := service.NewAuthService(service.AuthDependencies{
		Store:      store,
		Tokens:     tokens,
		Revoker:    revoker,
		BcryptCost: cfg.Auth.BcryptCost,
		Logger:     logger,
	})
	if cfg.Auth.AdminEmail != "" {
		if err := authService.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			logger.Fatal("failed to bootstrap admin", zap.Error(err))
		}
	}

	listingService := service.NewListingService(service.ListingDependencies{Store: store})
	requestService := service.NewBuyRequestService(service.BuyRequestDependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	adminService := service.NewAdminService(store)

	notifications := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher: dispatcher,
		Logger:     logger,
		Config:     cfg.Events,
		Sink:       sink,
		Counter:    metrics,
	})
	notifications.RegisterHandlers()

	app := httptransport.NewApp(
		httptransport.ServerConfig{
			AppName:      cfg.App.Name,
			ReadTimeout:  cfg.App.RequestTimeout(),
			WriteTimeout: cfg.App.RequestTimeout(),
		},
		httptransport.MiddlewareConfig{
			Logger:      logger,
			Metrics:     metrics,
			Timeout:     cfg.App.RequestTimeout(),
			CORSOrigins: cfg.App.CORSOrigins,
		},
		httptransport.RouteConfig{
			Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, healthDeps),
			Auth:           handlers.NewAuthHandler(authService),
			Listings:       handlers.NewListingsHandler(listingService),
			Requests:       handlers.NewRequestsHandler(requestService),
			Admin:          handlers.NewAdminHandler(adminService, metrics),
			AuthMiddleware: auth.NewAuthMiddleware(tokens, revoker, store.Repositories().Users),
			AuthLimiter:    authLimiter,
		},
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		return app.Listen(cfg.App.Addr())
	})
	if relay != nil {
		g.Go(func() error { return relay.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		db, err := persistence.NewSQLite(ctx, cfg.SQLite, logger)
		if err != nil {
			return nil, err
		}
		return sqlitestore.NewStore(db), nil
	default:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				pg.Close()
				return nil, err
			}
		}
		return repository.NewPostgresStore(pg.PoolHandle(), cfg.Postgres.MaxTxRetries), nil
	}
}
