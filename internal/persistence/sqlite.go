package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/spec-kit/marketplace-service/internal/config"
)

// NewSQLite opens an embedded database and applies the schema. SQLite has a
// single writer, so the pool is pinned to one connection; this also keeps an
// in-memory database alive for the life of the handle.
func NewSQLite(ctx context.Context, cfg config.SQLiteConfig, logger *zap.Logger) (*sqlx.DB, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err := applySQLiteSchema(ctx, db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("opened sqlite", zap.String("dsn", dsn))
	return db, nil
}

func applySQLiteSchema(ctx context.Context, db *sqlx.DB, logger *zap.Logger) error {
	content, err := migrationFiles.ReadFile("sqlite_migrations/001_init.sql")
	if err != nil {
		return fmt.Errorf("read sqlite schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("apply sqlite schema: %w", err)
	}
	logger.Debug("sqlite schema applied")
	return nil
}
