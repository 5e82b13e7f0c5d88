// Package sqlitestore implements repository.Store on an embedded SQLite
// database through sqlx. It backs local development and the test suites.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/spec-kit/marketplace-service/internal/repository"
)

// Store implements repository.Store. The underlying *sqlx.DB must be limited
// to one open connection so that transactions are serialized.
type Store struct {
	db *sqlx.DB
}

// NewStore wraps an opened database.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Repositories() repository.Repositories {
	return bind(s.db)
}

func bind(db sqlx.ExtContext) repository.Repositories {
	return repository.Repositories{
		Users:       &userRepository{db: db},
		Listings:    &listingRepository{db: db},
		BuyRequests: &buyRequestRepository{db: db},
	}
}

func (s *Store) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(ctx, bind(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite not configured")
	}
	return s.db.PingContext(ctx)
}

func (s *Store) Close() {
	if s != nil && s.db != nil {
		_ = s.db.Close()
	}
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %s", repository.ErrDuplicate, sqliteErr.Error())
		}
	}
	return err
}

func now() time.Time {
	return time.Now().UTC()
}

func rowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrStaleState
	}
	return nil
}
