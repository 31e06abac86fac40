// Package store implements the durable side of the booking core on top of
// Postgres, queried through dbx. Row-level locking uses FOR UPDATE NOWAIT so
// contended callers fail fast instead of queueing.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/pocketbase/dbx"

	"github.com/TrongtrongJ/eventeer/internal/status"
)

// pq reports a failed NOWAIT row lock with SQLSTATE 55P03.
const lockNotAvailable = "55P03"

type Store struct {
	db *dbx.DB
}

func New(db *dbx.DB) *Store {
	return &Store{db: db}
}

// Open connects to Postgres and verifies the connection.
func Open(dsn string) (*dbx.DB, error) {
	db, err := dbx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.DB().SetMaxOpenConns(50)
	db.DB().SetMaxIdleConns(10)
	db.DB().SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.DB().PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// RunInTx executes fn inside a single database transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(tx *dbx.Tx) error) error {
	return s.db.TransactionalContext(ctx, nil, fn)
}

// DB exposes the underlying builder for non-transactional reads.
func (s *Store) DB() dbx.Builder {
	return s.db
}

func translateLockErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == lockNotAvailable {
		return status.ErrRowLocked
	}
	return err
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
