package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
)

// AdvisoryLocker serializes critical sections across processes with
// pg_advisory_xact_lock. Used for branch/PR pointer writes: the lock for a
// pointer key is held for the whole write, so completion order decides the
// last writer, never interleaving.
type AdvisoryLocker struct {
	db *sql.DB
}

func NewAdvisoryLocker(db *sql.DB) (*AdvisoryLocker, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &AdvisoryLocker{db: db}, nil
}

func (l *AdvisoryLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin lock tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, LockKey(key)); err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}

	if err := fn(ctx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("release advisory lock: %w", err)
	}
	return nil
}

// LockKey maps a pointer key onto the int64 space advisory locks use.
func LockKey(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64())
}
