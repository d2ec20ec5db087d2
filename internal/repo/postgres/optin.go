package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// OptInStore persists the per-PR publication opt-in signal. The flag is
// monotonic: once a PR has opted in it stays opted in, so later events
// without the signal still authorize.
type OptInStore struct {
	db *sql.DB
}

func NewOptInStore(db *sql.DB) (*OptInStore, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &OptInStore{db: db}, nil
}

func (s *OptInStore) MarkOptIn(ctx context.Context, prNumber int) error {
	return markOptIn(ctx, s.db, prNumber)
}

func (s *OptInStore) HasOptIn(ctx context.Context, prNumber int) (bool, error) {
	return hasOptIn(ctx, s.db, prNumber)
}

func markOptIn(ctx context.Context, q DBTX, prNumber int) error {
	if prNumber <= 0 {
		return fmt.Errorf("invalid pr number: %d", prNumber)
	}
	_, err := q.ExecContext(
		ctx,
		`INSERT INTO pr_opt_ins (pr_number, opted_in, updated_at)
		 VALUES ($1, TRUE, $2)
		 ON CONFLICT (pr_number) DO UPDATE SET opted_in = TRUE, updated_at = EXCLUDED.updated_at`,
		prNumber,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("mark opt-in: %w", err)
	}
	return nil
}

func hasOptIn(ctx context.Context, q DBTX, prNumber int) (bool, error) {
	if prNumber <= 0 {
		return false, fmt.Errorf("invalid pr number: %d", prNumber)
	}
	var optedIn bool
	err := q.QueryRowContext(
		ctx,
		`SELECT opted_in FROM pr_opt_ins WHERE pr_number = $1`,
		prNumber,
	).Scan(&optedIn)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read opt-in: %w", err)
	}
	return optedIn, nil
}
