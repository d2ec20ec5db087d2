package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shipline-labs/shipline/internal/domain"
	"github.com/shipline-labs/shipline/internal/platform/auditlog"
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Tx is the set of writes available inside one event-intake transaction.
// Everything done through it commits or rolls back as a unit, so a transient
// failure mid-intake never leaves the dedupe row behind without its run: the
// sender's redelivery starts over instead of being swallowed as a duplicate.
type Tx interface {
	InsertEvent(ctx context.Context, eventID, payloadSHA256, receivedBy string, payload []byte) (bool, error)
	MarkOptIn(ctx context.Context, prNumber int) error
	HasOptIn(ctx context.Context, prNumber int) (bool, error)
	InsertRun(ctx context.Context, run domain.PipelineRun) error
	Audit(ctx context.Context, event auditlog.Event) error
}

type IntakeStore struct {
	db *sql.DB
}

func NewIntakeStore(db *sql.DB) (*IntakeStore, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &IntakeStore{db: db}, nil
}

func (s *IntakeStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin intake tx: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(&intakeTx{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit intake tx: %w", err)
	}
	return nil
}

type intakeTx struct {
	tx *sql.Tx
}

func (t *intakeTx) InsertEvent(ctx context.Context, eventID, payloadSHA256, receivedBy string, payload []byte) (bool, error) {
	return insertEvent(ctx, t.tx, eventID, payloadSHA256, receivedBy, payload)
}

func (t *intakeTx) MarkOptIn(ctx context.Context, prNumber int) error {
	return markOptIn(ctx, t.tx, prNumber)
}

func (t *intakeTx) HasOptIn(ctx context.Context, prNumber int) (bool, error) {
	return hasOptIn(ctx, t.tx, prNumber)
}

func (t *intakeTx) InsertRun(ctx context.Context, run domain.PipelineRun) error {
	return insertRun(ctx, t.tx, run)
}

func (t *intakeTx) Audit(ctx context.Context, event auditlog.Event) error {
	_, err := auditlog.Insert(ctx, t.tx, event)
	return err
}
