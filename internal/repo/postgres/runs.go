package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shipline-labs/shipline/internal/domain"
)

var ErrRunNotFound = errors.New("run not found")

// RunRecord is the persisted view of a pipeline run as served by the API.
type RunRecord struct {
	RunID       string           `json:"run_id"`
	TriggerKind string           `json:"trigger_kind"`
	Revision    string           `json:"revision"`
	Branch      string           `json:"branch,omitempty"`
	PRNumber    int              `json:"pr_number,omitempty"`
	OriginRepo  string           `json:"origin_repo"`
	OptedIn     bool             `json:"opted_in"`
	Status      domain.RunStatus `json:"status"`
	Failure     string           `json:"failure,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	FinishedAt  *time.Time       `json:"finished_at,omitempty"`
}

type RunStore struct {
	db *sql.DB
}

func NewRunStore(db *sql.DB) (*RunStore, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &RunStore{db: db}, nil
}

func insertRun(ctx context.Context, q DBTX, run domain.PipelineRun) error {
	_, err := q.ExecContext(
		ctx,
		`INSERT INTO pipeline_runs
		 (run_id, trigger_kind, revision, branch, pr_number, origin_repo, opted_in, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.ID,
		string(run.Event.Kind),
		run.Event.Revision,
		run.Event.Branch,
		run.Event.PRNumber,
		run.Event.OriginRepo,
		run.Event.OptIn,
		string(domain.RunStatusRunning),
		run.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (s *RunStore) FinishRun(ctx context.Context, runID string, status domain.RunStatus, failure string) error {
	if strings.TrimSpace(runID) == "" {
		return errors.New("run id is required")
	}
	result, err := s.db.ExecContext(
		ctx,
		`UPDATE pipeline_runs SET status = $2, failure = $3, finished_at = $4 WHERE run_id = $1`,
		runID,
		string(status),
		failure,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if affected == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (s *RunStore) GetRun(ctx context.Context, runID string) (RunRecord, error) {
	if strings.TrimSpace(runID) == "" {
		return RunRecord{}, errors.New("run id is required")
	}
	var (
		record     RunRecord
		finishedAt sql.NullTime
	)
	err := s.db.QueryRowContext(
		ctx,
		`SELECT run_id, trigger_kind, revision, branch, pr_number, origin_repo, opted_in, status, failure, created_at, finished_at
		 FROM pipeline_runs WHERE run_id = $1`,
		runID,
	).Scan(
		&record.RunID,
		&record.TriggerKind,
		&record.Revision,
		&record.Branch,
		&record.PRNumber,
		&record.OriginRepo,
		&record.OptedIn,
		&record.Status,
		&record.Failure,
		&record.CreatedAt,
		&finishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, ErrRunNotFound
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("read run: %w", err)
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		record.FinishedAt = &t
	}
	return record, nil
}
