package main

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/shipline-labs/shipline/internal/domain"
	"github.com/shipline-labs/shipline/internal/pipeline"
	"github.com/shipline-labs/shipline/internal/platform/auditlog"
	"github.com/shipline-labs/shipline/internal/repo/postgres"
)

// runner executes accepted pipeline runs asynchronously and records their
// terminal state. Intake stays fast: the webhook handler returns as soon as
// the run is persisted.
type runner struct {
	logger   *slog.Logger
	pipeline *pipeline.Pipeline
	runs     *postgres.RunStore
	db       *sql.DB
	timeout  time.Duration

	wg sync.WaitGroup
}

func newRunner(logger *slog.Logger, p *pipeline.Pipeline, runs *postgres.RunStore, db *sql.DB, timeout time.Duration) *runner {
	if timeout <= 0 {
		timeout = time.Hour
	}
	return &runner{logger: logger, pipeline: p, runs: runs, db: db, timeout: timeout}
}

func (r *runner) Start(run domain.PipelineRun) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		// Detached from the request context: the run outlives the webhook
		// request that started it.
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		r.execute(ctx, run)
	}()
}

// Wait blocks until in-flight runs finish. Called during shutdown after the
// HTTP server stops accepting events.
func (r *runner) Wait() {
	r.wg.Wait()
}

func (r *runner) execute(ctx context.Context, run domain.PipelineRun) {
	outcome, err := r.pipeline.Execute(ctx, run)
	if err != nil {
		r.logger.Error("pipeline run failed",
			"run_id", run.ID,
			"revision", run.Event.Revision,
			"status", string(outcome.Status),
			"error", err,
		)
	} else {
		r.logger.Info("pipeline run finished",
			"run_id", run.ID,
			"revision", run.Event.Revision,
			"status", string(outcome.Status),
			"published_keys", len(outcome.Receipt.Keys),
		)
		if outcome.Instructions != "" {
			r.logger.Info("install instructions", "run_id", run.ID, "instructions", outcome.Instructions)
		}
	}

	var failure string
	if outcome.Err != nil {
		failure = outcome.Err.Error()
	}

	finishCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.runs.FinishRun(finishCtx, run.ID, outcome.Status, failure); err != nil {
		r.logger.Error("record run outcome failed", "run_id", run.ID, "error", err)
	}

	auditPayload := map[string]any{
		"service":        "releaser",
		"revision":       run.Event.Revision,
		"status":         string(outcome.Status),
		"gate_reason":    outcome.Decision.Reason,
		"published_keys": len(outcome.Receipt.Keys),
	}
	if failure != "" {
		auditPayload["failure"] = failure
	}
	if _, err := auditlog.Insert(finishCtx, r.db, auditlog.Event{
		OccurredAt:   time.Now().UTC(),
		Actor:        "releaser",
		Action:       "pipeline_run.finish",
		ResourceType: "pipeline_run",
		ResourceID:   run.ID,
		Payload:      auditPayload,
	}); err != nil {
		r.logger.Error("audit write failed", "run_id", run.ID, "error", err)
	}
}
