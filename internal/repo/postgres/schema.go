package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS audit_events (
		id            BIGSERIAL PRIMARY KEY,
		occurred_at   TIMESTAMPTZ NOT NULL,
		actor         TEXT NOT NULL,
		action        TEXT NOT NULL,
		resource_type TEXT NOT NULL,
		resource_id   TEXT NOT NULL DEFAULT '',
		request_id    TEXT NOT NULL DEFAULT '',
		payload       JSONB NOT NULL DEFAULT '{}'::jsonb
	)`,
	`CREATE TABLE IF NOT EXISTS pr_opt_ins (
		pr_number  INTEGER PRIMARY KEY,
		opted_in   BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS trigger_events (
		event_id       TEXT PRIMARY KEY,
		payload_sha256 TEXT NOT NULL UNIQUE,
		received_at    TIMESTAMPTZ NOT NULL,
		received_by    TEXT NOT NULL,
		payload        JSONB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS pipeline_runs (
		run_id       TEXT PRIMARY KEY,
		trigger_kind TEXT NOT NULL,
		revision     TEXT NOT NULL,
		branch       TEXT NOT NULL DEFAULT '',
		pr_number    INTEGER NOT NULL DEFAULT 0,
		origin_repo  TEXT NOT NULL,
		opted_in     BOOLEAN NOT NULL DEFAULT FALSE,
		status       TEXT NOT NULL,
		failure      TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL,
		finished_at  TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS pipeline_runs_revision_idx ON pipeline_runs (revision)`,
}

// EnsureSchema creates the tables the releaser needs. Idempotent.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
