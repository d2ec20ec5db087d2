package postgres

import (
	"context"
	"fmt"
	"time"
)

// insertEvent records a received trigger event keyed by the payload digest.
// Returns false when an event with the same digest was already recorded, so a
// redelivered webhook does not start a second run.
func insertEvent(ctx context.Context, q DBTX, eventID, payloadSHA256, receivedBy string, payload []byte) (bool, error) {
	result, err := q.ExecContext(
		ctx,
		`INSERT INTO trigger_events (event_id, payload_sha256, received_at, received_by, payload)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (payload_sha256) DO NOTHING`,
		eventID,
		payloadSHA256,
		time.Now().UTC(),
		receivedBy,
		payload,
	)
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}
	return affected == 1, nil
}
