package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunStatusRunning             RunStatus = "running"
	RunStatusSucceeded           RunStatus = "succeeded"
	RunStatusInvalid             RunStatus = "invalid_event"
	RunStatusBuildFailed         RunStatus = "build_failed"
	RunStatusPublishFailed       RunStatus = "publish_failed"
	RunStatusRejectedUnpublished RunStatus = "rejected_unpublished"
)

// PipelineRun is one execution of the pipeline. Immutable after creation;
// nothing about a run outlives it except the objects it published and its
// run record row.
type PipelineRun struct {
	ID        string
	Event     TriggerEvent
	CreatedAt time.Time
}

func NewPipelineRun(event TriggerEvent) (PipelineRun, error) {
	if err := event.Validate(); err != nil {
		return PipelineRun{}, err
	}
	return PipelineRun{
		ID:        uuid.NewString(),
		Event:     event,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (r PipelineRun) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("run id is required")
	}
	if r.CreatedAt.IsZero() {
		return errors.New("created at is required")
	}
	return r.Event.Validate()
}
