// Package pipeline runs the whole release flow for one trigger event:
// gate, parallel builds, collection, publication, instructions.
package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shipline-labs/shipline/internal/collect"
	"github.com/shipline-labs/shipline/internal/domain"
	"github.com/shipline-labs/shipline/internal/gate"
	"github.com/shipline-labs/shipline/internal/instruct"
)

type Coordinator interface {
	Run(ctx context.Context, targets []domain.Target, revision string) (*domain.Bundle, error)
}

type Collector interface {
	Collect(runID string, bundle *domain.Bundle, targets []domain.Target) (collect.StagedArtifacts, error)
}

type Publisher interface {
	Publish(ctx context.Context, run domain.PipelineRun, staged collect.StagedArtifacts, set domain.AddressSet) (domain.Receipt, error)
}

type Config struct {
	Targets []domain.Target
	// BuildOnRejection keeps builds running for runs the gate rejected, to
	// validate buildability without publishing. Explicit choice, not an
	// emergent property.
	BuildOnRejection bool
}

type Pipeline struct {
	gate        gate.Gate
	coordinator Coordinator
	collector   Collector
	publisher   Publisher
	renderer    instruct.Renderer
	cfg         Config
	logger      *slog.Logger
}

func New(g gate.Gate, coordinator Coordinator, collector Collector, publisher Publisher, renderer instruct.Renderer, cfg Config, logger *slog.Logger) (*Pipeline, error) {
	if coordinator == nil {
		return nil, errors.New("coordinator is required")
	}
	if collector == nil {
		return nil, errors.New("collector is required")
	}
	if publisher == nil {
		return nil, errors.New("publisher is required")
	}
	if len(cfg.Targets) == 0 {
		return nil, errors.New("at least one target is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		gate:        g,
		coordinator: coordinator,
		collector:   collector,
		publisher:   publisher,
		renderer:    renderer,
		cfg:         cfg,
		logger:      logger,
	}, nil
}

// Outcome is the terminal state of one run. Err is nil for success and for
// gate rejection; rejection is a normal outcome, not an error.
type Outcome struct {
	Run          domain.PipelineRun
	Decision     gate.Decision
	Status       domain.RunStatus
	Receipt      domain.Receipt
	Instructions string
	Err          error
}

// ExitCode maps the outcome onto process exit behavior: zero for success and
// for gate rejection, 2 for an invalid run (a caller error, no build ran),
// non-zero for build or publish failures.
func (o Outcome) ExitCode() int {
	switch o.Status {
	case domain.RunStatusSucceeded, domain.RunStatusRejectedUnpublished:
		return 0
	case domain.RunStatusInvalid:
		return 2
	default:
		return 1
	}
}

// Execute runs one pipeline to its terminal state. The returned error mirrors
// Outcome.Err.
func (p *Pipeline) Execute(ctx context.Context, run domain.PipelineRun) (Outcome, error) {
	outcome := Outcome{Run: run}

	if err := run.Validate(); err != nil {
		outcome.Status = domain.RunStatusInvalid
		outcome.Err = err
		return outcome, err
	}

	outcome.Decision = p.gate.Authorize(run)
	if !outcome.Decision.Authorized {
		p.logger.Info("publication gate rejected run",
			"run_id", run.ID,
			"revision", run.Event.Revision,
			"reason", outcome.Decision.Reason,
		)
		if !p.cfg.BuildOnRejection {
			outcome.Status = domain.RunStatusRejectedUnpublished
			return outcome, nil
		}
	}

	bundle, err := p.coordinator.Run(ctx, p.cfg.Targets, run.Event.Revision)
	if err != nil {
		outcome.Status = domain.RunStatusBuildFailed
		outcome.Err = err
		return outcome, err
	}

	staged, err := p.collector.Collect(run.ID, bundle, p.cfg.Targets)
	if err != nil {
		outcome.Status = domain.RunStatusBuildFailed
		outcome.Err = err
		return outcome, err
	}

	if !outcome.Decision.Authorized {
		outcome.Status = domain.RunStatusRejectedUnpublished
		return outcome, nil
	}

	set, err := domain.DeriveAddresses(run)
	if err != nil {
		outcome.Status = domain.RunStatusPublishFailed
		outcome.Err = err
		return outcome, err
	}

	receipt, err := p.publisher.Publish(ctx, run, staged, set)
	if err != nil {
		outcome.Status = domain.RunStatusPublishFailed
		outcome.Err = err
		return outcome, err
	}
	outcome.Receipt = receipt

	text, err := p.renderer.Render(receipt)
	if err != nil {
		outcome.Status = domain.RunStatusPublishFailed
		outcome.Err = err
		return outcome, err
	}
	outcome.Instructions = text
	outcome.Status = domain.RunStatusSucceeded
	return outcome, nil
}
