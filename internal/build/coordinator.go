package build

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shipline-labs/shipline/internal/domain"
)

// Coordinator fans out one build per target and joins on all of them. The
// join is always full: a failed target never cancels its siblings, so the
// caller sees every outcome.
type Coordinator struct {
	builder Builder
	timeout time.Duration
	logger  *slog.Logger
}

func NewCoordinator(builder Builder, perTargetTimeout time.Duration, logger *slog.Logger) (*Coordinator, error) {
	if builder == nil {
		return nil, errors.New("builder is required")
	}
	if perTargetTimeout <= 0 {
		perTargetTimeout = 30 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{builder: builder, timeout: perTargetTimeout, logger: logger}, nil
}

// Run builds every target concurrently and returns a complete bundle, or a
// *domain.PartialFailure naming the targets that failed. Each target is
// bounded by the per-target timeout; an exceeded timeout becomes that
// target's failure, never a stalled join.
func (c *Coordinator) Run(ctx context.Context, targets []domain.Target, revision string) (*domain.Bundle, error) {
	if len(targets) == 0 {
		return nil, errors.New("no targets to build")
	}

	results := make([]domain.BuildResult, len(targets))
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(i int, target domain.Target) {
			defer wg.Done()

			buildCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			start := time.Now()
			artifact, err := c.builder.Build(buildCtx, target, revision)
			if err != nil {
				c.logger.Error("target build failed",
					"target", target.Name(),
					"revision", revision,
					"duration_ms", time.Since(start).Milliseconds(),
					"error", err,
				)
				results[i] = domain.BuildResult{Target: target, Err: err}
				return
			}
			c.logger.Info("target build succeeded",
				"target", target.Name(),
				"revision", revision,
				"sha256", artifact.SHA256,
				"size_bytes", artifact.Size,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			results[i] = domain.BuildResult{Target: target, Artifact: artifact}
		}(i, target)
	}
	wg.Wait()

	bundle := domain.NewBundle()
	var failed []domain.TargetFailure
	var succeeded []domain.Target
	for _, result := range results {
		if result.Failed() {
			failed = append(failed, domain.TargetFailure{Target: result.Target, Cause: result.Err})
			continue
		}
		bundle.Add(result.Artifact)
		succeeded = append(succeeded, result.Target)
	}

	if len(failed) > 0 {
		sort.Slice(failed, func(i, j int) bool { return failed[i].Target.Name() < failed[j].Target.Name() })
		return nil, &domain.PartialFailure{Failed: failed, Succeeded: succeeded}
	}
	return bundle, nil
}
