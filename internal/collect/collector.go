// Package collect stages a complete artifact bundle into one run-scoped
// directory so downstream steps stop depending on per-target build locations.
package collect

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shipline-labs/shipline/internal/domain"
)

// StagedArtifacts is the collected, verified output of one run. Paths point
// into the staging directory, never back at builder-owned locations.
type StagedArtifacts struct {
	Dir       string
	Artifacts []domain.Artifact
}

func (s StagedArtifacts) Get(target domain.Target) (domain.Artifact, bool) {
	for _, artifact := range s.Artifacts {
		if artifact.Target.Name() == target.Name() {
			return artifact, true
		}
	}
	return domain.Artifact{}, false
}

type Collector struct {
	stagingRoot string
}

func NewCollector(stagingRoot string) (*Collector, error) {
	stagingRoot = strings.TrimSpace(stagingRoot)
	if stagingRoot == "" {
		return nil, errors.New("staging root is required")
	}
	return &Collector{stagingRoot: stagingRoot}, nil
}

// Collect verifies one artifact per expected target and copies each into the
// run's staging directory. A missing entry is a hard failure: a partial
// release would be worse than none.
func (c *Collector) Collect(runID string, bundle *domain.Bundle, targets []domain.Target) (StagedArtifacts, error) {
	if strings.TrimSpace(runID) == "" {
		return StagedArtifacts{}, errors.New("run id is required")
	}
	if bundle == nil {
		return StagedArtifacts{}, errors.New("bundle is required")
	}
	if len(targets) == 0 {
		return StagedArtifacts{}, errors.New("expected target set is empty")
	}

	if missing := bundle.Missing(targets); len(missing) > 0 {
		return StagedArtifacts{}, &domain.MissingArtifactError{Target: missing[0]}
	}

	dir := filepath.Join(c.stagingRoot, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return StagedArtifacts{}, fmt.Errorf("create staging dir: %w", err)
	}

	staged := StagedArtifacts{Dir: dir}
	for _, target := range targets {
		artifact, _ := bundle.Get(target)
		dest := filepath.Join(dir, target.Name())
		sum, size, err := copyFile(artifact.Path, dest)
		if err != nil {
			return StagedArtifacts{}, fmt.Errorf("stage %s: %w", target.Name(), err)
		}
		if artifact.SHA256 != "" && sum != artifact.SHA256 {
			return StagedArtifacts{}, fmt.Errorf("stage %s: checksum mismatch: built %s, staged %s",
				target.Name(), artifact.SHA256, sum)
		}
		staged.Artifacts = append(staged.Artifacts, domain.Artifact{
			Target: target,
			Path:   dest,
			SHA256: sum,
			Size:   size,
		})
	}
	return staged, nil
}

func copyFile(src, dest string) (string, int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", 0, err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return "", 0, err
	}

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(out, h), in)
	if err != nil {
		_ = out.Close()
		return "", 0, err
	}
	if err := out.Close(); err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}
