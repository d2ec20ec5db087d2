package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Artifact is one successfully built platform binary, still at its
// builder-owned path until the collector stages it.
type Artifact struct {
	Target Target
	Path   string
	SHA256 string
	Size   int64
}

func (a Artifact) Validate() error {
	if strings.TrimSpace(a.Target.Arch) == "" || strings.TrimSpace(a.Target.OS) == "" {
		return errors.New("artifact target is required")
	}
	if strings.TrimSpace(a.Path) == "" {
		return errors.New("artifact path is required")
	}
	if strings.TrimSpace(a.SHA256) == "" {
		return errors.New("artifact sha256 is required")
	}
	return nil
}

// BuildResult is the terminal outcome of one target's build. Exactly one of
// Artifact or Err is meaningful.
type BuildResult struct {
	Target   Target
	Artifact Artifact
	Err      error
}

func (r BuildResult) Failed() bool {
	return r.Err != nil
}

// Bundle maps target names to built artifacts. It is handed to the collector
// only once complete.
type Bundle struct {
	artifacts map[string]Artifact
}

func NewBundle() *Bundle {
	return &Bundle{artifacts: make(map[string]Artifact)}
}

func (b *Bundle) Add(artifact Artifact) {
	if b.artifacts == nil {
		b.artifacts = make(map[string]Artifact)
	}
	b.artifacts[artifact.Target.Name()] = artifact
}

func (b *Bundle) Get(target Target) (Artifact, bool) {
	artifact, ok := b.artifacts[target.Name()]
	return artifact, ok
}

func (b *Bundle) Len() int {
	return len(b.artifacts)
}

// Missing reports which of the expected targets have no artifact.
func (b *Bundle) Missing(targets []Target) []Target {
	var missing []Target
	for _, target := range targets {
		if _, ok := b.artifacts[target.Name()]; !ok {
			missing = append(missing, target)
		}
	}
	return missing
}

func (b *Bundle) Complete(targets []Target) bool {
	return len(b.Missing(targets)) == 0
}

// TargetFailure names one failed target and its cause.
type TargetFailure struct {
	Target Target
	Cause  error
}

// PartialFailure reports a build fan-out where at least one target failed.
// The join is always complete before this is constructed, so Succeeded lists
// every target that did produce an artifact.
type PartialFailure struct {
	Failed    []TargetFailure
	Succeeded []Target
}

func (e *PartialFailure) Error() string {
	names := make([]string, 0, len(e.Failed))
	for _, f := range e.Failed {
		names = append(names, f.Target.Name())
	}
	sort.Strings(names)
	return fmt.Sprintf("build failed for %d of %d targets: %s",
		len(e.Failed), len(e.Failed)+len(e.Succeeded), strings.Join(names, ", "))
}

// MissingArtifactError is a defensive invariant check: a target the
// coordinator reported as succeeded has no bundle entry.
type MissingArtifactError struct {
	Target Target
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("bundle is missing artifact for target %s", e.Target.Name())
}
