package collect

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shipline-labs/shipline/internal/domain"
)

func writeArtifact(t *testing.T, dir string, target domain.Target, content string) domain.Artifact {
	t.Helper()
	path := filepath.Join(dir, target.Name()+".bin")
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	sum := sha256.Sum256([]byte(content))
	return domain.Artifact{
		Target: target,
		Path:   path,
		SHA256: hex.EncodeToString(sum[:]),
		Size:   int64(len(content)),
	}
}

func TestCollect_StagesEveryTarget(t *testing.T) {
	buildDir := t.TempDir()
	stagingRoot := t.TempDir()
	targets := domain.DefaultTargets()

	bundle := domain.NewBundle()
	for _, target := range targets {
		bundle.Add(writeArtifact(t, buildDir, target, "binary-"+target.Name()))
	}

	collector, err := NewCollector(stagingRoot)
	if err != nil {
		t.Fatalf("NewCollector() err=%v", err)
	}

	staged, err := collector.Collect("run-1", bundle, targets)
	if err != nil {
		t.Fatalf("Collect() err=%v", err)
	}
	if len(staged.Artifacts) != len(targets) {
		t.Fatalf("staged %d artifacts, want %d", len(staged.Artifacts), len(targets))
	}
	for _, target := range targets {
		artifact, ok := staged.Get(target)
		if !ok {
			t.Fatalf("staged artifacts missing %s", target.Name())
		}
		if filepath.Dir(artifact.Path) != staged.Dir {
			t.Fatalf("artifact %s not staged under %s: %s", target.Name(), staged.Dir, artifact.Path)
		}
		raw, err := os.ReadFile(artifact.Path)
		if err != nil {
			t.Fatalf("read staged artifact: %v", err)
		}
		if string(raw) != "binary-"+target.Name() {
			t.Fatalf("staged content=%q", raw)
		}
	}
}

func TestCollect_MissingTargetIsHardFailure(t *testing.T) {
	buildDir := t.TempDir()
	targets := domain.DefaultTargets()

	bundle := domain.NewBundle()
	for _, target := range targets[:len(targets)-1] {
		bundle.Add(writeArtifact(t, buildDir, target, "binary"))
	}

	collector, err := NewCollector(t.TempDir())
	if err != nil {
		t.Fatalf("NewCollector() err=%v", err)
	}

	_, err = collector.Collect("run-1", bundle, targets)
	var missing *domain.MissingArtifactError
	if !errors.As(err, &missing) {
		t.Fatalf("err=%v, want *domain.MissingArtifactError", err)
	}
	if missing.Target.Name() != targets[len(targets)-1].Name() {
		t.Fatalf("missing target=%s", missing.Target.Name())
	}
}

func TestCollect_ChecksumMismatch(t *testing.T) {
	buildDir := t.TempDir()
	target := domain.Target{Arch: "x86_64", OS: "linux"}

	artifact := writeArtifact(t, buildDir, target, "binary")
	artifact.SHA256 = "0000000000000000000000000000000000000000000000000000000000000000"
	bundle := domain.NewBundle()
	bundle.Add(artifact)

	collector, err := NewCollector(t.TempDir())
	if err != nil {
		t.Fatalf("NewCollector() err=%v", err)
	}
	if _, err := collector.Collect("run-1", bundle, []domain.Target{target}); err == nil {
		t.Fatalf("expected checksum mismatch error")
	}
}
