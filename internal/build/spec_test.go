package build

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shipline-labs/shipline/internal/domain"
)

func TestDefaultMatrix(t *testing.T) {
	matrix := DefaultMatrix("")
	if err := matrix.Validate(); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}

	targets, err := matrix.TargetList()
	if err != nil {
		t.Fatalf("TargetList() err=%v", err)
	}
	if len(targets) != 4 {
		t.Fatalf("TargetList() len=%d, want 4", len(targets))
	}
}

func TestMatrixCommandExpandsPlaceholders(t *testing.T) {
	matrix := DefaultMatrix("./scripts/build.sh")
	target := domain.Target{Arch: "x86_64", OS: "linux"}

	argv, err := matrix.Command(target, "abc123", "/tmp/out/x86_64-linux/shipline")
	if err != nil {
		t.Fatalf("Command() err=%v", err)
	}
	want := []string{"./scripts/build.sh", "x86_64-linux", "abc123", "/tmp/out/x86_64-linux/shipline"}
	if len(argv) != len(want) {
		t.Fatalf("argv=%v", argv)
	}
	for i := range want {
		if argv[i] != want[i] {
			t.Fatalf("argv[%d]=%q, want %q", i, argv[i], want[i])
		}
	}

	if _, err := matrix.Command(domain.Target{Arch: "riscv64", OS: "linux"}, "abc123", "/tmp/out"); err == nil {
		t.Fatalf("expected error for target outside matrix")
	}
}

func TestMatrixValidate(t *testing.T) {
	if err := (Matrix{}).Validate(); err == nil {
		t.Fatalf("expected error for empty matrix")
	}

	dup := Matrix{Targets: []TargetSpec{
		{Name: "x86_64-linux", Command: []string{"make"}},
		{Name: "x86_64-linux", Command: []string{"make"}},
	}}
	if err := dup.Validate(); err == nil {
		t.Fatalf("expected error for duplicate target")
	}

	noCmd := Matrix{Targets: []TargetSpec{{Name: "x86_64-linux"}}}
	if err := noCmd.Validate(); err == nil {
		t.Fatalf("expected error for missing command")
	}
}

func TestLoadMatrix(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "matrix.yaml")
	content := `targets:
  - name: x86_64-linux
    command: ["make", "release", "TARGET={target}", "REV={revision}", "OUT={output}"]
  - name: aarch64-linux
    command: ["make", "release", "TARGET={target}", "REV={revision}", "OUT={output}"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write matrix: %v", err)
	}

	matrix, err := LoadMatrix(path)
	if err != nil {
		t.Fatalf("LoadMatrix() err=%v", err)
	}
	if len(matrix.Targets) != 2 {
		t.Fatalf("targets len=%d, want 2", len(matrix.Targets))
	}

	if _, err := LoadMatrix(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestCommandBuilder_RunsMatrixCommand(t *testing.T) {
	dir := t.TempDir()
	matrix := Matrix{Targets: []TargetSpec{
		{Name: "x86_64-linux", Command: []string{"/bin/sh", "-c", "printf binary-{revision} > {output}"}},
	}}

	builder, err := NewCommandBuilder(matrix, "shipline", dir)
	if err != nil {
		t.Fatalf("NewCommandBuilder() err=%v", err)
	}

	artifact, err := builder.Build(t.Context(), domain.Target{Arch: "x86_64", OS: "linux"}, "abc123")
	if err != nil {
		t.Fatalf("Build() err=%v", err)
	}
	if artifact.Path != filepath.Join(dir, "x86_64-linux", "shipline") {
		t.Fatalf("Path=%q", artifact.Path)
	}
	if artifact.Size == 0 || artifact.SHA256 == "" {
		t.Fatalf("artifact=%+v", artifact)
	}

	raw, err := os.ReadFile(artifact.Path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(raw) != "binary-abc123" {
		t.Fatalf("output=%q", raw)
	}
}

func TestCommandBuilder_FailureIncludesOutput(t *testing.T) {
	dir := t.TempDir()
	matrix := Matrix{Targets: []TargetSpec{
		{Name: "x86_64-linux", Command: []string{"/bin/sh", "-c", "echo compile error >&2; exit 1"}},
	}}

	builder, err := NewCommandBuilder(matrix, "shipline", dir)
	if err != nil {
		t.Fatalf("NewCommandBuilder() err=%v", err)
	}
	if _, err := builder.Build(t.Context(), domain.Target{Arch: "x86_64", OS: "linux"}, "abc123"); err == nil {
		t.Fatalf("expected build failure")
	}
}
