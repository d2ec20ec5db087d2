package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestTriggerEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		event   TriggerEvent
		wantErr bool
	}{
		{
			name:  "valid push",
			event: TriggerEvent{Kind: TriggerPush, Revision: "abc123", Branch: "main", OriginRepo: "shipline-labs/shipline"},
		},
		{
			name:  "valid pull request",
			event: TriggerEvent{Kind: TriggerPullRequest, Revision: "abc123", PRNumber: 7, OriginRepo: "shipline-labs/shipline"},
		},
		{
			name:    "push without branch",
			event:   TriggerEvent{Kind: TriggerPush, Revision: "abc123", OriginRepo: "shipline-labs/shipline"},
			wantErr: true,
		},
		{
			name:    "push with pr number",
			event:   TriggerEvent{Kind: TriggerPush, Revision: "abc123", Branch: "main", PRNumber: 3, OriginRepo: "shipline-labs/shipline"},
			wantErr: true,
		},
		{
			name:    "pull request without number",
			event:   TriggerEvent{Kind: TriggerPullRequest, Revision: "abc123", OriginRepo: "shipline-labs/shipline"},
			wantErr: true,
		},
		{
			name:    "pull request with branch",
			event:   TriggerEvent{Kind: TriggerPullRequest, Revision: "abc123", PRNumber: 7, Branch: "main", OriginRepo: "shipline-labs/shipline"},
			wantErr: true,
		},
		{
			name:    "missing revision",
			event:   TriggerEvent{Kind: TriggerPush, Branch: "main", OriginRepo: "shipline-labs/shipline"},
			wantErr: true,
		},
		{
			name:    "missing origin repo",
			event:   TriggerEvent{Kind: TriggerPush, Revision: "abc123", Branch: "main"},
			wantErr: true,
		},
		{
			name:    "unknown kind",
			event:   TriggerEvent{Kind: "tag", Revision: "abc123", OriginRepo: "shipline-labs/shipline"},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		err := tc.event.Validate()
		if tc.wantErr && err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("%s: Validate() err=%v", tc.name, err)
		}
	}
}

func TestParseTriggerKind(t *testing.T) {
	if kind, err := ParseTriggerKind(" Push "); err != nil || kind != TriggerPush {
		t.Fatalf("ParseTriggerKind(push)=%q err=%v", kind, err)
	}
	if _, err := ParseTriggerKind("release"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestNewPipelineRun(t *testing.T) {
	event := TriggerEvent{Kind: TriggerPush, Revision: "abc123", Branch: "main", OriginRepo: "shipline-labs/shipline"}
	run, err := NewPipelineRun(event)
	if err != nil {
		t.Fatalf("NewPipelineRun() err=%v", err)
	}
	if run.ID == "" {
		t.Fatalf("run id missing")
	}
	if err := run.Validate(); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}

	if _, err := NewPipelineRun(TriggerEvent{}); err == nil {
		t.Fatalf("expected error for invalid event")
	}
}

func TestTargetNames(t *testing.T) {
	target := Target{Arch: "x86_64", OS: "linux"}
	if got := target.Name(); got != "x86_64-linux" {
		t.Fatalf("Name()=%q", got)
	}

	parsed, err := ParseTarget("aarch64-darwin")
	if err != nil {
		t.Fatalf("ParseTarget() err=%v", err)
	}
	if parsed.Arch != "aarch64" || parsed.OS != "darwin" {
		t.Fatalf("ParseTarget()=%+v", parsed)
	}

	if _, err := ParseTarget("linux"); err == nil {
		t.Fatalf("expected error for missing arch")
	}

	defaults := DefaultTargets()
	if len(defaults) != 4 {
		t.Fatalf("DefaultTargets() len=%d, want 4", len(defaults))
	}
}

func TestBundleMissing(t *testing.T) {
	targets := DefaultTargets()
	bundle := NewBundle()
	for _, target := range targets[:3] {
		bundle.Add(Artifact{Target: target, Path: "/tmp/" + target.Name(), SHA256: "aa"})
	}

	missing := bundle.Missing(targets)
	if len(missing) != 1 || missing[0].Name() != targets[3].Name() {
		t.Fatalf("Missing()=%v", missing)
	}
	if bundle.Complete(targets) {
		t.Fatalf("Complete()=true, want false")
	}

	bundle.Add(Artifact{Target: targets[3], Path: "/tmp/" + targets[3].Name(), SHA256: "bb"})
	if !bundle.Complete(targets) {
		t.Fatalf("Complete()=false after filling bundle")
	}
}

func TestPartialFailureError(t *testing.T) {
	err := &PartialFailure{
		Failed: []TargetFailure{
			{Target: Target{Arch: "aarch64", OS: "darwin"}, Cause: errors.New("boom")},
		},
		Succeeded: []Target{{Arch: "x86_64", OS: "linux"}},
	}
	msg := err.Error()
	if !strings.Contains(msg, "aarch64-darwin") || !strings.Contains(msg, "1 of 2") {
		t.Fatalf("Error()=%q", msg)
	}
}

func TestDeriveAddresses(t *testing.T) {
	pushRun, err := NewPipelineRun(TriggerEvent{Kind: TriggerPush, Revision: "abc123", Branch: "main", OriginRepo: "shipline-labs/shipline"})
	if err != nil {
		t.Fatalf("NewPipelineRun() err=%v", err)
	}
	set, err := DeriveAddresses(pushRun)
	if err != nil {
		t.Fatalf("DeriveAddresses() err=%v", err)
	}
	if got := set.Revision.Prefix(); got != "rev/abc123" {
		t.Fatalf("revision prefix=%q", got)
	}
	if got := set.Pointer.Prefix(); got != "branch/main" {
		t.Fatalf("pointer prefix=%q", got)
	}
	if set.Revision.Mutable() {
		t.Fatalf("revision address must not be mutable")
	}
	if !set.Pointer.Mutable() {
		t.Fatalf("pointer address must be mutable")
	}

	target := Target{Arch: "x86_64", OS: "linux"}
	if got := set.Revision.Key(target); got != "rev/abc123/x86_64-linux" {
		t.Fatalf("revision key=%q", got)
	}

	prRun, err := NewPipelineRun(TriggerEvent{Kind: TriggerPullRequest, Revision: "abc123", PRNumber: 42, OriginRepo: "shipline-labs/shipline"})
	if err != nil {
		t.Fatalf("NewPipelineRun() err=%v", err)
	}
	set, err = DeriveAddresses(prRun)
	if err != nil {
		t.Fatalf("DeriveAddresses() err=%v", err)
	}
	if got := set.Pointer.Key(target); got != "pr/42/x86_64-linux" {
		t.Fatalf("pr key=%q", got)
	}
}
