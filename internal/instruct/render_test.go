package instruct

import (
	"strings"
	"testing"

	"github.com/shipline-labs/shipline/internal/domain"
)

func TestRender_PushReceipt(t *testing.T) {
	renderer, err := NewRenderer("install.shipline.dev", "shipline")
	if err != nil {
		t.Fatalf("NewRenderer() err=%v", err)
	}

	receipt := domain.Receipt{
		RunID:    "run-1",
		Revision: "abc123",
		Set: domain.AddressSet{
			Revision: domain.Address{Kind: domain.AddressRevision, Value: "abc123"},
			Pointer:  domain.Address{Kind: domain.AddressBranch, Value: "main"},
		},
		Keys: []string{"rev/abc123/x86_64-linux", "branch/main/x86_64-linux"},
	}

	text, err := renderer.Render(receipt)
	if err != nil {
		t.Fatalf("Render() err=%v", err)
	}
	if !strings.Contains(text, "https://install.shipline.dev/shipline/rev/abc123") {
		t.Fatalf("missing revision url: %q", text)
	}
	if !strings.Contains(text, "https://install.shipline.dev/shipline/branch/main") {
		t.Fatalf("missing branch url: %q", text)
	}
}

func TestRender_PRReceipt(t *testing.T) {
	renderer, err := NewRenderer("install.shipline.dev", "shipline")
	if err != nil {
		t.Fatalf("NewRenderer() err=%v", err)
	}

	receipt := domain.Receipt{
		RunID:    "run-1",
		Revision: "abc123",
		Set: domain.AddressSet{
			Revision: domain.Address{Kind: domain.AddressRevision, Value: "abc123"},
			Pointer:  domain.Address{Kind: domain.AddressPR, Value: "42"},
		},
		Keys: []string{"rev/abc123/x86_64-linux", "pr/42/x86_64-linux"},
	}

	text, err := renderer.Render(receipt)
	if err != nil {
		t.Fatalf("Render() err=%v", err)
	}
	if !strings.Contains(text, "PR #42") {
		t.Fatalf("missing PR reference: %q", text)
	}
	if !strings.Contains(text, "https://install.shipline.dev/shipline/pr/42") {
		t.Fatalf("missing pr url: %q", text)
	}
}

func TestRender_InvalidReceipt(t *testing.T) {
	renderer, err := NewRenderer("install.shipline.dev", "shipline")
	if err != nil {
		t.Fatalf("NewRenderer() err=%v", err)
	}
	if _, err := renderer.Render(domain.Receipt{}); err == nil {
		t.Fatalf("expected error for empty receipt")
	}
}
