// Package instruct renders user-facing install instructions for a completed
// publication. Pure formatting; a malformed receipt is a programming error.
package instruct

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shipline-labs/shipline/internal/domain"
)

type Renderer struct {
	installHost string
	product     string
}

func NewRenderer(installHost, product string) (Renderer, error) {
	installHost = strings.TrimSpace(installHost)
	if installHost == "" {
		return Renderer{}, errors.New("install host is required")
	}
	product = strings.TrimSpace(product)
	if product == "" {
		return Renderer{}, errors.New("product is required")
	}
	return Renderer{installHost: installHost, product: product}, nil
}

func (r Renderer) url(address domain.Address) string {
	return fmt.Sprintf("https://%s/%s/%s", r.installHost, r.product, address.Prefix())
}

// Render produces two install commands: one pinned to the exact revision and
// one tracking the latest build for the branch or PR.
func (r Renderer) Render(receipt domain.Receipt) (string, error) {
	if err := receipt.Validate(); err != nil {
		return "", fmt.Errorf("invalid receipt: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Install %s pinned to revision %s (reproducible):\n", r.product, receipt.Revision)
	fmt.Fprintf(&b, "  curl -sSfL %s | sh\n", r.url(receipt.Set.Revision))
	b.WriteString("\n")

	switch receipt.Set.Pointer.Kind {
	case domain.AddressBranch:
		fmt.Fprintf(&b, "Install the latest %s build of branch %s:\n", r.product, receipt.Set.Pointer.Value)
	case domain.AddressPR:
		fmt.Fprintf(&b, "Install the latest %s build of PR #%s:\n", r.product, receipt.Set.Pointer.Value)
	default:
		return "", fmt.Errorf("unexpected pointer address kind: %q", receipt.Set.Pointer.Kind)
	}
	fmt.Fprintf(&b, "  curl -sSfL %s | sh\n", r.url(receipt.Set.Pointer))
	b.WriteString("\n")
	b.WriteString("Each artifact's SHA-256 is attached as object metadata; verify downloads with `sha256sum`.\n")

	return b.String(), nil
}
