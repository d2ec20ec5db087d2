package domain

import (
	"fmt"
	"strings"
)

// Target is one (CPU architecture, operating system) pair a binary is built
// for. The canonical name is "<arch>-<os>", e.g. "x86_64-linux".
type Target struct {
	Arch string
	OS   string
}

func (t Target) Name() string {
	return t.Arch + "-" + t.OS
}

func (t Target) String() string {
	return t.Name()
}

func ParseTarget(s string) (Target, error) {
	parts := strings.SplitN(strings.TrimSpace(s), "-", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Target{}, fmt.Errorf("invalid target name: %q", s)
	}
	return Target{Arch: parts[0], OS: parts[1]}, nil
}

// DefaultTargets is the fixed release matrix.
func DefaultTargets() []Target {
	return []Target{
		{Arch: "x86_64", OS: "linux"},
		{Arch: "aarch64", OS: "linux"},
		{Arch: "x86_64", OS: "darwin"},
		{Arch: "aarch64", OS: "darwin"},
	}
}
