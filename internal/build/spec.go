package build

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shipline-labs/shipline/internal/domain"
)

// Matrix declares how each target's binary is produced: one command argv per
// target, with {target}, {revision} and {output} placeholders expanded at
// build time.
type Matrix struct {
	Targets []TargetSpec `yaml:"targets"`
}

type TargetSpec struct {
	Name    string   `yaml:"name"`
	Command []string `yaml:"command"`
}

func (m Matrix) Validate() error {
	if len(m.Targets) == 0 {
		return errors.New("matrix declares no targets")
	}
	seen := make(map[string]struct{}, len(m.Targets))
	for _, spec := range m.Targets {
		name := strings.TrimSpace(spec.Name)
		if name == "" {
			return errors.New("matrix target name is required")
		}
		if _, err := domain.ParseTarget(name); err != nil {
			return err
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("duplicate matrix target: %s", name)
		}
		seen[name] = struct{}{}
		if len(spec.Command) == 0 {
			return fmt.Errorf("matrix target %s has no command", name)
		}
	}
	return nil
}

func (m Matrix) TargetList() ([]domain.Target, error) {
	targets := make([]domain.Target, 0, len(m.Targets))
	for _, spec := range m.Targets {
		target, err := domain.ParseTarget(spec.Name)
		if err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}
	return targets, nil
}

// Command resolves the argv for a target with placeholders expanded.
func (m Matrix) Command(target domain.Target, revision, output string) ([]string, error) {
	for _, spec := range m.Targets {
		if strings.TrimSpace(spec.Name) != target.Name() {
			continue
		}
		argv := make([]string, len(spec.Command))
		replacer := strings.NewReplacer(
			"{target}", target.Name(),
			"{revision}", revision,
			"{output}", output,
		)
		for i, arg := range spec.Command {
			argv[i] = replacer.Replace(arg)
		}
		return argv, nil
	}
	return nil, fmt.Errorf("no matrix entry for target %s", target.Name())
}

// DefaultMatrix builds the fixed four-target release matrix around a single
// build script.
func DefaultMatrix(script string) Matrix {
	script = strings.TrimSpace(script)
	if script == "" {
		script = "./scripts/build.sh"
	}
	targets := domain.DefaultTargets()
	specs := make([]TargetSpec, 0, len(targets))
	for _, target := range targets {
		specs = append(specs, TargetSpec{
			Name:    target.Name(),
			Command: []string{script, "{target}", "{revision}", "{output}"},
		})
	}
	return Matrix{Targets: specs}
}

func LoadMatrix(path string) (Matrix, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Matrix{}, fmt.Errorf("read matrix: %w", err)
	}
	var matrix Matrix
	if err := yaml.Unmarshal(raw, &matrix); err != nil {
		return Matrix{}, fmt.Errorf("parse matrix: %w", err)
	}
	if err := matrix.Validate(); err != nil {
		return Matrix{}, err
	}
	return matrix, nil
}
