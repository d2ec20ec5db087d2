package build

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/shipline-labs/shipline/internal/domain"
)

// Builder produces one platform binary for a revision, or fails. The build
// toolchain itself is an external collaborator behind this interface.
type Builder interface {
	Build(ctx context.Context, target domain.Target, revision string) (domain.Artifact, error)
}

// CommandBuilder shells out to the matrix command for each target. Output
// lands under <outputDir>/<target>/<product>.
type CommandBuilder struct {
	matrix    Matrix
	product   string
	outputDir string
}

func NewCommandBuilder(matrix Matrix, product, outputDir string) (*CommandBuilder, error) {
	if err := matrix.Validate(); err != nil {
		return nil, err
	}
	product = strings.TrimSpace(product)
	if product == "" {
		return nil, errors.New("product name is required")
	}
	outputDir = strings.TrimSpace(outputDir)
	if outputDir == "" {
		return nil, errors.New("output dir is required")
	}
	return &CommandBuilder{matrix: matrix, product: product, outputDir: outputDir}, nil
}

func (b *CommandBuilder) Build(ctx context.Context, target domain.Target, revision string) (domain.Artifact, error) {
	revision = strings.TrimSpace(revision)
	if revision == "" {
		return domain.Artifact{}, errors.New("revision is required")
	}

	targetDir := filepath.Join(b.outputDir, target.Name())
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return domain.Artifact{}, fmt.Errorf("create output dir: %w", err)
	}
	output := filepath.Join(targetDir, b.product)

	argv, err := b.matrix.Command(target, revision, output)
	if err != nil {
		return domain.Artifact{}, err
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(),
		"SHIPLINE_BUILD_TARGET="+target.Name(),
		"SHIPLINE_BUILD_REVISION="+revision,
		"SHIPLINE_BUILD_OUTPUT="+output,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return domain.Artifact{}, fmt.Errorf("build %s: %w", target.Name(), ctx.Err())
		}
		return domain.Artifact{}, fmt.Errorf("build %s: %w: %s", target.Name(), err, strings.TrimSpace(string(out)))
	}

	sum, size, err := fileSHA256(output)
	if err != nil {
		return domain.Artifact{}, fmt.Errorf("build %s produced no readable output: %w", target.Name(), err)
	}

	return domain.Artifact{
		Target: target,
		Path:   output,
		SHA256: sum,
		Size:   size,
	}, nil
}

func fileSHA256(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}
