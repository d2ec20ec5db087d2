package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shipline-labs/shipline/internal/collect"
	"github.com/shipline-labs/shipline/internal/domain"
	"github.com/shipline-labs/shipline/internal/storage/objectstore"
)

// PointerLocker serializes overwrite-latest pointer writes for one branch/PR
// key across concurrent runs, so a stale run cannot clobber a newer pointer
// after the newer run finished.
type PointerLocker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// NopLocker is for single-process deployments where runs are already
// serialized by the caller.
type NopLocker struct{}

func (NopLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type Publisher struct {
	provider StoreProvider
	locker   PointerLocker
	bucket   string
	logger   *slog.Logger
}

func NewPublisher(provider StoreProvider, locker PointerLocker, bucket string, logger *slog.Logger) (*Publisher, error) {
	if provider == nil {
		return nil, errors.New("store provider is required")
	}
	if locker == nil {
		locker = NopLocker{}
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("bucket is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{provider: provider, locker: locker, bucket: bucket, logger: logger}, nil
}

// Publish uploads every staged artifact under the revision address and the
// branch/PR pointer address. Revision writes are idempotent (same revision,
// same bytes); pointer writes are last-writer-wins and taken under the
// pointer lock. A failure mid-way leaves a visible partial publication that
// is safe to retry.
func (p *Publisher) Publish(ctx context.Context, run domain.PipelineRun, staged collect.StagedArtifacts, set domain.AddressSet) (domain.Receipt, error) {
	if len(staged.Artifacts) == 0 {
		return domain.Receipt{}, errors.New("no staged artifacts to publish")
	}

	store, err := p.provider.Acquire(ctx)
	if err != nil {
		return domain.Receipt{}, &Error{Reason: ReasonAuth, Err: err}
	}

	var keys []string

	for _, artifact := range staged.Artifacts {
		key := set.Revision.Key(artifact.Target)
		if err := p.putArtifact(ctx, store, key, run, artifact); err != nil {
			return domain.Receipt{}, err
		}
		keys = append(keys, key)
	}

	err = p.locker.WithLock(ctx, set.Pointer.Prefix(), func(ctx context.Context) error {
		for _, artifact := range staged.Artifacts {
			key := set.Pointer.Key(artifact.Target)
			if err := p.putArtifact(ctx, store, key, run, artifact); err != nil {
				return err
			}
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		var publishErr *Error
		if errors.As(err, &publishErr) {
			return domain.Receipt{}, err
		}
		return domain.Receipt{}, &Error{Reason: ReasonUpload, Err: err}
	}

	sort.Strings(keys)
	p.logger.Info("publication complete",
		"run_id", run.ID,
		"revision", run.Event.Revision,
		"revision_address", set.Revision.Prefix(),
		"pointer_address", set.Pointer.Prefix(),
		"keys", len(keys),
	)

	return domain.Receipt{
		RunID:      run.ID,
		Revision:   run.Event.Revision,
		Set:        set,
		Keys:       keys,
		UploadedAt: time.Now().UTC(),
	}, nil
}

func (p *Publisher) putArtifact(ctx context.Context, store objectstore.Store, key string, run domain.PipelineRun, artifact domain.Artifact) error {
	f, err := os.Open(artifact.Path)
	if err != nil {
		return &Error{Reason: ReasonUpload, Key: key, Err: err}
	}
	defer f.Close()

	opts := objectstore.PutOptions{
		ContentType: "application/octet-stream",
		UserMetadata: map[string]string{
			"shipline-revision": run.Event.Revision,
			"shipline-run-id":   run.ID,
			"shipline-sha256":   artifact.SHA256,
		},
	}
	if err := store.Put(ctx, p.bucket, key, f, artifact.Size, opts); err != nil {
		return &Error{Reason: ReasonUpload, Key: key, Err: err}
	}

	// Read the object back: a short write must fail the run, not surface
	// later as a truncated binary behind an install URL.
	info, err := store.Stat(ctx, p.bucket, key)
	if err != nil {
		return &Error{Reason: ReasonUpload, Key: key, Err: err}
	}
	if info.Size != artifact.Size {
		return &Error{
			Reason: ReasonUpload,
			Key:    key,
			Err:    fmt.Errorf("uploaded object is %d bytes, artifact is %d", info.Size, artifact.Size),
		}
	}
	return nil
}
