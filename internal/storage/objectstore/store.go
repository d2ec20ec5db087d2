package objectstore

import (
	"context"
	"io"
	"time"
)

// Store abstracts S3-compatible object storage, narrowed to what publication
// needs: writing objects and reading back their metadata for verification.
type Store interface {
	Put(ctx context.Context, bucket, key string, body io.Reader, size int64, opts PutOptions) error
	Stat(ctx context.Context, bucket, key string) (ObjectInfo, error)
}

type PutOptions struct {
	ContentType  string
	UserMetadata map[string]string
}

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}
