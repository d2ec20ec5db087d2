package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

func NewMinIOClient(cfg Config) (*minio.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.HasStaticCredentials() {
		return nil, errors.New("static credentials are required (or use NewMinIOClientWithCredentials)")
	}
	return newClient(cfg, credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""))
}

// NewMinIOClientWithCredentials builds a client from externally acquired
// credentials, typically short-lived ones from an identity provider.
func NewMinIOClientWithCredentials(cfg Config, creds *credentials.Credentials) (*minio.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if creds == nil {
		return nil, errors.New("credentials are required")
	}
	return newClient(cfg, creds)
}

func newClient(cfg Config, creds *credentials.Credentials) (*minio.Client, error) {
	opts := &minio.Options{
		Creds:     creds,
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	}
	return minio.New(cfg.Endpoint, opts)
}

func EnsureBucket(ctx context.Context, client *minio.Client, cfg Config) error {
	exists, err := client.BucketExists(ctx, cfg.BucketReleases)
	if err != nil {
		return fmt.Errorf("releases bucket exists: %w", err)
	}
	if exists {
		return nil
	}
	if err := client.MakeBucket(ctx, cfg.BucketReleases, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
		return fmt.Errorf("make releases bucket: %w", err)
	}
	return nil
}

func CheckBucket(ctx context.Context, client *minio.Client, cfg Config) error {
	exists, err := client.BucketExists(ctx, cfg.BucketReleases)
	if err != nil {
		return fmt.Errorf("releases bucket exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("releases bucket missing: %s", cfg.BucketReleases)
	}
	return nil
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
