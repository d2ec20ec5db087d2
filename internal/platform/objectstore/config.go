package objectstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shipline-labs/shipline/internal/platform/env"
)

type Config struct {
	Endpoint       string
	AccessKey      string
	SecretKey      string
	Region         string
	UseSSL         bool
	BucketReleases string
}

func ConfigFromEnv() (Config, error) {
	useSSL, err := env.Bool("SHIPLINE_OBJECTSTORE_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Endpoint:       env.String("SHIPLINE_OBJECTSTORE_ENDPOINT", "localhost:9000"),
		AccessKey:      env.String("SHIPLINE_OBJECTSTORE_ACCESS_KEY", ""),
		SecretKey:      env.String("SHIPLINE_OBJECTSTORE_SECRET_KEY", ""),
		Region:         env.String("SHIPLINE_OBJECTSTORE_REGION", "us-east-1"),
		UseSSL:         useSSL,
		BucketReleases: env.String("SHIPLINE_OBJECTSTORE_BUCKET_RELEASES", "releases"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the connection fields. Access and secret keys may be empty
// when credentials are acquired through an identity provider instead.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.TrimSpace(c.Region) == "" {
		return errors.New("region is required")
	}
	if strings.TrimSpace(c.BucketReleases) == "" {
		return errors.New("releases bucket is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return errors.New("access key and secret key must be set together")
	}
	return nil
}

func (c Config) HasStaticCredentials() bool {
	return strings.TrimSpace(c.AccessKey) != "" && strings.TrimSpace(c.SecretKey) != ""
}
