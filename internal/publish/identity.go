package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/oauth2/clientcredentials"

	platformstore "github.com/shipline-labs/shipline/internal/platform/objectstore"
	"github.com/shipline-labs/shipline/internal/storage/objectstore"
)

// StoreProvider acquires an upload identity and returns a store bound to it.
// Publishing does not start until acquisition succeeds.
type StoreProvider interface {
	Acquire(ctx context.Context) (objectstore.Store, error)
}

// StaticStoreProvider hands out a store built from long-lived static
// credentials. Local and dev deployments.
type StaticStoreProvider struct {
	store objectstore.Store
}

func NewStaticStoreProvider(cfg platformstore.Config) (*StaticStoreProvider, error) {
	client, err := platformstore.NewMinIOClient(cfg)
	if err != nil {
		return nil, err
	}
	store, err := objectstore.NewMinioStore(client)
	if err != nil {
		return nil, err
	}
	return &StaticStoreProvider{store: store}, nil
}

func NewStaticStoreProviderWithStore(store objectstore.Store) (*StaticStoreProvider, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	return &StaticStoreProvider{store: store}, nil
}

func (p *StaticStoreProvider) Acquire(ctx context.Context) (objectstore.Store, error) {
	return p.store, nil
}

// STSIdentityConfig describes the client-credentials exchange that yields a
// web-identity token, which the object store's STS endpoint then trades for
// short-lived upload credentials.
type STSIdentityConfig struct {
	STSEndpoint  string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

func (c STSIdentityConfig) Validate() error {
	if strings.TrimSpace(c.STSEndpoint) == "" {
		return errors.New("sts endpoint is required")
	}
	if strings.TrimSpace(c.TokenURL) == "" {
		return errors.New("token url is required")
	}
	if strings.TrimSpace(c.ClientID) == "" {
		return errors.New("client id is required")
	}
	if strings.TrimSpace(c.ClientSecret) == "" {
		return errors.New("client secret is required")
	}
	return nil
}

// STSStoreProvider assumes the upload identity on every acquire. No retry
// here: retry policy belongs to the identity provider integration.
type STSStoreProvider struct {
	storeCfg platformstore.Config
	idCfg    STSIdentityConfig
}

func NewSTSStoreProvider(storeCfg platformstore.Config, idCfg STSIdentityConfig) (*STSStoreProvider, error) {
	if err := storeCfg.Validate(); err != nil {
		return nil, err
	}
	if err := idCfg.Validate(); err != nil {
		return nil, err
	}
	return &STSStoreProvider{storeCfg: storeCfg, idCfg: idCfg}, nil
}

func (p *STSStoreProvider) Acquire(ctx context.Context) (objectstore.Store, error) {
	oauthCfg := &clientcredentials.Config{
		ClientID:     p.idCfg.ClientID,
		ClientSecret: p.idCfg.ClientSecret,
		TokenURL:     p.idCfg.TokenURL,
		Scopes:       p.idCfg.Scopes,
	}
	source := oauthCfg.TokenSource(ctx)
	if _, err := source.Token(); err != nil {
		return nil, fmt.Errorf("acquire upload identity: %w", err)
	}

	creds, err := credentials.NewSTSWebIdentity(p.idCfg.STSEndpoint, func() (*credentials.WebIdentityToken, error) {
		token, err := source.Token()
		if err != nil {
			return nil, err
		}
		return &credentials.WebIdentityToken{Token: token.AccessToken}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("sts web identity: %w", err)
	}

	client, err := platformstore.NewMinIOClientWithCredentials(p.storeCfg, creds)
	if err != nil {
		return nil, err
	}
	return objectstore.NewMinioStore(client)
}
