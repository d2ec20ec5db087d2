package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

type OIDCConfig struct {
	IssuerURL  string
	ClientID   string
	EmailClaim string
}

func (c OIDCConfig) Validate() error {
	if strings.TrimSpace(c.IssuerURL) == "" {
		return errors.New("oidc issuer url is required")
	}
	if strings.TrimSpace(c.ClientID) == "" {
		return errors.New("oidc client id is required")
	}
	return nil
}

// OIDCAuthenticator verifies bearer ID tokens issued by the configured
// provider. Used to authenticate the source-control host's event forwarder.
type OIDCAuthenticator struct {
	cfg      OIDCConfig
	verifier *oidc.IDTokenVerifier
}

func NewOIDCAuthenticator(ctx context.Context, cfg OIDCConfig) (*OIDCAuthenticator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	return &OIDCAuthenticator{cfg: cfg, verifier: verifier}, nil
}

func (a *OIDCAuthenticator) Authenticate(ctx context.Context, r *http.Request) (Identity, error) {
	raw := TokenFromHeader(r)
	if raw == "" {
		return Identity{}, ErrUnauthenticated
	}

	idToken, err := a.verifier.Verify(ctx, raw)
	if err != nil {
		return Identity{}, err
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return Identity{}, err
	}

	subject, _ := claims["sub"].(string)
	emailClaim := strings.TrimSpace(a.cfg.EmailClaim)
	if emailClaim == "" {
		emailClaim = "email"
	}
	email, _ := claims[emailClaim].(string)

	return Identity{Subject: subject, Email: email}, nil
}
