package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var ErrUnauthenticated = errors.New("unauthenticated")

type Identity struct {
	Subject string
	Email   string
}

type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) (Identity, error)
}

type ctxKeyIdentity struct{}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(ctxKeyIdentity{}).(Identity)
	return v, ok
}

func ContextWithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity{}, identity)
}

// StaticTokenAuthenticator accepts a single shared bearer token. Dev and CI
// deployments only.
type StaticTokenAuthenticator struct {
	token   string
	subject string
}

func NewStaticTokenAuthenticator(token, subject string) (*StaticTokenAuthenticator, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("static auth token is required")
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "ci"
	}
	return &StaticTokenAuthenticator{token: token, subject: subject}, nil
}

func (a *StaticTokenAuthenticator) Authenticate(ctx context.Context, r *http.Request) (Identity, error) {
	raw := TokenFromHeader(r)
	if raw == "" {
		return Identity{}, ErrUnauthenticated
	}
	if subtle.ConstantTimeCompare([]byte(raw), []byte(a.token)) != 1 {
		return Identity{}, ErrUnauthenticated
	}
	return Identity{Subject: a.subject}, nil
}

func TokenFromHeader(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// VerifyTimestamp checks a unix-seconds timestamp against a skew window.
func VerifyTimestamp(ts string, now time.Time, maxSkew time.Duration) error {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return errors.New("timestamp is required")
	}
	seconds, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp: %w", err)
	}
	if maxSkew <= 0 {
		maxSkew = 5 * time.Minute
	}
	at := time.Unix(seconds, 0).UTC()
	diff := now.Sub(at)
	if diff < 0 {
		diff = -diff
	}
	if diff > maxSkew {
		return errors.New("timestamp outside allowed skew")
	}
	return nil
}
