package auth

import (
	"context"
	"errors"
	"time"

	"github.com/ggoodman/ise-mcp-server-go/internal/jwtauth"
)

// AccessTokenAuthOption configures optional aspects of the JWT access token
// authenticator (scopes, algorithms, leeway).
type AccessTokenAuthOption func(*jwtauth.Config)

// WithRequiredScopes requires all of the provided scopes to be present in the
// space-delimited "scope" claim.
func WithRequiredScopes(scopes ...string) AccessTokenAuthOption {
	return func(c *jwtauth.Config) {
		c.RequiredScopes = append([]string(nil), scopes...)
	}
}

// WithAllowedAlgs restricts allowed JWS algorithms. "none" is never allowed.
// Defaults to ["RS256"].
func WithAllowedAlgs(algs ...string) AccessTokenAuthOption {
	return func(c *jwtauth.Config) {
		c.AllowedAlgs = append([]string(nil), algs...)
	}
}

// WithLeeway sets clock skew tolerance for time-based claims.
func WithLeeway(d time.Duration) AccessTokenAuthOption {
	return func(c *jwtauth.Config) { c.Leeway = d }
}

// NewFromDiscovery returns an Authenticator that verifies JWT access tokens
// from issuer, locating its keys via OpenID Connect discovery. A token must
// carry at least one of audiences in its "aud" claim.
func NewFromDiscovery(ctx context.Context, issuer string, audiences []string, opts ...AccessTokenAuthOption) (Authenticator, error) {
	if len(audiences) == 0 {
		return nil, errors.New("auth: at least one audience is required")
	}
	cfg := jwtauth.DefaultConfig()
	cfg.Issuer = issuer
	cfg.Audiences = append([]string(nil), audiences...)
	for _, opt := range opts {
		opt(cfg)
	}
	v, err := jwtauth.NewFromDiscovery(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &jwtAuthenticator{v: v}, nil
}

type jwtAuthenticator struct {
	v *jwtauth.Verifier
}

func (a *jwtAuthenticator) CheckAuthentication(ctx context.Context, tok string) (UserInfo, error) {
	claims, err := a.v.Verify(ctx, tok)
	if err != nil {
		if errors.Is(err, jwtauth.ErrInsufficientScope) {
			return nil, errors.Join(ErrInsufficientScope, err)
		}
		return nil, errors.Join(ErrUnauthorized, err)
	}
	return jwtUser{c: claims}, nil
}

type jwtUser struct{ c *jwtauth.Claims }

func (u jwtUser) UserID() string       { return u.c.Subject }
func (u jwtUser) Claims(ref any) error { return u.c.Decode(ref) }
