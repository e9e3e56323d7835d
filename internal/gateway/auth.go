package gateway

import (
	"context"

	"github.com/ggoodman/ise-mcp-server-go/auth"
	"github.com/ggoodman/ise-mcp-server-go/config"
)

// NewAuthenticator returns the bearer authenticator selected by cfg, or nil
// when neither a static token nor an OIDC issuer is configured.
func NewAuthenticator(ctx context.Context, cfg config.Config) (auth.Authenticator, error) {
	switch {
	case cfg.AuthToken != "":
		return auth.NewStaticToken(cfg.AuthToken)
	case cfg.OIDCIssuer != "":
		opts := []auth.AccessTokenAuthOption{
			auth.WithLeeway(cfg.OIDCLeeway.Std()),
		}
		if len(cfg.OIDCScopes) > 0 {
			opts = append(opts, auth.WithRequiredScopes(cfg.OIDCScopes...))
		}
		if len(cfg.OIDCAlgs) > 0 {
			opts = append(opts, auth.WithAllowedAlgs(cfg.OIDCAlgs...))
		}
		return auth.NewFromDiscovery(ctx, cfg.OIDCIssuer, cfg.OIDCAudience, opts...)
	default:
		return nil, nil
	}
}
