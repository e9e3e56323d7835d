package httprpc

import (
	"log/slog"
	"strings"
	"time"

	"github.com/ggoodman/ise-mcp-server-go/auth"
	"github.com/ggoodman/ise-mcp-server-go/internal/wellknown"
)

const (
	DefaultSessionTTL   = time.Hour
	DefaultMaxBodyBytes = 4 << 20
	// Description is reported by /info.
	Description = "Indian Stock Exchange MCP Server"
)

// Option configures the Handler.
type Option func(*Handler)

// WithLogger sets the logger. If not provided, logs are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// WithAuthenticator requires bearer authentication on the JSON-RPC routes.
func WithAuthenticator(a auth.Authenticator) Option {
	return func(h *Handler) { h.authn = a }
}

// WithRealm sets the realm advertised in WWW-Authenticate challenges.
func WithRealm(realm string) Option {
	return func(h *Handler) { h.realm = strings.TrimSpace(realm) }
}

// WithSessionTTL sets the sliding expiry of stored sessions.
func WithSessionTTL(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.sessionTTL = d
		}
	}
}

// WithMaxBodyBytes caps the size of a POST body.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBody = n
		}
	}
}

// WithProtectedResource publishes OAuth protected resource metadata naming
// resource (the public URL of the RPC endpoint) and the servers that issue
// its tokens. Bearer challenges then link to the document.
func WithProtectedResource(resource string, authorizationServers ...string) Option {
	return func(h *Handler) {
		h.prm = &wellknown.ProtectedResourceMetadata{
			Resource:               resource,
			AuthorizationServers:   authorizationServers,
			BearerMethodsSupported: []string{"header"},
		}
	}
}
