// Package config loads the gateway's process configuration from the
// environment. The decoded Config is an immutable value handed to
// constructors; nothing reads the environment after start-up.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

var (
	// ErrMissingAPIKey is returned by Validate when ISE_API_KEY is empty.
	ErrMissingAPIKey = errors.New("config: ISE_API_KEY is required")
	// ErrInvalid wraps every other validation failure.
	ErrInvalid = errors.New("config: invalid")
)

// Duration is a time.Duration that also accepts a bare number of seconds.
type Duration time.Duration

// Decode implements envdecode.Decoder.
func (d *Duration) Decode(s string) error {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q", s)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	APIBaseURL     string   `env:"ISE_API_BASE_URL,default=https://stock.indianapi.in"`
	APIKey         string   `env:"ISE_API_KEY"`
	RequestTimeout Duration `env:"ISE_REQUEST_TIMEOUT,default=30s"`
	// ToolTimeout bounds each tool call at the adapter. Zero disables it.
	ToolTimeout Duration `env:"ISE_TOOL_TIMEOUT,default=45s"`

	HTTPHost string `env:"ISE_HTTP_HOST,default=0.0.0.0"`
	HTTPPort int    `env:"ISE_HTTP_PORT,default=8000"`

	LogLevel   slog.Level `env:"ISE_LOG_LEVEL,default=info"`
	ServerName string     `env:"ISE_SERVER_NAME,default=indian-stock-exchange"`

	SessionTTL Duration `env:"ISE_SESSION_TTL,default=1h"`
	// RedisAddr selects the Redis session host when set.
	RedisAddr      string `env:"ISE_REDIS_ADDR"`
	RedisKeyPrefix string `env:"ISE_REDIS_KEY_PREFIX,default=ise:sessions:"`

	AuthToken    string   `env:"ISE_AUTH_TOKEN"`
	OIDCIssuer   string   `env:"ISE_OIDC_ISSUER"`
	OIDCAudience []string `env:"ISE_OIDC_AUDIENCE"`
	// OIDCScopes must all be present in a token's scope claim.
	OIDCScopes []string `env:"ISE_OIDC_SCOPES"`
	OIDCAlgs   []string `env:"ISE_OIDC_ALGS,default=RS256"`
	OIDCLeeway Duration `env:"ISE_OIDC_LEEWAY,default=60s"`
	// PublicURL is the externally visible RPC endpoint, advertised in OAuth
	// protected resource metadata when OIDC is enabled.
	PublicURL string `env:"ISE_PUBLIC_URL"`
}

// Load decodes the environment into a Config. It does not validate; call
// Validate before using the result.
func Load() (Config, error) {
	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	return cfg, nil
}

// Validate reports the first configuration problem, if any.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: ISE_API_BASE_URL %q is not an http(s) URL", ErrInvalid, c.APIBaseURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: ISE_REQUEST_TIMEOUT must be positive", ErrInvalid)
	}
	if c.ToolTimeout < 0 {
		return fmt.Errorf("%w: ISE_TOOL_TIMEOUT must not be negative", ErrInvalid)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("%w: ISE_HTTP_PORT %d out of range", ErrInvalid, c.HTTPPort)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("%w: ISE_SESSION_TTL must be positive", ErrInvalid)
	}
	if c.AuthToken != "" && c.OIDCIssuer != "" {
		return fmt.Errorf("%w: ISE_AUTH_TOKEN and ISE_OIDC_ISSUER are mutually exclusive", ErrInvalid)
	}
	if c.OIDCIssuer != "" && len(c.OIDCAudience) == 0 {
		return fmt.Errorf("%w: ISE_OIDC_AUDIENCE is required with ISE_OIDC_ISSUER", ErrInvalid)
	}
	if c.OIDCLeeway < 0 {
		return fmt.Errorf("%w: ISE_OIDC_LEEWAY must not be negative", ErrInvalid)
	}
	if slices.Contains(c.OIDCAlgs, "none") {
		return fmt.Errorf("%w: ISE_OIDC_ALGS must not allow none", ErrInvalid)
	}
	return nil
}

// ListenAddr is the host:port the HTTP adapter binds.
func (c Config) ListenAddr() string {
	return net.JoinHostPort(c.HTTPHost, strconv.Itoa(c.HTTPPort))
}
