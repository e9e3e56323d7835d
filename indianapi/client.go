// Package indianapi is a small client for the Indian stock market REST API
// the gateway's tools read from. Every call is a single GET with query
// parameters and a JSON response; there are no retries.
package indianapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the public API host.
	DefaultBaseURL = "https://stock.indianapi.in"
	// DefaultTimeout bounds a single request when the caller does not supply one.
	DefaultTimeout = 30 * time.Second
	// UserAgent is sent on every request.
	UserAgent = "ISE-MCP-Server/1.0.0"

	maxBodyBytes = 16 << 20
)

// Config holds the client's immutable settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client is a minimal HTTP client for the market data API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client. Its Timeout is left as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger used for request events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New validates cfg and returns a client. An empty API key is an error.
func New(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("indianapi: invalid base url %q: %w", base, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		baseURL: strings.TrimRight(base, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		log:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get fetches endpoint with the given query and returns the raw JSON body.
// Empty query values are dropped.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values) (json.RawMessage, error) {
	start := time.Now()
	reqURL := c.buildURL(endpoint, query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("indianapi: build request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	log := c.log.With(slog.String("endpoint", endpoint))

	resp, err := c.http.Do(req)
	if err != nil {
		log.WarnContext(ctx, "upstream.get.fail", slog.String("err", err.Error()), slog.Duration("dur", time.Since(start)))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, ctxErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		log.WarnContext(ctx, "upstream.read.fail", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%w: reading body: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.WarnContext(ctx, "upstream.get.status", slog.Int("status", resp.StatusCode), slog.Duration("dur", time.Since(start)))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: excerpt(body)}
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 || !json.Valid(body) {
		log.WarnContext(ctx, "upstream.decode.fail", slog.Int("bytes", len(body)))
		return nil, fmt.Errorf("%w: %s", ErrInvalidResponse, excerpt(body))
	}

	log.DebugContext(ctx, "upstream.get.ok", slog.Int("status", resp.StatusCode), slog.Duration("dur", time.Since(start)))
	return json.RawMessage(body), nil
}

func (c *Client) buildURL(endpoint string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
	clean := url.Values{}
	for k, vs := range query {
		for _, v := range vs {
			if v != "" {
				clean.Add(k, v)
			}
		}
	}
	if len(clean) > 0 {
		u += "?" + clean.Encode()
	}
	return u
}

func excerpt(b []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
