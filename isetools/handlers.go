package isetools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/ggoodman/ise-mcp-server-go/indianapi"
	"github.com/ggoodman/ise-mcp-server-go/internal/jsonrpc"
	"github.com/ggoodman/ise-mcp-server-go/mcpservice"
)

// Upstream failure codes, reported through mcpservice.ToolError.
const (
	CodeUpstreamUnavailable jsonrpc.ErrorCode = -32002
	CodeUpstreamStatus      jsonrpc.ErrorCode = -32003
	CodeUpstreamInvalid     jsonrpc.ErrorCode = -32004
)

// Fetcher performs one GET against the upstream API. *indianapi.Client
// satisfies it.
type Fetcher interface {
	Get(ctx context.Context, endpoint string, query url.Values) (json.RawMessage, error)
}

var _ Fetcher = (*indianapi.Client)(nil)

// Register adds every tool, bound to f, to reg.
func Register(reg *mcpservice.Registry, f Fetcher) error {
	if f == nil {
		return errors.New("isetools: fetcher is required")
	}
	for _, s := range catalog() {
		if err := reg.Register(s.def, s.handler(f)); err != nil {
			return fmt.Errorf("isetools: %w", err)
		}
	}
	return nil
}

func (s spec) handler(f Fetcher) mcpservice.ToolHandler {
	return func(ctx context.Context, args map[string]any) (any, error) {
		q := url.Values{}
		for _, key := range s.query {
			v, ok := args[key]
			if !ok || v == nil {
				continue
			}
			q.Set(key, queryValue(v))
		}

		raw, err := f.Get(ctx, s.endpoint, q)
		if err != nil {
			return nil, upstreamError(err)
		}
		if s.unwrap != "" {
			raw = unwrapField(raw, s.unwrap)
		}
		return raw, nil
	}
}

func queryValue(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprint(v)
	}
}

// unwrapField returns the value stored under key when raw is an object that
// carries it, and raw unchanged otherwise.
func unwrapField(raw json.RawMessage, key string) json.RawMessage {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return raw
	}
	if inner, ok := obj[key]; ok {
		return inner
	}
	return raw
}

// upstreamError maps client failures to tool error codes. Deadline errors are
// left alone so the dispatcher reports them as timeouts.
func upstreamError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var se *indianapi.StatusError
	switch {
	case errors.As(err, &se):
		return &mcpservice.ToolError{
			Code:    CodeUpstreamStatus,
			Message: err.Error(),
			Data:    map[string]any{"status": se.StatusCode},
			Err:     err,
		}
	case errors.Is(err, indianapi.ErrInvalidResponse):
		return &mcpservice.ToolError{Code: CodeUpstreamInvalid, Message: err.Error(), Err: err}
	case errors.Is(err, indianapi.ErrUnavailable):
		return &mcpservice.ToolError{Code: CodeUpstreamUnavailable, Message: err.Error(), Err: err}
	default:
		return err
	}
}
