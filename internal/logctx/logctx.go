// Package logctx carries request, session, rpc and tool identifiers on a
// context and adds them to every slog record logged with that context.
package logctx

import (
	"context"
	"log/slog"

	"github.com/ggoodman/ise-mcp-server-go/sessions"
)

// group is implemented by every value this package stores on a context.
type group interface {
	attr() slog.Attr
}

type ctxKey int

const (
	requestKey ctxKey = iota
	sessionKey
	rpcKey
	toolKey
)

// keys fixes the order groups appear in a record: outermost scope first.
var keys = [...]ctxKey{requestKey, sessionKey, rpcKey, toolKey}

// Handler wraps another slog.Handler and appends one group per value found
// on the record's context.
type Handler struct {
	slog.Handler
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	for _, k := range keys {
		if g, ok := ctx.Value(k).(group); ok {
			r.AddAttrs(g.attr())
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return Handler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h Handler) WithGroup(name string) slog.Handler {
	return Handler{Handler: h.Handler.WithGroup(name)}
}

// RequestData identifies one inbound HTTP request.
type RequestData struct {
	RequestID  string
	Method     string
	Path       string
	RemoteAddr string
}

func (d *RequestData) attr() slog.Attr {
	return slog.Group("req",
		slog.String("id", d.RequestID),
		slog.String("method", d.Method),
		slog.String("path", d.Path),
		slog.String("remote_addr", d.RemoteAddr),
	)
}

func WithRequestData(ctx context.Context, d *RequestData) context.Context {
	return context.WithValue(ctx, requestKey, d)
}

// SessionData identifies the MCP session a message runs against.
type SessionData struct {
	SessionID       string
	UserID          string
	ProtocolVersion string
	State           sessions.State
}

func (d *SessionData) attr() slog.Attr {
	return slog.Group("sess",
		slog.String("id", d.SessionID),
		slog.String("user_id", d.UserID),
		slog.String("protocol_version", d.ProtocolVersion),
		slog.String("state", string(d.State)),
	)
}

func WithSessionData(ctx context.Context, d *SessionData) context.Context {
	return context.WithValue(ctx, sessionKey, d)
}

// RPCMessage identifies one JSON-RPC message within a payload.
type RPCMessage struct {
	Method string
	ID     string
	Type   string
}

func (m *RPCMessage) attr() slog.Attr {
	return slog.Group("rpc",
		slog.String("method", m.Method),
		slog.String("id", m.ID),
		slog.String("type", m.Type),
	)
}

func WithRPCMessage(ctx context.Context, m *RPCMessage) context.Context {
	return context.WithValue(ctx, rpcKey, m)
}

// ToolCallData names the tool being dispatched.
type ToolCallData struct {
	ToolName string
}

func (d *ToolCallData) attr() slog.Attr {
	return slog.Group("tool", slog.String("name", d.ToolName))
}

func WithToolCallData(ctx context.Context, d *ToolCallData) context.Context {
	return context.WithValue(ctx, toolKey, d)
}
