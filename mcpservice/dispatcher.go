package mcpservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/ggoodman/ise-mcp-server-go/internal/jsonrpc"
	"github.com/ggoodman/ise-mcp-server-go/internal/logctx"
	"github.com/ggoodman/ise-mcp-server-go/schema"
)

// Tool-specific error codes. Codes below -32000 are free for tool packages.
const (
	CodeToolFailed  jsonrpc.ErrorCode = -32000
	CodeToolTimeout jsonrpc.ErrorCode = -32001
)

// ErrorDetail is the structured failure carried by a ToolCallResult.
type ErrorDetail struct {
	Code    jsonrpc.ErrorCode
	Message string
	Data    any

	// rejected is set only when lookup or argument validation failed, so
	// the handler never ran.
	rejected bool
}

// IsProtocolError reports whether the failure happened before the handler
// ran (unknown tool, bad arguments). Such failures fail the RPC itself.
// Handler errors never qualify, whatever code they carry.
func (e *ErrorDetail) IsProtocolError() bool {
	return e.rejected
}

// ToolCallResult is the outcome of one dispatch. Exactly one of Payload and
// Error is meaningful, selected by OK.
type ToolCallResult struct {
	OK      bool
	Payload any
	Error   *ErrorDetail
}

// ToolError lets handlers choose the code and data reported for a failure.
type ToolError struct {
	Code    jsonrpc.ErrorCode
	Message string
	Data    any
	Err     error
}

func (e *ToolError) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *ToolError) Unwrap() error { return e.Err }

// Dispatcher validates tool arguments and invokes handlers.
type Dispatcher struct {
	reg *Registry
	log *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the logger used for tool call events.
func WithDispatcherLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.log = l
		}
	}
}

// NewDispatcher seals reg and returns a dispatcher over it.
func NewDispatcher(reg *Registry, opts ...DispatcherOption) *Dispatcher {
	reg.seal()
	d := &Dispatcher{reg: reg, log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Registry exposes the sealed registry for listing.
func (d *Dispatcher) Registry() *Registry { return d.reg }

// Dispatch looks up name, validates args and runs the handler once. It never
// panics and never returns a Go error: every failure is folded into the
// result.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any) ToolCallResult {
	start := time.Now()
	ctx = logctx.WithToolCallData(ctx, &logctx.ToolCallData{ToolName: name})

	def, err := d.reg.Get(name)
	if err != nil {
		d.log.InfoContext(ctx, "tool.call.unknown")
		return rejection(jsonrpc.ErrorCodeMethodNotFound, "Unknown tool: "+name, nil)
	}

	if args == nil {
		args = map[string]any{}
	}
	if err := schema.Validate(def.InputSchema, args); err != nil {
		d.log.InfoContext(ctx, "tool.call.invalid", slog.String("err", err.Error()))
		var data any
		var ve *schema.ValidationError
		if errors.As(err, &ve) {
			data = map[string]any{"field": ve.Path, "expected": ve.Expected, "actual": ve.Actual}
		}
		return rejection(jsonrpc.ErrorCodeInvalidParams, "Invalid params: "+err.Error(), data)
	}

	d.log.DebugContext(ctx, "tool.call.start")
	payload, err := d.invoke(ctx, d.reg.handler(name), args)
	if err != nil {
		detail := classify(err)
		d.log.WarnContext(ctx, "tool.call.fail",
			slog.Int("code", int(detail.Code)),
			slog.String("err", err.Error()),
			slog.Duration("dur", time.Since(start)),
		)
		return ToolCallResult{Error: detail}
	}

	d.log.InfoContext(ctx, "tool.call.ok", slog.Duration("dur", time.Since(start)))
	return ToolCallResult{OK: true, Payload: payload}
}

func (d *Dispatcher) invoke(ctx context.Context, h ToolHandler, args map[string]any) (payload any, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.ErrorContext(ctx, "tool.call.panic", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
			err = &ToolError{Code: jsonrpc.ErrorCodeInternalError, Message: fmt.Sprintf("internal error: %v", r)}
		}
	}()
	return h(ctx, args)
}

func classify(err error) *ErrorDetail {
	var te *ToolError
	if errors.As(err, &te) {
		return &ErrorDetail{Code: te.Code, Message: te.Error(), Data: te.Data}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ErrorDetail{Code: CodeToolTimeout, Message: err.Error()}
	}
	return &ErrorDetail{Code: CodeToolFailed, Message: err.Error()}
}

func rejection(code jsonrpc.ErrorCode, msg string, data any) ToolCallResult {
	return ToolCallResult{Error: &ErrorDetail{Code: code, Message: msg, Data: data, rejected: true}}
}
