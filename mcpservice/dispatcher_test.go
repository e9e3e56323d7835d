package mcpservice

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/ggoodman/ise-mcp-server-go/internal/jsonrpc"
	"github.com/ggoodman/ise-mcp-server-go/schema"
)

// spy records invocations and returns a fixed result.
type spy struct {
	calls   atomic.Int32
	result  any
	err     error
	lastArg map[string]any
}

func (s *spy) handle(ctx context.Context, args map[string]any) (any, error) {
	s.calls.Add(1)
	s.lastArg = args
	return s.result, s.err
}

func newSpyDispatcher(t *testing.T, sp *spy) *Dispatcher {
	t.Helper()
	reg := NewRegistry()
	reg.MustRegister(ToolDefinition{
		Name:        "search_industry",
		Description: "Search companies by industry",
		InputSchema: schema.Object(schema.Prop("query", schema.String("Industry"))).Require("query"),
	}, sp.handle)
	reg.MustRegister(ToolDefinition{
		Name: "get_historical_stats",
		InputSchema: schema.Object(
			schema.Prop("stock_name", schema.String("Stock")),
			schema.Prop("stats", schema.Enum("Statistic", "quarter_results", "ratios")),
		).Require("stock_name", "stats"),
	}, sp.handle)
	return NewDispatcher(reg)
}

func TestDispatchValidArgumentsInvokesOnce(t *testing.T) {
	payload := map[string]any{"companies": []any{"a", "b"}}
	sp := &spy{result: payload}
	d := newSpyDispatcher(t, sp)

	res := d.Dispatch(t.Context(), "search_industry", map[string]any{"query": "Software", "ignored": true})
	if !res.OK || res.Error != nil {
		t.Fatalf("expected success, got %+v", res.Error)
	}
	if sp.calls.Load() != 1 {
		t.Fatalf("want exactly one handler call, got %d", sp.calls.Load())
	}
	if !reflect.DeepEqual(res.Payload, payload) {
		t.Fatalf("payload must be returned unchanged, got %#v", res.Payload)
	}
	if sp.lastArg["query"] != "Software" {
		t.Fatalf("handler did not see validated args: %#v", sp.lastArg)
	}
}

func TestDispatchMissingRequiredNeverInvokes(t *testing.T) {
	sp := &spy{}
	d := newSpyDispatcher(t, sp)

	for _, args := range []map[string]any{nil, {}, {"query": nil}, {"other": "x"}} {
		res := d.Dispatch(t.Context(), "search_industry", args)
		if res.OK {
			t.Fatalf("args %v: expected failure", args)
		}
		if res.Error.Code != jsonrpc.ErrorCodeInvalidParams {
			t.Fatalf("args %v: want -32602, got %d", args, res.Error.Code)
		}
	}
	if n := sp.calls.Load(); n != 0 {
		t.Fatalf("handler must not run on invalid args, ran %d times", n)
	}
}

func TestDispatchEnumRejected(t *testing.T) {
	sp := &spy{}
	d := newSpyDispatcher(t, sp)

	res := d.Dispatch(t.Context(), "get_historical_stats", map[string]any{"stock_name": "TCS", "stats": "Ratios"})
	if res.OK || res.Error.Code != jsonrpc.ErrorCodeInvalidParams {
		t.Fatalf("want INVALID_PARAMS for unlisted enum value, got %+v", res)
	}
	data, ok := res.Error.Data.(map[string]any)
	if !ok || data["field"] != "stats" {
		t.Fatalf("error data should name the field, got %#v", res.Error.Data)
	}
	if sp.calls.Load() != 0 {
		t.Fatalf("handler must not run")
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	sp := &spy{}
	d := newSpyDispatcher(t, sp)

	res := d.Dispatch(t.Context(), "get_weather", map[string]any{})
	if res.OK || res.Error.Code != jsonrpc.ErrorCodeMethodNotFound {
		t.Fatalf("want METHOD_NOT_FOUND, got %+v", res)
	}
	if res.Error.Message != "Unknown tool: get_weather" {
		t.Fatalf("unexpected message %q", res.Error.Message)
	}
	if !res.Error.IsProtocolError() {
		t.Fatalf("unknown tool is a protocol error")
	}
	if sp.calls.Load() != 0 {
		t.Fatalf("handler set must be untouched")
	}
}

func TestDispatchHandlerFailures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode jsonrpc.ErrorCode
	}{
		{name: "plain error", err: errors.New("boom"), wantCode: CodeToolFailed},
		{name: "deadline", err: fmt.Errorf("fetch: %w", context.DeadlineExceeded), wantCode: CodeToolTimeout},
		{name: "tool error", err: fmt.Errorf("wrapped: %w", &ToolError{Code: -32003, Message: "upstream returned status 502", Data: map[string]any{"status": 502}}), wantCode: -32003},
		{name: "handler reports invalid params", err: &ToolError{Code: jsonrpc.ErrorCodeInvalidParams, Message: "upstream rejected symbol"}, wantCode: jsonrpc.ErrorCodeInvalidParams},
		{name: "handler reports method not found", err: &ToolError{Code: jsonrpc.ErrorCodeMethodNotFound, Message: "no such listing"}, wantCode: jsonrpc.ErrorCodeMethodNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := &spy{err: tt.err}
			d := newSpyDispatcher(t, sp)
			res := d.Dispatch(t.Context(), "search_industry", map[string]any{"query": "x"})
			if res.OK {
				t.Fatalf("expected failure")
			}
			if res.Error.Code != tt.wantCode {
				t.Fatalf("want code %d, got %d", tt.wantCode, res.Error.Code)
			}
			if res.Error.IsProtocolError() {
				t.Fatalf("handler failures are not protocol errors")
			}
			if sp.calls.Load() != 1 {
				t.Fatalf("want one attempt, got %d", sp.calls.Load())
			}
		})
	}
}

func TestDispatchRecoversPanics(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(ToolDefinition{Name: "explode"}, func(ctx context.Context, args map[string]any) (any, error) {
		panic("kaboom")
	})
	d := NewDispatcher(reg)

	res := d.Dispatch(t.Context(), "explode", nil)
	if res.OK || res.Error.Code != jsonrpc.ErrorCodeInternalError {
		t.Fatalf("want internal error result, got %+v", res)
	}
	if res.Error.IsProtocolError() {
		t.Fatalf("panic is a handler-level failure")
	}
}
