package logctx

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/ggoodman/ise-mcp-server-go/sessions"
)

func TestHandlerAddsContextGroups(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(Handler{Handler: slog.NewJSONHandler(&buf, nil)}).With(slog.String("component", "test"))

	ctx := WithRequestData(context.Background(), &RequestData{RequestID: "r1", Method: "POST", Path: "/mcp"})
	ctx = WithSessionData(ctx, &SessionData{SessionID: "s1", State: sessions.StateInitialized})
	ctx = WithRPCMessage(ctx, &RPCMessage{Method: "tools/call", ID: "7", Type: "request"})
	ctx = WithToolCallData(ctx, &ToolCallData{ToolName: "get_commodities"})
	log.InfoContext(ctx, "tool.call.ok")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode %s: %v", buf.String(), err)
	}
	if rec["component"] != "test" {
		t.Fatalf("derived logger lost its attrs: %v", rec)
	}
	checks := map[string][2]string{
		"req":  {"id", "r1"},
		"sess": {"state", string(sessions.StateInitialized)},
		"rpc":  {"method", "tools/call"},
		"tool": {"name", "get_commodities"},
	}
	for group, kv := range checks {
		g, ok := rec[group].(map[string]any)
		if !ok || g[kv[0]] != kv[1] {
			t.Fatalf("group %s = %v", group, rec[group])
		}
	}
}

func TestHandlerWithoutContextData(t *testing.T) {
	var buf bytes.Buffer
	slog.New(Handler{Handler: slog.NewJSONHandler(&buf, nil)}).Info("plain")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, g := range []string{"req", "sess", "rpc", "tool"} {
		if _, ok := rec[g]; ok {
			t.Fatalf("unexpected group %s", g)
		}
	}
}
