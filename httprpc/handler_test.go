package httprpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ggoodman/ise-mcp-server-go/auth"
	"github.com/ggoodman/ise-mcp-server-go/auth/authtest"
	"github.com/ggoodman/ise-mcp-server-go/internal/jsonrpc"
	"github.com/ggoodman/ise-mcp-server-go/internal/wellknown"
	"github.com/ggoodman/ise-mcp-server-go/isetools"
	"github.com/ggoodman/ise-mcp-server-go/mcp"
	"github.com/ggoodman/ise-mcp-server-go/mcpservice"
	"github.com/ggoodman/ise-mcp-server-go/sessions/memoryhost"
)

const (
	initializeBody = `{"jsonrpc":"2.0","method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"test","version":"0"}},"id":0}`
	trendingBody   = `{"jsonrpc":"2.0","method":"tools/call","params":{"name":"get_trending_stocks","arguments":{}},"id":1}`
	trendingReply  = `{"jsonrpc":"2.0","result":{"content":[{"type":"text","text":"{\"top_gainers\":[],\"top_losers\":[]}"}],"isError":false},"id":1}`
)

type countingFetcher struct {
	calls atomic.Int32
}

func (f *countingFetcher) Get(ctx context.Context, endpoint string, query url.Values) (json.RawMessage, error) {
	f.calls.Add(1)
	if endpoint == "/trending" {
		return json.RawMessage(`{"trending_stocks":{"top_gainers":[],"top_losers":[]}}`), nil
	}
	return json.RawMessage(`[]`), nil
}

type fixture struct {
	h       *Handler
	host    *memoryhost.Host
	fetcher *countingFetcher
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{host: memoryhost.New(), fetcher: &countingFetcher{}}
	reg := mcpservice.NewRegistry()
	if err := isetools.Register(reg, f.fetcher); err != nil {
		t.Fatalf("register: %v", err)
	}
	srv := mcpservice.NewServer(mcpservice.NewDispatcher(reg),
		mcpservice.WithServerInfo(mcp.ImplementationInfo{Name: "indian-stock-exchange", Version: "1.0.0"}))
	h, err := New(srv, f.host, opts...)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	f.h = h
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) initialize(t *testing.T, hdr map[string]string) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/jsonrpc", initializeBody, hdr)
	if rec.Code != http.StatusOK {
		t.Fatalf("initialize status %d: %s", rec.Code, rec.Body.String())
	}
	id := rec.Header().Get(mcpSessionIDHeader)
	if id == "" {
		t.Fatal("initialize did not return a session id")
	}
	if pv := rec.Header().Get(mcpProtocolVersionHeader); pv != "2025-06-18" {
		t.Fatalf("protocol version header = %q", pv)
	}
	return id
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(nil, memoryhost.New()); err == nil {
		t.Fatal("expected error without server")
	}
	srv := mcpservice.NewServer(mcpservice.NewDispatcher(mcpservice.NewRegistry()))
	if _, err := New(srv, nil); err == nil {
		t.Fatal("expected error without host")
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var got healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != "healthy" || got.Server != "indian-stock-exchange" || got.Version != "1.0.0" {
		t.Fatalf("unexpected health %+v", got)
	}
	if f.fetcher.calls.Load() != 0 {
		t.Fatal("health must not call upstream")
	}
	if f.host.Len() != 0 {
		t.Fatal("health must not touch sessions")
	}
}

func TestInfo(t *testing.T) {
	f := newFixture(t)
	for _, path := range []string{"/info", "/"} {
		rec := f.do(t, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, rec.Code)
		}
		var got infoResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if got.Capabilities.Tools != 14 || len(got.Tools) != 14 {
			t.Fatalf("%s: tool count %d/%d", path, got.Capabilities.Tools, len(got.Tools))
		}
		if got.Description != Description || got.Tools[0].Name != "get_stock_data" {
			t.Fatalf("%s: unexpected info %+v", path, got)
		}
	}
}

func TestSessionFlow(t *testing.T) {
	f := newFixture(t)
	id := f.initialize(t, nil)
	withSession := map[string]string{mcpSessionIDHeader: id, mcpProtocolVersionHeader: "2025-06-18"}

	rec := f.do(t, http.MethodPost, "/jsonrpc", `{"jsonrpc":"2.0","method":"notifications/initialized"}`, withSession)
	if rec.Code != http.StatusAccepted || rec.Body.Len() != 0 {
		t.Fatalf("notification: status %d body %q", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/mcp", trendingBody, withSession)
	if rec.Code != http.StatusOK {
		t.Fatalf("call status %d", rec.Code)
	}
	if got := rec.Body.String(); got != trendingReply {
		t.Fatalf("got  %s\nwant %s", got, trendingReply)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type %q", ct)
	}

	rec = f.do(t, http.MethodPost, "/jsonrpc", initializeBody, withSession)
	resp := decode(t, rec.Body.Bytes())
	if resp.Error == nil || resp.Error.Code != jsonrpc.ErrorCodeInvalidRequest {
		t.Fatalf("expected re-initialize to fail, got %s", rec.Body.String())
	}
}

func TestToolsCallWithoutSession(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/jsonrpc", trendingBody, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	resp := decode(t, rec.Body.Bytes())
	if resp.Error == nil || resp.Error.Code != jsonrpc.ErrorCodeInvalidRequest {
		t.Fatalf("expected invalid request, got %s", rec.Body.String())
	}
	if f.fetcher.calls.Load() != 0 {
		t.Fatal("handler must not run before initialize")
	}
	if rec.Header().Get(mcpSessionIDHeader) != "" {
		t.Fatal("no session should be created")
	}
}

func TestBatchInitializeAndCall(t *testing.T) {
	f := newFixture(t)
	body := `[` + initializeBody + `,{"jsonrpc":"2.0","method":"notifications/initialized"},` + trendingBody + `,{"jsonrpc":"1.0","method":"ping","id":7}]`
	rec := f.do(t, http.MethodPost, "/jsonrpc", body, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var batch []jsonrpc.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &batch); err != nil {
		t.Fatalf("decode batch: %v", err)
	}
	if len(batch) != 3 {
		t.Fatalf("expected 3 responses, got %d: %s", len(batch), rec.Body.String())
	}
	if batch[0].ID.String() != "0" || batch[1].ID.String() != "1" || batch[2].ID.String() != "7" {
		t.Fatalf("ids out of order: %s", rec.Body.String())
	}
	if batch[1].Error != nil || batch[2].Error == nil || batch[2].Error.Code != jsonrpc.ErrorCodeInvalidRequest {
		t.Fatalf("unexpected batch contents: %s", rec.Body.String())
	}
	if rec.Header().Get(mcpSessionIDHeader) == "" || f.host.Len() != 1 {
		t.Fatal("batch initialize should create a session")
	}
}

func TestParseError(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/jsonrpc", `{"jsonrpc":`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
	if got := rec.Body.String(); got != `{"jsonrpc":"2.0","error":{"code":-32700,"message":"Parse error"},"id":null}` {
		t.Fatalf("unexpected body %s", got)
	}
}

func TestNotificationOnlyIsAccepted(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/jsonrpc", `[{"jsonrpc":"2.0","method":"notifications/initialized"}]`, nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestHTTPRejections(t *testing.T) {
	f := newFixture(t, WithMaxBodyBytes(256))
	id := f.initialize(t, nil)

	tests := []struct {
		name   string
		method string
		body   string
		hdr    map[string]string
		status int
	}{
		{"content type", http.MethodPost, trendingBody, map[string]string{"Content-Type": "text/plain"}, http.StatusUnsupportedMediaType},
		{"too large", http.MethodPost, `{"jsonrpc":"2.0","method":"ping","id":1,"pad":"` + strings.Repeat("x", 300) + `"}`, nil, http.StatusRequestEntityTooLarge},
		{"unknown session", http.MethodPost, `{"jsonrpc":"2.0","method":"ping","id":1}`, map[string]string{mcpSessionIDHeader: "nope"}, http.StatusNotFound},
		{"version mismatch", http.MethodPost, `{"jsonrpc":"2.0","method":"ping","id":1}`, map[string]string{mcpSessionIDHeader: id, mcpProtocolVersionHeader: "2024-11-05"}, http.StatusBadRequest},
		{"get stream", http.MethodGet, "", nil, http.StatusMethodNotAllowed},
		{"put", http.MethodPut, `{}`, nil, http.StatusMethodNotAllowed},
		{"unknown path", http.MethodGet, "", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := "/jsonrpc"
			if tt.name == "unknown path" {
				path = "/nope"
			}
			rec := f.do(t, tt.method, path, tt.body, tt.hdr)
			if rec.Code != tt.status {
				t.Fatalf("status %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	id := f.initialize(t, nil)

	if rec := f.do(t, http.MethodDelete, "/jsonrpc", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing header: status %d", rec.Code)
	}
	if rec := f.do(t, http.MethodDelete, "/jsonrpc", "", map[string]string{mcpSessionIDHeader: id}); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", rec.Code)
	}
	if rec := f.do(t, http.MethodDelete, "/jsonrpc", "", map[string]string{mcpSessionIDHeader: id}); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: status %d", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, "/jsonrpc", trendingBody, map[string]string{mcpSessionIDHeader: id}); rec.Code != http.StatusNotFound {
		t.Fatalf("post after delete: status %d", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodOptions, "/jsonrpc", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("preflight status %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" || !strings.Contains(rec.Header().Get("Access-Control-Allow-Headers"), "Mcp-Session-Id") {
		t.Fatalf("missing CORS headers: %v", rec.Header())
	}
	if rec := f.do(t, http.MethodGet, "/health", "", nil); rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("CORS header missing on regular response")
	}
}

type tokenUsers map[string]string

func (m tokenUsers) CheckAuthentication(ctx context.Context, tok string) (auth.UserInfo, error) {
	id, ok := m[tok]
	if !ok {
		return nil, auth.ErrUnauthorized
	}
	return user(id), nil
}

type user string

func (u user) UserID() string       { return string(u) }
func (u user) Claims(ref any) error { return nil }

func TestAuthentication(t *testing.T) {
	f := newFixture(t, WithAuthenticator(tokenUsers{"a-token": "alice", "b-token": "bob"}))

	rec := f.do(t, http.MethodPost, "/jsonrpc", initializeBody, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: status %d", rec.Code)
	}
	if got := rec.Header().Get(wwwAuthenticateHeader); got != `Bearer realm="ise"` {
		t.Fatalf("challenge %q", got)
	}

	rec = f.do(t, http.MethodPost, "/jsonrpc", initializeBody, map[string]string{"Authorization": "Bearer wrong"})
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Header().Get(wwwAuthenticateHeader), "invalid_token") {
		t.Fatalf("bad token: status %d challenge %q", rec.Code, rec.Header().Get(wwwAuthenticateHeader))
	}

	if rec := f.do(t, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("health must not require auth, got %d", rec.Code)
	}

	id := f.initialize(t, map[string]string{"Authorization": "Bearer a-token"})
	sess, err := f.host.GetSession(t.Context(), id)
	if err != nil || sess.UserID != "alice" {
		t.Fatalf("session owner: %+v %v", sess, err)
	}

	rec = f.do(t, http.MethodPost, "/jsonrpc", trendingBody, map[string]string{"Authorization": "Bearer b-token", mcpSessionIDHeader: id})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("another user's session: status %d", rec.Code)
	}
	rec = f.do(t, http.MethodPost, "/jsonrpc", trendingBody, map[string]string{"Authorization": "Bearer a-token", mcpSessionIDHeader: id})
	if rec.Body.String() != trendingReply {
		t.Fatalf("owner call: %s", rec.Body.String())
	}
}

func decode(t *testing.T, b []byte) *jsonrpc.Response {
	t.Helper()
	var resp jsonrpc.Response
	if err := json.Unmarshal(b, &resp); err != nil {
		t.Fatalf("decode %q: %v", b, err)
	}
	return &resp
}

func TestProtectedResourceMetadata(t *testing.T) {
	f := newFixture(t,
		WithAuthenticator(authtest.NewNoAuth("tester")),
		WithProtectedResource("https://mcp.example.com/mcp", "https://issuer.example.com"),
	)

	rec := f.do(t, http.MethodPost, "/mcp", initializeBody, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d", rec.Code)
	}
	want := `Bearer realm="ise", resource_metadata="https://mcp.example.com/.well-known/oauth-protected-resource"`
	if got := rec.Header().Get(wwwAuthenticateHeader); got != want {
		t.Fatalf("challenge %q, want %q", got, want)
	}

	rec = f.do(t, http.MethodGet, wellknown.ProtectedResourcePath, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metadata status %d", rec.Code)
	}
	var md wellknown.ProtectedResourceMetadata
	if err := json.Unmarshal(rec.Body.Bytes(), &md); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if md.Resource != "https://mcp.example.com/mcp" || len(md.AuthorizationServers) != 1 || md.ResourceName != "indian-stock-exchange" {
		t.Fatalf("unexpected metadata %+v", md)
	}

	id := f.initialize(t, map[string]string{"Authorization": "Bearer anything"})
	if sess, err := f.host.GetSession(t.Context(), id); err != nil || sess.UserID != "tester" {
		t.Fatalf("session owner: %+v %v", sess, err)
	}
}

func TestProtectedResourceRequiresAbsoluteURL(t *testing.T) {
	srv := mcpservice.NewServer(mcpservice.NewDispatcher(mcpservice.NewRegistry()))
	if _, err := New(srv, memoryhost.New(), WithProtectedResource("/mcp")); err == nil {
		t.Fatal("expected error for relative resource url")
	}
}

func TestRealm(t *testing.T) {
	f := newFixture(t, WithAuthenticator(authtest.NewNoAuth("")), WithRealm("indian-stock-exchange"))
	rec := f.do(t, http.MethodPost, "/jsonrpc", initializeBody, nil)
	if got := rec.Header().Get(wwwAuthenticateHeader); got != `Bearer realm="indian-stock-exchange"` {
		t.Fatalf("challenge %q", got)
	}
}
