package mcpservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ggoodman/ise-mcp-server-go/internal/jsonrpc"
	"github.com/ggoodman/ise-mcp-server-go/internal/logctx"
	"github.com/ggoodman/ise-mcp-server-go/mcp"
	"github.com/ggoodman/ise-mcp-server-go/sessions"
)

// Option configures a Server.
type Option func(*Server)

// WithServerInfo sets the name and version reported by initialize and the
// status endpoints.
func WithServerInfo(info mcp.ImplementationInfo) Option {
	return func(s *Server) { s.info = info }
}

// WithInstructions sets human-readable instructions returned during initialize.
func WithInstructions(instr string) Option {
	return func(s *Server) { s.instructions = instr }
}

// WithLogger sets the logger. If not provided, logs are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithToolTimeout bounds how long a transport waits for a tool handler. On
// expiry the call reports a timeout; the handler is not assumed to stop.
// Zero disables the deadline.
func WithToolTimeout(d time.Duration) Option {
	return func(s *Server) { s.toolTimeout = d }
}

// Server routes JSON-RPC requests for one session at a time. It is safe for
// concurrent use across sessions; a single session must not be driven from
// two goroutines at once.
type Server struct {
	dispatcher   *Dispatcher
	info         mcp.ImplementationInfo
	instructions string
	toolTimeout  time.Duration
	log          *slog.Logger
}

func NewServer(d *Dispatcher, opts ...Option) *Server {
	s := &Server{
		dispatcher: d,
		info:       mcp.ImplementationInfo{Name: "mcp-server", Version: "0.0.0"},
		log:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ServerInfo returns the configured implementation info.
func (s *Server) ServerInfo() mcp.ImplementationInfo { return s.info }

// Tools returns the tool descriptors in registration order.
func (s *Server) Tools() []mcp.Tool {
	defs := s.dispatcher.Registry().List()
	out := make([]mcp.Tool, 0, len(defs))
	for _, def := range defs {
		out = append(out, mcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema.JSONSchema(),
		})
	}
	return out
}

// HandlePayload processes one transport frame (a single message or a batch)
// and returns the encoded reply, or nil when nothing must be sent back. When
// the payload is not valid JSON the reply carries a parse error response and
// the returned error wraps jsonrpc.ErrParse.
func (s *Server) HandlePayload(ctx context.Context, sess *sessions.Session, payload []byte) ([]byte, error) {
	p, err := jsonrpc.ParsePayload(payload)
	if err != nil {
		s.log.InfoContext(ctx, "rpc.parse.fail", slog.String("err", err.Error()))
		reply, encErr := json.Marshal(jsonrpc.NewErrorResponse(nil, jsonrpc.ErrorCodeParseError, "Parse error", nil))
		if encErr != nil {
			return nil, encErr
		}
		return reply, err
	}

	if p.Batch && len(p.Messages) == 0 {
		return json.Marshal(jsonrpc.NewErrorResponse(nil, jsonrpc.ErrorCodeInvalidRequest, "Invalid Request: empty batch", nil))
	}

	responses := make([]*jsonrpc.Response, 0, len(p.Messages))
	for _, msg := range p.Messages {
		req, id, rpcErr := jsonrpc.ParseRequest(msg)
		if rpcErr != nil {
			s.log.InfoContext(ctx, "rpc.request.invalid", slog.String("err", rpcErr.Message))
			responses = append(responses, &jsonrpc.Response{JSONRPCVersion: jsonrpc.ProtocolVersion, Error: rpcErr, ID: id})
			continue
		}
		if resp := s.HandleRequest(ctx, sess, req); resp != nil {
			responses = append(responses, resp)
		}
	}

	return jsonrpc.EncodeResponses(p.Batch, responses)
}

// HandleRequest processes a single parsed request against sess. It returns
// nil for notifications.
func (s *Server) HandleRequest(ctx context.Context, sess *sessions.Session, req *jsonrpc.Request) *jsonrpc.Response {
	start := time.Now()
	ctx = logctx.WithRPCMessage(ctx, &logctx.RPCMessage{
		Method: req.Method,
		ID:     req.ID.String(),
		Type:   req.Type(),
	})

	if req.IsNotification() {
		switch mcp.Method(req.Method) {
		case mcp.InitializedNotificationMethod:
			s.log.DebugContext(ctx, "rpc.notification.initialized", slog.Bool("session_initialized", sess.Initialized()))
		default:
			s.log.DebugContext(ctx, "rpc.notification.ignored")
		}
		return nil
	}

	resp := s.route(ctx, sess, req)
	if resp.Error != nil {
		s.log.InfoContext(ctx, "rpc.request.fail",
			slog.Int("code", int(resp.Error.Code)),
			slog.String("err", resp.Error.Message),
			slog.Duration("dur", time.Since(start)),
		)
	} else {
		s.log.InfoContext(ctx, "rpc.request.ok", slog.Duration("dur", time.Since(start)))
	}
	return resp
}

func (s *Server) route(ctx context.Context, sess *sessions.Session, req *jsonrpc.Request) *jsonrpc.Response {
	switch mcp.Method(req.Method) {
	case mcp.InitializeMethod:
		return s.handleInitialize(ctx, sess, req)
	case mcp.PingMethod:
		return s.result(req.ID, mcp.EmptyResult{})
	case mcp.ToolsListMethod:
		if !sess.Initialized() {
			return notInitialized(req.ID)
		}
		return s.result(req.ID, mcp.ListToolsResult{Tools: s.Tools()})
	case mcp.ToolsCallMethod:
		if !sess.Initialized() {
			return notInitialized(req.ID)
		}
		return s.handleToolCall(ctx, req)
	default:
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeMethodNotFound, "Method not found: "+req.Method, nil)
	}
}

func (s *Server) handleInitialize(ctx context.Context, sess *sessions.Session, req *jsonrpc.Request) *jsonrpc.Response {
	var params mcp.InitializeRequest
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "Invalid params: "+err.Error(), nil)
		}
	}

	negotiated := mcp.LatestProtocolVersion
	if mcp.IsSupportedProtocolVersion(params.ProtocolVersion) {
		negotiated = params.ProtocolVersion
	} else {
		s.log.InfoContext(ctx, "session.version.mismatch",
			slog.String("client_version", params.ProtocolVersion),
			slog.String("server_version", negotiated),
		)
	}

	client := sessions.ClientInfo{Name: params.ClientInfo.Name, Version: params.ClientInfo.Version}
	if err := sess.Initialize(negotiated, params.Capabilities, client); err != nil {
		if errors.Is(err, sessions.ErrAlreadyInitialized) {
			return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidRequest, "Invalid Request: session already initialized", nil)
		}
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInternalError, "Internal error", nil)
	}

	s.log.InfoContext(ctx, "session.initialize.ok",
		slog.String("protocol_version", negotiated),
		slog.String("client_name", client.Name),
	)

	return s.result(req.ID, mcp.InitializeResult{
		ProtocolVersion: negotiated,
		Capabilities:    mcp.ServerCapabilities{Tools: &mcp.ToolsCapability{ListChanged: false}},
		ServerInfo:      s.info,
		Instructions:    s.instructions,
	})
}

func (s *Server) handleToolCall(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	var params mcp.CallToolRequestReceived
	if len(req.Params) == 0 || req.Params[0] != '{' {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "Invalid params: expected an object with name and arguments", nil)
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "Invalid params: "+err.Error(), nil)
	}
	if params.Name == "" {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "Invalid params: missing tool name", nil)
	}

	args, err := decodeArguments(params.Arguments)
	if err != nil {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrorCodeInvalidParams, "Invalid params: "+err.Error(), nil)
	}

	res := s.callTool(ctx, params.Name, args)
	if !res.OK {
		if res.Error.IsProtocolError() {
			return jsonrpc.NewErrorResponse(req.ID, res.Error.Code, res.Error.Message, res.Error.Data)
		}
		return s.result(req.ID, mcp.CallToolResult{
			Content: []mcp.ContentBlock{mcp.TextContent(fmt.Sprintf("Error executing %s: %s", params.Name, res.Error.Message))},
			IsError: true,
		})
	}

	text, err := serializePayload(res.Payload)
	if err != nil {
		s.log.ErrorContext(ctx, "tool.result.encode.fail", slog.String("err", err.Error()))
		return s.result(req.ID, mcp.CallToolResult{
			Content: []mcp.ContentBlock{mcp.TextContent(fmt.Sprintf("Error executing %s: result could not be encoded", params.Name))},
			IsError: true,
		})
	}
	return s.result(req.ID, mcp.CallToolResult{
		Content: []mcp.ContentBlock{mcp.TextContent(text)},
		IsError: false,
	})
}

// callTool runs the dispatcher under the configured deadline.
func (s *Server) callTool(ctx context.Context, name string, args map[string]any) ToolCallResult {
	if s.toolTimeout <= 0 {
		return s.dispatcher.Dispatch(ctx, name, args)
	}

	ctx, cancel := context.WithTimeout(ctx, s.toolTimeout)
	defer cancel()

	done := make(chan ToolCallResult, 1)
	go func() { done <- s.dispatcher.Dispatch(ctx, name, args) }()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		s.log.WarnContext(ctx, "tool.call.timeout", slog.String("tool", name), slog.Duration("timeout", s.toolTimeout))
		return ToolCallResult{Error: &ErrorDetail{
			Code:    CodeToolTimeout,
			Message: fmt.Sprintf("tool call timed out after %s", s.toolTimeout),
		}}
	}
}

func (s *Server) result(id *jsonrpc.RequestID, v any) *jsonrpc.Response {
	resp, err := jsonrpc.NewResultResponse(id, v)
	if err != nil {
		s.log.Error("rpc.result.encode.fail", slog.String("err", err.Error()))
		return jsonrpc.NewErrorResponse(id, jsonrpc.ErrorCodeInternalError, "Internal error", nil)
	}
	return resp
}

func notInitialized(id *jsonrpc.RequestID) *jsonrpc.Response {
	return jsonrpc.NewErrorResponse(id, jsonrpc.ErrorCodeInvalidRequest, "Invalid Request: session not initialized", nil)
}

func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return map[string]any{}, nil
	}
	if raw[0] != '{' {
		return nil, errors.New("arguments must be an object")
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("arguments: %w", err)
	}
	return args, nil
}

// serializePayload renders a handler result as the text of a content block.
// Strings are passed through; anything else is compact JSON without HTML
// escaping.
func serializePayload(payload any) (string, error) {
	if s, ok := payload.(string); ok {
		return s, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
