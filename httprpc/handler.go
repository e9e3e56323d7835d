package httprpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/elnormous/contenttype"
	"github.com/ggoodman/ise-mcp-server-go/auth"
	"github.com/ggoodman/ise-mcp-server-go/internal/jsonrpc"
	"github.com/ggoodman/ise-mcp-server-go/internal/logctx"
	"github.com/ggoodman/ise-mcp-server-go/internal/wellknown"
	"github.com/ggoodman/ise-mcp-server-go/mcpservice"
	"github.com/ggoodman/ise-mcp-server-go/sessions"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

var jsonMediaType = contenttype.NewMediaType("application/json")

const (
	mcpSessionIDHeader       = "Mcp-Session-Id"
	mcpProtocolVersionHeader = "Mcp-Protocol-Version"
	wwwAuthenticateHeader    = "WWW-Authenticate"
)

// RPCPaths are the routes that accept JSON-RPC payloads.
var RPCPaths = []string{"/jsonrpc", "/mcp"}

// writeJSONError emits a minimal JSON body for HTTP-layer rejections that
// happen before any JSON-RPC message is processed. Shape:
// {"error":{"code":<httpStatus>,"message":"<reason>"}}
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": status, "message": msg}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Handler is the HTTP transport. It is an http.Handler.
type Handler struct {
	srv        *mcpservice.Server
	host       sessions.SessionHost
	authn      auth.Authenticator
	log        *slog.Logger
	realm      string
	sessionTTL time.Duration
	maxBody    int64
	prm        *wellknown.ProtectedResourceMetadata
	prmURL     string
	router     chi.Router
}

// New builds the router. srv and host are required.
func New(srv *mcpservice.Server, host sessions.SessionHost, opts ...Option) (*Handler, error) {
	if srv == nil {
		return nil, errors.New("httprpc: server is required")
	}
	if host == nil {
		return nil, errors.New("httprpc: SessionHost is required")
	}
	h := &Handler{
		srv:        srv,
		host:       host,
		log:        slog.New(slog.DiscardHandler),
		realm:      "ise",
		sessionTTL: DefaultSessionTTL,
		maxBody:    DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	if _, ok := h.log.Handler().(logctx.Handler); !ok {
		h.log = slog.New(logctx.Handler{Handler: h.log.Handler()})
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestData)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/health", h.handleHealth)
	r.Get("/info", h.handleInfo)
	r.Get("/", h.handleInfo)

	if h.prm != nil {
		prmURL, err := wellknown.MetadataURL(h.prm.Resource)
		if err != nil {
			return nil, fmt.Errorf("httprpc: %w", err)
		}
		h.prmURL = prmURL
		h.prm.ResourceName = srv.ServerInfo().Name
		r.Get(wellknown.ProtectedResourcePath, h.handleProtectedResource)
	}

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)
		for _, p := range RPCPaths {
			r.Post(p, h.handlePost)
			r.Delete(p, h.handleDelete)
			r.Get(p, h.handleGet)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	h.router = r
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) requestData(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := middleware.GetReqID(r.Context())
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := logctx.WithRequestData(r.Context(), &logctx.RequestData{
			RequestID:  reqID,
			Method:     r.Method,
			RemoteAddr: r.RemoteAddr,
			Path:       r.URL.Path,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type userKey struct{}

func userFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}

// authenticate enforces the configured Authenticator and records the
// principal on the request context.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.authn == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		ui, err := auth.Authenticate(r, h.authn)
		if err != nil {
			if !errors.Is(err, auth.ErrUnauthorized) && !errors.Is(err, auth.ErrInsufficientScope) && !errors.Is(err, auth.ErrMalformedAuthorization) {
				h.log.ErrorContext(ctx, "auth.check.err", slog.String("err", err.Error()))
				writeJSONError(w, http.StatusInternalServerError, "authentication failed")
				return
			}
			h.log.InfoContext(ctx, "auth.check.fail", slog.String("err", err.Error()))
			ch := auth.ChallengeFor(h.realm, err)
			challenge := ch.WWWAuthenticate
			if h.prmURL != "" {
				challenge += fmt.Sprintf(`, resource_metadata=%q`, h.prmURL)
			}
			w.Header().Add(wwwAuthenticateHeader, challenge)
			writeJSONError(w, ch.Status, http.StatusText(ch.Status))
			return
		}
		h.log.DebugContext(ctx, "auth.check.ok")
		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, userKey{}, ui.UserID())))
	})
}

// handlePost runs one JSON-RPC payload against the request's session.
func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	h.log.InfoContext(ctx, "http.post.start")

	ctype, err := contenttype.GetMediaType(r)
	if err != nil || !ctype.Matches(jsonMediaType) {
		writeJSONError(w, http.StatusUnsupportedMediaType, "content-type must be application/json")
		h.log.WarnContext(ctx, "content_type.unsupported")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", mbe.Limit))
			h.log.WarnContext(ctx, "http.body.too_large", slog.Int64("limit", mbe.Limit))
			return
		}
		writeJSONError(w, http.StatusBadRequest, "failed to read request body")
		h.log.WarnContext(ctx, "http.body.read.fail", slog.String("err", err.Error()))
		return
	}

	userID := userFromContext(ctx)
	sessID := r.Header.Get(mcpSessionIDHeader)

	var sess *sessions.Session
	if sessID != "" {
		sess, err = h.loadSession(ctx, sessID, userID)
		if err != nil {
			h.writeSessionError(ctx, w, err)
			return
		}
		ctx = withSession(ctx, sess)
		h.log.DebugContext(ctx, "session.load.ok")

		clientPV := r.Header.Get(mcpProtocolVersionHeader)
		if clientPV != "" && sess.ProtocolVersion != "" && clientPV != sess.ProtocolVersion {
			writeJSONError(w, http.StatusBadRequest, "protocol version mismatch")
			h.log.WarnContext(ctx, "protocol.version.mismatch", slog.String("client_version", clientPV))
			return
		}
	} else {
		sess = sessions.New()
		sess.UserID = userID
	}
	fresh := !sess.Initialized()

	reply, err := h.srv.HandlePayload(ctx, sess, body)
	if err != nil {
		if errors.Is(err, jsonrpc.ErrParse) {
			h.writeReply(w, http.StatusBadRequest, reply)
			h.log.InfoContext(ctx, "http.post.parse_error", slog.Duration("dur", time.Since(start)))
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "failed to process request")
		h.log.ErrorContext(ctx, "http.post.fail", slog.String("err", err.Error()))
		return
	}

	if fresh && sess.Initialized() {
		sess.SessionID = uuid.NewString()
		if err := h.host.CreateSession(ctx, sess, h.sessionTTL); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to create session")
			h.log.ErrorContext(ctx, "session.create.fail", slog.String("err", err.Error()))
			return
		}
		ctx = withSession(ctx, sess)
		h.log.InfoContext(ctx, "session.create.ok")
		w.Header().Set(mcpSessionIDHeader, sess.SessionID)
	}
	if sess.ProtocolVersion != "" {
		w.Header().Set(mcpProtocolVersionHeader, sess.ProtocolVersion)
	}

	if reply == nil {
		w.WriteHeader(http.StatusAccepted)
		h.log.InfoContext(ctx, "http.post.accepted", slog.Duration("dur", time.Since(start)))
		return
	}
	h.writeReply(w, http.StatusOK, reply)
	h.log.InfoContext(ctx, "http.post.ok", slog.Duration("dur", time.Since(start)))
}

// handleDelete terminates the session named by Mcp-Session-Id.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	h.log.InfoContext(ctx, "http.delete.start")

	sessID := r.Header.Get(mcpSessionIDHeader)
	if sessID == "" {
		writeJSONError(w, http.StatusBadRequest, "missing Mcp-Session-Id header")
		h.log.WarnContext(ctx, "delete.missing_session_id")
		return
	}

	sess, err := h.loadSession(ctx, sessID, userFromContext(ctx))
	if err != nil {
		h.writeSessionError(ctx, w, err)
		return
	}
	ctx = withSession(ctx, sess)

	if err := h.host.DeleteSession(ctx, sessID); err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			h.log.InfoContext(ctx, "session.delete.miss")
			writeJSONError(w, http.StatusNotFound, "session not found")
			return
		}
		h.log.ErrorContext(ctx, "session.delete.fail", slog.String("err", err.Error()))
		writeJSONError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
	h.log.InfoContext(ctx, "http.delete.ok", slog.Duration("dur", time.Since(start)))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", "POST, DELETE, OPTIONS")
	writeJSONError(w, http.StatusMethodNotAllowed, "server does not offer an event stream")
}

// loadSession fetches a stored session. Sessions belonging to a different
// principal are reported as missing.
func (h *Handler) loadSession(ctx context.Context, id, userID string) (*sessions.Session, error) {
	sess, err := h.host.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, fmt.Errorf("%w: %q", sessions.ErrSessionNotFound, id)
	}
	return sess, nil
}

func (h *Handler) writeSessionError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, sessions.ErrSessionNotFound) {
		writeJSONError(w, http.StatusNotFound, "session not found")
		h.log.InfoContext(ctx, "session.load.miss")
		return
	}
	writeJSONError(w, http.StatusInternalServerError, "failed to load session")
	h.log.ErrorContext(ctx, "session.load.fail", slog.String("err", err.Error()))
}

func (h *Handler) writeReply(w http.ResponseWriter, status int, reply []byte) {
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(status)
	_, _ = w.Write(reply)
}

func withSession(ctx context.Context, sess *sessions.Session) context.Context {
	return logctx.WithSessionData(ctx, &logctx.SessionData{
		SessionID:       sess.SessionID,
		UserID:          sess.UserID,
		ProtocolVersion: sess.ProtocolVersion,
		State:           sess.State,
	})
}
