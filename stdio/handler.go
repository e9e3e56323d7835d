package stdio

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/ggoodman/ise-mcp-server-go/internal/jsonrpc"
	"github.com/ggoodman/ise-mcp-server-go/internal/logctx"
	"github.com/ggoodman/ise-mcp-server-go/mcpservice"
	"github.com/ggoodman/ise-mcp-server-go/sessions"
	"github.com/google/uuid"
)

// Handler is a single-connection stdio transport that reads JSON-RPC frames
// from an io.Reader and writes replies to an io.Writer. By default it uses
// os.Stdin and os.Stdout.
//
// The handler owns framing only; every message is handed to the
// mcpservice.Server together with the handler's single session.
type Handler struct {
	srv          *mcpservice.Server
	r            io.Reader
	w            io.Writer
	l            *slog.Logger
	userProvider UserProvider
}

// NewHandler constructs a stdio Handler with defaults and applies options.
func NewHandler(srv *mcpservice.Server, opts ...Option) *Handler {
	h := &Handler{
		srv:          srv,
		r:            os.Stdin,
		w:            os.Stdout,
		l:            slog.New(slog.DiscardHandler),
		userProvider: OSUserProvider{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type line struct {
	data []byte
	err  error
}

// Serve runs the read/dispatch/write loop until the input reaches EOF (nil is
// returned) or ctx is canceled (ctx.Err() is returned once the message in
// progress has been answered). It is safe to call at most once per Handler.
//
// Each non-blank line is one frame: a single message or a batch. The next
// line is not dispatched until the reply to the current one is written.
func (h *Handler) Serve(ctx context.Context) error {
	sess := sessions.New()
	sess.SessionID = uuid.NewString()
	if uid, err := h.userProvider.CurrentUserID(); err != nil {
		h.l.WarnContext(ctx, "stdio.user.fail", slog.String("err", err.Error()))
	} else {
		sess.UserID = uid
	}

	ctx = logctx.WithSessionData(ctx, &logctx.SessionData{
		SessionID: sess.SessionID,
		UserID:    sess.UserID,
		State:     sess.State,
	})
	h.l.InfoContext(ctx, "stdio.serve.start")

	lines := make(chan line)
	next := make(chan struct{})
	done := make(chan struct{})
	defer close(done)
	go h.readLines(lines, next, done)

	for {
		if err := ctx.Err(); err != nil {
			h.l.InfoContext(ctx, "stdio.serve.canceled")
			return err
		}

		var ln line
		select {
		case <-ctx.Done():
			h.l.InfoContext(ctx, "stdio.serve.canceled")
			return ctx.Err()
		case ln = <-lines:
		}

		if data := bytes.TrimSpace(ln.data); len(data) > 0 {
			if err := h.handleLine(ctx, sess, data); err != nil {
				return err
			}
		}

		if ln.err != nil {
			if errors.Is(ln.err, io.EOF) {
				h.l.InfoContext(ctx, "stdio.serve.eof")
				return nil
			}
			h.l.ErrorContext(ctx, "stdio.read.fail", slog.String("err", ln.err.Error()))
			return fmt.Errorf("stdio: read: %w", ln.err)
		}

		select {
		case next <- struct{}{}:
		case <-ctx.Done():
		}
	}
}

// readLines reads one line at a time and waits for the loop to ask for the
// next one, so reading never runs ahead of dispatch.
func (h *Handler) readLines(out chan<- line, next, done <-chan struct{}) {
	br := bufio.NewReader(h.r)
	for {
		data, err := br.ReadBytes('\n')
		select {
		case out <- line{data: data, err: err}:
		case <-done:
			return
		}
		if err != nil {
			return
		}
		select {
		case <-next:
		case <-done:
			return
		}
	}
}

func (h *Handler) handleLine(ctx context.Context, sess *sessions.Session, data []byte) error {
	start := time.Now()
	reply, err := h.srv.HandlePayload(ctx, sess, data)
	if err != nil && !errors.Is(err, jsonrpc.ErrParse) {
		h.l.ErrorContext(ctx, "stdio.handle.fail", slog.String("err", err.Error()))
		return fmt.Errorf("stdio: handle message: %w", err)
	}
	if reply == nil {
		return nil
	}
	if _, err := h.w.Write(append(reply, '\n')); err != nil {
		h.l.ErrorContext(ctx, "stdio.write.fail", slog.String("err", err.Error()))
		return fmt.Errorf("stdio: write: %w", err)
	}
	h.l.DebugContext(ctx, "stdio.message.ok", slog.Int("bytes", len(reply)), slog.Duration("dur", time.Since(start)))
	return nil
}
