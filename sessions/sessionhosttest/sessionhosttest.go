// Package sessionhosttest is a conformance suite shared by every
// sessions.SessionHost implementation.
package sessionhosttest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ggoodman/ise-mcp-server-go/sessions"
)

// HostFactory creates a new SessionHost instance for testing.
type HostFactory func(t *testing.T) sessions.SessionHost

// RunSessionHostTests runs the complete SessionHost test suite against the provided factory.
func RunSessionHostTests(t *testing.T, factory HostFactory) {
	t.Run("CreateAndGet_RoundTrip", func(t *testing.T) { testCreateAndGet(t, factory) })
	t.Run("Create_RejectsDuplicateID", func(t *testing.T) { testCreateDuplicate(t, factory) })
	t.Run("Get_UnknownID", func(t *testing.T) { testGetUnknown(t, factory) })
	t.Run("Delete_RemovesSession", func(t *testing.T) { testDelete(t, factory) })
	t.Run("TTL_ExpiresIdleSession", func(t *testing.T) { testTTLExpiry(t, factory) })
	t.Run("TTL_AccessSlidesWindow", func(t *testing.T) { testTTLSliding(t, factory) })
	t.Run("Get_ReturnsIndependentCopies", func(t *testing.T) { testIndependentCopies(t, factory) })
}

func newInitialized(t *testing.T) *sessions.Session {
	t.Helper()
	s := sessions.New()
	s.SessionID = uuid.NewString()
	s.UserID = "user-1"
	if err := s.Initialize("2025-06-18", json.RawMessage(`{"roots":{"listChanged":true}}`), sessions.ClientInfo{Name: "suite", Version: "0.0.1"}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return s
}

func testCreateAndGet(t *testing.T, factory HostFactory) {
	h := factory(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s := newInitialized(t)
	if err := h.CreateSession(ctx, s, time.Minute); err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := h.GetSession(ctx, s.SessionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SessionID != s.SessionID || got.UserID != "user-1" || !got.Initialized() {
		t.Fatalf("unexpected session: %+v", got)
	}
	if got.ProtocolVersion != "2025-06-18" || got.Client.Name != "suite" {
		t.Fatalf("handshake data lost: %+v", got)
	}
	if string(got.ClientCapabilities) != `{"roots":{"listChanged":true}}` {
		t.Fatalf("capabilities lost: %s", got.ClientCapabilities)
	}
}

func testCreateDuplicate(t *testing.T, factory HostFactory) {
	h := factory(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s := newInitialized(t)
	if err := h.CreateSession(ctx, s, time.Minute); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := h.CreateSession(ctx, s, time.Minute); !errors.Is(err, sessions.ErrSessionExists) {
		t.Fatalf("want ErrSessionExists, got %v", err)
	}
}

func testGetUnknown(t *testing.T, factory HostFactory) {
	h := factory(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := h.GetSession(ctx, uuid.NewString()); !errors.Is(err, sessions.ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound, got %v", err)
	}
}

func testDelete(t *testing.T, factory HostFactory) {
	h := factory(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s := newInitialized(t)
	if err := h.CreateSession(ctx, s, time.Minute); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := h.DeleteSession(ctx, s.SessionID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := h.GetSession(ctx, s.SessionID); !errors.Is(err, sessions.ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound after delete, got %v", err)
	}
	if err := h.DeleteSession(ctx, s.SessionID); !errors.Is(err, sessions.ErrSessionNotFound) {
		t.Fatalf("second delete: want ErrSessionNotFound, got %v", err)
	}
}

func testTTLExpiry(t *testing.T, factory HostFactory) {
	h := factory(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s := newInitialized(t)
	if err := h.CreateSession(ctx, s, 200*time.Millisecond); err != nil {
		t.Fatalf("create: %v", err)
	}
	time.Sleep(500 * time.Millisecond)
	if _, err := h.GetSession(ctx, s.SessionID); !errors.Is(err, sessions.ErrSessionNotFound) {
		t.Fatalf("want ErrSessionNotFound after ttl, got %v", err)
	}
}

func testTTLSliding(t *testing.T, factory HostFactory) {
	h := factory(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s := newInitialized(t)
	if err := h.CreateSession(ctx, s, 600*time.Millisecond); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Three accesses spaced under the TTL keep the session alive well past
	// its original deadline.
	for i := 0; i < 3; i++ {
		time.Sleep(300 * time.Millisecond)
		if _, err := h.GetSession(ctx, s.SessionID); err != nil {
			t.Fatalf("access %d: %v", i, err)
		}
	}
}

func testIndependentCopies(t *testing.T, factory HostFactory) {
	h := factory(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s := newInitialized(t)
	if err := h.CreateSession(ctx, s, time.Minute); err != nil {
		t.Fatalf("create: %v", err)
	}
	s.ProtocolVersion = "mutated"

	got, err := h.GetSession(ctx, s.SessionID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ProtocolVersion != "2025-06-18" {
		t.Fatalf("host shares state with caller: %q", got.ProtocolVersion)
	}
}
