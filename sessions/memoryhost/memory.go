package memoryhost

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ggoodman/ise-mcp-server-go/sessions"
)

// Host is an in-memory implementation of sessions.SessionHost.
type Host struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	now      func() time.Time
}

type entry struct {
	// data is the JSON form so callers never share a *Session with the host.
	data      []byte
	ttl       time.Duration
	expiresAt time.Time
}

// Option configures a Host.
type Option func(*Host)

// WithClock overrides the time source, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(h *Host) {
		if now != nil {
			h.now = now
		}
	}
}

func New(opts ...Option) *Host {
	h := &Host{
		sessions: make(map[string]*entry),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Host) CreateSession(ctx context.Context, sess *sessions.Session, ttl time.Duration) error {
	if sess == nil || sess.SessionID == "" {
		return fmt.Errorf("memoryhost: session id is required")
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("memoryhost: encode session: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	if e, ok := h.sessions[sess.SessionID]; ok && !e.expired(now) {
		return sessions.ErrSessionExists
	}
	h.sessions[sess.SessionID] = &entry{data: data, ttl: ttl, expiresAt: deadline(now, ttl)}
	return nil
}

func (h *Host) GetSession(ctx context.Context, sessionID string) (*sessions.Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	e, ok := h.sessions[sessionID]
	if !ok {
		return nil, sessions.ErrSessionNotFound
	}
	if e.expired(now) {
		delete(h.sessions, sessionID)
		return nil, sessions.ErrSessionNotFound
	}
	e.expiresAt = deadline(now, e.ttl)

	var sess sessions.Session
	if err := json.Unmarshal(e.data, &sess); err != nil {
		return nil, fmt.Errorf("memoryhost: decode session: %w", err)
	}
	return &sess, nil
}

func (h *Host) DeleteSession(ctx context.Context, sessionID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	e, ok := h.sessions[sessionID]
	if !ok {
		return sessions.ErrSessionNotFound
	}
	delete(h.sessions, sessionID)
	if e.expired(h.now()) {
		return sessions.ErrSessionNotFound
	}
	return nil
}

// Sweep drops expired sessions and reports how many were removed.
func (h *Host) Sweep() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	n := 0
	for id, e := range h.sessions {
		if e.expired(now) {
			delete(h.sessions, id)
			n++
		}
	}
	return n
}

// Len reports the number of stored sessions, expired or not.
func (h *Host) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

func deadline(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

var _ sessions.SessionHost = (*Host)(nil)
