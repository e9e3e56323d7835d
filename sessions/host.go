package sessions

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrSessionNotFound is returned for unknown or expired session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExists is returned when creating a session whose id is taken.
	ErrSessionExists = errors.New("session already exists")
)

// SessionHost persists initialized sessions between requests.
//
// TTL is a sliding window: GetSession extends the expiry of the session it
// returns by the TTL given at creation.
type SessionHost interface {
	CreateSession(ctx context.Context, sess *Session, ttl time.Duration) error
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
}
