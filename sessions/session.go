package sessions

import (
	"encoding/json"
	"errors"
	"time"
)

// State is the handshake state of a session.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitialized   State = "initialized"
)

// ErrAlreadyInitialized is returned when initialize is attempted twice.
var ErrAlreadyInitialized = errors.New("session already initialized")

// ClientInfo records the client identity supplied at initialization.
type ClientInfo struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

// Session is the state carried by one client connection.
type Session struct {
	SessionID          string          `json:"session_id,omitempty"`
	UserID             string          `json:"user_id,omitempty"`
	State              State           `json:"state"`
	ProtocolVersion    string          `json:"protocol_version,omitempty"`
	ClientCapabilities json.RawMessage `json:"client_capabilities,omitempty"`
	Client             ClientInfo      `json:"client,omitzero"`
	CreatedAt          time.Time       `json:"created_at"`
}

// New returns an uninitialized session with no id. Transports assign an id
// when they decide to persist it.
func New() *Session {
	return &Session{State: StateUninitialized, CreatedAt: time.Now().UTC()}
}

// Initialized reports whether the handshake completed.
func (s *Session) Initialized() bool {
	return s.State == StateInitialized
}

// Initialize records the negotiated protocol version and the client's
// declared capabilities, moving the session to StateInitialized.
func (s *Session) Initialize(protocolVersion string, capabilities json.RawMessage, client ClientInfo) error {
	if s.Initialized() {
		return ErrAlreadyInitialized
	}
	s.ProtocolVersion = protocolVersion
	if len(capabilities) > 0 {
		s.ClientCapabilities = append(json.RawMessage(nil), capabilities...)
	}
	s.Client = client
	s.State = StateInitialized
	return nil
}
