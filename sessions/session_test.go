package sessions

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestSessionHandshake(t *testing.T) {
	s := New()
	if s.Initialized() {
		t.Fatalf("new session must start uninitialized")
	}

	caps := json.RawMessage(`{"roots":{}}`)
	if err := s.Initialize("2025-06-18", caps, ClientInfo{Name: "cli", Version: "1"}); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if !s.Initialized() || s.ProtocolVersion != "2025-06-18" || s.Client.Name != "cli" {
		t.Fatalf("unexpected session after initialize: %+v", s)
	}

	// The stored capabilities must not alias the caller's buffer.
	caps[2] = 'X'
	if string(s.ClientCapabilities) != `{"roots":{}}` {
		t.Fatalf("capabilities aliased caller buffer: %s", s.ClientCapabilities)
	}

	if err := s.Initialize("2024-11-05", nil, ClientInfo{}); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("want ErrAlreadyInitialized, got %v", err)
	}
	if s.ProtocolVersion != "2025-06-18" {
		t.Fatalf("second initialize must not change state")
	}
}
