package indianapi

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey is returned by New when no credential is configured.
	ErrMissingAPIKey = errors.New("indianapi: api key is required")
	// ErrUnavailable wraps transport failures: DNS, connect, timeouts.
	ErrUnavailable = errors.New("upstream unavailable")
	// ErrInvalidResponse wraps bodies that are not JSON.
	ErrInvalidResponse = errors.New("upstream returned invalid JSON")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}
