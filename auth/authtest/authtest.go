// Package authtest provides Authenticators for tests.
package authtest

import (
	"context"

	"github.com/ggoodman/ise-mcp-server-go/auth"
)

// NoAuth accepts any non-empty token as UserID.
type NoAuth struct {
	UserID string
}

// NewNoAuth creates a new NoAuth authenticator with the specified user ID
// If userID is empty, it defaults to "test-user"
func NewNoAuth(userID string) *NoAuth {
	if userID == "" {
		userID = "test-user"
	}
	return &NoAuth{UserID: userID}
}

func (n *NoAuth) CheckAuthentication(ctx context.Context, tok string) (auth.UserInfo, error) {
	if tok == "" {
		return nil, auth.ErrUnauthorized
	}
	return user(n.UserID), nil
}

type user string

func (u user) UserID() string       { return string(u) }
func (u user) Claims(ref any) error { return nil }
