package auth

import (
	"context"
	"crypto/subtle"
	"errors"
)

// StaticUserID is the principal reported for a matching shared token.
const StaticUserID = "static-token"

type staticToken struct {
	token []byte
}

// NewStaticToken returns an Authenticator accepting exactly token.
func NewStaticToken(token string) (Authenticator, error) {
	if token == "" {
		return nil, errors.New("auth: static token must not be empty")
	}
	return &staticToken{token: []byte(token)}, nil
}

func (s *staticToken) CheckAuthentication(ctx context.Context, tok string) (UserInfo, error) {
	if tok == "" || subtle.ConstantTimeCompare([]byte(tok), s.token) != 1 {
		return nil, ErrUnauthorized
	}
	return staticUser{}, nil
}

type staticUser struct{}

func (staticUser) UserID() string       { return StaticUserID }
func (staticUser) Claims(ref any) error { return nil }
