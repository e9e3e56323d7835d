package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrMalformedAuthorization is returned by BearerToken for an Authorization
// header that is present but not a bearer credential.
var ErrMalformedAuthorization = errors.New("malformed authorization header")

// Challenge describes an HTTP challenge (status + WWW-Authenticate header).
type Challenge struct {
	Status          int
	WWWAuthenticate string
}

// BearerToken extracts the bearer token from r. An absent header yields an
// empty token and no error.
func BearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", nil
	}
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tok) == "" {
		return "", ErrMalformedAuthorization
	}
	return strings.TrimSpace(tok), nil
}

// ChallengeFor maps an authentication failure to the response the client
// should receive.
func ChallengeFor(realm string, err error) Challenge {
	switch {
	case errors.Is(err, ErrMalformedAuthorization):
		return Challenge{
			Status:          http.StatusBadRequest,
			WWWAuthenticate: fmt.Sprintf(`Bearer realm=%q, error="invalid_request", error_description="Invalid Authorization header"`, realm),
		}
	case errors.Is(err, ErrInsufficientScope):
		return Challenge{
			Status:          http.StatusForbidden,
			WWWAuthenticate: fmt.Sprintf(`Bearer realm=%q, error="insufficient_scope"`, realm),
		}
	case errors.Is(err, errMissingToken):
		return Challenge{
			Status:          http.StatusUnauthorized,
			WWWAuthenticate: fmt.Sprintf(`Bearer realm=%q`, realm),
		}
	default:
		return Challenge{
			Status:          http.StatusUnauthorized,
			WWWAuthenticate: fmt.Sprintf(`Bearer realm=%q, error="invalid_token"`, realm),
		}
	}
}

var errMissingToken = fmt.Errorf("%w: no bearer token", ErrUnauthorized)

// Authenticate runs the full check for r: header extraction, presence and
// token validation.
func Authenticate(r *http.Request, a Authenticator) (UserInfo, error) {
	tok, err := BearerToken(r)
	if err != nil {
		return nil, err
	}
	if tok == "" {
		return nil, errMissingToken
	}
	return a.CheckAuthentication(r.Context(), tok)
}
