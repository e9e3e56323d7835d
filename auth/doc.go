// Package auth provides optional bearer authentication for the HTTP
// transport. Two Authenticators are available:
//
//   - NewStaticToken compares the bearer token with a shared secret.
//   - NewFromDiscovery validates JWT access tokens issued by an OpenID
//     Connect provider, using discovery to locate the issuer's JWKS.
//
// The transport extracts the token with BearerToken, calls
// CheckAuthentication and maps failures to an HTTP challenge with
// ChallengeFor.
//
// Example:
//
//	authn, err := auth.NewFromDiscovery(ctx, "https://issuer.example",
//	    []string{"https://ise.example.com/mcp"},
//	    auth.WithRequiredScopes("ise:read"),
//	)
//	if err != nil { log.Fatal(err) }
//
//	ui, err := authn.CheckAuthentication(r.Context(), tok)
//	if err != nil {
//	    ch := auth.ChallengeFor("ise", err)
//	    w.Header().Set("WWW-Authenticate", ch.WWWAuthenticate)
//	    w.WriteHeader(ch.Status)
//	    return
//	}
//
// # Errors
//
// ErrUnauthorized signals the token is missing or invalid (signature,
// expiry, audience, etc.). ErrInsufficientScope signals successful
// authentication but missing required scope(s).
package auth
