package jwtauth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

const testAudience = "https://ise.example.com/mcp"

type mockIssuer struct {
	srv    *httptest.Server
	issuer string
	meta   map[string]any
}

func newMockIssuer(t *testing.T, keysJSON []byte, meta map[string]any) *mockIssuer {
	t.Helper()
	m := &mockIssuer{meta: meta}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		doc := map[string]any{
			"issuer":                   m.issuer,
			"jwks_uri":                 m.issuer + "/keys",
			"authorization_endpoint":   m.issuer + "/oauth2/auth",
			"token_endpoint":           m.issuer + "/oauth2/token",
			"response_types_supported": []string{"code"},
		}
		for k, v := range m.meta {
			doc[k] = v
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(doc)
	})
	mux.HandleFunc("/keys", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(keysJSON)
	})
	m.srv = httptest.NewServer(mux)
	m.issuer = m.srv.URL
	t.Cleanup(m.srv.Close)
	return m
}

func genRSA(t *testing.T) (*rsa.PrivateKey, string, []byte) {
	t.Helper()
	pk, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	kid := "test-key"
	jwk := jose.JSONWebKey{Key: &pk.PublicKey, KeyID: kid, Algorithm: "RS256", Use: "sig"}
	b, err := json.Marshal(jose.JSONWebKeySet{Keys: []jose.JSONWebKey{jwk}})
	if err != nil {
		t.Fatalf("marshal jwks: %v", err)
	}
	return pk, kid, b
}

func signToken(t *testing.T, pk *rsa.PrivateKey, kid string, typ string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	if typ != "" {
		tok.Header["typ"] = typ
	} else {
		delete(tok.Header, "typ")
	}
	s, err := tok.SignedString(pk)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func newVerifier(t *testing.T, issuer string, mutate func(*Config)) *Verifier {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Issuer = issuer
	cfg.Audiences = []string{testAudience}
	cfg.Leeway = 0
	if mutate != nil {
		mutate(cfg)
	}
	v, err := NewFromDiscovery(t.Context(), cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return v
}

func TestVerifyHappyPath(t *testing.T) {
	pk, kid, jwks := genRSA(t)
	iss := newMockIssuer(t, jwks, nil)
	v := newVerifier(t, iss.issuer, nil)

	now := time.Now()
	tok := signToken(t, pk, kid, "at+jwt", jwt.MapClaims{
		"iss":   iss.issuer,
		"sub":   "user-123",
		"aud":   testAudience,
		"exp":   now.Add(time.Hour).Unix(),
		"iat":   now.Unix(),
		"scope": "ise:read",
	})

	claims, err := v.Verify(t.Context(), tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "user-123" {
		t.Fatalf("want sub user-123, got %s", claims.Subject)
	}
	var out struct {
		Scope string `json:"scope"`
	}
	if err := claims.Decode(&out); err != nil {
		t.Fatalf("claims: %v", err)
	}
	if out.Scope != "ise:read" {
		t.Fatalf("scope roundtrip mismatch: %q", out.Scope)
	}
}

func TestVerifyRejections(t *testing.T) {
	pk, kid, jwks := genRSA(t)
	iss := newMockIssuer(t, jwks, nil)
	v := newVerifier(t, iss.issuer, func(c *Config) {
		c.Audiences = append(c.Audiences, "http://localhost:8000/mcp")
		c.RequiredScopes = []string{"ise:read"}
	})

	otherKey, _, _ := genRSA(t)
	now := time.Now()
	valid := func() jwt.MapClaims {
		return jwt.MapClaims{
			"iss":   iss.issuer,
			"sub":   "user-123",
			"aud":   testAudience,
			"exp":   now.Add(time.Hour).Unix(),
			"iat":   now.Unix(),
			"scope": "ise:read ise:admin",
		}
	}

	tests := []struct {
		name   string
		key    *rsa.PrivateKey
		typ    string
		mutate func(jwt.MapClaims)
		want   error
	}{
		{name: "valid", typ: "at+jwt", want: nil},
		{name: "plain jwt typ", typ: "JWT", want: nil},
		{name: "no typ", typ: "", want: nil},
		{name: "secondary audience", typ: "at+jwt", mutate: func(c jwt.MapClaims) { c["aud"] = []string{"x", "http://localhost:8000/mcp"} }},
		{name: "wrong typ", typ: "id+jwt", want: ErrUnauthorized},
		{name: "wrong key", key: otherKey, typ: "at+jwt", want: ErrUnauthorized},
		{name: "issuer mismatch", typ: "at+jwt", mutate: func(c jwt.MapClaims) { c["iss"] = "https://evil.example.com" }, want: ErrUnauthorized},
		{name: "audience mismatch", typ: "at+jwt", mutate: func(c jwt.MapClaims) { c["aud"] = "https://unknown" }, want: ErrUnauthorized},
		{name: "expired", typ: "at+jwt", mutate: func(c jwt.MapClaims) { c["exp"] = now.Add(-time.Minute).Unix() }, want: ErrUnauthorized},
		{name: "no exp", typ: "at+jwt", mutate: func(c jwt.MapClaims) { delete(c, "exp") }, want: ErrUnauthorized},
		{name: "no sub", typ: "at+jwt", mutate: func(c jwt.MapClaims) { delete(c, "sub") }, want: ErrUnauthorized},
		{name: "missing scope", typ: "at+jwt", mutate: func(c jwt.MapClaims) { c["scope"] = "ise:admin" }, want: ErrInsufficientScope},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := valid()
			if tt.mutate != nil {
				tt.mutate(claims)
			}
			key := pk
			if tt.key != nil {
				key = tt.key
			}
			_, err := v.Verify(t.Context(), signToken(t, key, kid, tt.typ, claims))
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("want %v, got %v", tt.want, err)
			}
		})
	}
}

func TestVerifyEmptyToken(t *testing.T) {
	_, _, jwks := genRSA(t)
	iss := newMockIssuer(t, jwks, nil)
	v := newVerifier(t, iss.issuer, nil)
	if _, err := v.Verify(t.Context(), ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
}

func TestDiscoveryMissingJWKS(t *testing.T) {
	_, _, jwks := genRSA(t)
	iss := newMockIssuer(t, jwks, map[string]any{"jwks_uri": ""})
	cfg := DefaultConfig()
	cfg.Issuer = iss.issuer
	if _, err := NewFromDiscovery(t.Context(), cfg); err == nil {
		t.Fatal("expected error for missing jwks_uri")
	}
}

func TestDiscoveryIssuerMismatch(t *testing.T) {
	_, _, jwks := genRSA(t)
	iss := newMockIssuer(t, jwks, map[string]any{"issuer": "https://elsewhere.example"})
	cfg := DefaultConfig()
	cfg.Issuer = iss.issuer
	if _, err := NewFromDiscovery(t.Context(), cfg); err == nil {
		t.Fatal("expected discovery to reject a mismatched issuer")
	}
}

func TestNewStaticValidation(t *testing.T) {
	if _, err := NewStatic(t.Context(), nil, "http://x/keys"); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := NewStatic(t.Context(), &Config{}, "http://x/keys"); err == nil {
		t.Fatal("expected error for missing issuer")
	}
	if _, err := NewStatic(t.Context(), &Config{Issuer: "http://x"}, ""); err == nil {
		t.Fatal("expected error for missing jwks uri")
	}
}
