// Package wellknown holds documents served under /.well-known.
package wellknown

import (
	"fmt"
	"net/url"
)

// ProtectedResourcePath is where OAuth protected resource metadata
// (RFC 9728) is published.
const ProtectedResourcePath = "/.well-known/oauth-protected-resource"

// ProtectedResourceMetadata tells clients which authorization servers issue
// tokens for a resource.
type ProtectedResourceMetadata struct {
	Resource               string   `json:"resource"`
	AuthorizationServers   []string `json:"authorization_servers,omitempty"`
	ScopesSupported        []string `json:"scopes_supported,omitempty"`
	BearerMethodsSupported []string `json:"bearer_methods_supported,omitempty"`
	ResourceName           string   `json:"resource_name,omitempty"`
}

// MetadataURL returns the absolute URL of the metadata document for the
// resource at resourceURL.
func MetadataURL(resourceURL string) (string, error) {
	u, err := url.Parse(resourceURL)
	if err != nil {
		return "", fmt.Errorf("wellknown: invalid resource url %q: %w", resourceURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("wellknown: resource url %q must be absolute", resourceURL)
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: ProtectedResourcePath}).String(), nil
}
