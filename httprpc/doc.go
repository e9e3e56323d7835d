// Package httprpc implements the request/response transport: JSON-RPC 2.0
// over HTTP POST, with single or batched payloads, plus plain status
// endpoints outside the RPC envelope.
//
// Routes
//
//	POST    /jsonrpc, /mcp  JSON-RPC payload (application/json)
//	DELETE  /jsonrpc, /mcp  terminate the session named by Mcp-Session-Id
//	GET     /jsonrpc, /mcp  405; the server never opens a stream
//	GET     /health         liveness, never touches upstream or sessions
//	GET     /info, /        server name, version and tool catalog
//	OPTIONS *               CORS preflight
//
// With WithProtectedResource the handler also serves
// /.well-known/oauth-protected-resource and links it from bearer challenges.
//
// # Sessions
//
// A successful initialize on a request without Mcp-Session-Id creates a
// session, stores it in the sessions.SessionHost and returns its id in the
// Mcp-Session-Id response header. Requests carrying the header run against
// the stored session; an unknown id yields 404. Requests without the header
// run against a fresh, uninitialized session, so a batch that starts with
// initialize works without any header.
//
// Authentication is optional. When an auth.Authenticator is configured the
// JSON-RPC routes require a bearer token; status endpoints never do.
package httprpc
