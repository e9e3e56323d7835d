// Package sessions holds the per-connection handshake state of an MCP client
// and the storage contract used to carry that state across HTTP requests.
//
// A Session starts UNINITIALIZED and moves to INITIALIZED exactly once, when
// the initialize request succeeds. Tool listing and tool calls are refused
// until then. There is no way back: a session ends when its connection,
// process or store entry goes away.
//
// Layers & Roles
//
//	Transport   -> runs the handshake, decides when a session is persisted
//	SessionHost -> stores initialized sessions under an id with a sliding TTL
//	Session     -> negotiated protocol version and client capabilities
//
// The stdio transport keeps its single Session in memory and never touches a
// host. The HTTP transport persists a session after a successful initialize
// and returns its id in the Mcp-Session-Id header.
//
// Implementations
//
//	memoryhost : in-process map, the default
//	redishost  : Redis keys with expiry, for several replicas behind a balancer
package sessions
