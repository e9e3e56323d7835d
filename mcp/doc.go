// Package mcp contains the Model Context Protocol wire types used by the
// gateway: method names, the initialize handshake payloads and the tools
// list/call envelopes. It holds no transport logic; stdio and HTTP adapters
// import these types and handle framing, sessions and authentication
// themselves.
//
// # Method Names
//
// JSON-RPC method and notification names are enumerated as Method constants
// (e.g. ToolsListMethod). Only the methods the gateway serves are listed.
//
// # Protocol Versions
//
// LatestProtocolVersion is what the server answers with when a client asks
// for a version it does not know. SupportedProtocolVersions lists every
// version the server will echo back unchanged.
//
// Example (tool result construction):
//
//	res := &mcp.CallToolResult{
//	    Content: []mcp.ContentBlock{mcp.TextContent("hello")},
//	}
package mcp
