// Package mcpservice is the transport-neutral core of the gateway: a tool
// Registry, a Dispatcher that validates and invokes tools, and a Server that
// routes JSON-RPC methods for a session. The stdio and HTTP transports both
// hand their bytes to the same Server so the two never drift apart.
//
// Quick start:
//
//	reg := mcpservice.NewRegistry()
//	_ = reg.Register(mcpservice.ToolDefinition{
//	    Name:        "echo",
//	    Description: "Echo a message back to the caller",
//	    InputSchema: schema.Object(schema.Prop("message", schema.String("Text to echo"))).Require("message"),
//	}, func(ctx context.Context, args map[string]any) (any, error) {
//	    return map[string]any{"message": args["message"]}, nil
//	})
//
//	srv := mcpservice.NewServer(
//	    mcpservice.NewDispatcher(reg),
//	    mcpservice.WithServerInfo(mcp.ImplementationInfo{Name: "example", Version: "1.0.0"}),
//	    mcpservice.WithToolTimeout(30*time.Second),
//	)
//
//	sess := sessions.New()
//	reply, err := srv.HandlePayload(ctx, sess, line)
//
// # Error classes
//
// Envelope problems map to the standard JSON-RPC codes. Unknown tools and
// argument mismatches fail the RPC with METHOD_NOT_FOUND or INVALID_PARAMS
// before any handler runs. Handler failures, panics and timeouts succeed at
// the RPC level and carry isError:true in the tool result.
package mcpservice
