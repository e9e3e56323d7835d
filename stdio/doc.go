// Package stdio implements the line-oriented transport: one JSON-RPC frame
// per line on an input stream, one reply per line on an output stream, for a
// single long-lived peer. It is how the gateway runs as a subprocess of a
// desktop MCP client.
//
// Characteristics
//
//	Connection model : 1 process <-> 1 client
//	Auth             : OS user (implicit principal, recorded on the session)
//	Sessions         : one in-memory session per Serve call
//	Ordering         : strict lock-step, one message in flight
//
// Example:
//
//	h := stdio.NewHandler(srv, stdio.WithLogger(logger))
//	if err := h.Serve(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Nothing but protocol frames is ever written to the output stream; logs go
// to the configured logger.
package stdio
