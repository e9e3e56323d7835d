// Package isetools is the gateway's handler set: the fourteen market data
// tools, each a single upstream fetch against the Indian stock exchange API.
//
// Register binds every tool to a Fetcher (normally an *indianapi.Client) and
// adds it to an mcpservice.Registry in a fixed order so tools/list output is
// stable:
//
//	api, err := indianapi.New(indianapi.Config{APIKey: key})
//	...
//	reg := mcpservice.NewRegistry()
//	if err := isetools.Register(reg, api); err != nil {
//	    return err
//	}
//
// Upstream failures are reported with codes from the tool-specific range
// (see CodeUpstreamUnavailable and friends) so that the RPC core can surface
// them as isError results rather than protocol errors.
package isetools
