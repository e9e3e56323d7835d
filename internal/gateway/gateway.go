// Package gateway assembles the pieces shared by the stdio and HTTP
// binaries: logging, the upstream client and the tool server.
package gateway

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/ggoodman/ise-mcp-server-go/config"
	"github.com/ggoodman/ise-mcp-server-go/indianapi"
	"github.com/ggoodman/ise-mcp-server-go/internal/logctx"
	"github.com/ggoodman/ise-mcp-server-go/isetools"
	"github.com/ggoodman/ise-mcp-server-go/mcp"
	"github.com/ggoodman/ise-mcp-server-go/mcpservice"
)

// Version is reported in serverInfo and on /health.
const Version = "1.0.0"

// Instructions is returned to clients during initialize.
const Instructions = "Market data for companies listed on the NSE and BSE. " +
	"Look companies up by name with get_stock_data or search_industry, then use " +
	"the historical, forecast and analyst recommendation tools for detail. Market-wide " +
	"views are available through the trending, most active, 52 week and " +
	"commodities tools. Results are returned as JSON text."

// NewLogger returns a JSON logger writing to w that understands the
// request, session and tool-call context attached by the transports.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(logctx.Handler{Handler: slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})})
}

// NewServer validates cfg and builds a tool server backed by the market
// data API.
func NewServer(cfg config.Config, log *slog.Logger) (*mcpservice.Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := indianapi.New(indianapi.Config{
		BaseURL: cfg.APIBaseURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.RequestTimeout.Std(),
	}, indianapi.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("gateway: upstream client: %w", err)
	}

	reg := mcpservice.NewRegistry()
	if err := isetools.Register(reg, client); err != nil {
		return nil, fmt.Errorf("gateway: %w", err)
	}

	return mcpservice.NewServer(
		mcpservice.NewDispatcher(reg, mcpservice.WithDispatcherLogger(log)),
		mcpservice.WithServerInfo(mcp.ImplementationInfo{Name: cfg.ServerName, Version: Version}),
		mcpservice.WithInstructions(Instructions),
		mcpservice.WithToolTimeout(cfg.ToolTimeout.Std()),
		mcpservice.WithLogger(log),
	), nil
}
