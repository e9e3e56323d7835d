// Command ise-mcp-stdio serves the market data tools over stdin/stdout,
// one JSON-RPC message per line. Logs go to stderr.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ggoodman/ise-mcp-server-go/config"
	"github.com/ggoodman/ise-mcp-server-go/internal/gateway"
	"github.com/ggoodman/ise-mcp-server-go/stdio"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	log := gateway.NewLogger(os.Stderr, cfg.LogLevel)
	if err != nil {
		log.Error("config.load.fail", slog.String("err", err.Error()))
		return err
	}

	srv, err := gateway.NewServer(cfg, log)
	if err != nil {
		log.Error("server.init.fail", slog.String("err", err.Error()))
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("stdio.serve.start", slog.String("server", cfg.ServerName))
	err = stdio.NewHandler(srv, stdio.WithLogger(log)).Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("stdio.serve.fail", slog.String("err", err.Error()))
		return err
	}
	log.Info("stdio.serve.done")
	return nil
}
