// Command ise-mcp-http serves the market data tools as JSON-RPC over HTTP
// on /jsonrpc and /mcp, with /health and /info for operators.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ggoodman/ise-mcp-server-go/config"
	"github.com/ggoodman/ise-mcp-server-go/httprpc"
	"github.com/ggoodman/ise-mcp-server-go/internal/gateway"
	"github.com/ggoodman/ise-mcp-server-go/sessions"
	"github.com/ggoodman/ise-mcp-server-go/sessions/memoryhost"
	"github.com/ggoodman/ise-mcp-server-go/sessions/redishost"
)

const shutdownGrace = 10 * time.Second

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

	host, closeHost, err := sessionHost(ctx, cfg, log)
	if err != nil {
		log.Error("sessions.init.fail", slog.String("err", err.Error()))
		return err
	}
	defer closeHost()

	opts := []httprpc.Option{
		httprpc.WithLogger(log),
		httprpc.WithSessionTTL(cfg.SessionTTL.Std()),
		httprpc.WithRealm(cfg.ServerName),
	}
	authn, err := gateway.NewAuthenticator(ctx, cfg)
	if err != nil {
		log.Error("auth.init.fail", slog.String("err", err.Error()))
		return err
	}
	if authn != nil {
		opts = append(opts, httprpc.WithAuthenticator(authn))
	}
	if cfg.OIDCIssuer != "" && cfg.PublicURL != "" {
		opts = append(opts, httprpc.WithProtectedResource(cfg.PublicURL, cfg.OIDCIssuer))
	}

	h, err := httprpc.New(srv, host, opts...)
	if err != nil {
		log.Error("http.init.fail", slog.String("err", err.Error()))
		return err
	}

	hs := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("http.listen.start", slog.String("addr", hs.Addr))
		errc <- hs.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("http.listen.fail", slog.String("err", err.Error()))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		log.Error("http.shutdown.fail", slog.String("err", err.Error()))
		return err
	}
	log.Info("http.shutdown.ok")
	return nil
}

// sessionHost picks Redis when an address is configured and an in-memory
// host with a background sweeper otherwise.
func sessionHost(ctx context.Context, cfg config.Config, log *slog.Logger) (sessions.SessionHost, func(), error) {
	if cfg.RedisAddr != "" {
		rh, err := redishost.New(redishost.Config{RedisAddr: cfg.RedisAddr, KeyPrefix: cfg.RedisKeyPrefix})
		if err != nil {
			return nil, nil, err
		}
		log.Info("sessions.redis", slog.String("addr", cfg.RedisAddr))
		return rh, func() { _ = rh.Close() }, nil
	}

	mh := memoryhost.New()
	sweepCtx, cancel := context.WithCancel(ctx)
	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-t.C:
				if n := mh.Sweep(); n > 0 {
					log.Debug("sessions.sweep", slog.Int("expired", n))
				}
			}
		}
	}()
	return mh, cancel, nil
}
