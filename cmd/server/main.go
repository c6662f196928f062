// Package main runs the VideoGate HTTP gateway.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dharsanguruparan/VideoGate/internal/app"
	"github.com/dharsanguruparan/VideoGate/internal/config"
	"github.com/dharsanguruparan/VideoGate/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	slog.SetDefault(logger)

	// NotifyContext cancels ctx on SIGINT/SIGTERM; Run watches it and shuts
	// the HTTP server down gracefully.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Deferred calls run in LIFO order when main returns, so backend clients
	// close after the server has stopped. os.Exit skips deferred calls, which
	// is acceptable on the fatal paths below.
	deps := app.New(cfg, logger)
	defer deps.Close()

	srv, err := deps.Server(ctx)
	if err != nil {
		logger.Error("init server", "error", err)
		os.Exit(1)
	}
	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
