package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tapcoins/internal/app/bootstrap"
)

// API process entrypoint.
// Data flow:
// 1) Load config.
// 2) Build app wiring (ports + adapters + use cases).
// 3) Start HTTP server; on SIGINT/SIGTERM close every session so pending
//    progress flushes and no timers survive.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	app, err := bootstrap.BuildAPI()
	if err != nil {
		logger.Error("bootstrap failed",
			"event", "bootstrap_failed",
			"module", "cmd/api",
			"layer", "platform",
			"error", err,
		)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- app.Run(ctx) }()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received",
			"event", "api_shutdown",
			"module", "cmd/api",
			"layer", "platform",
		)
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped",
				"event", "api_server_stopped",
				"module", "cmd/api",
				"layer", "platform",
				"error", err,
			)
		}
	}

	if err := app.Close(); err != nil {
		logger.Error("close failed",
			"event", "api_close_failed",
			"module", "cmd/api",
			"layer", "platform",
			"error", err,
		)
		os.Exit(1)
	}
}
