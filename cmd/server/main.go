// Package main implements the entry point for the taskdesk server, which
// turns chat messages into tracked work items and drives their lifecycle
// through board actions and time-based reminders.
package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/dvolkov/taskdesk/internal/config"
	"github.com/dvolkov/taskdesk/internal/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if _, err := logger.Setup(logger.LoggerConfig{Level: cfg.Server.LogLevel}); err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	slog.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	ctx := context.Background()

	app, err := newApplication(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.run(ctx); err != nil {
		slog.Error("server exited with error", "error", err)
		log.Fatalf("Server error: %v", err)
	}
}
