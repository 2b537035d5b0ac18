// Package main is the entry point for the paper-digest server.
//
// The main package stays minimal. Its job is to:
// 1. Read configuration (config.yaml, .env, environment)
// 2. Build the logger
// 3. Start the application
//
// All actual logic lives in internal/ packages.
package main

import (
	"log/slog"
	"os"

	"github.com/sakif/paper-digest/internal/config"
	"github.com/sakif/paper-digest/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// Log levels (from least to most severe): Debug → Info → Warn → Error
	level, _ := cfg.SlogLevel() // validated above
	opts := &slog.HandlerOptions{Level: level}

	var logHandler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.LogFormat == "json" {
		logHandler = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	// === 3. SESSION SECRET ===
	// Set SESSION_SECRET=$(openssl rand -hex 32) in production; a generated
	// secret logs everyone out on every restart.
	generated, err := cfg.EnsureSessionSecret()
	if err != nil {
		logger.Error("failed to prepare session secret", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if generated {
		logger.Warn("SESSION_SECRET not set; using a random secret, sessions will not survive a restart")
	}

	logger.Debug("effective configuration", slog.String("config", cfg.String()))

	// === 4. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
