// Package main is the entry point for the writespace server.
//
// MAIN PACKAGE IN GO:
// Every Go program starts execution in the main() function of the "main" package.
// The main package should be kept minimal. Its job is to:
// 1. Read configuration (from env vars or a .env file)
// 2. Create dependencies (logger, generator backend)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/handler, etc.).
//
// WHY cmd/server/?
// The cmd/ directory is a Go convention for executable entry points.
// Each executable gets its own directory with its own main.go.
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/writespace/internal/config"
	"github.com/sakif/writespace/internal/generator"
	"github.com/sakif/writespace/internal/generator/ollama"
	"github.com/sakif/writespace/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	// Variables already in the environment win over .env.
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// Log levels (from least to most severe): Debug → Info → Warn → Error
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// === 3. DATABASE DIRECTORY ===
	// os.MkdirAll creates all parent directories if needed (like `mkdir -p`).
	if cfg.DBPath != ":memory:" {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	// === 4. GENERATOR ===
	// Optional: without GENERATOR_BASE_URL the server starts and
	// /api/secure/generate answers 503.
	//
	// gen stays a nil interface when disabled. Assigning a nil *ollama.Generator
	// would make `gen != nil` true inside the server.
	var gen generator.Generator
	if cfg.Generator.Enabled() {
		gen = ollama.New(generator.Config{
			BaseURL:       cfg.Generator.BaseURL,
			Model:         cfg.Generator.Model,
			Timeout:       cfg.Generator.Timeout,
			MaxConcurrent: cfg.Generator.MaxConcurrent,
		}, logger)
	} else {
		logger.Warn("GENERATOR_BASE_URL not set, AI generation is disabled")
	}

	// === 5. CREATE AND START THE SERVER ===
	srv, err := server.New(context.Background(), cfg, logger, gen)
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
