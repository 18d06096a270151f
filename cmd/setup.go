package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/artifex-dam/artifex-mcp/internal/artifex"
	"github.com/artifex-dam/artifex-mcp/internal/config"
	"github.com/artifex-dam/artifex-mcp/internal/oauth"
	"github.com/artifex-dam/artifex-mcp/internal/tokenstore"
)

// app bundles the wired components shared by all commands.
type app struct {
	cfg  *config.Config
	auth *oauth.Orchestrator
	api  *artifex.Client
}

// newApp loads config and wires store, orchestrator, and API client.
// Logging goes to stderr: stdout belongs to the MCP stdio transport.
func newApp() (*app, error) {
	initLogging()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := tokenstore.NewStore(cfg.SessionPath)
	if err != nil {
		return nil, err
	}

	// The API client doubles as the identity fetcher; its token provider
	// is the orchestrator itself.
	auth := oauth.NewOrchestrator(cfg, store)
	api := artifex.NewClient(cfg, auth)
	auth.SetIdentityFetcher(api)

	return &app{cfg: cfg, auth: auth, api: api}, nil
}

// initLogging configures slog on stderr. Level is debug when
// ARTIFEX_DEBUG is set.
func initLogging() {
	level := slog.LevelInfo
	if os.Getenv("ARTIFEX_DEBUG") != "" {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
