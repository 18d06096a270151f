package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/artifex-dam/artifex-mcp/internal/oauth"
)

// Exit codes for CLI commands. These follow common conventions and allow
// scripting around authentication state.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error.
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates authentication is required but not available.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the OAuth flow failed.
	ExitCodeAuthFailed = 3
)

// rootCmd is the base command. Invoked without a subcommand it runs the
// MCP server on stdio, which is what MCP client configurations expect.
var rootCmd = &cobra.Command{
	Use:   "artifex-mcp",
	Short: "MCP server for the Artifex digital asset management platform",
	Long: `artifex-mcp exposes the Artifex DAM REST API as MCP tools for AI
assistants, with browser-based OAuth authorization and an encrypted local
session store.

Run without arguments to serve MCP over stdio (the default for MCP client
configurations), or use the subcommands to manage authorization.`,
	// SilenceUsage prevents cobra from printing usage on errors the
	// application already reports cleanly.
	SilenceUsage: true,
}

func init() {
	// Assigned in init rather than the composite literal to avoid an
	// initialization cycle (runServe refers back to rootCmd).
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runServe(cmd, args)
	}
}

// SetVersion sets the version for the root command, injected from main.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the entry point called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "artifex-mcp version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode maps error types to semantic exit codes.
func getExitCode(err error) int {
	if errors.Is(err, oauth.ErrAuthRequired) {
		return ExitCodeAuthRequired
	}

	var authErr *oauth.AuthorizationError
	var providerErr *oauth.ProviderError
	if errors.As(err, &authErr) || errors.As(err, &providerErr) ||
		errors.Is(err, oauth.ErrStateMismatch) || errors.Is(err, oauth.ErrCallbackTimeout) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}
