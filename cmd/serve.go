package cmd

import (
	"github.com/spf13/cobra"

	"github.com/artifex-dam/artifex-mcp/internal/tools"
)

// serveCmd runs the MCP server on stdio. Also the root command's default.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve MCP over stdio (default)",
	Long: `Serve the Artifex tool set over the MCP stdio transport.

This is what MCP client configurations (Claude Desktop, Cursor, etc.)
invoke. All logging goes to stderr; stdout carries the protocol.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	server := tools.NewServer(a.api, a.auth, rootCmd.Version)
	return server.Start(cmd.Context())
}
