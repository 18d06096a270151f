// Package tools exposes the Artifex DAM operations as MCP tools over
// stdio, so AI assistants can search and inspect assets through the
// standard MCP protocol. Handlers are auth-aware: when no valid session
// exists they return a clear "authorization required" tool error instead
// of a raw failure.
package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/artifex-dam/artifex-mcp/internal/artifex"
	"github.com/artifex-dam/artifex-mcp/internal/oauth"
)

// Server wraps the Artifex API client and the auth orchestrator and
// exposes them as MCP tools.
type Server struct {
	api       *artifex.Client
	auth      *oauth.Orchestrator
	mcpServer *server.MCPServer
}

// NewServer creates an MCP server with the full tool registry.
func NewServer(api *artifex.Client, auth *oauth.Orchestrator, version string) *Server {
	mcpServer := server.NewMCPServer(
		"artifex-mcp",
		version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		api:       api,
		auth:      auth,
		mcpServer: mcpServer,
	}
	s.registerTools()
	return s
}

// Start serves MCP over stdio. Blocks until the client closes the
// connection or the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	return server.ServeStdio(s.mcpServer)
}

// registerTools registers all MCP tools.
func (s *Server) registerTools() {
	searchAssetsTool := mcp.NewTool("search_assets",
		mcp.WithDescription("Search assets in the Artifex library by free text"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query (matches asset names, descriptions, and tags)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results to return"),
		),
	)
	s.mcpServer.AddTool(searchAssetsTool, s.handleSearchAssets)

	getAssetTool := mcp.NewTool("get_asset",
		mcp.WithDescription("Get detailed information about a single asset"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Asset ID"),
		),
	)
	s.mcpServer.AddTool(getAssetTool, s.handleGetAsset)

	listCollectionsTool := mcp.NewTool("list_collections",
		mcp.WithDescription("List the organization's asset collections"),
	)
	s.mcpServer.AddTool(listCollectionsTool, s.handleListCollections)

	whoamiTool := mcp.NewTool("whoami",
		mcp.WithDescription("Show the authenticated user and organization"),
	)
	s.mcpServer.AddTool(whoamiTool, s.handleWhoami)

	authStatusTool := mcp.NewTool("auth_status",
		mcp.WithDescription("Show the current authorization status (never includes token values)"),
	)
	s.mcpServer.AddTool(authStatusTool, s.handleAuthStatus)

	authorizeTool := mcp.NewTool("authorize",
		mcp.WithDescription("Start the browser-based OAuth authorization flow"),
	)
	s.mcpServer.AddTool(authorizeTool, s.handleAuthorize)

	logoutTool := mcp.NewTool("logout",
		mcp.WithDescription("Revoke the current session and clear stored tokens"),
	)
	s.mcpServer.AddTool(logoutTool, s.handleLogout)
}
