package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/artifex-dam/artifex-mcp/internal/oauth"
)

// authRequiredMessage is returned by tool handlers when no valid session
// exists. The surrounding assistant can relay it to the user verbatim.
const authRequiredMessage = "Authorization required. Run the 'authorize' tool or 'artifex-mcp authorize' in a terminal, then retry."

// toolResult marshals v to indented JSON for the assistant.
func toolResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// toolError maps API/auth failures to tool errors. Auth failures get the
// actionable message; everything else is passed through as text.
func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, oauth.ErrAuthRequired) {
		return mcp.NewToolResultError(authRequiredMessage)
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) handleSearchAssets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required"), nil
	}

	limit := request.GetInt("limit", 0)

	page, err := s.api.SearchAssets(ctx, query, limit)
	if err != nil {
		return toolError(err), nil
	}
	return toolResult(page)
}

func (s *Server) handleGetAsset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id argument is required"), nil
	}

	asset, err := s.api.GetAsset(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return toolResult(asset)
}

func (s *Server) handleListCollections(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collections, err := s.api.ListCollections(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return toolResult(map[string]interface{}{"collections": collections})
}

func (s *Server) handleWhoami(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	user, err := s.api.CurrentUser(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return toolResult(user)
}

func (s *Server) handleAuthStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := s.auth.Status()

	out := map[string]interface{}{
		"state":             status.State,
		"has_refresh_token": status.HasRefreshToken,
	}
	if !status.ExpiresAt.IsZero() {
		out["expires_at"] = status.ExpiresAt.Format(time.RFC3339)
	}
	if status.OrganizationName != "" {
		out["organization"] = status.OrganizationName
	}
	if status.UserEmail != "" {
		out["user"] = status.UserEmail
	}
	return toolResult(out)
}

func (s *Server) handleAuthorize(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.auth.Login(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Authorization failed: %v. Please retry.", err)), nil
	}

	status := s.auth.Status()
	msg := "Authorization successful."
	if status.UserEmail != "" {
		msg = fmt.Sprintf("Authorization successful. Signed in as %s.", status.UserEmail)
	}
	return mcp.NewToolResultText(msg), nil
}

func (s *Server) handleLogout(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.auth.Logout(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Logout failed: %v", err)), nil
	}
	return mcp.NewToolResultText("Logged out. Stored session cleared."), nil
}
