package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artifex-dam/artifex-mcp/internal/artifex"
	"github.com/artifex-dam/artifex-mcp/internal/config"
	"github.com/artifex-dam/artifex-mcp/internal/oauth"
	"github.com/artifex-dam/artifex-mcp/internal/tokenstore"
)

type staticTokens string

func (s staticTokens) AccessToken(ctx context.Context) (string, error) {
	return string(s), nil
}

type noTokens struct{}

func (noTokens) AccessToken(ctx context.Context) (string, error) {
	return "", oauth.ErrAuthRequired
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	request := mcp.CallToolRequest{}
	request.Params.Arguments = args
	return request
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok, "expected text content")
	return text.Text
}

func newToolServer(t *testing.T, apiStatus int, apiBody any, tokens artifex.TokenProvider) *Server {
	t.Helper()

	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(apiStatus)
		_ = json.NewEncoder(w).Encode(apiBody)
	}))
	t.Cleanup(apiServer.Close)

	cfg := config.Default()
	cfg.APIBaseURL = apiServer.URL
	cfg.ClientID = "client-123"

	store, err := tokenstore.NewStore(
		filepath.Join(t.TempDir(), "session.enc"),
		tokenstore.WithKeyMaterial([]byte("test-key-material")),
	)
	require.NoError(t, err)

	return NewServer(
		artifex.NewClient(cfg, tokens),
		oauth.NewOrchestrator(cfg, store),
		"test",
	)
}

func TestHandleSearchAssets(t *testing.T) {
	s := newToolServer(t, http.StatusOK, artifex.AssetPage{
		Assets: []artifex.Asset{{ID: "asset-1", Name: "logo.svg"}},
		Total:  1,
	}, staticTokens("at-123"))

	result, err := s.handleSearchAssets(context.Background(), callRequest(map[string]any{
		"query": "logo",
		"limit": 10,
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, "logo.svg")
	assert.Contains(t, text, `"total": 1`)
}

func TestHandleSearchAssets_MissingQuery(t *testing.T) {
	s := newToolServer(t, http.StatusOK, artifex.AssetPage{}, staticTokens("at-123"))

	result, err := s.handleSearchAssets(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "query argument is required")
}

func TestHandleSearchAssets_AuthRequired(t *testing.T) {
	s := newToolServer(t, http.StatusOK, artifex.AssetPage{}, noTokens{})

	result, err := s.handleSearchAssets(context.Background(), callRequest(map[string]any{
		"query": "logo",
	}))
	require.NoError(t, err, "auth failures are tool errors, not protocol errors")
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Authorization required")
}

func TestHandleGetAsset(t *testing.T) {
	s := newToolServer(t, http.StatusOK, artifex.Asset{ID: "asset-1", Name: "logo.svg"}, staticTokens("at-123"))

	result, err := s.handleGetAsset(context.Background(), callRequest(map[string]any{"id": "asset-1"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), "logo.svg")
}

func TestHandleGetAsset_MissingID(t *testing.T) {
	s := newToolServer(t, http.StatusOK, artifex.Asset{}, staticTokens("at-123"))

	result, err := s.handleGetAsset(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleWhoami_ExpiredSession(t *testing.T) {
	s := newToolServer(t, http.StatusUnauthorized, map[string]string{"message": "expired"}, staticTokens("at-stale"))

	result, err := s.handleWhoami(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Authorization required")
}

func TestHandleAuthStatus_Unauthenticated(t *testing.T) {
	s := newToolServer(t, http.StatusOK, nil, staticTokens("at-123"))

	result, err := s.handleAuthStatus(context.Background(), callRequest(nil))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	text := resultText(t, result)
	assert.Contains(t, text, `"state": "unauthenticated"`)
	assert.NotContains(t, text, "at-123", "status output must never contain token values")
}
