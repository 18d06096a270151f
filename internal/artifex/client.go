// Package artifex is a thin client for the Artifex digital-asset-management
// REST API. Each method maps to one endpoint; authentication is injected
// by a TokenProvider so the client carries no credential state of its own.
package artifex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/artifex-dam/artifex-mcp/internal/config"
	"github.com/artifex-dam/artifex-mcp/internal/oauth"
)

// DefaultHTTPTimeout bounds API requests.
const DefaultHTTPTimeout = 30 * time.Second

// TokenProvider supplies a bearer token per request. The OAuth
// orchestrator satisfies this interface.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// APIError is a non-2xx response from the Artifex API.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("artifex API error (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("artifex API error (HTTP %d)", e.StatusCode)
}

// Client calls the Artifex REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenProvider
}

// NewClient creates an API client. tokens may be nil for clients that
// only serve FetchIdentity with explicit tokens.
func NewClient(cfg *config.Config, tokens TokenProvider) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.APIBaseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		tokens:     tokens,
	}
}

// FetchIdentity resolves the identity behind an access token via GET /me.
// It takes the token explicitly because the orchestrator calls it mid
// flow, before the session is fully established.
func (c *Client) FetchIdentity(ctx context.Context, accessToken string) (*oauth.Identity, error) {
	var user User
	if err := c.doWithToken(ctx, accessToken, "/me", nil, &user); err != nil {
		return nil, err
	}

	id := &oauth.Identity{
		UserID:    user.ID,
		UserEmail: user.Email,
	}
	if user.Organization != nil {
		id.OrganizationID = user.Organization.ID
		id.OrganizationName = user.Organization.Name
		id.OrganizationSlug = user.Organization.Slug
	}
	return id, nil
}

// CurrentUser returns the authenticated user.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.get(ctx, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SearchAssets queries assets by free text. limit <= 0 selects the API
// default page size.
func (c *Client) SearchAssets(ctx context.Context, query string, limit int) (*AssetPage, error) {
	params := url.Values{"query": {query}}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var page AssetPage
	if err := c.get(ctx, "/assets/search", params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetAsset fetches a single asset by ID.
func (c *Client) GetAsset(ctx context.Context, id string) (*Asset, error) {
	var asset Asset
	if err := c.get(ctx, "/assets/"+url.PathEscape(id), nil, &asset); err != nil {
		return nil, err
	}
	return &asset, nil
}

// ListCollections lists the organization's collections.
func (c *Client) ListCollections(ctx context.Context) ([]Collection, error) {
	var out struct {
		Collections []Collection `json:"collections"`
	}
	if err := c.get(ctx, "/collections", nil, &out); err != nil {
		return nil, err
	}
	return out.Collections, nil
}

// get performs an authenticated GET, resolving the token from the
// provider first so an expired session surfaces as ErrAuthRequired
// before any network call.
func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if c.tokens == nil {
		return oauth.ErrAuthRequired
	}
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}
	return c.doWithToken(ctx, token, path, params, out)
}

func (c *Client) doWithToken(ctx context.Context, token, path string, params url.Values, out interface{}) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("artifex API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read artifex API response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: API rejected the access token", oauth.ErrAuthRequired)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			RequestID:  resp.Header.Get("X-Request-Id"),
		}
		var errBody struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(body, &errBody) == nil {
			apiErr.Message = errBody.Message
			if apiErr.Message == "" {
				apiErr.Message = errBody.Error
			}
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse artifex API response: %w", err)
	}
	return nil
}
