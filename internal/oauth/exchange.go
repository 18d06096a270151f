package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/artifex-dam/artifex-mcp/internal/config"
	"github.com/artifex-dam/artifex-mcp/internal/tokenstore"
)

// DefaultHTTPTimeout bounds requests to the authorization server.
const DefaultHTTPTimeout = 30 * time.Second

// Exchanger turns authorization codes and refresh tokens into token
// bundles via the provider's token endpoint. It performs no retries:
// a failed exchange surfaces immediately so the caller can decide whether
// to re-prompt the user.
type Exchanger struct {
	cfg        *config.Config
	httpClient *http.Client
	now        func() time.Time
}

// NewExchanger creates an exchanger. A nil httpClient selects a default
// with DefaultHTTPTimeout.
func NewExchanger(cfg *config.Config, httpClient *http.Client) *Exchanger {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Exchanger{
		cfg:        cfg,
		httpClient: httpClient,
		now:        time.Now,
	}
}

// ExchangeCode exchanges an authorization code for a token bundle.
// The caller must discard the verifier immediately after this call,
// success or failure, to prevent reuse.
func (e *Exchanger) ExchangeCode(ctx context.Context, code, verifier, redirectURI string) (*tokenstore.TokenBundle, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"client_id":     {e.cfg.ClientID},
		"code_verifier": {verifier},
	}
	if e.cfg.ClientSecret != "" {
		form.Set("client_secret", e.cfg.ClientSecret)
	}
	return e.requestToken(ctx, form)
}

// Refresh exchanges a refresh token for a fresh token bundle. No PKCE
// verifier is involved.
func (e *Exchanger) Refresh(ctx context.Context, refreshToken string) (*tokenstore.TokenBundle, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {e.cfg.ClientID},
	}
	if e.cfg.ClientSecret != "" {
		form.Set("client_secret", e.cfg.ClientSecret)
	}
	return e.requestToken(ctx, form)
}

// Revoke asks the provider to revoke a token. Best-effort: failures are
// logged by the caller and must never block logout or local deletion.
func (e *Exchanger) Revoke(ctx context.Context, token string) error {
	form := url.Values{
		"token":     {token},
		"client_id": {e.cfg.ClientID},
	}
	if e.cfg.ClientSecret != "" {
		form.Set("client_secret", e.cfg.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.RevokeEndpoint(), strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return &ProviderError{StatusCode: resp.StatusCode}
	}
	return nil
}

// tokenResponse is the provider's token endpoint success body.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
}

// tokenErrorResponse is the provider's RFC 6749 error body.
type tokenErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e *Exchanger) requestToken(ctx context.Context, form url.Values) (*tokenstore.TokenBundle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.TokenEndpoint(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token endpoint request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token endpoint response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		providerErr := &ProviderError{StatusCode: resp.StatusCode}
		var errBody tokenErrorResponse
		if json.Unmarshal(body, &errBody) == nil && errBody.Error != "" {
			providerErr.Code = errBody.Error
			providerErr.Description = errBody.ErrorDescription
		}
		slog.Warn("token endpoint returned an error",
			"grant_type", form.Get("grant_type"),
			"status", resp.StatusCode,
			"error", providerErr.Code,
		)
		return nil, providerErr
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token endpoint response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("token endpoint response missing access_token")
	}

	bundle := &tokenstore.TokenBundle{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		TokenType:    tokenResp.TokenType,
		Scope:        tokenResp.Scope,
		ExpiresIn:    tokenResp.ExpiresIn,
	}
	// Derive the absolute expiry locally; never trust a server-supplied
	// absolute time.
	if tokenResp.ExpiresIn > 0 {
		bundle.ExpiresAt = e.now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	}
	return bundle, nil
}
