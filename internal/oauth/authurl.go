package oauth

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/artifex-dam/artifex-mcp/internal/config"
)

// BuildAuthorizationURL constructs the authorization endpoint URL for one
// attempt. Pure function: no side effects. The redirect URI must be
// exactly what the callback server bound, since authorization servers
// perform exact-match validation.
func BuildAuthorizationURL(cfg *config.Config, redirectURI, state string, pkce *PKCEChallenge) (string, error) {
	authURL, err := url.Parse(cfg.AuthorizeEndpoint())
	if err != nil {
		return "", fmt.Errorf("invalid authorization endpoint: %w", err)
	}

	params := url.Values{
		"response_type":         {"code"},
		"client_id":             {cfg.ClientID},
		"redirect_uri":          {redirectURI},
		"scope":                 {strings.Join(cfg.Scopes, " ")},
		"state":                 {state},
		"code_challenge":        {pkce.CodeChallenge},
		"code_challenge_method": {pkce.CodeChallengeMethod},
	}

	authURL.RawQuery = params.Encode()
	return authURL.String(), nil
}
