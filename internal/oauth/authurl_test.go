package oauth

import (
	"net/url"
	"testing"

	"github.com/artifex-dam/artifex-mcp/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		ClientID:     "client-123",
		OAuthBaseURL: "https://id.example.com",
		APIBaseURL:   "https://api.example.com/v1",
		RedirectPort: 8976,
		Scopes:       []string{"basic:read", "asset:read"},
	}
}

func TestBuildAuthorizationURL(t *testing.T) {
	cfg := testConfig()
	pkce := ChallengeFromVerifier("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk")

	rawURL, err := BuildAuthorizationURL(cfg, "http://localhost:8976/callback", "state-xyz", pkce)
	if err != nil {
		t.Fatalf("BuildAuthorizationURL failed: %v", err)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("result is not a valid URL: %v", err)
	}

	if parsed.Scheme != "https" || parsed.Host != "id.example.com" {
		t.Errorf("unexpected base: %s://%s", parsed.Scheme, parsed.Host)
	}
	if parsed.Path != "/oauth/authorize" {
		t.Errorf("path = %q, want /oauth/authorize", parsed.Path)
	}

	query := parsed.Query()
	want := map[string]string{
		"response_type":         "code",
		"client_id":             "client-123",
		"redirect_uri":          "http://localhost:8976/callback",
		"scope":                 "basic:read asset:read",
		"state":                 "state-xyz",
		"code_challenge":        pkce.CodeChallenge,
		"code_challenge_method": "S256",
	}
	for key, value := range want {
		if got := query.Get(key); got != value {
			t.Errorf("query[%s] = %q, want %q", key, got, value)
		}
	}
}

func TestBuildAuthorizationURL_RedirectMatchesConfig(t *testing.T) {
	cfg := testConfig()

	// The redirect URI handed to the builder must be the exact value the
	// callback server binds; config.RedirectURI is the canonical form.
	if cfg.RedirectURI() != "http://localhost:8976/callback" {
		t.Errorf("RedirectURI() = %q", cfg.RedirectURI())
	}
}
