package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables recognized by Load. Environment values take
// precedence over the optional config file.
const (
	EnvClientID     = "ARTIFEX_CLIENT_ID"
	EnvClientSecret = "ARTIFEX_CLIENT_SECRET"
	EnvOAuthBaseURL = "ARTIFEX_OAUTH_URL"
	EnvAPIBaseURL   = "ARTIFEX_API_URL"
	EnvRedirectPort = "ARTIFEX_REDIRECT_PORT"
	EnvScopes       = "ARTIFEX_SCOPES"
	EnvSessionPath  = "ARTIFEX_SESSION_PATH"
)

// Defaults applied when neither the environment nor the config file
// provides a value.
const (
	DefaultOAuthBaseURL = "https://id.artifex.io"
	DefaultAPIBaseURL   = "https://api.artifex.io/v1"
	DefaultRedirectPort = 8976
)

// DefaultConfigDir is the per-user configuration directory, relative to
// the user's home directory. It also holds the encrypted session file.
const DefaultConfigDir = ".config/artifex-mcp"

// configFileName is the optional YAML config file inside DefaultConfigDir.
const configFileName = "config.yaml"

// DefaultScopes are requested when no explicit scope list is configured.
// offline_access is required for the provider to issue refresh tokens.
var DefaultScopes = []string{"basic:read", "asset:read", "collection:read", "offline_access"}

// Config holds everything the OAuth engine and the API client need.
// Values are resolved from (highest precedence first): environment
// variables, the optional YAML config file, built-in defaults.
type Config struct {
	// ClientID is the OAuth client identifier. Required.
	ClientID string `yaml:"clientID"`

	// ClientSecret is optional; public clients rely on PKCE alone.
	ClientSecret string `yaml:"clientSecret"`

	// OAuthBaseURL is the base URL of the authorization server.
	// Endpoints are derived as {OAuthBaseURL}/oauth/{authorize,token,revoke}.
	OAuthBaseURL string `yaml:"oauthBaseURL"`

	// APIBaseURL is the base URL of the Artifex REST API.
	APIBaseURL string `yaml:"apiBaseURL"`

	// RedirectPort is the local port for the OAuth callback server.
	RedirectPort int `yaml:"redirectPort"`

	// Scopes are the OAuth scopes requested during authorization.
	Scopes []string `yaml:"scopes"`

	// SessionPath overrides the location of the encrypted session file.
	// Defaults to ~/.config/artifex-mcp/session.enc.
	SessionPath string `yaml:"sessionPath"`
}

// Default returns a Config populated with built-in defaults only.
func Default() *Config {
	return &Config{
		OAuthBaseURL: DefaultOAuthBaseURL,
		APIBaseURL:   DefaultAPIBaseURL,
		RedirectPort: DefaultRedirectPort,
		Scopes:       append([]string(nil), DefaultScopes...),
	}
}

// Load resolves the effective configuration from the optional config file
// and the environment. It does not validate; call Validate before use.
func Load() (*Config, error) {
	cfg := Default()

	path, err := defaultConfigFilePath()
	if err == nil {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.mergeEnv()
	return cfg, nil
}

// defaultConfigFilePath returns ~/.config/artifex-mcp/config.yaml.
func defaultConfigFilePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, DefaultConfigDir, configFileName), nil
}

// mergeFile overlays values from a YAML config file, if it exists.
// A missing file is not an error.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- path is derived from the user's home directory
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if file.ClientID != "" {
		c.ClientID = file.ClientID
	}
	if file.ClientSecret != "" {
		c.ClientSecret = file.ClientSecret
	}
	if file.OAuthBaseURL != "" {
		c.OAuthBaseURL = file.OAuthBaseURL
	}
	if file.APIBaseURL != "" {
		c.APIBaseURL = file.APIBaseURL
	}
	if file.RedirectPort != 0 {
		c.RedirectPort = file.RedirectPort
	}
	if len(file.Scopes) > 0 {
		c.Scopes = file.Scopes
	}
	if file.SessionPath != "" {
		c.SessionPath = file.SessionPath
	}
	return nil
}

// mergeEnv overlays values from the environment.
func (c *Config) mergeEnv() {
	if v := os.Getenv(EnvClientID); v != "" {
		c.ClientID = v
	}
	if v := os.Getenv(EnvClientSecret); v != "" {
		c.ClientSecret = v
	}
	if v := os.Getenv(EnvOAuthBaseURL); v != "" {
		c.OAuthBaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv(EnvAPIBaseURL); v != "" {
		c.APIBaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv(EnvRedirectPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 && port < 65536 {
			c.RedirectPort = port
		}
	}
	if v := os.Getenv(EnvScopes); v != "" {
		c.Scopes = strings.Fields(v)
	}
	if v := os.Getenv(EnvSessionPath); v != "" {
		c.SessionPath = v
	}
}

// Validate checks that the configuration is usable for an OAuth flow.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("client ID is required (set %s)", EnvClientID)
	}
	if c.OAuthBaseURL == "" {
		return fmt.Errorf("OAuth base URL is required (set %s)", EnvOAuthBaseURL)
	}
	if _, err := url.Parse(c.OAuthBaseURL); err != nil {
		return fmt.Errorf("invalid OAuth base URL: %w", err)
	}
	if c.RedirectPort <= 0 || c.RedirectPort >= 65536 {
		return fmt.Errorf("redirect port must be in 1-65535, got %d", c.RedirectPort)
	}
	return nil
}

// AuthorizeEndpoint returns the authorization endpoint URL.
func (c *Config) AuthorizeEndpoint() string {
	return strings.TrimRight(c.OAuthBaseURL, "/") + "/oauth/authorize"
}

// TokenEndpoint returns the token endpoint URL.
func (c *Config) TokenEndpoint() string {
	return strings.TrimRight(c.OAuthBaseURL, "/") + "/oauth/token"
}

// RevokeEndpoint returns the token revocation endpoint URL.
func (c *Config) RevokeEndpoint() string {
	return strings.TrimRight(c.OAuthBaseURL, "/") + "/oauth/revoke"
}

// RedirectURI returns the local callback URI the authorization server
// redirects to. It must exactly match what the callback server binds,
// since authorization servers perform exact-match validation.
func (c *Config) RedirectURI() string {
	return fmt.Sprintf("http://localhost:%d/callback", c.RedirectPort)
}
