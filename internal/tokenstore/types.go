package tokenstore

import (
	"time"

	"golang.org/x/oauth2"
)

// TokenBundle is the token set obtained from a code exchange or refresh.
// ExpiresAt is always computed locally at receipt time from expires_in;
// a server-supplied absolute expiry is never trusted.
type TokenBundle struct {
	// AccessToken is the bearer credential for the Artifex API.
	AccessToken string `json:"access_token"`

	// RefreshToken is used to obtain new access tokens without
	// re-prompting the user. May be empty.
	RefreshToken string `json:"refresh_token,omitempty"`

	// TokenType is typically "Bearer".
	TokenType string `json:"token_type"`

	// Scope is the space-joined scope list granted by the provider.
	Scope string `json:"scope,omitempty"`

	// ExpiresIn is the provider-reported lifetime in seconds.
	ExpiresIn int64 `json:"expires_in,omitempty"`

	// ExpiresAt is the absolute expiry, derived at receipt time.
	ExpiresAt time.Time `json:"expires_at"`
}

// ExpiredWithin reports whether the access token is expired, or will be
// within the given buffer, as of now. A zero ExpiresAt means the provider
// reported no lifetime and the token is treated as non-expiring.
func (b *TokenBundle) ExpiredWithin(buffer time.Duration, now time.Time) bool {
	if b == nil || b.AccessToken == "" {
		return true
	}
	if b.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(buffer).Before(b.ExpiresAt)
}

// ToOAuth2Token converts the bundle to an oauth2.Token for interop with
// libraries that consume the standard type.
func (b *TokenBundle) ToOAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  b.AccessToken,
		RefreshToken: b.RefreshToken,
		TokenType:    b.TokenType,
		Expiry:       b.ExpiresAt,
	}
}

// Record is the persisted session: the token bundle plus best-effort
// identity metadata. Identity fields are enrichment only; a failed
// identity lookup never discards already-saved tokens.
type Record struct {
	Tokens TokenBundle `json:"tokens"`

	OrganizationID   string `json:"organization_id,omitempty"`
	OrganizationName string `json:"organization_name,omitempty"`
	OrganizationSlug string `json:"organization_slug,omitempty"`
	UserID           string `json:"user_id,omitempty"`
	UserEmail        string `json:"user_email,omitempty"`

	// CreatedAt is when the record was first written.
	CreatedAt time.Time `json:"created_at"`
}
