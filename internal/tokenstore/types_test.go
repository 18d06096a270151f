package tokenstore

import (
	"testing"
	"time"
)

func TestTokenBundle_ExpiredWithin(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	buffer := 5 * time.Minute

	tests := []struct {
		name   string
		bundle *TokenBundle
		want   bool
	}{
		{
			name:   "nil bundle",
			bundle: nil,
			want:   true,
		},
		{
			name:   "empty access token",
			bundle: &TokenBundle{ExpiresAt: now.Add(time.Hour)},
			want:   true,
		},
		{
			name:   "zero expiry means non-expiring",
			bundle: &TokenBundle{AccessToken: "at"},
			want:   false,
		},
		{
			name:   "well before expiry",
			bundle: &TokenBundle{AccessToken: "at", ExpiresAt: now.Add(time.Hour)},
			want:   false,
		},
		{
			name:   "inside the buffer",
			bundle: &TokenBundle{AccessToken: "at", ExpiresAt: now.Add(4 * time.Minute)},
			want:   true,
		},
		{
			name:   "exactly at the buffer edge",
			bundle: &TokenBundle{AccessToken: "at", ExpiresAt: now.Add(buffer)},
			want:   true,
		},
		{
			name:   "already expired",
			bundle: &TokenBundle{AccessToken: "at", ExpiresAt: now.Add(-time.Minute)},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.bundle.ExpiredWithin(buffer, now); got != tt.want {
				t.Errorf("ExpiredWithin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTokenBundle_ToOAuth2Token(t *testing.T) {
	expiresAt := time.Date(2026, 8, 25, 13, 0, 0, 0, time.UTC)
	bundle := &TokenBundle{
		AccessToken:  "at-123",
		RefreshToken: "rt-456",
		TokenType:    "Bearer",
		ExpiresAt:    expiresAt,
	}

	token := bundle.ToOAuth2Token()
	if token.AccessToken != "at-123" {
		t.Errorf("AccessToken = %q", token.AccessToken)
	}
	if token.RefreshToken != "rt-456" {
		t.Errorf("RefreshToken = %q", token.RefreshToken)
	}
	if token.TokenType != "Bearer" {
		t.Errorf("TokenType = %q", token.TokenType)
	}
	if !token.Expiry.Equal(expiresAt) {
		t.Errorf("Expiry = %v, want %v", token.Expiry, expiresAt)
	}
}
