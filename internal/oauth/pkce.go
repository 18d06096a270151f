package oauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const (
	// pkceVerifierBytes is the number of random bytes for the PKCE code verifier.
	// 32 bytes provides 256 bits of entropy and encodes to 43 base64url
	// characters, the RFC 7636 minimum verifier length.
	pkceVerifierBytes = 32

	// stateTokenBytes is the number of random bytes for the OAuth state
	// parameter. 32 bytes encodes to 43 base64url characters.
	stateTokenBytes = 32
)

// PKCEChallenge represents a PKCE (Proof Key for Code Exchange) challenge.
// It is ephemeral: created per authorization attempt and discarded after
// the code exchange, success or failure. It is never persisted.
type PKCEChallenge struct {
	// CodeVerifier is the client secret for this attempt. It is sent only
	// to the token endpoint, never to the browser.
	CodeVerifier string

	// CodeChallenge is base64url(SHA256(verifier)), sent in the
	// authorization request.
	CodeChallenge string

	// CodeChallengeMethod is always "S256".
	CodeChallengeMethod string
}

// GeneratePKCE generates a new PKCE code verifier and challenge.
// The code verifier is 32 random bytes, base64url-encoded without padding.
// The code challenge is the S256 (SHA256) hash of the verifier.
func GeneratePKCE() (*PKCEChallenge, error) {
	verifierBytes := make([]byte, pkceVerifierBytes)
	if _, err := rand.Read(verifierBytes); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes for PKCE: %w", err)
	}

	verifier := base64.RawURLEncoding.EncodeToString(verifierBytes)
	return ChallengeFromVerifier(verifier), nil
}

// ChallengeFromVerifier computes the S256 challenge for a given verifier.
// Deterministic; used by GeneratePKCE and as a seam for tests that need a
// known verifier.
func ChallengeFromVerifier(verifier string) *PKCEChallenge {
	hash := sha256.Sum256([]byte(verifier))
	return &PKCEChallenge{
		CodeVerifier:        verifier,
		CodeChallenge:       base64.RawURLEncoding.EncodeToString(hash[:]),
		CodeChallengeMethod: "S256",
	}
}

// GenerateState generates a random state parameter for OAuth.
// The state links the authorization response back to this attempt and is
// compared byte-for-byte in the callback; a mismatch aborts the attempt.
func GenerateState() (string, error) {
	buf := make([]byte, stateTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
