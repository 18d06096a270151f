package oauth

import (
	"crypto/sha256"
	"encoding/base64"
	"regexp"
	"testing"
)

func TestGeneratePKCE(t *testing.T) {
	pkce, err := GeneratePKCE()
	if err != nil {
		t.Fatalf("GeneratePKCE() failed: %v", err)
	}

	if pkce.CodeVerifier == "" {
		t.Error("CodeVerifier is empty")
	}

	if pkce.CodeChallenge == "" {
		t.Error("CodeChallenge is empty")
	}

	if pkce.CodeChallengeMethod != "S256" {
		t.Errorf("CodeChallengeMethod = %q, want S256", pkce.CodeChallengeMethod)
	}

	// The challenge must be the SHA256 hash of the verifier.
	hash := sha256.Sum256([]byte(pkce.CodeVerifier))
	expectedChallenge := base64.RawURLEncoding.EncodeToString(hash[:])

	if pkce.CodeChallenge != expectedChallenge {
		t.Errorf("CodeChallenge verification failed.\nGot:  %q\nWant: %q", pkce.CodeChallenge, expectedChallenge)
	}
}

func TestGeneratePKCE_VerifierConstraints(t *testing.T) {
	// RFC 7636: 43-128 characters from the unreserved URL-safe alphabet.
	alphabet := regexp.MustCompile(`^[A-Za-z0-9\-._~]+$`)

	for i := 0; i < 20; i++ {
		pkce, err := GeneratePKCE()
		if err != nil {
			t.Fatalf("GeneratePKCE() failed: %v", err)
		}

		if n := len(pkce.CodeVerifier); n < 43 || n > 128 {
			t.Errorf("verifier length %d outside RFC 7636 range [43, 128]", n)
		}
		if !alphabet.MatchString(pkce.CodeVerifier) {
			t.Errorf("verifier contains characters outside the URL-safe alphabet: %q", pkce.CodeVerifier)
		}
	}
}

func TestGeneratePKCE_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		pkce, err := GeneratePKCE()
		if err != nil {
			t.Fatalf("GeneratePKCE() failed on iteration %d: %v", i, err)
		}

		if seen[pkce.CodeVerifier] {
			t.Errorf("Duplicate code verifier generated on iteration %d", i)
		}
		seen[pkce.CodeVerifier] = true
	}
}

func TestChallengeFromVerifier_Deterministic(t *testing.T) {
	const verifier = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"

	first := ChallengeFromVerifier(verifier)
	second := ChallengeFromVerifier(verifier)

	if first.CodeChallenge != second.CodeChallenge {
		t.Errorf("challenge not deterministic: %q vs %q", first.CodeChallenge, second.CodeChallenge)
	}
	if first.CodeVerifier != verifier {
		t.Errorf("verifier not preserved: got %q", first.CodeVerifier)
	}

	// Known-answer from RFC 7636 appendix B.
	const want = "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
	if first.CodeChallenge != want {
		t.Errorf("CodeChallenge = %q, want %q", first.CodeChallenge, want)
	}
}

func TestGenerateState(t *testing.T) {
	state, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState() failed: %v", err)
	}

	if len(state) < 22 {
		t.Errorf("state too short for 16 bytes of entropy: %d chars", len(state))
	}

	other, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState() failed: %v", err)
	}
	if state == other {
		t.Error("two generated states are identical")
	}
}
