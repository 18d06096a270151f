package tokenstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"os/user"

	"golang.org/x/crypto/scrypt"
)

// On-disk blob layout: salt(16) || iv(12) || tag(16) || ciphertext.
// Salt and IV are freshly random on every write.
const (
	saltSize  = 16
	nonceSize = 12
	tagSize   = 16
	keySize   = 32
)

// scrypt parameters for the file encryption key. N=2^15 keeps derivation
// slow enough to resist offline guessing of the machine-identity secret.
const (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// keyContext is a fixed application-specific salt mixed into the key
// material so other tools deriving keys from the same machine identity
// produce unrelated keys.
const keyContext = "artifex-mcp/session-store/v1"

// errMalformedBlob indicates the stored blob is too short to contain the
// expected layout.
var errMalformedBlob = errors.New("malformed session blob")

// machineSecret returns the deterministic key material for this
// machine/user. It is re-derived on every open and never persisted, so
// the same account on the same machine can always decrypt its own store
// while the key never appears on disk.
func machineSecret() ([]byte, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("failed to read hostname: %w", err)
	}

	username := os.Getenv("USER")
	if u, err := user.Current(); err == nil && u.Username != "" {
		username = u.Username
	}

	return []byte(hostname + "\x00" + username + "\x00" + keyContext), nil
}

// deriveKey stretches the secret into an AES-256 key using scrypt with
// the per-file random salt.
func deriveKey(secret, salt []byte) ([]byte, error) {
	key, err := scrypt.Key(secret, salt, scryptN, scryptR, scryptP, keySize)
	if err != nil {
		return nil, fmt.Errorf("failed to derive encryption key: %w", err)
	}
	return key, nil
}

// encrypt seals plaintext with AES-256-GCM under a key derived from
// secret and a fresh salt, producing the salt||iv||tag||ciphertext blob.
func encrypt(secret, plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := deriveKey(secret, salt)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Seal appends the auth tag after the ciphertext; the storage layout
	// puts the tag before it, so split and reorder.
	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	ciphertext, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	blob := make([]byte, 0, saltSize+nonceSize+tagSize+len(ciphertext))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, tag...)
	blob = append(blob, ciphertext...)
	return blob, nil
}

// decrypt opens a salt||iv||tag||ciphertext blob, verifying the auth tag.
func decrypt(secret, blob []byte) ([]byte, error) {
	if len(blob) < saltSize+nonceSize+tagSize {
		return nil, errMalformedBlob
	}

	salt := blob[:saltSize]
	nonce := blob[saltSize : saltSize+nonceSize]
	tag := blob[saltSize+nonceSize : saltSize+nonceSize+tagSize]
	ciphertext := blob[saltSize+nonceSize+tagSize:]

	key, err := deriveKey(secret, salt)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, nonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	sealed := make([]byte, 0, len(ciphertext)+tagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt session blob: %w", err)
	}
	return plaintext, nil
}
