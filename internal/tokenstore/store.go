package tokenstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// sessionFileName is the single encrypted session file inside the config
// directory. The store is single-tenant: one record per local user.
const sessionFileName = "session.enc"

// DefaultConfigDir mirrors the config package default; kept local so the
// store has no config dependency.
const defaultConfigDir = ".config/artifex-mcp"

// DefaultExpiryBuffer is subtracted from the token expiry when deciding
// whether an access token is still usable. It absorbs clock skew and the
// latency of the API call the token is about to authenticate.
const DefaultExpiryBuffer = 5 * time.Minute

// Store persists the session record to a single encrypted file.
//
// SECURITY: The file never contains plaintext secrets. The encryption key
// is re-derived from machine/user identity on every operation and never
// written to disk. Files are 0600, the directory 0700. Token values are
// never logged.
type Store struct {
	mu        sync.Mutex
	path      string
	keySource func() ([]byte, error)
	now       func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock injects the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithKeyMaterial replaces the machine-identity key material. Used in
// tests to make encryption deterministic across hosts.
func WithKeyMaterial(secret []byte) Option {
	return func(s *Store) {
		s.keySource = func() ([]byte, error) { return secret, nil }
	}
}

// NewStore creates a store persisting to path. An empty path selects the
// default location under the user's home directory.
func NewStore(path string, opts ...Option) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to determine home directory: %w", err)
		}
		path = filepath.Join(home, defaultConfigDir, sessionFileName)
	}

	s := &Store{
		path:      path,
		keySource: machineSecret,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the session file location.
func (s *Store) Path() string {
	return s.path
}

// Save serializes and encrypts the record, replacing the session file
// atomically (write-to-temp-then-rename) so an interrupted write leaves
// either the old or the fully-new content.
func (s *Store) Save(record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plaintext, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal session record: %w", err)
	}

	secret, err := s.keySource()
	if err != nil {
		return err
	}

	blob, err := encrypt(secret, plaintext)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, sessionFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to restrict session file permissions: %w", err)
	}
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close session file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace session file: %w", err)
	}

	slog.Info("SECURITY_AUDIT: session record stored",
		"event", "session_stored",
		"path", s.path,
		"expires_at", record.Tokens.ExpiresAt.Format(time.RFC3339),
		"has_refresh_token", record.Tokens.RefreshToken != "",
	)
	return nil
}

// Load reads and decrypts the session record. It returns (nil, nil) when
// no valid session exists: absent file, corrupt blob, or failed
// decryption/authentication all mean "not logged in", never a fatal
// error. The only recovery path for a bad file is re-authorization.
func (s *Store) Load() (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() (*Record, error) {
	blob, err := os.ReadFile(s.path) // #nosec G304 -- path is fixed at construction
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		slog.Warn("SECURITY_AUDIT: session file unreadable, treating as no session",
			"event", "session_load_failed",
			"path", s.path,
			"error", err.Error(),
		)
		return nil, nil
	}

	secret, err := s.keySource()
	if err != nil {
		return nil, nil
	}

	plaintext, err := decrypt(secret, blob)
	if err != nil {
		slog.Warn("SECURITY_AUDIT: session file failed decryption, treating as no session",
			"event", "session_decrypt_failed",
			"path", s.path,
			"error", err.Error(),
		)
		return nil, nil
	}

	var record Record
	if err := json.Unmarshal(plaintext, &record); err != nil {
		slog.Warn("session file contained invalid JSON, treating as no session",
			"path", s.path,
			"error", err.Error(),
		)
		return nil, nil
	}
	return &record, nil
}

// Clear removes the session file. Missing files are not an error;
// a subsequent Load returns nil.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}

	slog.Info("SECURITY_AUDIT: session record cleared",
		"event", "session_cleared",
		"path", s.path,
	)
	return nil
}

// IsTokenExpired reports whether the stored access token is absent,
// expired, or within buffer of expiring. A buffer <= 0 selects
// DefaultExpiryBuffer.
func (s *Store) IsTokenExpired(buffer time.Duration) bool {
	if buffer <= 0 {
		buffer = DefaultExpiryBuffer
	}

	s.mu.Lock()
	record, _ := s.loadLocked()
	now := s.now()
	s.mu.Unlock()

	if record == nil {
		return true
	}
	return record.Tokens.ExpiredWithin(buffer, now)
}

// AccessToken returns the stored access token if it is valid beyond the
// default expiry buffer. The second return is false when the caller must
// refresh or re-authorize.
func (s *Store) AccessToken() (string, bool) {
	s.mu.Lock()
	record, _ := s.loadLocked()
	now := s.now()
	s.mu.Unlock()

	if record == nil || record.Tokens.ExpiredWithin(DefaultExpiryBuffer, now) {
		return "", false
	}
	return record.Tokens.AccessToken, true
}
