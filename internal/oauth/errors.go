package oauth

import (
	"errors"
	"fmt"
)

// ErrAuthRequired is returned when no usable token exists and the caller
// must run the authorization flow.
var ErrAuthRequired = errors.New("authorization required")

// ErrStateMismatch indicates the callback carried a state parameter that
// does not match the one issued for this attempt. Treated as a potential
// CSRF attack; the attempt is aborted and never retried silently.
var ErrStateMismatch = errors.New("state parameter mismatch (possible CSRF)")

// ErrCallbackTimeout indicates no callback arrived within the wait window.
var ErrCallbackTimeout = errors.New("timed out waiting for authorization callback")

// ErrListenerBusy indicates a callback server start was attempted while
// one is already listening. Only one authorization attempt may be in
// flight per process.
var ErrListenerBusy = errors.New("callback server already listening")

// AuthorizationError is a provider-reported failure delivered on the
// authorization redirect (for example the user declined consent).
type AuthorizationError struct {
	Code        string
	Description string
}

func (e *AuthorizationError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authorization failed: %s - %s", e.Code, e.Description)
	}
	return fmt.Sprintf("authorization failed: %s", e.Code)
}

// ProtocolError is a malformed callback: a required parameter was missing.
// Security-relevant; aborts the attempt.
type ProtocolError struct {
	Missing string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("authorization callback missing required parameter: %s", e.Missing)
}

// ProviderError is a non-2xx response from the token endpoint, carrying
// the parsed OAuth error body when one was present.
type ProviderError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	switch {
	case e.Code != "" && e.Description != "":
		return fmt.Sprintf("token endpoint returned %s: %s (HTTP %d)", e.Code, e.Description, e.StatusCode)
	case e.Code != "":
		return fmt.Sprintf("token endpoint returned %s (HTTP %d)", e.Code, e.StatusCode)
	default:
		return fmt.Sprintf("token endpoint request failed with HTTP %d", e.StatusCode)
	}
}
