package oauth

import (
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"sync"
	"time"
)

// CallbackTimeout is how long WaitForCallback waits before giving up and
// releasing the port.
const CallbackTimeout = 5 * time.Minute

//go:embed templates/callback_success.html
var callbackSuccessHTML string

//go:embed templates/callback_error.html
var callbackErrorHTML string

var (
	successTemplate = template.Must(template.New("success").Parse(callbackSuccessHTML))
	errorTemplate   = template.Must(template.New("error").Parse(callbackErrorHTML))
)

// CallbackResult is a validated authorization response: the code and the
// (already verified) state.
type CallbackResult struct {
	Code  string
	State string
}

// CallbackServer is a single-use local HTTP server that receives the
// redirect from the authorization server. It validates the response in
// the handler, honors exactly one callback, then stops itself.
//
// The expected state is fixed at construction so validation happens
// before anything is delivered to the waiter.
type CallbackServer struct {
	port          int
	expectedState string
	timeout       time.Duration

	mu        sync.Mutex
	listening bool
	server    *http.Server
	listener  net.Listener
	serverURL string

	once     sync.Once
	resultCh chan *CallbackResult
	errCh    chan error
}

// NewCallbackServer creates a callback server for one authorization
// attempt. If port is 0 the configured default applies at Start time via
// the listener's assigned port.
func NewCallbackServer(port int, expectedState string) *CallbackServer {
	return &CallbackServer{
		port:          port,
		expectedState: expectedState,
		timeout:       CallbackTimeout,
		resultCh:      make(chan *CallbackResult, 1),
		errCh:         make(chan error, 1),
	}
}

// Start binds the local port and returns the redirect URI once the socket
// is actually accepting connections. Callers must not open the browser
// before Start returns, or the redirect can race the listener.
// A second Start while listening returns ErrListenerBusy.
func (s *CallbackServer) Start(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listening {
		return "", ErrListenerBusy
	}

	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to bind callback listener on %s: %w", addr, err)
	}

	s.listener = listener
	s.port = listener.Addr().(*net.TCPAddr).Port
	s.serverURL = fmt.Sprintf("http://localhost:%d", s.port)
	s.listening = true

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", s.handleCallback)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			select {
			case s.errCh <- err:
			default:
			}
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return s.serverURL + "/callback", nil
}

// WaitForCallback blocks until the callback arrives, the hard timeout
// fires, or the context is cancelled. The pending wait settles exactly
// once per attempt; on timeout the server is stopped and the port
// released.
func (s *CallbackServer) WaitForCallback(ctx context.Context) (*CallbackResult, error) {
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case result := <-s.resultCh:
		return result, nil
	case err := <-s.errCh:
		s.Stop()
		return nil, err
	case <-timer.C:
		s.Stop()
		return nil, ErrCallbackTimeout
	case <-ctx.Done():
		s.Stop()
		return nil, ctx.Err()
	}
}

// handleCallback processes GET /callback. Only the first request is
// honored; anything after the attempt has settled is refused so a
// replayed redirect cannot race the waiter.
func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	var handled bool
	s.once.Do(func() {
		handled = true
		s.processCallback(w, r)
	})

	if !handled {
		http.Error(w, "Callback already processed", http.StatusNotFound)
	}
}

// processCallback validates the authorization response and settles the
// pending wait. Called exactly once via sync.Once.
func (s *CallbackServer) processCallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'unsafe-inline'")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")

	query := r.URL.Query()

	if errCode := query.Get("error"); errCode != "" {
		authErr := &AuthorizationError{
			Code:        errCode,
			Description: query.Get("error_description"),
		}
		s.reject(w, authErr, authErr.Code, authErr.Description)
		return
	}

	code := query.Get("code")
	state := query.Get("state")
	switch {
	case code == "":
		s.reject(w, &ProtocolError{Missing: "code"}, "invalid_response", "The authorization response is missing the code parameter.")
		return
	case state == "":
		s.reject(w, &ProtocolError{Missing: "state"}, "invalid_response", "The authorization response is missing the state parameter.")
		return
	}

	// Byte-for-byte comparison against the state issued for this attempt.
	if state != s.expectedState {
		s.reject(w, ErrStateMismatch, "state_mismatch", "The authorization response could not be linked to this login attempt.")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = successTemplate.Execute(w, nil)

	s.resultCh <- &CallbackResult{Code: code, State: state}
	s.deferredStop()
}

// reject responds 400 with a human-readable page, delivers the error to
// the waiter, and stops the server. No second chance is given.
func (s *CallbackServer) reject(w http.ResponseWriter, err error, code, description string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	_ = errorTemplate.Execute(w, map[string]string{
		"Error":       code,
		"Description": description,
	})

	s.errCh <- err
	s.deferredStop()
}

// deferredStop shuts the server down after giving the in-flight response
// time to reach the browser.
func (s *CallbackServer) deferredStop() {
	go func() {
		time.Sleep(time.Second)
		s.Stop()
	}()
}

// Stop shuts the callback server down and releases the port. Safe to call
// multiple times.
func (s *CallbackServer) Stop() {
	s.mu.Lock()
	server := s.server
	listener := s.listener
	s.listening = false
	s.mu.Unlock()

	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
	if listener != nil {
		_ = listener.Close()
	}
}

// RedirectURI returns the redirect URI this server is bound to.
func (s *CallbackServer) RedirectURI() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serverURL + "/callback"
}

// Port returns the bound port.
func (s *CallbackServer) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}
