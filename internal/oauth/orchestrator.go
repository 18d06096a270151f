package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/artifex-dam/artifex-mcp/internal/config"
	"github.com/artifex-dam/artifex-mcp/internal/tokenstore"
)

// Identity is the best-effort identity metadata attached to a session
// after a successful authorization.
type Identity struct {
	OrganizationID   string
	OrganizationName string
	OrganizationSlug string
	UserID           string
	UserEmail        string
}

// IdentityFetcher looks up the identity behind an access token. A failed
// lookup never discards already-saved tokens.
type IdentityFetcher interface {
	FetchIdentity(ctx context.Context, accessToken string) (*Identity, error)
}

// Orchestrator sequences the authorization flow: PKCE + state, callback
// listener, browser, code exchange, persistence, identity enrichment.
// It also serves access tokens with transparent refresh.
//
// Concurrency: concurrent Login callers join the same in-flight attempt
// via singleflight, so only one local listener is ever bound and the
// browser opens once. Token refresh is single-flighted the same way.
type Orchestrator struct {
	cfg       *config.Config
	store     *tokenstore.Store
	exchanger *Exchanger
	identity  IdentityFetcher

	openBrowser       func(url string) error
	newCallbackServer func(port int, expectedState string) *CallbackServer
	now               func() time.Time
	expiryBuffer      time.Duration

	flight singleflight.Group

	mu      sync.RWMutex
	session *tokenstore.TokenBundle // in-memory copy; authoritative while within validity
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithIdentityFetcher enables identity enrichment after authorization.
func WithIdentityFetcher(f IdentityFetcher) OrchestratorOption {
	return func(o *Orchestrator) { o.identity = f }
}

// SetIdentityFetcher wires the identity fetcher after construction.
// Needed because the API client that performs the lookup takes the
// orchestrator as its token provider.
func (o *Orchestrator) SetIdentityFetcher(f IdentityFetcher) {
	o.identity = f
}

// WithBrowserOpener replaces the system browser launcher. Tests use this
// to simulate the user completing consent.
func WithBrowserOpener(open func(url string) error) OrchestratorOption {
	return func(o *Orchestrator) { o.openBrowser = open }
}

// WithExchanger replaces the token exchanger.
func WithExchanger(e *Exchanger) OrchestratorOption {
	return func(o *Orchestrator) { o.exchanger = e }
}

// WithCallbackServerFactory replaces callback server construction.
func WithCallbackServerFactory(f func(port int, expectedState string) *CallbackServer) OrchestratorOption {
	return func(o *Orchestrator) { o.newCallbackServer = f }
}

// WithOrchestratorClock injects the time source for expiry decisions.
func WithOrchestratorClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator creates an orchestrator bound to a config and store.
func NewOrchestrator(cfg *config.Config, store *tokenstore.Store, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		cfg:               cfg,
		store:             store,
		openBrowser:       OpenBrowser,
		newCallbackServer: NewCallbackServer,
		now:               time.Now,
		expiryBuffer:      tokenstore.DefaultExpiryBuffer,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.exchanger == nil {
		o.exchanger = NewExchanger(cfg, nil)
	}
	return o
}

// AccessToken returns a usable access token, consulting in order: the
// in-memory session, the encrypted store, and a network refresh. Returns
// ErrAuthRequired when none of those yields a valid token; the caller
// must run Login. A failed refresh never deletes the existing record, so
// status reporting can still distinguish "expired" from "never
// authorized".
func (o *Orchestrator) AccessToken(ctx context.Context) (string, error) {
	o.mu.RLock()
	session := o.session
	o.mu.RUnlock()

	if session != nil && !session.ExpiredWithin(o.expiryBuffer, o.now()) {
		return session.AccessToken, nil
	}

	v, err, _ := o.flight.Do("token", func() (interface{}, error) {
		return o.loadOrRefresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// loadOrRefresh consults the store and, if the stored bundle is stale but
// carries a refresh token, performs a refresh and persists the
// superseding bundle.
func (o *Orchestrator) loadOrRefresh(ctx context.Context) (string, error) {
	record, err := o.store.Load()
	if err != nil || record == nil {
		return "", ErrAuthRequired
	}

	if !record.Tokens.ExpiredWithin(o.expiryBuffer, o.now()) {
		o.setSession(&record.Tokens)
		return record.Tokens.AccessToken, nil
	}

	if record.Tokens.RefreshToken == "" {
		return "", ErrAuthRequired
	}

	bundle, err := o.exchanger.Refresh(ctx, record.Tokens.RefreshToken)
	if err != nil {
		// No automatic retry: surface immediately so the caller can
		// re-prompt the user instead of silently re-popping a browser.
		slog.Warn("token refresh failed",
			"error", err.Error(),
		)
		return "", fmt.Errorf("%w: token refresh failed", ErrAuthRequired)
	}

	// Providers may omit the refresh token on rotation-free grants;
	// keep the previous one so the session stays renewable.
	if bundle.RefreshToken == "" {
		bundle.RefreshToken = record.Tokens.RefreshToken
	}

	record.Tokens = *bundle
	if err := o.store.Save(record); err != nil {
		slog.Warn("failed to persist refreshed tokens; session valid in memory only",
			"error", err.Error(),
		)
	}

	o.setSession(bundle)
	return bundle.AccessToken, nil
}

// Login runs the browser-based authorization flow. Concurrent callers
// block on the same in-flight attempt rather than starting a second one,
// which would fight for the same local port.
func (o *Orchestrator) Login(ctx context.Context) error {
	_, err, _ := o.flight.Do("authorize", func() (interface{}, error) {
		return nil, o.runAuthorization(ctx)
	})
	return err
}

// runAuthorization executes one complete authorization attempt. The PKCE
// verifier lives only on this stack frame and is unreachable once the
// attempt finishes.
func (o *Orchestrator) runAuthorization(ctx context.Context) error {
	pkce, err := GeneratePKCE()
	if err != nil {
		return err
	}
	state, err := GenerateState()
	if err != nil {
		return err
	}

	callbackServer := o.newCallbackServer(o.cfg.RedirectPort, state)
	redirectURI, err := callbackServer.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start callback server: %w", err)
	}

	authURL, err := BuildAuthorizationURL(o.cfg, redirectURI, state, pkce)
	if err != nil {
		callbackServer.Stop()
		return err
	}

	// The listener is accepting connections at this point (Start returns
	// only after the socket is bound), so the redirect cannot race it.
	slog.Info("opening browser for authorization",
		"authorize_url", o.cfg.AuthorizeEndpoint(),
		"redirect_uri", redirectURI,
	)
	if err := o.openBrowser(authURL); err != nil {
		slog.Warn("could not open browser; open the authorization URL manually",
			"url", authURL,
			"error", err.Error(),
		)
	}

	result, err := callbackServer.WaitForCallback(ctx)
	if err != nil {
		return fmt.Errorf("authorization callback failed: %w", err)
	}

	bundle, err := o.exchanger.ExchangeCode(ctx, result.Code, pkce.CodeVerifier, redirectURI)
	if err != nil {
		return fmt.Errorf("token exchange failed: %w", err)
	}

	// Persist before identity enrichment so a failed lookup below cannot
	// lose valid tokens.
	record := &tokenstore.Record{
		Tokens:    *bundle,
		CreatedAt: o.now(),
	}
	if err := o.store.Save(record); err != nil {
		slog.Warn("failed to persist tokens; session valid in memory only",
			"error", err.Error(),
		)
	}
	o.setSession(bundle)

	o.enrichIdentity(ctx, record, bundle.AccessToken)

	slog.Info("authorization completed",
		"has_refresh_token", bundle.RefreshToken != "",
	)
	return nil
}

// enrichIdentity merges best-effort identity metadata into the stored
// record. Failures are logged and otherwise ignored.
func (o *Orchestrator) enrichIdentity(ctx context.Context, record *tokenstore.Record, accessToken string) {
	if o.identity == nil {
		return
	}

	id, err := o.identity.FetchIdentity(ctx, accessToken)
	if err != nil {
		slog.Warn("identity lookup failed; keeping session without identity metadata",
			"error", err.Error(),
		)
		return
	}

	record.OrganizationID = id.OrganizationID
	record.OrganizationName = id.OrganizationName
	record.OrganizationSlug = id.OrganizationSlug
	record.UserID = id.UserID
	record.UserEmail = id.UserEmail

	if err := o.store.Save(record); err != nil {
		slog.Warn("failed to persist identity metadata",
			"error", err.Error(),
		)
	}
}

// Reauthorize clears the current session and runs a fresh authorization.
// Used to switch accounts.
func (o *Orchestrator) Reauthorize(ctx context.Context) error {
	if err := o.store.Clear(); err != nil {
		return err
	}
	o.setSession(nil)
	return o.Login(ctx)
}

// Logout revokes the current access token best-effort, then
// unconditionally clears the local session.
func (o *Orchestrator) Logout(ctx context.Context) error {
	token := o.currentAccessToken()
	if token != "" {
		if err := o.exchanger.Revoke(ctx, token); err != nil {
			slog.Warn("token revocation failed; clearing local session anyway",
				"error", err.Error(),
			)
		}
	}

	o.setSession(nil)
	return o.store.Clear()
}

// currentAccessToken returns the cached or stored access token without
// expiry checks; revocation of an expired token is harmless.
func (o *Orchestrator) currentAccessToken() string {
	o.mu.RLock()
	session := o.session
	o.mu.RUnlock()

	if session != nil {
		return session.AccessToken
	}
	if record, err := o.store.Load(); err == nil && record != nil {
		return record.Tokens.AccessToken
	}
	return ""
}

func (o *Orchestrator) setSession(bundle *tokenstore.TokenBundle) {
	o.mu.Lock()
	o.session = bundle
	o.mu.Unlock()
}

// Status summarizes the session for user-facing reporting. It never
// includes token values.
type Status struct {
	// State is "authenticated", "expired", or "unauthenticated".
	State string

	ExpiresAt       time.Time
	HasRefreshToken bool

	OrganizationID   string
	OrganizationName string
	OrganizationSlug string
	UserID           string
	UserEmail        string
}

// Status reports the current authentication state.
func (o *Orchestrator) Status() *Status {
	record, err := o.store.Load()
	if err != nil || record == nil {
		return &Status{State: "unauthenticated"}
	}

	s := &Status{
		State:            "authenticated",
		ExpiresAt:        record.Tokens.ExpiresAt,
		HasRefreshToken:  record.Tokens.RefreshToken != "",
		OrganizationID:   record.OrganizationID,
		OrganizationName: record.OrganizationName,
		OrganizationSlug: record.OrganizationSlug,
		UserID:           record.UserID,
		UserEmail:        record.UserEmail,
	}
	if record.Tokens.ExpiredWithin(o.expiryBuffer, o.now()) {
		s.State = "expired"
	}
	return s
}
