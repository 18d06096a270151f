// Package oauth implements the browser-based OAuth 2.1 authorization
// engine for the Artifex MCP server.
//
// The flow is Authorization Code with PKCE (S256), designed for a public
// client running on a developer machine:
//
//  1. Generate a PKCE verifier/challenge pair and an anti-CSRF state token.
//  2. Bind a single-use local HTTP callback server. The browser is opened
//     only after the socket is accepting connections, so the redirect can
//     never race the listener.
//  3. The callback handler validates provider errors, required
//     parameters, and the state token, honoring exactly one callback per
//     attempt with a five minute hard timeout.
//  4. The authorization code is exchanged for tokens at the provider's
//     token endpoint; the verifier is discarded immediately after.
//  5. The token bundle is persisted to the encrypted session store before
//     best-effort identity enrichment, so a failed identity lookup never
//     loses valid tokens.
//
// The Orchestrator ties the steps together and serves access tokens with
// transparent refresh. Concurrent authorization attempts are collapsed
// into one via singleflight: only one local listener is ever bound and
// the browser opens once.
//
// Failed refreshes are not retried. Authorization is human-in-the-loop;
// retrying silently would re-open a browser without the user asking.
package oauth
