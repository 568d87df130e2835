package ports

// Package ports defines interfaces (hexagonal ports) for session and identity behavior.
// Implementations live in internal/adapters; orchestration in internal/session.

import (
	"context"

	domainauth "github.com/atparui/rms-console/internal/domain/auth"
)

// BeginInput carries inputs for initiating an interactive login.
type BeginInput struct {
	// RedirectURL overrides the configured callback when set.
	RedirectURL string
}

// LoginChallenge is everything a pending login must remember until the callback.
type LoginChallenge struct {
	AuthURL  string
	State    string
	Nonce    string
	Verifier string
}

// ExchangeInput groups parameters for the code/token exchange.
type ExchangeInput struct {
	Code        string
	Nonce       string
	Verifier    string
	RedirectURL string // must match the one sent by Begin, if any
}

// LogoutInput groups parameters for building the end-session URL.
type LogoutInput struct {
	IDToken     string
	RedirectURL string
}

// IdentityProvider is the wrapped OIDC client.
type IdentityProvider interface {
	// Ensure constructs the client (discovery, verifier). Safe to call repeatedly.
	Ensure(ctx context.Context) error

	// Begin starts the authorization-code flow and returns the challenge to persist.
	Begin(ctx context.Context, in BeginInput) (LoginChallenge, error)

	// Exchange completes the flow, verifying the ID token nonce.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Token, error)

	// Refresh performs one refresh-token grant.
	Refresh(ctx context.Context, refreshToken string) (domainauth.Token, error)

	// Profile loads the user profile for an access token.
	Profile(ctx context.Context, tok domainauth.Token) (domainauth.Profile, error)

	// LogoutURL returns the end-session URL to navigate to after local logout.
	LogoutURL(ctx context.Context, in LogoutInput) (string, error)
}

// TokenStore mirrors the session token so a new process or a reload can rehydrate it.
// The mirror is a hint: readers must not prefer it over an in-memory token.
type TokenStore interface {
	Save(ctx context.Context, sessionID string, tok domainauth.Token) error
	// Load returns ok=false when nothing is mirrored for the session.
	Load(ctx context.Context, sessionID string) (tok domainauth.Token, ok bool, err error)
	Delete(ctx context.Context, sessionID string) error
}

// TokenSource yields the current bearer token for one outbound call.
// An empty token with a nil error means "send the request unauthenticated".
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

// GetToken calls f.
func (f TokenSourceFunc) GetToken(ctx context.Context) (string, error) { return f(ctx) }

// StaticToken is a TokenSource that always yields the same token.
type StaticToken string

// GetToken returns the token.
func (s StaticToken) GetToken(context.Context) (string, error) { return string(s), nil }
