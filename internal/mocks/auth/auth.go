package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domainauth "github.com/atparui/rms-console/internal/domain/auth"
	"github.com/atparui/rms-console/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider = (*FakeIdentityProvider)(nil)
	_ ports.TokenStore       = (*FailingTokenStore)(nil)
)

// FakeIdentityProvider simulates an IdP for tests with deterministic state/nonce handling.
// Func fields override the default behavior; every method is safe for concurrent use.
type FakeIdentityProvider struct {
	EnsureFunc    func(ctx context.Context) error
	ExchangeFunc  func(ctx context.Context, in ports.ExchangeInput) (domainauth.Token, error)
	RefreshFunc   func(ctx context.Context, refreshToken string) (domainauth.Token, error)
	ProfileFunc   func(ctx context.Context, tok domainauth.Token) (domainauth.Profile, error)
	LogoutURLFunc func(ctx context.Context, in ports.LogoutInput) (string, error)

	// Deterministic values for predictable testing
	AuthURL        string
	DefaultProfile domainauth.Profile
	TokenLifetime  time.Duration

	mu    sync.Mutex
	calls map[string]int
	seq   int
	last  ports.ExchangeInput
}

// NewFakeIdentityProvider creates a FakeIdentityProvider with sensible defaults.
func NewFakeIdentityProvider() *FakeIdentityProvider {
	return &FakeIdentityProvider{
		AuthURL: "https://mock-idp/auth",
		DefaultProfile: domainauth.Profile{
			Username:  "mock-user",
			FirstName: "Mock",
			LastName:  "User",
			Email:     "mock.user@example.com",
		},
		TokenLifetime: time.Hour,
	}
}

func (f *FakeIdentityProvider) record(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
	return f.calls[name]
}

// Calls reports how many times the named method ran.
func (f *FakeIdentityProvider) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

// LastExchange returns the input of the most recent Exchange call.
func (f *FakeIdentityProvider) LastExchange() ports.ExchangeInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func (f *FakeIdentityProvider) Ensure(ctx context.Context) error {
	f.record("Ensure")
	if f.EnsureFunc != nil {
		return f.EnsureFunc(ctx)
	}
	return nil
}

func (f *FakeIdentityProvider) Begin(_ context.Context, in ports.BeginInput) (ports.LoginChallenge, error) {
	n := f.record("Begin")
	authURL := f.AuthURL
	if authURL == "" {
		authURL = "https://mock-idp/auth"
	}
	state := fmt.Sprintf("state-%d", n)
	return ports.LoginChallenge{
		AuthURL:  authURL + "?state=" + state + "&redirect_uri=" + in.RedirectURL,
		State:    state,
		Nonce:    fmt.Sprintf("nonce-%d", n),
		Verifier: fmt.Sprintf("verifier-%d", n),
	}, nil
}

func (f *FakeIdentityProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Token, error) {
	f.record("Exchange")
	f.mu.Lock()
	f.last = in
	f.mu.Unlock()
	if f.ExchangeFunc != nil {
		return f.ExchangeFunc(ctx, in)
	}
	return f.mint(), nil
}

func (f *FakeIdentityProvider) Refresh(ctx context.Context, refreshToken string) (domainauth.Token, error) {
	f.record("Refresh")
	if f.RefreshFunc != nil {
		return f.RefreshFunc(ctx, refreshToken)
	}
	if refreshToken == "" {
		return domainauth.Token{}, errors.New("refresh token is required")
	}
	return f.mint(), nil
}

func (f *FakeIdentityProvider) Profile(ctx context.Context, tok domainauth.Token) (domainauth.Profile, error) {
	f.record("Profile")
	if f.ProfileFunc != nil {
		return f.ProfileFunc(ctx, tok)
	}
	return f.DefaultProfile, nil
}

func (f *FakeIdentityProvider) LogoutURL(ctx context.Context, in ports.LogoutInput) (string, error) {
	f.record("LogoutURL")
	if f.LogoutURLFunc != nil {
		return f.LogoutURLFunc(ctx, in)
	}
	return "https://mock-idp/logout?id_token_hint=" + in.IDToken + "&post_logout_redirect_uri=" + in.RedirectURL, nil
}

// mint returns a distinct token pair on every call.
func (f *FakeIdentityProvider) mint() domainauth.Token {
	f.mu.Lock()
	f.seq++
	n := f.seq
	f.mu.Unlock()
	lifetime := f.TokenLifetime
	if lifetime == 0 {
		lifetime = time.Hour
	}
	return domainauth.Token{
		AccessToken:  fmt.Sprintf("access-%d", n),
		RefreshToken: fmt.Sprintf("refresh-%d", n),
		IDToken:      fmt.Sprintf("id-%d", n),
		Expiry:       time.Now().Add(lifetime),
	}
}

// FailingTokenStore returns Err from every call.
type FailingTokenStore struct {
	Err error
}

func (s FailingTokenStore) Save(context.Context, string, domainauth.Token) error { return s.Err }

func (s FailingTokenStore) Load(context.Context, string) (domainauth.Token, bool, error) {
	return domainauth.Token{}, false, s.Err
}

func (s FailingTokenStore) Delete(context.Context, string) error { return s.Err }
