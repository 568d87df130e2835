package devauth

// Package devauth provides a simple, config-driven IdentityProvider for local development.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	domainauth "github.com/atparui/rms-console/internal/domain/auth"
	"github.com/atparui/rms-console/internal/ports"
	"github.com/golang-jwt/jwt/v5"
)

// Config controls the dev identity provider behavior.
// Username and Email are required.
type Config struct {
	Username      string
	Email         string
	FirstName     string
	LastName      string
	TenantID      string
	TokenLifetime time.Duration // default 5m when zero
}

// Provider implements ports.IdentityProvider for local development.
// It short-circuits the OAuth flow by redirecting back to our own callback
// and mints HS256 tokens signed with a per-process key.
type Provider struct {
	profile  domainauth.Profile
	tenantID string
	lifetime time.Duration
	key      []byte
	now      func() time.Time

	mu     sync.Mutex
	issued map[string]struct{}
}

// NewProvider constructs a dev identity provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.Username == "" {
		return nil, errors.New("dev auth: Username is required")
	}
	if cfg.Email == "" {
		return nil, errors.New("dev auth: Email is required")
	}
	lifetime := cfg.TokenLifetime
	if lifetime == 0 {
		lifetime = 5 * time.Minute
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("dev auth: signing key: %w", err)
	}
	return &Provider{
		profile: domainauth.Profile{
			Username:  cfg.Username,
			FirstName: cfg.FirstName,
			LastName:  cfg.LastName,
			Email:     cfg.Email,
		},
		tenantID: cfg.TenantID,
		lifetime: lifetime,
		key:      key,
		now:      time.Now,
		issued:   make(map[string]struct{}),
	}, nil
}

// Ensure always succeeds; there is nothing to discover.
func (p *Provider) Ensure(context.Context) error { return nil }

// Begin returns a local callback URL with a generated state.
func (p *Provider) Begin(_ context.Context, _ ports.BeginInput) (ports.LoginChallenge, error) {
	state, err := randomString(24)
	if err != nil {
		return ports.LoginChallenge{}, fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomString(24)
	if err != nil {
		return ports.LoginChallenge{}, fmt.Errorf("generate nonce: %w", err)
	}
	// Our standard handler expects GET /auth/callback?code=...&state=...
	return ports.LoginChallenge{
		AuthURL: "/auth/callback?code=dev&state=" + url.QueryEscape(state),
		State:   state,
		Nonce:   nonce,
	}, nil
}

// Exchange ignores the code and mints a fresh token pair.
func (p *Provider) Exchange(_ context.Context, _ ports.ExchangeInput) (domainauth.Token, error) {
	return p.mint()
}

// Refresh accepts only refresh tokens this provider issued; each is single-use.
func (p *Provider) Refresh(_ context.Context, refreshToken string) (domainauth.Token, error) {
	p.mu.Lock()
	_, ok := p.issued[refreshToken]
	delete(p.issued, refreshToken)
	p.mu.Unlock()
	if !ok {
		return domainauth.Token{}, errors.New("dev auth: unknown refresh token")
	}
	return p.mint()
}

// Profile returns the configured profile.
func (p *Provider) Profile(context.Context, domainauth.Token) (domainauth.Profile, error) {
	return p.profile, nil
}

// LogoutURL sends the browser straight back to the redirect target.
func (p *Provider) LogoutURL(_ context.Context, in ports.LogoutInput) (string, error) {
	if strings.TrimSpace(in.RedirectURL) == "" {
		return "/", nil
	}
	return in.RedirectURL, nil
}

func (p *Provider) mint() (domainauth.Token, error) {
	now := p.now()
	exp := now.Add(p.lifetime)
	claims := jwt.MapClaims{
		"sub":                p.profile.Username,
		"preferred_username": p.profile.Username,
		"email":              p.profile.Email,
		"iat":                now.Unix(),
		"exp":                exp.Unix(),
	}
	if p.tenantID != "" {
		claims["tenant_id"] = p.tenantID
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.key)
	if err != nil {
		return domainauth.Token{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := randomString(32)
	if err != nil {
		return domainauth.Token{}, fmt.Errorf("generate refresh token: %w", err)
	}

	p.mu.Lock()
	p.issued[refresh] = struct{}{}
	p.mu.Unlock()

	return domainauth.Token{AccessToken: access, RefreshToken: refresh, IDToken: access, Expiry: exp}, nil
}

func randomString(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:n], nil
}
