package oidc

// Package oidc provides the OIDC/OAuth identity adapter (authorization code + PKCE).

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	domainauth "github.com/atparui/rms-console/internal/domain/auth"
	"github.com/atparui/rms-console/internal/ports"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// ErrNotReady is returned by flow methods called before Ensure has succeeded.
var ErrNotReady = errors.New("oidc client not constructed")

// Provider implements ports.IdentityProvider using OIDC/OAuth2.
// Discovery is lazy: NewProvider does no I/O and Ensure performs it once.
type Provider struct {
	cfg        ProviderConfig
	issuer     string
	httpClient *http.Client

	mu           sync.Mutex
	config       *oauth2.Config
	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier
	endSession   string
}

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	BaseURL      string // identity provider base URL, e.g. https://auth.example.com
	Realm        string
	ClientID     string
	ClientSecret string // optional; public PKCE client when empty
	RedirectURL  string
	Scope        string
	HTTPClient   *http.Client // Optional, defaults to a client with a 30s timeout
}

// Issuer returns <base>/realms/<realm>.
func (c ProviderConfig) Issuer() string {
	return strings.TrimRight(c.BaseURL, "/") + "/realms/" + url.PathEscape(c.Realm)
}

// NewProvider validates config and returns an unconstructed provider.
func NewProvider(config ProviderConfig) (*Provider, error) {
	if config.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if config.Realm == "" {
		return nil, errors.New("realm is required")
	}
	if config.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if config.RedirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Provider{cfg: config, issuer: config.Issuer(), httpClient: httpClient}, nil
}

// Ensure runs discovery and builds the verifier. A failed attempt is retried on the next call.
func (p *Provider) Ensure(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.oidcProvider != nil {
		return nil
	}

	op, err := gooidc.NewProvider(p.clientContext(ctx), p.issuer)
	if err != nil {
		return fmt.Errorf("oidc new provider: %w", err)
	}

	var meta struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	if err := op.Claims(&meta); err != nil {
		return fmt.Errorf("decode discovery metadata: %w", err)
	}

	p.oidcProvider = op
	p.verifier = op.Verifier(&gooidc.Config{ClientID: p.cfg.ClientID})
	p.endSession = meta.EndSessionEndpoint
	p.config = &oauth2.Config{
		ClientID:     p.cfg.ClientID,
		ClientSecret: p.cfg.ClientSecret,
		RedirectURL:  p.cfg.RedirectURL,
		Scopes:       strings.Fields(p.cfg.Scope),
		Endpoint:     op.Endpoint(),
	}
	return nil
}

type constructed struct {
	config     *oauth2.Config
	op         *gooidc.Provider
	verifier   *gooidc.IDTokenVerifier
	endSession string
}

func (p *Provider) constructed() (constructed, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.oidcProvider == nil {
		return constructed{}, ErrNotReady
	}
	return constructed{config: p.config, op: p.oidcProvider, verifier: p.verifier, endSession: p.endSession}, nil
}

// Begin builds the authorization URL with state, nonce and an S256 PKCE challenge.
func (p *Provider) Begin(_ context.Context, in ports.BeginInput) (ports.LoginChallenge, error) {
	c, err := p.constructed()
	if err != nil {
		return ports.LoginChallenge{}, err
	}

	state, err := generateRandomString(32)
	if err != nil {
		return ports.LoginChallenge{}, fmt.Errorf("generate state: %w", err)
	}
	nonce, err := generateRandomString(32)
	if err != nil {
		return ports.LoginChallenge{}, fmt.Errorf("generate nonce: %w", err)
	}
	verifier := oauth2.GenerateVerifier()

	opts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.S256ChallengeOption(verifier),
	}
	if in.RedirectURL != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", in.RedirectURL))
	}

	return ports.LoginChallenge{
		AuthURL:  c.config.AuthCodeURL(state, opts...),
		State:    state,
		Nonce:    nonce,
		Verifier: verifier,
	}, nil
}

// Exchange trades the code for tokens and verifies the ID token nonce.
func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Token, error) {
	if in.Code == "" {
		return domainauth.Token{}, errors.New("authorization code is required")
	}
	if in.Nonce == "" {
		return domainauth.Token{}, errors.New("nonce is required")
	}
	c, err := p.constructed()
	if err != nil {
		return domainauth.Token{}, err
	}

	var opts []oauth2.AuthCodeOption
	if in.Verifier != "" {
		opts = append(opts, oauth2.VerifierOption(in.Verifier))
	}
	if in.RedirectURL != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", in.RedirectURL))
	}
	tok, err := c.config.Exchange(p.clientContext(ctx), in.Code, opts...)
	if err != nil {
		return domainauth.Token{}, fmt.Errorf("exchange code for token: %w", err)
	}

	rawID, _ := tok.Extra("id_token").(string)
	if slices.Contains(c.config.Scopes, "openid") {
		if rawID == "" {
			return domainauth.Token{}, errors.New("missing id_token in token response")
		}
		idTok, err := c.verifier.Verify(ctx, rawID)
		if err != nil {
			return domainauth.Token{}, fmt.Errorf("verify id_token: %w", err)
		}
		if idTok.Nonce != in.Nonce {
			return domainauth.Token{}, errors.New("invalid nonce")
		}
	}

	return toDomainToken(tok, rawID), nil
}

// Refresh performs one refresh-token grant.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (domainauth.Token, error) {
	if refreshToken == "" {
		return domainauth.Token{}, errors.New("refresh token is required")
	}
	c, err := p.constructed()
	if err != nil {
		return domainauth.Token{}, err
	}

	// No access token, so the source cannot consider the seed valid and skip the grant.
	tok, err := c.config.TokenSource(p.clientContext(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return domainauth.Token{}, fmt.Errorf("refresh token: %w", err)
	}
	rawID, _ := tok.Extra("id_token").(string)
	return toDomainToken(tok, rawID), nil
}

// profileClaims covers the userinfo and ID token claim shapes we read.
type profileClaims struct {
	PreferredUsername string `json:"preferred_username"`
	GivenName         string `json:"given_name"`
	FamilyName        string `json:"family_name"`
	Email             string `json:"email"`
}

func (c profileClaims) profile() domainauth.Profile {
	return domainauth.Profile{
		Username:  c.PreferredUsername,
		FirstName: c.GivenName,
		LastName:  c.FamilyName,
		Email:     c.Email,
	}
}

// Profile loads the userinfo profile, falling back to ID token claims when userinfo is unavailable.
func (p *Provider) Profile(ctx context.Context, tok domainauth.Token) (domainauth.Profile, error) {
	c, err := p.constructed()
	if err != nil {
		return domainauth.Profile{}, err
	}

	ui, uiErr := c.op.UserInfo(p.clientContext(ctx), oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok.AccessToken}))
	if uiErr == nil {
		var claims profileClaims
		if err := ui.Claims(&claims); err != nil {
			return domainauth.Profile{}, fmt.Errorf("decode user info: %w", err)
		}
		return claims.profile(), nil
	}

	if tok.IDToken == "" {
		return domainauth.Profile{}, fmt.Errorf("fetch user info: %w", uiErr)
	}
	var claims struct {
		profileClaims
		jwt.RegisteredClaims
	}
	if _, _, err := jwt.NewParser().ParseUnverified(tok.IDToken, &claims); err != nil {
		return domainauth.Profile{}, errors.Join(fmt.Errorf("fetch user info: %w", uiErr), fmt.Errorf("parse id_token: %w", err))
	}
	return claims.profile(), nil
}

// LogoutURL builds the RP-initiated logout URL. Without an end-session endpoint it returns the redirect target.
func (p *Provider) LogoutURL(_ context.Context, in ports.LogoutInput) (string, error) {
	c, err := p.constructed()
	if err != nil {
		return "", err
	}
	if c.endSession == "" {
		return in.RedirectURL, nil
	}

	u, err := url.Parse(c.endSession)
	if err != nil {
		return "", fmt.Errorf("parse end_session_endpoint: %w", err)
	}
	q := u.Query()
	q.Set("client_id", c.config.ClientID)
	if in.IDToken != "" {
		q.Set("id_token_hint", in.IDToken)
	}
	if in.RedirectURL != "" {
		q.Set("post_logout_redirect_uri", in.RedirectURL)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (p *Provider) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

// toDomainToken copies an oauth2 token, reading exp from the access token when the
// response carried no expires_in.
func toDomainToken(tok *oauth2.Token, rawID string) domainauth.Token {
	out := domainauth.Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		IDToken:      rawID,
		Expiry:       tok.Expiry,
	}
	if out.Expiry.IsZero() {
		out.Expiry = unverifiedExpiry(tok.AccessToken)
	}
	return out
}

func unverifiedExpiry(raw string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// generateRandomString generates a cryptographically secure URL-safe random string of exact length.
func generateRandomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:length], nil
}
