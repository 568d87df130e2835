package oidc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	domainauth "github.com/atparui/rms-console/internal/domain/auth"
	"github.com/atparui/rms-console/internal/ports"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testClientID = "rms-web"

// fakeIdP is a minimal realm-shaped OIDC server.
type fakeIdP struct {
	t      *testing.T
	srv    *httptest.Server
	key    *rsa.PrivateKey
	issuer string

	mu           sync.Mutex
	nonce        string
	lastForm     url.Values
	refreshCalls int
	userinfoDown bool
}

func newFakeIdP(t *testing.T) *fakeIdP {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	f := &fakeIdP{t: t, key: key}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /realms/test/.well-known/openid-configuration", f.discovery)
	mux.HandleFunc("GET /realms/test/certs", f.jwks)
	mux.HandleFunc("POST /realms/test/token", f.token)
	mux.HandleFunc("GET /realms/test/userinfo", f.userinfo)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	f.issuer = f.srv.URL + "/realms/test"
	return f
}

func (f *fakeIdP) discovery(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                                f.issuer,
		"authorization_endpoint":                f.issuer + "/auth",
		"token_endpoint":                        f.issuer + "/token",
		"userinfo_endpoint":                     f.issuer + "/userinfo",
		"jwks_uri":                              f.issuer + "/certs",
		"end_session_endpoint":                  f.issuer + "/logout",
		"id_token_signing_alg_values_supported": []string{"RS256"},
	})
}

func (f *fakeIdP) jwks(w http.ResponseWriter, _ *http.Request) {
	pub := f.key.PublicKey
	writeJSON(w, http.StatusOK, map[string]any{"keys": []map[string]any{{
		"kty": "RSA",
		"kid": "k1",
		"alg": "RS256",
		"use": "sig",
		"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}}})
}

func (f *fakeIdP) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.lastForm = r.PostForm
	nonce := f.nonce
	f.mu.Unlock()

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		if r.PostForm.Get("code") != "good-code" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
	case "refresh_token":
		f.mu.Lock()
		f.refreshCalls++
		f.mu.Unlock()
		if r.PostForm.Get("refresh_token") != "refresh-1" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  "access-1",
		"token_type":    "Bearer",
		"expires_in":    300,
		"refresh_token": "refresh-2",
		"id_token":      f.idToken(nonce),
	})
}

func (f *fakeIdP) userinfo(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	down := f.userinfoDown
	f.mu.Unlock()
	if down || r.Header.Get("Authorization") != "Bearer access-1" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sub":                "u-1",
		"preferred_username": "alice",
		"given_name":         "Alice",
		"family_name":        "Doe",
		"email":              "alice@example.com",
	})
}

func (f *fakeIdP) idToken(nonce string) string {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":                f.issuer,
		"aud":                testClientID,
		"sub":                "u-1",
		"iat":                now.Unix(),
		"exp":                now.Add(5 * time.Minute).Unix(),
		"nonce":              nonce,
		"given_name":         "Alice",
		"family_name":        "Token",
		"email":              "alice@example.com",
		"preferred_username": "alice",
	})
	tok.Header["kid"] = "k1"
	s, err := tok.SignedString(f.key)
	require.NoError(f.t, err)
	return s
}

func (f *fakeIdP) setNonce(n string) {
	f.mu.Lock()
	f.nonce = n
	f.mu.Unlock()
}

func (f *fakeIdP) setUserinfoDown() {
	f.mu.Lock()
	f.userinfoDown = true
	f.mu.Unlock()
}

func (f *fakeIdP) form() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastForm
}

func (f *fakeIdP) refreshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestProvider(t *testing.T, f *fakeIdP) *Provider {
	t.Helper()
	p, err := NewProvider(ProviderConfig{
		BaseURL:     f.srv.URL,
		Realm:       "test",
		ClientID:    testClientID,
		RedirectURL: "http://localhost:8080/auth/callback",
		Scope:       "openid profile email",
	})
	require.NoError(t, err)
	require.NoError(t, p.Ensure(context.Background()))
	return p
}

func TestNewProvider_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		config ProviderConfig
		errMsg string
	}{
		{name: "missing base URL", config: ProviderConfig{Realm: "r", ClientID: "c", RedirectURL: "http://x"}, errMsg: "base URL is required"},
		{name: "missing realm", config: ProviderConfig{BaseURL: "http://x", ClientID: "c", RedirectURL: "http://x"}, errMsg: "realm is required"},
		{name: "missing client ID", config: ProviderConfig{BaseURL: "http://x", Realm: "r", RedirectURL: "http://x"}, errMsg: "client ID is required"},
		{name: "missing redirect URL", config: ProviderConfig{BaseURL: "http://x", Realm: "r", ClientID: "c"}, errMsg: "redirect URL is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestProviderConfig_Issuer(t *testing.T) {
	c := ProviderConfig{BaseURL: "https://auth.atparui.com/", Realm: "rms-demo"}
	assert.Equal(t, "https://auth.atparui.com/realms/rms-demo", c.Issuer())
}

func TestProvider_NotReadyBeforeEnsure(t *testing.T) {
	p, err := NewProvider(ProviderConfig{BaseURL: "http://127.0.0.1:1", Realm: "r", ClientID: "c", RedirectURL: "http://x"})
	require.NoError(t, err)

	_, err = p.Begin(context.Background(), ports.BeginInput{})
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = p.Refresh(context.Background(), "r")
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestProvider_EnsureFailsThenRetries(t *testing.T) {
	f := newFakeIdP(t)
	p, err := NewProvider(ProviderConfig{BaseURL: f.srv.URL, Realm: "other", ClientID: testClientID, RedirectURL: "http://x"})
	require.NoError(t, err)
	assert.Error(t, p.Ensure(context.Background()))

	p.issuer = f.issuer
	assert.NoError(t, p.Ensure(context.Background()))
}

func TestProvider_Begin(t *testing.T) {
	p := newTestProvider(t, newFakeIdP(t))

	ch, err := p.Begin(context.Background(), ports.BeginInput{})
	require.NoError(t, err)
	assert.NotEmpty(t, ch.State)
	assert.NotEmpty(t, ch.Nonce)
	assert.NotEmpty(t, ch.Verifier)

	u, err := url.Parse(ch.AuthURL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, testClientID, q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, ch.State, q.Get("state"))
	assert.Equal(t, ch.Nonce, q.Get("nonce"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
	assert.NotEqual(t, ch.Verifier, q.Get("code_challenge"))
	assert.Equal(t, "http://localhost:8080/auth/callback", q.Get("redirect_uri"))
}

func TestProvider_Exchange(t *testing.T) {
	f := newFakeIdP(t)
	p := newTestProvider(t, f)
	f.setNonce("n-1")

	tok, err := p.Exchange(context.Background(), ports.ExchangeInput{Code: "good-code", Nonce: "n-1", Verifier: "v-1"})
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok.AccessToken)
	assert.Equal(t, "refresh-2", tok.RefreshToken)
	assert.NotEmpty(t, tok.IDToken)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), tok.Expiry, 10*time.Second)
	assert.Equal(t, "v-1", f.form().Get("code_verifier"))
}

func TestProvider_Exchange_Errors(t *testing.T) {
	f := newFakeIdP(t)
	p := newTestProvider(t, f)
	f.setNonce("n-1")
	ctx := context.Background()

	_, err := p.Exchange(ctx, ports.ExchangeInput{Nonce: "n-1"})
	assert.ErrorContains(t, err, "authorization code is required")

	_, err = p.Exchange(ctx, ports.ExchangeInput{Code: "good-code"})
	assert.ErrorContains(t, err, "nonce is required")

	_, err = p.Exchange(ctx, ports.ExchangeInput{Code: "good-code", Nonce: "other"})
	assert.ErrorContains(t, err, "invalid nonce")

	_, err = p.Exchange(ctx, ports.ExchangeInput{Code: "bad-code", Nonce: "n-1"})
	assert.ErrorContains(t, err, "exchange code for token")
}

func TestProvider_Refresh(t *testing.T) {
	f := newFakeIdP(t)
	p := newTestProvider(t, f)

	tok, err := p.Refresh(context.Background(), "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok.AccessToken)
	assert.Equal(t, "refresh-2", tok.RefreshToken)
	assert.Equal(t, "refresh-1", f.form().Get("refresh_token"))
	assert.Equal(t, 1, f.refreshes())

	_, err = p.Refresh(context.Background(), "revoked")
	assert.Error(t, err)

	_, err = p.Refresh(context.Background(), "")
	assert.Error(t, err)
}

func TestProvider_Profile(t *testing.T) {
	f := newFakeIdP(t)
	p := newTestProvider(t, f)

	prof, err := p.Profile(context.Background(), domainauth.Token{AccessToken: "access-1"})
	require.NoError(t, err)
	assert.Equal(t, domainauth.Profile{Username: "alice", FirstName: "Alice", LastName: "Doe", Email: "alice@example.com"}, prof)
}

func TestProvider_Profile_FallsBackToIDToken(t *testing.T) {
	f := newFakeIdP(t)
	p := newTestProvider(t, f)
	f.setUserinfoDown()

	prof, err := p.Profile(context.Background(), domainauth.Token{AccessToken: "access-1", IDToken: f.idToken("n")})
	require.NoError(t, err)
	assert.Equal(t, "Token", prof.LastName)

	_, err = p.Profile(context.Background(), domainauth.Token{AccessToken: "access-1"})
	assert.Error(t, err)
}

func TestProvider_LogoutURL(t *testing.T) {
	f := newFakeIdP(t)
	p := newTestProvider(t, f)

	raw, err := p.LogoutURL(context.Background(), ports.LogoutInput{IDToken: "idt", RedirectURL: "http://localhost:8080/"})
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, f.issuer+"/logout", u.Scheme+"://"+u.Host+u.Path)
	assert.Equal(t, "idt", u.Query().Get("id_token_hint"))
	assert.Equal(t, "http://localhost:8080/", u.Query().Get("post_logout_redirect_uri"))
	assert.Equal(t, testClientID, u.Query().Get("client_id"))
}

func TestUnverifiedExpiry(t *testing.T) {
	exp := time.Now().Add(time.Minute).Truncate(time.Second)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("k"))
	require.NoError(t, err)

	assert.True(t, exp.Equal(unverifiedExpiry(raw)))
	assert.True(t, unverifiedExpiry("opaque").IsZero())
}

func TestGenerateRandomString(t *testing.T) {
	str1, err := generateRandomString(16)
	require.NoError(t, err)
	assert.Len(t, str1, 16)

	str2, err := generateRandomString(32)
	require.NoError(t, err)
	assert.Len(t, str2, 32)

	str3, err := generateRandomString(16)
	require.NoError(t, err)
	assert.NotEqual(t, str1, str3)
}
