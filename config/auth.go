package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeOAuth uses the OIDC identity provider.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses a local token minter (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "oauth", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, mock)", v)
	}
}

// KeycloakConfig identifies the realm and client at the identity provider.
type KeycloakConfig struct {
	URL          string `env:"URL"           envDefault:"https://auth.atparui.com" validate:"required,http_url"`
	Realm        string `env:"REALM"         envDefault:"rms-demo"                 validate:"required"`
	ClientID     string `env:"CLIENT_ID"     envDefault:"rms-web"                  validate:"required"`
	ClientSecret string `env:"CLIENT_SECRET"`
}

// Issuer returns <url>/realms/<realm>.
func (k KeycloakConfig) Issuer() string {
	return strings.TrimRight(k.URL, "/") + "/realms/" + k.Realm
}

// OAuthConfig contains the redirect leg of the authorization code flow.
type OAuthConfig struct {
	RedirectURL string `env:"REDIRECT_URL" envDefault:"http://localhost:8080/auth/callback" validate:"required,http_url"`
	Scope       string `env:"SCOPE"        envDefault:"openid profile email"`
}

// Scopes splits Scope on whitespace or commas.
func (o OAuthConfig) Scopes() []string {
	return strings.FieldsFunc(o.Scope, func(r rune) bool { return r == ' ' || r == ',' })
}

// DevAuthConfig controls the identity minted when AUTH_MODE=mock.
type DevAuthConfig struct {
	Username      string        `env:"USERNAME"       envDefault:"dev"`
	Email         string        `env:"EMAIL"          envDefault:"dev@example.com"`
	FirstName     string        `env:"FIRST_NAME"     envDefault:"Dev"`
	LastName      string        `env:"LAST_NAME"      envDefault:"User"`
	TenantID      string        `env:"TENANT_ID"      envDefault:"dev"`
	TokenLifetime time.Duration `env:"TOKEN_LIFETIME" envDefault:"5m"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which identity provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oauth" validate:"oneof=oauth mock"`

	Keycloak KeycloakConfig `envPrefix:"KEYCLOAK_"`
	OAuth    OAuthConfig    `envPrefix:"OAUTH_"`
	DevAuth  DevAuthConfig  `envPrefix:"DEV_AUTH_"`

	// InitWait is how long the guard waits for a session to initialize
	// before answering with the waiting page.
	InitWait time.Duration `env:"AUTH_INIT_WAIT" envDefault:"2s"`

	// IdPTimeout bounds calls to the identity provider.
	IdPTimeout time.Duration `env:"AUTH_IDP_TIMEOUT" envDefault:"30s"`
}

// Sanitize trims values and clamps durations.
func (a *AuthConfig) Sanitize() {
	a.Keycloak.URL = strings.TrimRight(strings.TrimSpace(a.Keycloak.URL), "/")
	a.Keycloak.Realm = strings.TrimSpace(a.Keycloak.Realm)
	a.Keycloak.ClientID = strings.TrimSpace(a.Keycloak.ClientID)
	a.OAuth.RedirectURL = strings.TrimSpace(a.OAuth.RedirectURL)
	if strings.TrimSpace(a.OAuth.Scope) == "" {
		a.OAuth.Scope = "openid profile email"
	}
	if a.InitWait < 0 {
		a.InitWait = 0
	}
	if a.InitWait > 30*time.Second {
		a.InitWait = 30 * time.Second
	}
	if a.IdPTimeout <= 0 {
		a.IdPTimeout = 30 * time.Second
	}
	if a.DevAuth.TokenLifetime <= 0 {
		a.DevAuth.TokenLifetime = 5 * time.Minute
	}
}
