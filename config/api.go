package config

import (
	"strings"
	"time"
)

// APIConfig locates the backend behind the gateway.
type APIConfig struct {
	Origin     string        `env:"API_ORIGIN"      envDefault:"https://rms-demo.atparui.com" validate:"required,http_url"`
	PathPrefix string        `env:"API_PATH_PREFIX" envDefault:"/services/rms-service/api"`
	Timeout    time.Duration `env:"API_TIMEOUT"     envDefault:"30s"`

	// AppKey selects the navigation tree served by /app-menus/tree.
	AppKey string `env:"APP_KEY" envDefault:"RMS" validate:"required"`

	// TenantID is a display default for the admin CLI; requests always use the token's tenant.
	TenantID string `env:"TENANT_ID"`

	// TenantClaim is a JMESPath expression evaluated against the token claims.
	TenantClaim string `env:"TENANT_CLAIM" envDefault:"tenant_id"`

	MenuTreeTTL time.Duration `env:"MENU_TREE_TTL" envDefault:"5m"`
}

// Sanitize normalises the origin and prefix and restores defaults for bad durations.
func (a *APIConfig) Sanitize() {
	a.Origin = strings.TrimRight(strings.TrimSpace(a.Origin), "/")
	a.PathPrefix = strings.TrimSpace(a.PathPrefix)
	if a.PathPrefix != "" {
		a.PathPrefix = "/" + strings.Trim(a.PathPrefix, "/")
	}
	if a.Timeout <= 0 {
		a.Timeout = 30 * time.Second
	}
	if a.MenuTreeTTL <= 0 {
		a.MenuTreeTTL = 5 * time.Minute
	}
	a.TenantClaim = strings.TrimSpace(a.TenantClaim)
}
