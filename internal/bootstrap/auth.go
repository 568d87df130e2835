package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/atparui/rms-console/config"
	"github.com/atparui/rms-console/internal/adapters/devauth"
	"github.com/atparui/rms-console/internal/adapters/memory"
	"github.com/atparui/rms-console/internal/adapters/oidc"
	redisstore "github.com/atparui/rms-console/internal/adapters/redis"
	"github.com/atparui/rms-console/internal/ports"
	"github.com/redis/go-redis/v9"
)

// BuildIdentityProvider selects the identity provider for cfg.Mode.
//
//nolint:ireturn // the concrete provider is chosen at runtime.
func BuildIdentityProvider(cfg config.AuthConfig, logger *slog.Logger) (ports.IdentityProvider, error) {
	switch cfg.Mode {
	case config.AuthModeMock:
		if logger != nil {
			logger.Warn("using mock identity provider; never enable this outside development",
				"username", cfg.DevAuth.Username, "tenant", cfg.DevAuth.TenantID)
		}
		p, err := devauth.NewProvider(devauth.Config{
			Username:      cfg.DevAuth.Username,
			Email:         cfg.DevAuth.Email,
			FirstName:     cfg.DevAuth.FirstName,
			LastName:      cfg.DevAuth.LastName,
			TenantID:      cfg.DevAuth.TenantID,
			TokenLifetime: cfg.DevAuth.TokenLifetime,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.AuthModeOAuth, "":
		p, err := oidc.NewProvider(oidc.ProviderConfig{
			BaseURL:      cfg.Keycloak.URL,
			Realm:        cfg.Keycloak.Realm,
			ClientID:     cfg.Keycloak.ClientID,
			ClientSecret: cfg.Keycloak.ClientSecret,
			RedirectURL:  cfg.OAuth.RedirectURL,
			Scope:        cfg.OAuth.Scope,
			HTTPClient:   &http.Client{Timeout: cfg.IdPTimeout},
		})
		if err != nil {
			return nil, fmt.Errorf("create oidc provider: %w", err)
		}
		if logger != nil {
			logger.Info("oidc identity provider configured", "issuer", cfg.Keycloak.Issuer(), "client_id", cfg.Keycloak.ClientID)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Mode)
	}
}

// BuildTokenStore selects where session tokens are mirrored.
// The redis mirror requires a connected client.
//
//nolint:ireturn // the concrete store is chosen at runtime.
func BuildTokenStore(cfg config.SessionConfig, client redis.UniversalClient) (ports.TokenStore, error) {
	switch cfg.Mirror {
	case config.TokenMirrorMemory:
		return memory.NewTokenStore(), nil
	case config.TokenMirrorRedis, "":
		if client == nil {
			return nil, errors.New("redis token mirror requires a redis client")
		}
		return redisstore.NewTokenStore(client, redisstore.TokenStoreOptions{
			Prefix: cfg.MirrorPrefix,
			TTL:    cfg.MirrorTTL,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported token mirror %q", cfg.Mirror)
	}
}
