package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/atparui/rms-console/config"
	"github.com/atparui/rms-console/internal/apiclient"
	httpx "github.com/atparui/rms-console/internal/http"
	"github.com/atparui/rms-console/internal/observability/metrics"
	"github.com/atparui/rms-console/internal/ports"
	"github.com/atparui/rms-console/internal/service"
	"github.com/atparui/rms-console/internal/session"
	"github.com/atparui/rms-console/internal/tenant"
	"github.com/redis/go-redis/v9"
)

// ServiceDeps holds the inputs for building the service container.
type ServiceDeps struct {
	Config *config.AppConfig
	// Redis backs the token mirror; nil is fine when TOKEN_MIRROR=memory.
	Redis  redis.UniversalClient
	Logger *slog.Logger

	// Provider and Store override the configured adapters (tests).
	Provider ports.IdentityProvider
	Store    ports.TokenStore
}

// ServiceContainer holds the wired console services.
type ServiceContainer struct {
	Sessions *session.Manager
	Nav      *service.NavigationService
	API      *apiclient.Client
	Metrics  *metrics.Metrics
	Handler  http.Handler
}

// NewServices builds every console service from configuration.
func NewServices(deps ServiceDeps) (*ServiceContainer, error) {
	if deps.Config == nil {
		return nil, errors.New("config is required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	provider := deps.Provider
	if provider == nil {
		p, err := BuildIdentityProvider(cfg.Auth, logger)
		if err != nil {
			return nil, err
		}
		provider = p
	}
	store := deps.Store
	if store == nil {
		s, err := BuildTokenStore(cfg.Session, deps.Redis)
		if err != nil {
			return nil, err
		}
		store = s
	}

	m := metrics.New()
	sessions := session.NewManager(session.ManagerOptions{
		Session: session.Options{
			Provider:    provider,
			Store:       store,
			Logger:      logger.With("component", "session"),
			CallbackURL: cfg.Auth.OAuth.RedirectURL,
		},
		IdleTTL: cfg.Session.IdleTTL,
	})

	resolver, err := tenant.NewResolver(cfg.API.TenantClaim)
	if err != nil {
		return nil, fmt.Errorf("tenant claim %q: %w", cfg.API.TenantClaim, err)
	}
	api, err := apiclient.New(apiclient.Config{
		Origin:     cfg.API.Origin,
		PathPrefix: cfg.API.PathPrefix,
		Timeout:    cfg.API.Timeout,
		Tenants:    resolver,
		Metrics:    m,
		Logger:     logger.With("component", "apiclient"),
	})
	if err != nil {
		return nil, fmt.Errorf("create api client: %w", err)
	}

	nav := service.NewNavigationService(service.NavigationServiceOptions{
		Fetch:  service.APITreeFetcher(api, cfg.API.AppKey),
		Config: service.NavigationConfig{TTL: cfg.API.MenuTreeTTL},
		Telemetry: service.NavigationTelemetry{
			Logger:  logger.With("component", "navigation"),
			Metrics: m,
		},
	})

	registerGauges(m, sessions, nav)

	handler, err := httpx.NewRouter(httpx.RouterServices{
		Sessions: sessions,
		Nav:      nav,
		Metrics:  m,
		Config:   routerConfig(cfg),
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}

	return &ServiceContainer{
		Sessions: sessions,
		Nav:      nav,
		API:      api,
		Metrics:  m,
		Handler:  handler,
	}, nil
}

func routerConfig(cfg *config.AppConfig) httpx.RouterConfig {
	rc := httpx.RouterConfig{
		Cookie: httpx.SessionCookie{
			Name:   cfg.Session.CookieName,
			Domain: cfg.HTTP.CookieDomain,
			Secure: cfg.HTTP.CookieSecure,
		},
		InitWait: cfg.Auth.InitWait,
		BaseURL:  cfg.HTTP.BaseURL,
		Compression: httpx.CompressionSettings{
			Enabled: cfg.HTTP.CompressionEnabled,
			Level:   cfg.HTTP.CompressionLevel,
		},
		IsDev: cfg.IsDev,
	}
	// A zero wait would default to DefaultInitWait; negative means "don't wait".
	if rc.InitWait == 0 {
		rc.InitWait = -1
	}
	if cfg.Observability.Metrics.IsEnabled() {
		rc.MetricsPath = cfg.Observability.Metrics.Path
	}
	return rc
}

func registerGauges(m *metrics.Metrics, sessions *session.Manager, nav *service.NavigationService) {
	m.GaugeFunc("sessions_active", "Browser sessions currently held in memory.", func() float64 {
		return float64(sessions.Len())
	})
	m.GaugeFunc("nav_cache_entries", "Navigation trees currently cached.", func() float64 {
		return float64(nav.Stats().Size)
	})
}
