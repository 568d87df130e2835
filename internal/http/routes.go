package httpx

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	rmsconsole "github.com/atparui/rms-console"
	"github.com/atparui/rms-console/internal/observability/metrics"
	"github.com/atparui/rms-console/internal/service"
	"github.com/atparui/rms-console/internal/session"
)

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	Cookie   SessionCookie
	InitWait time.Duration
	// BaseURL is the external origin of the console, used as the post-logout target.
	BaseURL     string
	MetricsPath string // empty disables /metrics
	Compression CompressionSettings
	IsDev       bool // templates and static files are read from disk
	// TemplateFS overrides template discovery; tests point it at the source tree.
	TemplateFS fs.FS
}

// CompressionSettings toggles gzip for responses.
type CompressionSettings struct {
	Enabled bool
	Level   int
}

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Sessions *session.Manager
	Nav      *service.NavigationService
	Metrics  *metrics.Metrics // optional
	Config   RouterConfig
	Logger   *slog.Logger // Logger for template and HTTP errors (optional)
}

// NewRouter creates the console's HTTP handler with its middleware chain.
func NewRouter(services RouterServices) (http.Handler, error) {
	if services.Sessions == nil || services.Nav == nil {
		return nil, errors.New("router requires sessions and navigation")
	}
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := services.Config

	templateFS, err := templateFSFor(cfg)
	if err != nil {
		return nil, err
	}
	renderer, err := NewTemplateRenderer(TemplateRendererConfig{TemplateFS: templateFS, Logger: logger})
	if err != nil {
		return nil, err
	}

	guard := NewAccessGuard(AccessGuardOptions{
		Sessions: services.Sessions,
		Cookie:   cfg.Cookie,
		InitWait: cfg.InitWait,
		Renderer: renderer,
		Metrics:  services.Metrics,
		Logger:   logger,
	})
	authHandlers := &AuthHandlers{
		Guard:    guard,
		Nav:      services.Nav,
		Renderer: renderer,
		BaseURL:  cfg.BaseURL,
		Logger:   logger,
	}
	navHandlers := &NavHandlers{Nav: services.Nav, Renderer: renderer}
	dashboard := &DashboardHandlers{Nav: services.Nav, Renderer: renderer}

	mux := http.NewServeMux()

	health := healthHandler(nil)
	mux.Handle("GET /api/health", health)
	mux.Handle("HEAD /api/health", health)
	mux.Handle("GET /healthz", health)
	mux.Handle("HEAD /healthz", health)
	if cfg.MetricsPath != "" && services.Metrics != nil {
		mux.Handle("GET "+cfg.MetricsPath, services.Metrics.Handler())
	}
	mux.Handle("GET /static/", staticHandler(cfg.IsDev, logger))
	mux.Handle("GET /favicon.ico", http.NotFoundHandler())

	registerAuthRoutes(mux, authHandlers)
	registerNavRoutes(mux, navHandlers, guard)
	mux.Handle("GET /", guard.Wrap(http.HandlerFunc(dashboard.Page)))

	mws := []func(http.Handler) http.Handler{
		Recover(logger),
		Logging(logger, services.Metrics),
	}
	if cfg.Compression.Enabled {
		mws = append(mws, Compression(cfg.Compression.Level, logger))
	}
	mws = append(mws, BrowserDetection(), CSRFProtection(cfg.Cookie.Domain))
	return Chain(mux, mws...), nil
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("GET /auth/login", h.Login)
	mux.HandleFunc("GET /auth/callback", h.Callback)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("GET /auth/status", h.Status)
}

func registerNavRoutes(mux *http.ServeMux, h *NavHandlers, guard *AccessGuard) {
	mux.Handle("GET /api/nav", guard.Wrap(http.HandlerFunc(h.Tree)))
	mux.Handle("POST /api/nav/refresh", guard.Wrap(http.HandlerFunc(h.Refresh)))
	mux.Handle("GET /ui/nav", guard.Wrap(http.HandlerFunc(h.Sidebar)))
	mux.Handle("POST /ui/nav/refresh", guard.Wrap(http.HandlerFunc(h.RefreshSidebar)))
}

func templateFSFor(cfg RouterConfig) (fs.FS, error) {
	switch {
	case cfg.TemplateFS != nil:
		return cfg.TemplateFS, nil
	case cfg.IsDev:
		return os.DirFS(TemplatePathFromRoot), nil
	default:
		return fs.Sub(rmsconsole.TemplateFS, TemplatePathFromRoot)
	}
}

func staticHandler(isDev bool, logger *slog.Logger) http.Handler {
	if isDev {
		return staticWithCacheHeaders(http.StripPrefix("/static/", http.FileServer(http.Dir("frontend/static"))))
	}

	staticSub, err := fs.Sub(rmsconsole.StaticFS, "frontend/static")
	if err != nil {
		logger.Error("failed to create sub-filesystem for static assets", "error", err)
		return staticWithCacheHeaders(http.StripPrefix("/static/", http.FileServer(http.Dir("frontend/static"))))
	}
	return staticWithCacheHeaders(http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))
}

// staticWithCacheHeaders lets browsers cache styles for a short while; assets are not fingerprinted.
func staticWithCacheHeaders(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=300")
		handler.ServeHTTP(w, r)
	})
}
