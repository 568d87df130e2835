package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/atparui/rms-console/config"
	"golang.org/x/sync/errgroup"
)

// NewHTTPServer builds the console's http.Server from configuration.
func NewHTTPServer(cfg config.HTTPConfig, handler http.Handler) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// RunOptions contains everything Run supervises.
type RunOptions struct {
	Server   *http.Server
	Services *ServiceContainer
	// Listener is optional; when nil the server listens on Server.Addr.
	Listener        net.Listener
	SweepInterval   time.Duration
	ShutdownTimeout time.Duration
	Logger          *slog.Logger
}

// Run serves HTTP and sweeps idle sessions until ctx is cancelled or the
// server fails, then shuts the server down gracefully.
func Run(ctx context.Context, opts RunOptions) error {
	if opts.Server == nil || opts.Services == nil {
		return errors.New("run requires a server and services")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.InfoContext(gctx, "starting HTTP server", "addr", opts.Server.Addr)
		var err error
		if opts.Listener != nil {
			err = opts.Server.Serve(opts.Listener)
		} else {
			err = opts.Server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		opts.Services.Sessions.Run(gctx, opts.SweepInterval)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return ShutdownHTTPServer(opts.Server, opts.ShutdownTimeout, logger)
	})

	return g.Wait()
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(server *http.Server, timeout time.Duration, logger *slog.Logger) error {
	if server == nil {
		return nil
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	logger.Info("shutting down HTTP server")

	// The parent context is already cancelled at this point.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	logger.Info("HTTP server stopped")
	return nil
}
