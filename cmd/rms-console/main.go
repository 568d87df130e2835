package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/atparui/rms-console/config"
	"github.com/atparui/rms-console/internal/bootstrap"
	"github.com/redis/go-redis/v9"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := bootstrap.InitLogger(slog.LevelInfo)
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		stop()
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	level := cfg.Observability.Logging.SlogLevel()
	if cfg.IsDev && level == slog.LevelInfo {
		level = slog.LevelDebug
	}
	logger = bootstrap.InitLogger(level)

	logStartupInfo(ctx, logger, &cfg)

	var redisClient redis.UniversalClient
	if cfg.Session.Mirror == config.TokenMirrorRedis {
		redisClient, err = bootstrap.ConnectRedis(ctx, bootstrap.RedisOptions{Config: cfg.Redis, Logger: logger})
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close redis failed", "error", cerr)
			}
		}()
	}

	services, err := bootstrap.NewServices(bootstrap.ServiceDeps{
		Config: &cfg,
		Redis:  redisClient,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	return bootstrap.Run(ctx, bootstrap.RunOptions{
		Server:          bootstrap.NewHTTPServer(cfg.HTTP, services.Handler),
		Services:        services,
		SweepInterval:   cfg.Session.SweepInterval,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
		Logger:          logger,
	})
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting rms console",
		"addr", cfg.HTTP.Addr,
		"auth_mode", cfg.Auth.Mode,
		"issuer", cfg.Auth.Keycloak.Issuer(),
		"api_origin", cfg.API.Origin,
		"app_key", cfg.API.AppKey,
		"token_mirror", cfg.Session.Mirror,
		"dev", cfg.IsDev)
}
