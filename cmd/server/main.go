package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"

	"github.com/vncsmyrnk/user-service/internal/adapters/cache/bolt"
	"github.com/vncsmyrnk/user-service/internal/adapters/handler/http"
	"github.com/vncsmyrnk/user-service/internal/adapters/password/bcrypt"
	"github.com/vncsmyrnk/user-service/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/user-service/internal/adapters/repository/sqlite"
	"github.com/vncsmyrnk/user-service/internal/adapters/telemetry"
	"github.com/vncsmyrnk/user-service/internal/adapters/token/jwt"
	"github.com/vncsmyrnk/user-service/internal/config"
	"github.com/vncsmyrnk/user-service/internal/core/ports"
	"github.com/vncsmyrnk/user-service/internal/core/services"
	"github.com/vncsmyrnk/user-service/internal/logging"
)

var version = "0.1.0"

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)
	logger.Info("starting user service", "version", version, "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Otel.Endpoint, cfg.Otel.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("failed to flush telemetry", "error", err)
		}
	}()

	metrics, err := telemetry.NewMetrics(otel.GetMeterProvider().Meter(telemetry.MeterName))
	if err != nil {
		return err
	}

	db, repo, err := openRepository(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := os.MkdirAll(filepath.Dir(cfg.Cache.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	cache, err := bolt.Open(cfg.Cache.Path)
	if err != nil {
		return err
	}
	defer cache.Close()
	go sweepCache(ctx, cache, cfg.Cache.SweepInterval, logger)

	hasher := bcrypt.NewHasher(cfg.Auth.BcryptCost)
	codec := jwt.NewCodec(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)

	authService := services.NewAuthService(repo, hasher, codec, metrics, logger)
	userService := services.NewUserService(repo, services.NewUserCache(cache, cfg.Cache.TTL, metrics, logger), hasher, metrics, logger)
	userService.RefreshActiveUsers(ctx)

	router := http.NewHandler(
		http.NewUserHandler(userService, logger),
		http.NewAuthHandler(authService, logger),
		http.NewHealthHandler(version, repo, cache, logger),
		authService,
		logger,
	)

	server := &stdhttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(router, cfg.Otel.ServiceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

func openRepository(ctx context.Context, cfg config.Database, logger *slog.Logger) (*sql.DB, ports.UserRepository, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create sqlite directory: %w", err)
		}
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if cfg.AutoMigrate {
			if err := sqlite.Migrate(ctx, db, "up", logger); err != nil {
				db.Close()
				return nil, nil, err
			}
		}
		return db, sqlite.NewUserRepository(db), nil
	default:
		db, err := postgres.Open(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, nil, err
		}
		if cfg.AutoMigrate {
			if err := postgres.Migrate(ctx, db, "up", logger); err != nil {
				db.Close()
				return nil, nil, err
			}
		}
		return db, postgres.NewUserRepository(db), nil
	}
}

// sweepCache drops expired cache entries until ctx is done.
func sweepCache(ctx context.Context, cache *bolt.Cache, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := cache.Sweep(ctx)
			if err != nil {
				logger.Warn("cache sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				logger.Debug("swept expired cache entries", "removed", removed)
			}
		}
	}
}
