// Command catalogauthd serves the catalog authentication API over HTTP.
//
// Usage:
//
//	catalogauthd -config /etc/catalogauth/config.yaml
//
// Secrets are normally passed through the environment:
// CATALOGAUTH_TOKEN_SECRET, CATALOGAUTH_DATABASE_DSN, CATALOGAUTH_REDIS_PASSWORD
// and CATALOGAUTH_BOOTSTRAP_ADMIN_PASSWORD. See config.example.yaml.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	catalogAuth "github.com/MrEthical07/catalogAuth"
	"github.com/MrEthical07/catalogAuth/directory"
	"github.com/MrEthical07/catalogAuth/httpapi"
	"github.com/MrEthical07/catalogAuth/metrics/export/prometheus"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath, os.LookupEnv)
	if err != nil {
		fmt.Fprintln(os.Stderr, "catalogauthd:", err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg.Log.Debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, "catalogauthd: logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("catalogauthd stopped", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(ctx context.Context, cfg daemonConfig, logger *zap.Logger) error {
	rdb, closeRedis, err := openRedis(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRedis()

	dir, closeDir, err := openDirectory(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeDir()

	auth, err := catalogAuth.New().
		WithConfig(cfg.authorityConfig()).
		WithRedis(rdb).
		WithDirectory(dir).
		WithLogger(logger).
		Build()
	if err != nil {
		return fmt.Errorf("build authority: %w", err)
	}
	defer auth.Close()

	r := auth.SecurityReport()
	logger.Info("authority ready",
		zap.String("signing", r.SigningAlgorithm),
		zap.Duration("session_lifetime", r.SessionLifetime),
		zap.Bool("sliding_sessions", r.SlidingSessions),
		zap.Int("kdf_iterations", r.KDFIterations),
		zap.Bool("rate_limiting", r.RateLimitingActive),
		zap.Bool("audit", r.AuditEnabled),
	)

	if err := bootstrapAdmin(ctx, auth, cfg, logger); err != nil {
		return err
	}

	opts := httpapi.Options{
		CookieSecure: cfg.CookieSecure,
		Logger:       logger,
	}
	if cfg.Metrics.Enabled {
		opts.Metrics = prometheus.New(auth).Handler()
	}
	e := httpapi.New(auth, opts)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Listen))
		if err := e.Start(cfg.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func openRedis(ctx context.Context, cfg daemonConfig, logger *zap.Logger) (redis.UniversalClient, func(), error) {
	addr := cfg.Redis.Addr
	var mr *miniredis.Miniredis
	if cfg.Redis.Embedded {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start embedded redis: %w", err)
		}
		addr = mr.Addr()
		logger.Warn("using embedded redis; sessions are lost on restart")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	closeFn := func() {
		_ = rdb.Close()
		if mr != nil {
			mr.Close()
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, closeFn, nil
}

func openDirectory(ctx context.Context, cfg daemonConfig, logger *zap.Logger) (catalogAuth.UserDirectory, func(), error) {
	if cfg.Database.DSN == "" {
		logger.Warn("no database configured; using in-memory user directory")
		return directory.NewMemory(), func() {}, nil
	}

	db, err := directory.OpenPostgres(cfg.Database.DSN, logger)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("database handle: %w", err)
	}
	closeFn := func() { _ = sqlDB.Close() }

	if cfg.Database.Migrate {
		if err := directory.Migrate(ctx, db); err != nil {
			closeFn()
			return nil, nil, err
		}
	}
	return directory.NewGorm(db), closeFn, nil
}

func bootstrapAdmin(ctx context.Context, auth *catalogAuth.Authority, cfg daemonConfig, logger *zap.Logger) error {
	name := cfg.Bootstrap.AdminUsername
	if name == "" {
		return nil
	}
	if cfg.Bootstrap.AdminPassword == "" {
		logger.Warn("bootstrap admin configured without CATALOGAUTH_BOOTSTRAP_ADMIN_PASSWORD; skipped",
			zap.String("username", name))
		return nil
	}

	created, err := auth.EnsureAdmin(ctx, name, cfg.Bootstrap.AdminPassword, cfg.Bootstrap.AdminEmail)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		logger.Info("bootstrap admin created", zap.String("username", name))
	}
	return nil
}
