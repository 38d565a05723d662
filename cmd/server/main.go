package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockpulse/backend/internal/analytics"
	"stockpulse/backend/internal/cache"
	"stockpulse/backend/internal/config"
	"stockpulse/backend/internal/httpapi"
	"stockpulse/backend/internal/logging"
	"stockpulse/backend/internal/service"
	"stockpulse/backend/internal/store"
	"stockpulse/backend/internal/store/memory"
	pgstore "stockpulse/backend/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := validateConfig(cfg); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback", "error", err)
			os.Exit(1)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Error("schema check failed", "error", err)
			os.Exit(1)
		}
		repo = pg
		closers = append(closers, pg.Close)
		logger.Info("repository ready", "kind", "postgres")
	} else {
		repo = memory.NewSeeded()
		logger.Info("repository ready", "kind", "memory", "demo_user", memory.DemoUserID)
	}

	cacheStore := cache.ResponseCache(cache.NoopCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Warn("redis unavailable, using noop cache", "error", err)
		} else {
			cacheStore = redisCache
			closers = append(closers, redisCache.Close)
			logger.Info("cache ready", "kind", "redis", "ttl", cfg.CacheTTL().String())
		}
	} else {
		logger.Info("cache ready", "kind", "noop")
	}

	engine := analytics.NewEngine(repo)
	svc := service.New(engine, cacheStore, cfg.CacheTTL(), logger)
	auth := httpapi.NewTokenVerifier(cfg.AuthSecret, cfg.AccessTokenTTL())
	api := httpapi.New(svc, auth, httpapi.Options{
		AllowedOrigin:  cfg.AllowedOrigin,
		RequestTimeout: cfg.RequestTimeout(),
		Logger:         logger,
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout() + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("analytics backend listening", "addr", cfg.Address())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Error("close error", "error", err)
		}
	}

	logger.Info("server stopped")
}

func validateConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.AllowedOrigin == "*" && cfg.DatabaseURL != "" {
		return fmt.Errorf("ALLOWED_ORIGIN must name an origin when serving a real database")
	}
	return nil
}
