package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bidar/auth-server/internal/auth"
	"github.com/bidar/auth-server/internal/config"
	"github.com/bidar/auth-server/internal/db"
	"github.com/bidar/auth-server/internal/handler"
	"github.com/bidar/auth-server/internal/metrics"
	"github.com/bidar/auth-server/internal/observability"
	"github.com/bidar/auth-server/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

// @title Auth Server API
// @version 1.0.0
// @description Authentication and role-based authorization service.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// .env 파일은 로컬 개발용. 없으면 무시
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(os.Stdout, cfg.Server.LogLevel)
	slog.SetDefault(logger)
	for _, warning := range cfg.Warnings() {
		logger.Warn("config_warning", "detail", warning)
	}

	if err := observability.InitSentry(cfg.Sentry.DSN, cfg.Server.Environment); err != nil {
		logger.Warn("sentry init failed", "error", err)
	}
	defer observability.FlushSentry()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		observability.FlushSentry()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	hasher, err := auth.NewHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.JWTAlgorithm)
	if err != nil {
		return err
	}
	logger.Info("token codec ready",
		"algorithm", tokens.Algorithm(),
		"access_ttl", cfg.Auth.AccessTTL().String(),
		"refresh_ttl", cfg.Auth.RefreshTTL().String(),
	)

	startCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	pool, err := db.NewPostgresPool(startCtx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.RunMigrations(startCtx, pool); err != nil {
		return err
	}
	database := db.NewPostgres(pool)

	authSvc, err := service.NewAuthService(database, hasher, tokens, cfg.Auth)
	if err != nil {
		return err
	}
	userSvc := service.NewUserService(database, hasher)

	if cfg.Auth.AdminUsername != "" {
		created, err := userSvc.EnsureAdmin(startCtx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword, cfg.Auth.AdminEmail)
		if err != nil {
			return err
		}
		if created {
			logger.Info("admin account created", "username", cfg.Auth.AdminUsername)
		}
	}

	router, err := handler.NewRouter(cfg, handler.Dependencies{
		Auth:    authSvc,
		RBAC:    service.NewRBACService(database, tokens),
		Users:   userSvc,
		DB:      database,
		Metrics: metrics.New(),
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", srv.Addr, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
