package handler

import (
	"fmt"
	"log/slog"

	"github.com/bidar/auth-server/internal/config"
	"github.com/bidar/auth-server/internal/metrics"
	"github.com/bidar/auth-server/internal/service"
	"github.com/gin-gonic/gin"
)

type Dependencies struct {
	Auth    *service.AuthService
	RBAC    *service.RBACService
	Users   *service.UserService
	DB      Pinger
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// NewRouter builds the engine. X-Forwarded-For is honoured only from
// cfg.Server.TrustedProxies; without any, ClientIP is the socket address.
func NewRouter(cfg config.Config, deps Dependencies) (*gin.Engine, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}

	r.Use(
		RequestIDMiddleware(),
		RequestLogger(logger),
		Recovery(logger),
	)
	// host 거부(400)와 preflight(204)도 집계되도록 metrics를 먼저 건다
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
	}
	r.Use(
		TrustedHostMiddleware(cfg.Server.AllowedHosts),
		CORSMiddleware(cfg.Server.AllowedOrigins, true),
	)
	if deps.Metrics != nil {
		r.GET(metrics.Path, gin.WrapH(deps.Metrics.Handler()))
	}

	docsEnabled := !cfg.IsProduction()
	r.GET("/", Root(docsEnabled))
	r.GET("/health", Health(deps.DB))
	if docsEnabled {
		r.GET(docsPath, OpenAPIDoc)
	}

	requireUser := AuthMiddleware(deps.RBAC)
	loginLimiter := NewLoginRateLimiter(cfg.RateLimit.PerMinute)

	authHandler := NewAuthHandler(deps.Auth, deps.Metrics)
	authGroup := r.Group("/auth")
	authGroup.POST("/token", loginLimiter.Middleware(), authHandler.Login)
	authGroup.POST("/refresh", authHandler.Refresh)
	authGroup.GET("/me", requireUser, authHandler.Me)

	rbacHandler := NewRBACHandler(deps.RBAC, deps.Metrics)
	rbacGroup := r.Group("/rbac")
	rbacGroup.POST("/verify-permission", rbacHandler.VerifyPermission)
	rbacGroup.GET("/my-role", requireUser, rbacHandler.MyRole)

	userHandler := NewUserHandler(deps.Users)
	usersGroup := r.Group("/users")
	usersGroup.POST("/register", userHandler.Register)
	admin := usersGroup.Group("/users", requireUser)
	admin.GET("", userHandler.ListUsers)
	admin.PUT("/:id/activate", userHandler.ActivateUser)
	admin.PUT("/:id/deactivate", userHandler.DeactivateUser)
	admin.PUT("/:id/role", userHandler.SetRole)

	return r, nil
}
