package handler

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bidar/auth-server/internal/model"
	"github.com/bidar/auth-server/internal/observability"
	"github.com/bidar/auth-server/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	authUserKey     = "auth_user"
	requestIDKey    = "request_id"
	requestIDHeader = "X-Request-ID"
	wildcard        = "*"
)

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. ok is false when the header is missing or has another scheme.
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

// AuthMiddleware resolves the bearer token to an active stored user.
func AuthMiddleware(rbac *service.RBACService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, msgNotAuthenticated)
			return
		}

		user, err := rbac.CurrentUser(c.Request.Context(), token)
		if err != nil {
			writeAuthError(c, err)
			return
		}

		c.Set(authUserKey, user)
		c.Next()
	}
}

func GetAuthUser(c *gin.Context) *model.User {
	if value, ok := c.Get(authUserKey); ok {
		if user, ok := value.(*model.User); ok {
			return user
		}
	}
	return nil
}

// CORSMiddleware echoes allowed origins. "*" in allowedOrigins allows any
// origin.
func CORSMiddleware(allowedOrigins []string, allowCredentials bool) gin.HandlerFunc {
	allowAll := false
	originMap := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		trimmed := strings.TrimRight(strings.TrimSpace(origin), "/")
		if trimmed == "" {
			continue
		}
		if trimmed == wildcard {
			allowAll = true
			continue
		}
		originMap[trimmed] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			_, ok := originMap[origin]
			if ok || allowAll {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
				if allowCredentials {
					c.Header("Access-Control-Allow-Credentials", "true")
				}
				c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
				c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// TrustedHostMiddleware rejects requests whose Host is not listed.
// Entries may be exact hosts, "*.domain" suffix patterns or "*".
func TrustedHostMiddleware(allowedHosts []string) gin.HandlerFunc {
	var exact []string
	var suffixes []string
	for _, host := range allowedHosts {
		host = strings.ToLower(strings.TrimSpace(host))
		switch {
		case host == "":
		case host == wildcard:
			return func(c *gin.Context) { c.Next() }
		case strings.HasPrefix(host, "*."):
			suffixes = append(suffixes, host[1:])
		default:
			exact = append(exact, host)
		}
	}

	return func(c *gin.Context) {
		host := strings.ToLower(c.Request.Host)
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}

		for _, allowed := range exact {
			if host == allowed {
				c.Next()
				return
			}
		}
		for _, suffix := range suffixes {
			if strings.HasSuffix(host, suffix) {
				c.Next()
				return
			}
		}
		abortWithError(c, http.StatusBadRequest, "Invalid host header")
	}
}

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.LogAttrs(c.Request.Context(), level, "http_request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			slog.String("ip", c.ClientIP()),
			slog.String("request_id", c.GetString(requestIDKey)),
		)
	}
}

// Recovery turns panics into a 500 and reports them to Sentry.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		logger.ErrorContext(c.Request.Context(), "panic_recovered",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"panic", rec,
		)
		observability.CapturePanic(rec, map[string]string{
			"method":     c.Request.Method,
			"route":      c.FullPath(),
			"request_id": c.GetString(requestIDKey),
		})
		abortWithError(c, http.StatusInternalServerError, msgInternalError)
	})
}
