package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/bidar/auth-server/internal/model"
	"github.com/gin-gonic/gin"
)

const (
	serviceName   = "auth-server"
	serviceVer    = "1.0.0"
	healthTimeout = 2 * time.Second
	docsPath      = "/docs/openapi.json"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// 헬스체크 엔드포인트. DB가 응답하지 않으면 503 degraded
func Health(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, model.HealthResponse{Status: "degraded", Service: serviceName})
				return
			}
		}
		c.JSON(http.StatusOK, model.HealthResponse{Status: "healthy", Service: serviceName})
	}
}

// 루트 엔드포인트
func Root(docsEnabled bool) gin.HandlerFunc {
	var docs *string
	if docsEnabled {
		path := docsPath
		docs = &path
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, model.RootResponse{
			Message: "Welcome to Auth Server",
			Version: serviceVer,
			Docs:    docs,
		})
	}
}
