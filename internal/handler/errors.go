package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/bidar/auth-server/internal/model"
	"github.com/bidar/auth-server/internal/observability"
	"github.com/bidar/auth-server/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest     = "invalid request"
	msgInternalError      = "internal server error"
	msgNotAuthenticated   = "Not authenticated"
	msgBadAuthHeader      = "Missing or invalid authorization header"
	msgInvalidCredentials = "Incorrect username or password"
	msgInvalidToken       = "Could not validate credentials"
	msgInvalidRefresh     = "Invalid refresh token"
	msgUserNotFound       = "User not found"
	msgInactiveUser       = "Inactive user"
	msgNotEnoughPerms     = "Not enough permissions"
	msgInsufficientPerms  = "Insufficient permissions"
	msgUsernameTaken      = "Username already registered"
	msgEmailTaken         = "Email already registered"
)

func writeAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		abortUnauthorized(c, msgInvalidCredentials)
	case errors.Is(err, service.ErrInvalidToken):
		abortUnauthorized(c, msgInvalidToken)
	case errors.Is(err, service.ErrUserNotFound):
		abortUnauthorized(c, msgUserNotFound)
	case errors.Is(err, service.ErrInactiveUser):
		abortUnauthorized(c, msgInactiveUser)
	case errors.Is(err, service.ErrForbidden):
		abortWithError(c, http.StatusForbidden, msgNotEnoughPerms)
	case errors.Is(err, service.ErrNotFound):
		abortWithError(c, http.StatusNotFound, msgUserNotFound)
	case errors.Is(err, service.ErrUsernameTaken):
		abortWithError(c, http.StatusBadRequest, msgUsernameTaken)
	case errors.Is(err, service.ErrEmailTaken):
		abortWithError(c, http.StatusBadRequest, msgEmailTaken)
	case errors.Is(err, service.ErrInvalidInput):
		abortWithError(c, http.StatusBadRequest, err.Error())
	default:
		writeInternalError(c, err)
	}
}

func writeInternalError(c *gin.Context, err error) {
	slog.ErrorContext(c.Request.Context(), "request failed",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"request_id", c.GetString(requestIDKey),
		"error", err,
	)
	observability.CaptureError(err, map[string]string{
		"method":     c.Request.Method,
		"route":      c.FullPath(),
		"request_id": c.GetString(requestIDKey),
	})
	abortWithError(c, http.StatusInternalServerError, msgInternalError)
}

func abortUnauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", "Bearer")
	abortWithError(c, http.StatusUnauthorized, message)
}

func abortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, model.ErrorResponse{Error: message})
}
