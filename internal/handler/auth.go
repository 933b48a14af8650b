package handler

import (
	"errors"
	"net/http"

	"github.com/bidar/auth-server/internal/metrics"
	"github.com/bidar/auth-server/internal/model"
	"github.com/bidar/auth-server/internal/service"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	svc     *service.AuthService
	metrics *metrics.Metrics
}

func NewAuthHandler(svc *service.AuthService, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{svc: svc, metrics: m}
}

// Login godoc
// @Summary Login for access token
// @Description OAuth2 password flow. Returns an access token and a refresh token.
// @Tags auth
// @Accept x-www-form-urlencoded
// @Produce json
// @Param username formData string true "Username"
// @Param password formData string false "Password"
// @Success 200 {object} model.TokenResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 429 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /auth/token [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var form model.LoginForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: msgInvalidRequest})
		return
	}

	tokens, err := h.svc.Login(c.Request.Context(), form.Username, form.Password)
	h.metrics.ObserveAuth("login", outcome(err))
	if err != nil {
		writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// Refresh godoc
// @Summary Refresh access token
// @Description Exchanges a refresh token for a new access token. The refresh token is not rotated.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} model.TokenResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req model.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: msgInvalidRequest})
		return
	}

	tokens, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	h.metrics.ObserveAuth("refresh", outcome(err))
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			abortUnauthorized(c, msgInvalidRefresh)
			return
		}
		writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// Me godoc
// @Summary Get current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.UserResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		abortUnauthorized(c, msgNotAuthenticated)
		return
	}
	c.JSON(http.StatusOK, model.NewUserResponse(user))
}

// outcome is the auth_events_total label for err.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, service.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, service.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, service.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, service.ErrInactiveUser):
		return "inactive_user"
	case errors.Is(err, service.ErrForbidden):
		return "forbidden"
	default:
		return "error"
	}
}
