package handler

import (
	"errors"
	"net/http"

	"github.com/bidar/auth-server/internal/metrics"
	"github.com/bidar/auth-server/internal/model"
	"github.com/bidar/auth-server/internal/service"
	"github.com/gin-gonic/gin"
)

type RBACHandler struct {
	svc     *service.RBACService
	metrics *metrics.Metrics
}

func NewRBACHandler(svc *service.RBACService, m *metrics.Metrics) *RBACHandler {
	return &RBACHandler{svc: svc, metrics: m}
}

// VerifyPermission godoc
// @Summary Verify role permission
// @Description Checks whether the bearer token's role reaches required_role. Used by the API gateway.
// @Tags rbac
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.VerifyPermissionRequest true "Required role"
// @Success 200 {object} model.VerifyPermissionResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /rbac/verify-permission [post]
func (h *RBACHandler) VerifyPermission(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		abortUnauthorized(c, msgBadAuthHeader)
		return
	}

	var req model.VerifyPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: msgInvalidRequest})
		return
	}

	result, err := h.svc.VerifyPermission(token, req.RequiredRole)
	h.metrics.ObserveAuth("verify_permission", outcome(err))
	if err != nil {
		if errors.Is(err, service.ErrForbidden) {
			abortWithError(c, http.StatusForbidden, msgInsufficientPerms)
			return
		}
		writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// MyRole godoc
// @Summary Get current user's role
// @Tags rbac
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.MyRoleResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /rbac/my-role [get]
func (h *RBACHandler) MyRole(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		abortUnauthorized(c, msgNotAuthenticated)
		return
	}
	c.JSON(http.StatusOK, model.MyRoleResponse{
		UserID:      user.ID,
		Username:    user.Username,
		Role:        user.Role,
		IsSuperuser: user.IsSuperuser,
	})
}
