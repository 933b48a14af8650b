package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/bidar/auth-server/internal/model"
	"github.com/bidar/auth-server/internal/service"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	svc *service.UserService
}

func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// Register godoc
// @Summary Register a new user
// @Tags users
// @Accept json
// @Produce json
// @Param request body model.RegisterRequest true "New user"
// @Success 200 {object} model.RegisterResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 500 {object} model.ErrorResponse
// @Router /users/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: msgInvalidRequest})
		return
	}

	user, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.RegisterResponse{
		Message:  "User registered successfully",
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
}

// ListUsers godoc
// @Summary List users
// @Description Superuser only.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param skip query int false "Offset" default(0)
// @Param limit query int false "Page size" default(100)
// @Success 200 {array} model.UserResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /users/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	skip, err := queryInt(c, "skip", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid skip"})
		return
	}
	limit, err := queryInt(c, "limit", service.DefaultListLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid limit"})
		return
	}

	users, err := h.svc.ListUsers(c.Request.Context(), GetAuthUser(c), skip, limit)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	resp := make([]model.UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, model.NewUserResponse(&users[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// ActivateUser godoc
// @Summary Activate a user
// @Description Superuser only.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} model.MessageResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /users/users/{id}/activate [put]
func (h *UserHandler) ActivateUser(c *gin.Context) {
	h.setActive(c, true)
}

// DeactivateUser godoc
// @Summary Deactivate a user
// @Description Superuser only. A deactivated user can no longer log in or refresh.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} model.MessageResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /users/users/{id}/deactivate [put]
func (h *UserHandler) DeactivateUser(c *gin.Context) {
	h.setActive(c, false)
}

func (h *UserHandler) setActive(c *gin.Context, active bool) {
	userID, ok := pathID(c)
	if !ok {
		return
	}

	user, err := h.svc.SetActive(c.Request.Context(), GetAuthUser(c), userID, active)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	verb := "activated"
	if !active {
		verb = "deactivated"
	}
	c.JSON(http.StatusOK, model.MessageResponse{
		Message: fmt.Sprintf("User %s %s successfully", user.Username, verb),
	})
}

// SetRole godoc
// @Summary Change a user's role
// @Description Requires super_admin. Existing access tokens keep their old role until they expire.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body model.RoleUpdateRequest true "New role"
// @Success 200 {object} model.UserResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /users/users/{id}/role [put]
func (h *UserHandler) SetRole(c *gin.Context) {
	userID, ok := pathID(c)
	if !ok {
		return
	}

	var req model.RoleUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: msgInvalidRequest})
		return
	}

	user, err := h.svc.SetRole(c.Request.Context(), GetAuthUser(c), userID, req.Role)
	if err != nil {
		writeAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.NewUserResponse(user))
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid user id"})
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
