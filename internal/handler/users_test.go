package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/bidar/auth-server/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig())

	body := `{"username":"carol","email":"carol@example.com","password":"long-enough","full_name":"Carol"}`
	w := s.do(jsonRequest(http.MethodPost, "/users/register", body, ""))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[model.RegisterResponse](t, w)
	assert.Equal(t, "User registered successfully", res.Message)
	assert.Equal(t, "carol", res.Username)
	assert.Equal(t, "carol@example.com", res.Email)
	assert.NotZero(t, res.UserID)

	w = s.do(jsonRequest(http.MethodPost, "/users/register", body, ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Username already registered", decode[model.ErrorResponse](t, w).Error)

	w = s.do(jsonRequest(http.MethodPost, "/users/register",
		`{"username":"carol2","email":"carol@example.com","password":"long-enough"}`, ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email already registered", decode[model.ErrorResponse](t, w).Error)

	w = s.do(jsonRequest(http.MethodPost, "/users/register",
		`{"username":"dan","email":"dan@example.com","password":"short"}`, ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode[model.ErrorResponse](t, w).Error, "password")

	w = s.do(jsonRequest(http.MethodPost, "/users/register", `{"username":"dan"}`, ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// A newly registered user can log in.
	w = s.do(formRequest("/auth/token", map[string]string{"username": "carol", "password": "long-enough"}))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListUsersEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig())
	admin := s.bootstrapAdmin(t)
	alice := s.register(t, "alice", "correct-horse")
	s.register(t, "bob", "correct-horse")
	adminToken := s.accessToken(t, admin)

	w := s.do(jsonRequest(http.MethodGet, "/users/users", "", adminToken))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	users := decode[[]model.UserResponse](t, w)
	require.Len(t, users, 3)
	assert.Equal(t, "root", users[0].Username)

	w = s.do(jsonRequest(http.MethodGet, "/users/users?skip=1&limit=1", "", adminToken))
	require.Equal(t, http.StatusOK, w.Code)
	users = decode[[]model.UserResponse](t, w)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)

	w = s.do(jsonRequest(http.MethodGet, "/users/users?limit=abc", "", adminToken))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(jsonRequest(http.MethodGet, "/users/users?skip=-1", "", adminToken))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(jsonRequest(http.MethodGet, "/users/users", "", s.accessToken(t, alice)))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Not enough permissions", decode[model.ErrorResponse](t, w).Error)

	w = s.do(jsonRequest(http.MethodGet, "/users/users", "", ""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestActivateDeactivateEndpoints(t *testing.T) {
	s := newTestServer(t, testConfig())
	admin := s.bootstrapAdmin(t)
	bob := s.register(t, "bob", "correct-horse")
	adminToken := s.accessToken(t, admin)

	w := s.do(jsonRequest(http.MethodPut, fmt.Sprintf("/users/users/%d/deactivate", bob.ID), "", adminToken))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "User bob deactivated successfully", decode[model.MessageResponse](t, w).Message)

	w = s.do(formRequest("/auth/token", map[string]string{"username": "bob", "password": "correct-horse"}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(jsonRequest(http.MethodPut, fmt.Sprintf("/users/users/%d/activate", bob.ID), "", adminToken))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "User bob activated successfully", decode[model.MessageResponse](t, w).Message)

	w = s.do(formRequest("/auth/token", map[string]string{"username": "bob", "password": "correct-horse"}))
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(jsonRequest(http.MethodPut, "/users/users/999/activate", "", adminToken))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found", decode[model.ErrorResponse](t, w).Error)

	w = s.do(jsonRequest(http.MethodPut, "/users/users/abc/activate", "", adminToken))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(jsonRequest(http.MethodPut, fmt.Sprintf("/users/users/%d/deactivate", admin.ID), "", s.accessToken(t, bob)))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSetRoleEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig())
	admin := s.bootstrapAdmin(t)
	bob := s.register(t, "bob", "correct-horse")
	adminToken := s.accessToken(t, admin)
	path := fmt.Sprintf("/users/users/%d/role", bob.ID)

	w := s.do(jsonRequest(http.MethodPut, path, `{"role":"moderator"}`, adminToken))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "moderator", decode[model.UserResponse](t, w).Role)

	w = s.do(jsonRequest(http.MethodPut, path, `{"role":"emperor"}`, adminToken))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(jsonRequest(http.MethodPut, path, `{}`, adminToken))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(jsonRequest(http.MethodPut, "/users/users/999/role", `{"role":"admin"}`, adminToken))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(jsonRequest(http.MethodPut, path, `{"role":"super_admin"}`, s.accessToken(t, bob)))
	assert.Equal(t, http.StatusForbidden, w.Code)

	// A new login picks up the stored role.
	w = s.do(formRequest("/auth/token", map[string]string{"username": "bob", "password": "correct-horse"}))
	require.Equal(t, http.StatusOK, w.Code)
	claims, err := s.tokens.Decode(decode[model.TokenResponse](t, w).AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "moderator", claims.Role())
}
