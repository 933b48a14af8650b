package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bidar/auth-server/internal/auth"
	"github.com/bidar/auth-server/internal/config"
	"github.com/bidar/auth-server/internal/db"
	"github.com/bidar/auth-server/internal/metrics"
	"github.com/bidar/auth-server/internal/model"
	"github.com/bidar/auth-server/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "handler-test-secret-0123456789abcdef"

type memoryStore struct {
	mu      sync.Mutex
	nextID  int64
	users   map[int64]model.User
	pingErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{nextID: 1, users: map[int64]model.User{}}
}

func (m *memoryStore) find(match func(model.User) bool) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, db.ErrNotFound
}

func (m *memoryStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return m.find(func(u model.User) bool { return u.Username == username })
}

func (m *memoryStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return m.find(func(u model.User) bool { return u.Email == email })
}

func (m *memoryStore) GetUserByID(ctx context.Context, userID int64) (*model.User, error) {
	return m.find(func(u model.User) bool { return u.ID == userID })
}

func (m *memoryStore) CreateUser(ctx context.Context, in model.NewUser) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := model.User{
		ID:             m.nextID,
		Username:       in.Username,
		Email:          in.Email,
		FullName:       in.FullName,
		HashedPassword: in.HashedPassword,
		IsActive:       true,
		IsSuperuser:    in.IsSuperuser,
		Role:           in.Role,
		CreatedAt:      time.Now().UTC(),
	}
	m.nextID++
	m.users[u.ID] = u
	return &u, nil
}

func (m *memoryStore) ListUsers(ctx context.Context, offset, limit int) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]model.User, 0)
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		out = append(out, m.users[ids[i]])
	}
	return out, nil
}

func (m *memoryStore) update(userID int64, apply func(*model.User)) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, db.ErrNotFound
	}
	apply(&u)
	m.users[userID] = u
	return &u, nil
}

func (m *memoryStore) SetUserActive(ctx context.Context, userID int64, active bool) (*model.User, error) {
	return m.update(userID, func(u *model.User) { u.IsActive = active })
}

func (m *memoryStore) SetUserRole(ctx context.Context, userID int64, role string) (*model.User, error) {
	return m.update(userID, func(u *model.User) { u.Role = role })
}

func (m *memoryStore) Ping(ctx context.Context) error {
	return m.pingErr
}

type testServer struct {
	router  *gin.Engine
	store   *memoryStore
	tokens  *auth.TokenCodec
	users   *service.UserService
	metrics *metrics.Metrics
}

func testConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{
			Environment:    config.EnvTest,
			AllowedHosts:   []string{"*"},
			AllowedOrigins: []string{"https://app.example.com"},
		},
		Auth: config.AuthConfig{
			JWTSecret:                testSecret,
			JWTAlgorithm:             "HS256",
			AccessTokenExpireMinutes: 30,
			RefreshTokenExpireDays:   7,
		},
		RateLimit: config.RateLimitConfig{PerMinute: 1000},
	}
}

func newTestServer(t *testing.T, cfg config.Config) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hasher, err := auth.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := auth.NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.JWTAlgorithm)
	require.NoError(t, err)

	store := newMemoryStore()
	authSvc, err := service.NewAuthService(store, hasher, tokens, cfg.Auth)
	require.NoError(t, err)
	users := service.NewUserService(store, hasher)
	m := metrics.New()

	router, err := NewRouter(cfg, Dependencies{
		Auth:    authSvc,
		RBAC:    service.NewRBACService(store, tokens),
		Users:   users,
		DB:      store,
		Metrics: m,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	return &testServer{router: router, store: store, tokens: tokens, users: users, metrics: m}
}

func (s *testServer) register(t *testing.T, username, password string) *model.User {
	t.Helper()
	user, err := s.users.Register(context.Background(), model.RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: password,
	})
	require.NoError(t, err)
	return user
}

func (s *testServer) bootstrapAdmin(t *testing.T) *model.User {
	t.Helper()
	_, err := s.users.EnsureAdmin(context.Background(), "root", "root-password", "")
	require.NoError(t, err)
	admin, err := s.store.GetUserByUsername(context.Background(), "root")
	require.NoError(t, err)
	return admin
}

func (s *testServer) accessToken(t *testing.T, user *model.User) string {
	t.Helper()
	token, err := s.tokens.IssueAccessToken(user.Username, user.ID, user.Role, time.Minute)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, path, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func formRequest(path string, values map[string]string) *http.Request {
	parts := make([]string, 0, len(values))
	for k, v := range values {
		parts = append(parts, k+"="+v)
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(strings.Join(parts, "&")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

var errPingFailed = errors.New("connection refused")
