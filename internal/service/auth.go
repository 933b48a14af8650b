package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bidar/auth-server/internal/auth"
	"github.com/bidar/auth-server/internal/config"
	"github.com/bidar/auth-server/internal/db"
	"github.com/bidar/auth-server/internal/model"
)

// UserLookup is the read side of the user store the auth core depends on.
// Both methods return db.ErrNotFound when no row matches.
type UserLookup interface {
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByID(ctx context.Context, userID int64) (*model.User, error)
}

type AuthService struct {
	users      UserLookup
	hasher     *auth.Hasher
	tokens     *auth.TokenCodec
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthService(users UserLookup, hasher *auth.Hasher, tokens *auth.TokenCodec, cfg config.AuthConfig) (*AuthService, error) {
	if users == nil || hasher == nil || tokens == nil {
		return nil, fmt.Errorf("%w: user store, hasher and token codec are required", ErrMisconfigured)
	}
	if cfg.AccessTTL() <= 0 {
		return nil, fmt.Errorf("%w: invalid ACCESS_TOKEN_EXPIRE_MINUTES", ErrMisconfigured)
	}
	if cfg.RefreshTTL() <= 0 {
		return nil, fmt.Errorf("%w: invalid REFRESH_TOKEN_EXPIRE_DAYS", ErrMisconfigured)
	}

	return &AuthService{
		users:      users,
		hasher:     hasher,
		tokens:     tokens,
		accessTTL:  cfg.AccessTTL(),
		refreshTTL: cfg.RefreshTTL(),
	}, nil
}

// Authenticate returns the user whose password matches, or nil when the
// username is unknown or the password is wrong. It does not look at
// is_active. An error is returned only when the lookup itself fails.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, nil
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !s.hasher.Verify(password, user.HashedPassword) {
		return nil, nil
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*model.TokenResponse, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	// 비밀번호 검증 이후에만 비활성 여부를 알려준다.
	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	accessToken, err := s.tokens.IssueAccessToken(user.Username, user.ID, user.Role, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.tokens.IssueRefreshToken(user.Username, user.ID, user.Role, s.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &model.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    model.TokenTypeBearer,
		ExpiresIn:    s.expiresIn(),
	}, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error) {
	claims, err := s.tokens.Decode(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !claims.IsRefresh() {
		return nil, ErrInvalidToken
	}
	username := claims.Subject()
	if username == "" {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	accessToken, err := s.tokens.IssueAccessToken(user.Username, user.ID, user.Role, s.accessTTL)
	if err != nil {
		return nil, err
	}

	return &model.TokenResponse{
		AccessToken: accessToken,
		TokenType:   model.TokenTypeBearer,
		ExpiresIn:   s.expiresIn(),
	}, nil
}

func (s *AuthService) expiresIn() int64 {
	return int64(s.accessTTL / time.Second)
}
