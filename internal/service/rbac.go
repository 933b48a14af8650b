package service

import (
	"context"
	"fmt"

	"github.com/bidar/auth-server/internal/auth"
	"github.com/bidar/auth-server/internal/db"
	"github.com/bidar/auth-server/internal/model"
)

type RBACService struct {
	users  UserLookup
	tokens *auth.TokenCodec
}

func NewRBACService(users UserLookup, tokens *auth.TokenCodec) *RBACService {
	return &RBACService{users: users, tokens: tokens}
}

// ResolveIdentity decodes an access token into the identity it asserts.
// Refresh tokens are rejected.
func (s *RBACService) ResolveIdentity(token string) (*model.Identity, error) {
	claims, err := s.tokens.Decode(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.Type() != auth.TokenTypeAccess {
		return nil, ErrInvalidToken
	}
	subject := claims.Subject()
	if subject == "" {
		return nil, ErrInvalidToken
	}

	identity := &model.Identity{
		Subject: subject,
		Role:    claims.Role(),
	}
	if userID, ok := claims.UserID(); ok {
		identity.UserID = &userID
	}
	return identity, nil
}

// RequireActive loads the stored user behind an identity.
func (s *RBACService) RequireActive(ctx context.Context, identity *model.Identity) (*model.User, error) {
	if identity == nil || identity.Subject == "" {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetUserByUsername(ctx, identity.Subject)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return user, nil
}

func (s *RBACService) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	identity, err := s.ResolveIdentity(token)
	if err != nil {
		return nil, err
	}
	return s.RequireActive(ctx, identity)
}

// VerifyPermission answers whether the token's role reaches requiredRole.
// The role embedded in the token is trusted as is, so a role change takes
// effect once previously issued access tokens expire.
func (s *RBACService) VerifyPermission(token, requiredRole string) (*model.VerifyPermissionResponse, error) {
	identity, err := s.ResolveIdentity(token)
	if err != nil {
		return nil, err
	}
	if !auth.Permits(identity.Role, requiredRole) {
		return nil, ErrForbidden
	}

	return &model.VerifyPermissionResponse{
		Allowed:  true,
		UserID:   identity.UserID,
		Username: identity.Subject,
		Role:     identity.Role,
	}, nil
}
