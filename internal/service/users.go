package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/bidar/auth-server/internal/auth"
	"github.com/bidar/auth-server/internal/db"
	"github.com/bidar/auth-server/internal/model"
)

const (
	maxEmailLength    = 100
	maxFullNameLength = 100
	minPasswordLength = 8
	// bcrypt ignores everything past 72 bytes.
	maxPasswordLength = 72

	DefaultListLimit = 100
	MaxListLimit     = 1000
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,50}$`)

type UserStore interface {
	UserLookup
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	CreateUser(ctx context.Context, in model.NewUser) (*model.User, error)
	ListUsers(ctx context.Context, offset, limit int) ([]model.User, error)
	SetUserActive(ctx context.Context, userID int64, active bool) (*model.User, error)
	SetUserRole(ctx context.Context, userID int64, role string) (*model.User, error)
}

type UserService struct {
	store  UserStore
	hasher *auth.Hasher
}

func NewUserService(store UserStore, hasher *auth.Hasher) *UserService {
	return &UserService{store: store, hasher: hasher}
}

// Register creates an active user with the base role.
func (s *UserService) Register(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	in, err := s.newUser(req.Username, req.Email, req.Password, req.FullName)
	if err != nil {
		return nil, err
	}
	in.Role = string(auth.RoleUser)
	return s.create(ctx, in)
}

// EnsureAdmin creates the bootstrap super admin unless a user with that
// username already exists. It reports whether a user was created.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password, email string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return false, fmt.Errorf("%w: ADMIN_USERNAME/ADMIN_PASSWORD are required", ErrMisconfigured)
	}

	_, err := s.store.GetUserByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !db.IsNoRows(err) {
		return false, err
	}

	if strings.TrimSpace(email) == "" {
		email = username + "@localhost"
	}
	in, err := s.newUser(username, email, password, nil)
	if err != nil {
		return false, err
	}
	in.Role = string(auth.RoleSuperAdmin)
	in.IsSuperuser = true

	if _, err := s.create(ctx, in); err != nil {
		return false, err
	}
	return true, nil
}

func (s *UserService) ListUsers(ctx context.Context, actor *model.User, skip, limit int) ([]model.User, error) {
	if !canAdminister(actor) {
		return nil, ErrForbidden
	}
	if skip < 0 {
		return nil, fmt.Errorf("%w: skip must not be negative", ErrInvalidInput)
	}
	if limit < 1 || limit > MaxListLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidInput, MaxListLimit)
	}
	return s.store.ListUsers(ctx, skip, limit)
}

func (s *UserService) SetActive(ctx context.Context, actor *model.User, userID int64, active bool) (*model.User, error) {
	if !canAdminister(actor) {
		return nil, ErrForbidden
	}
	if !active && actor.ID == userID {
		return nil, fmt.Errorf("%w: cannot deactivate yourself", ErrInvalidInput)
	}

	user, err := s.store.SetUserActive(ctx, userID, active)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) SetRole(ctx context.Context, actor *model.User, userID int64, role string) (*model.User, error) {
	if !canAdminister(actor) {
		return nil, ErrForbidden
	}
	if !auth.IsKnownRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	user, err := s.store.SetUserRole(ctx, userID, role)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) create(ctx context.Context, in model.NewUser) (*model.User, error) {
	if _, err := s.store.GetUserByUsername(ctx, in.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !db.IsNoRows(err) {
		return nil, err
	}
	if _, err := s.store.GetUserByEmail(ctx, in.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !db.IsNoRows(err) {
		return nil, err
	}

	user, err := s.store.CreateUser(ctx, in)
	switch {
	case errors.Is(err, db.ErrDuplicateUsername):
		return nil, ErrUsernameTaken
	case errors.Is(err, db.ErrDuplicateEmail):
		return nil, ErrEmailTaken
	case err != nil:
		return nil, err
	}
	return user, nil
}

func (s *UserService) newUser(username, email, password string, fullName *string) (model.NewUser, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if !usernamePattern.MatchString(username) {
		return model.NewUser{}, fmt.Errorf("%w: username must be 3-50 letters, digits, '.', '_' or '-'", ErrInvalidInput)
	}
	if err := validateEmail(email); err != nil {
		return model.NewUser{}, err
	}
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return model.NewUser{}, fmt.Errorf("%w: password must be %d-%d bytes", ErrInvalidInput, minPasswordLength, maxPasswordLength)
	}

	if fullName != nil {
		trimmed := strings.TrimSpace(*fullName)
		if utf8.RuneCountInString(trimmed) > maxFullNameLength {
			return model.NewUser{}, fmt.Errorf("%w: full_name must be at most %d characters", ErrInvalidInput, maxFullNameLength)
		}
		if trimmed == "" {
			fullName = nil
		} else {
			fullName = &trimmed
		}
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return model.NewUser{}, err
	}

	return model.NewUser{
		Username:       username,
		Email:          email,
		FullName:       fullName,
		HashedPassword: hash,
	}, nil
}

func validateEmail(email string) error {
	if email == "" || len(email) > maxEmailLength {
		return fmt.Errorf("%w: email must be 1-%d characters", ErrInvalidInput, maxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}
	return nil
}

func canAdminister(actor *model.User) bool {
	if actor == nil || !actor.IsActive {
		return false
	}
	return actor.IsSuperuser || auth.Permits(actor.Role, string(auth.RoleSuperAdmin))
}
