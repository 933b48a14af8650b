package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/bidar/auth-server/internal/auth"
	"github.com/bidar/auth-server/internal/config"
	"github.com/bidar/auth-server/internal/db"
	"github.com/bidar/auth-server/internal/model"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "service-test-secret-0123456789abcdef"

type fakeUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*model.User
	err    error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{nextID: 1, users: map[int64]*model.User{}}
}

func (f *fakeUserStore) add(u model.User) *model.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == 0 {
		u.ID = f.nextID
	}
	if u.ID >= f.nextID {
		f.nextID = u.ID + 1
	}
	f.users[u.ID] = &u
	return &u
}

func (f *fakeUserStore) find(match func(*model.User) bool) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeUserStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Username == username })
}

func (f *fakeUserStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.Email == email })
}

func (f *fakeUserStore) GetUserByID(ctx context.Context, userID int64) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.ID == userID })
}

func (f *fakeUserStore) CreateUser(ctx context.Context, in model.NewUser) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.add(model.User{
		Username:       in.Username,
		Email:          in.Email,
		FullName:       in.FullName,
		HashedPassword: in.HashedPassword,
		IsActive:       true,
		IsSuperuser:    in.IsSuperuser,
		Role:           in.Role,
		CreatedAt:      time.Now(),
	}), nil
}

func (f *fakeUserStore) ListUsers(ctx context.Context, offset, limit int) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(f.users))
	for id := range f.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]model.User, 0)
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		out = append(out, *f.users[ids[i]])
	}
	return out, nil
}

func (f *fakeUserStore) update(userID int64, apply func(*model.User)) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, db.ErrNotFound
	}
	apply(u)
	now := time.Now()
	u.UpdatedAt = &now
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) SetUserActive(ctx context.Context, userID int64, active bool) (*model.User, error) {
	return f.update(userID, func(u *model.User) { u.IsActive = active })
}

func (f *fakeUserStore) SetUserRole(ctx context.Context, userID int64, role string) (*model.User, error) {
	return f.update(userID, func(u *model.User) { u.Role = role })
}

var errStoreDown = errors.New("store down")

type fixture struct {
	store  *fakeUserStore
	hasher *auth.Hasher
	tokens *auth.TokenCodec
	auth   *AuthService
	rbac   *RBACService
	users  *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	hasher, err := auth.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := auth.NewTokenCodec(testSecret, "HS256")
	require.NoError(t, err)

	store := newFakeUserStore()
	authSvc, err := NewAuthService(store, hasher, tokens, config.AuthConfig{
		AccessTokenExpireMinutes: 30,
		RefreshTokenExpireDays:   7,
	})
	require.NoError(t, err)

	return &fixture{
		store:  store,
		hasher: hasher,
		tokens: tokens,
		auth:   authSvc,
		rbac:   NewRBACService(store, tokens),
		users:  NewUserService(store, hasher),
	}
}

func (f *fixture) addUser(t *testing.T, username, password, role string, active bool) *model.User {
	t.Helper()
	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)
	return f.store.add(model.User{
		Username:       username,
		Email:          username + "@example.com",
		HashedPassword: hash,
		IsActive:       active,
		Role:           role,
		CreatedAt:      time.Now(),
	})
}
