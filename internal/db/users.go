package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/bidar/auth-server/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolationCode    = "23505"
	usernameConstraintName = "users_username_key"
	emailConstraintName    = "users_email_key"
	userColumns            = `id, username, email, full_name, hashed_password, is_active, is_superuser, role, created_at, updated_at`
)

var (
	ErrDuplicateUsername = errors.New("username already exists")
	ErrDuplicateEmail    = errors.New("email already exists")
)

func (db *Postgres) CreateUser(ctx context.Context, in model.NewUser) (*model.User, error) {
	query := `
		INSERT INTO users (username, email, full_name, hashed_password, role, is_superuser, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, NOW())
		RETURNING ` + userColumns

	user, err := scanUser(db.Pool.QueryRow(ctx, query,
		in.Username,
		in.Email,
		in.FullName,
		in.HashedPassword,
		in.Role,
		in.IsSuperuser,
	))
	if err != nil {
		return nil, mapWriteError(err)
	}
	return user, nil
}

func (db *Postgres) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return db.getUser(ctx, query, username)
}

func (db *Postgres) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return db.getUser(ctx, query, email)
}

func (db *Postgres) GetUserByID(ctx context.Context, userID int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return db.getUser(ctx, query, userID)
}

// ListUsers - id 순으로 offset/limit 페이지 조회
func (db *Postgres) ListUsers(ctx context.Context, offset, limit int) ([]model.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY id
		OFFSET $1 LIMIT $2
	`
	rows, err := db.Pool.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (db *Postgres) SetUserActive(ctx context.Context, userID int64, active bool) (*model.User, error) {
	query := `
		UPDATE users
		SET is_active = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	return db.getUser(ctx, query, userID, active)
}

func (db *Postgres) SetUserRole(ctx context.Context, userID int64, role string) (*model.User, error) {
	query := `
		UPDATE users
		SET role = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns
	return db.getUser(ctx, query, userID, role)
}

func (db *Postgres) getUser(ctx context.Context, query string, args ...any) (*model.User, error) {
	user, err := scanUser(db.Pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.FullName,
		&user.HashedPassword,
		&user.IsActive,
		&user.IsSuperuser,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode {
		return err
	}
	switch pgErr.ConstraintName {
	case usernameConstraintName:
		return ErrDuplicateUsername
	case emailConstraintName:
		return ErrDuplicateEmail
	default:
		return fmt.Errorf("unique violation on %s: %w", pgErr.ConstraintName, err)
	}
}
