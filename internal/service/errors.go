package service

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUserNotFound       = errors.New("user not found")
	ErrInactiveUser       = errors.New("inactive user")
	ErrForbidden          = errors.New("forbidden")

	ErrInvalidInput  = errors.New("invalid input")
	ErrUsernameTaken = errors.New("username already registered")
	ErrEmailTaken    = errors.New("email already registered")
	// ErrNotFound reports a missing target of an administrative operation,
	// as opposed to ErrUserNotFound which concerns the caller's own identity.
	ErrNotFound      = errors.New("not found")
	ErrMisconfigured = errors.New("auth config invalid")
)
