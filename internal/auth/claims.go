package auth

import (
	"encoding/json"
	"math"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	ClaimSubject  = "sub"
	ClaimUserID   = "user_id"
	ClaimRole     = "role"
	ClaimType     = "type"
	ClaimExpiry   = "exp"
	ClaimIssuedAt = "iat"
	ClaimTokenID  = "jti"

	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is the flat key/value payload of a token.
type Claims map[string]any

func (c Claims) Subject() string {
	sub, _ := c[ClaimSubject].(string)
	return sub
}

// UserID returns the user_id claim. Decoded tokens carry numbers as
// json.Number.
func (c Claims) UserID() (int64, bool) {
	switch v := c[ClaimUserID].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		id, err := v.Int64()
		return id, err == nil
	default:
		return 0, false
	}
}

// Role returns the role claim, RoleUser when absent.
func (c Claims) Role() string {
	if role, ok := c[ClaimRole].(string); ok && role != "" {
		return role
	}
	return string(RoleUser)
}

// Type returns the token type. Tokens without a type are access tokens.
func (c Claims) Type() string {
	if typ, ok := c[ClaimType].(string); ok && typ != "" {
		return typ
	}
	return TokenTypeAccess
}

func (c Claims) IsRefresh() bool {
	return c.Type() == TokenTypeRefresh
}

func (c Claims) ExpiresAt() (time.Time, bool) {
	exp, err := jwt.MapClaims(c).GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
