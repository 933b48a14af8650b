package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken covers bad signatures and expired tokens alike.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMalformedToken wraps ErrInvalidToken.
	ErrMalformedToken = fmt.Errorf("%w: malformed", ErrInvalidToken)
	ErrSigningConfig  = errors.New("invalid signing config")
)

// TokenCodec signs and verifies HMAC JWTs under a single secret and
// algorithm. It is immutable and safe for concurrent use.
type TokenCodec struct {
	secret []byte
	method jwt.SigningMethod
	now    func() time.Time
}

func NewTokenCodec(secret, algorithm string) (*TokenCodec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("%w: secret is required", ErrSigningConfig)
	}
	if algorithm == "" {
		algorithm = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported algorithm %q", ErrSigningConfig, algorithm)
	}

	return &TokenCodec{
		secret: []byte(secret),
		method: method,
		now:    time.Now,
	}, nil
}

func (c *TokenCodec) Algorithm() string {
	return c.method.Alg()
}

// Encode signs claims with an exp of expiresAt. The caller's map is not
// modified.
func (c *TokenCodec) Encode(claims Claims, expiresAt time.Time) (string, error) {
	payload := make(jwt.MapClaims, len(claims)+1)
	for k, v := range claims {
		payload[k] = v
	}
	payload[ClaimExpiry] = expiresAt.Unix()

	signed, err := jwt.NewWithClaims(c.method, payload).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

func (c *TokenCodec) Decode(token string) (Claims, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithJSONNumber(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return nil, ErrMalformedToken
		}
		return nil, ErrInvalidToken
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return Claims(claims), nil
}

func (c *TokenCodec) IssueAccessToken(subject string, userID int64, role string, ttl time.Duration) (string, error) {
	return c.issue(subject, userID, role, "", ttl)
}

func (c *TokenCodec) IssueRefreshToken(subject string, userID int64, role string, ttl time.Duration) (string, error) {
	return c.issue(subject, userID, role, TokenTypeRefresh, ttl)
}

func (c *TokenCodec) issue(subject string, userID int64, role, tokenType string, ttl time.Duration) (string, error) {
	now := c.now()
	claims := Claims{
		ClaimSubject:  subject,
		ClaimUserID:   userID,
		ClaimRole:     role,
		ClaimIssuedAt: now.Unix(),
		ClaimTokenID:  uuid.NewString(),
	}
	if tokenType != "" {
		claims[ClaimType] = tokenType
	}
	return c.Encode(claims, now.Add(ttl))
}
