package model

const TokenTypeBearer = "bearer"

// LoginForm leaves password optional so an empty one fails like a wrong
// one.
type LoginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenResponse is returned by login and refresh. Refresh leaves
// RefreshToken empty.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Identity is what an access token asserts, without a storage round trip.
type Identity struct {
	Subject string
	UserID  *int64
	Role    string
}

type VerifyPermissionRequest struct {
	RequiredRole string `json:"required_role" binding:"required"`
}

type VerifyPermissionResponse struct {
	Allowed  bool   `json:"allowed"`
	UserID   *int64 `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type MyRoleResponse struct {
	UserID      int64  `json:"user_id"`
	Username    string `json:"username"`
	Role        string `json:"role"`
	IsSuperuser bool   `json:"is_superuser"`
}
