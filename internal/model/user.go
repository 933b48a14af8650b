package model

import "time"

type User struct {
	ID             int64
	Username       string
	Email          string
	FullName       *string
	HashedPassword string
	IsActive       bool
	IsSuperuser    bool
	Role           string
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}

type NewUser struct {
	Username       string
	Email          string
	FullName       *string
	HashedPassword string
	Role           string
	IsSuperuser    bool
}

type RegisterRequest struct {
	Username string  `json:"username" binding:"required"`
	Email    string  `json:"email" binding:"required"`
	Password string  `json:"password" binding:"required"`
	FullName *string `json:"full_name"`
}

type RegisterResponse struct {
	Message  string `json:"message"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type RoleUpdateRequest struct {
	Role string `json:"role" binding:"required"`
}

type UserResponse struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	FullName    *string   `json:"full_name"`
	IsActive    bool      `json:"is_active"`
	IsSuperuser bool      `json:"is_superuser"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FullName:    u.FullName,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
		Role:        u.Role,
		CreatedAt:   u.CreatedAt,
	}
}
