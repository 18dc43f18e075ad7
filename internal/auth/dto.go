package auth

import (
	"github.com/google/uuid"

	"github.com/scanningworld/scanningworld-backend/internal/users"
)

// RegisterRequest captures a new account signup.
type RegisterRequest struct {
	Phone    string    `json:"phone" validate:"required,e164"`
	Email    string    `json:"email" validate:"required,email"`
	Password string    `json:"password" validate:"required,min=8,max=128"`
	RegionID uuid.UUID `json:"region_id" validate:"required"`
}

// LoginRequest captures the credentials sent to the login endpoint. Phone is
// the login key.
type LoginRequest struct {
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the refresh token being exchanged.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// PasswordResetRequest asks for a reset email.
type PasswordResetRequest struct {
	Phone string `json:"phone" validate:"required"`
}

// PasswordResetConfirm carries the reset token plus the new password.
type PasswordResetConfirm struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

// TokenPair bundles the freshly minted access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse contains the tokens and user view produced by register, login,
// and refresh.
type AuthResponse struct {
	Tokens TokenPair      `json:"tokens"`
	User   *users.UserDTO `json:"user"`
}
