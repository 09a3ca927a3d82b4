package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// AuthRequest types
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role" binding:"required,role"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenResponse carries the issued token pair plus the session hard expiry.
// HardExpiry is fixed at login and is never extended by refresh.
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	HardExpiry   time.Time `json:"hard_expiry"`
}

// Auth errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Identity is the verified principal attached to a request after
// authentication.
type Identity struct {
	UserID    uuid.UUID `json:"user_id"`
	SessionID uuid.UUID `json:"session_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
}
