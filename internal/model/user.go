package model

import (
	"time"
)

// User status constants
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
	UserStatusLocked   = "locked"
)

// User represents a system account. The role is fixed at registration.
type User struct {
	Base
	Email            string     `json:"email" db:"email"`
	Name             string     `json:"name" db:"name"`
	Password         string     `json:"password,omitempty" db:"-"`
	PasswordHash     string     `json:"-" db:"password_hash"`
	Role             Role       `json:"role" db:"role"`
	Status           string     `json:"status" db:"status"`
	LastLoginAt      *time.Time `json:"last_login_at" db:"last_login_at"`
	LoginAttempts    int        `json:"-" db:"login_attempts"`
	LastLoginAttempt time.Time  `json:"-" db:"last_login_attempt"`
}

// UserFilters represents user search parameters
type UserFilters struct {
	Role   Role   `json:"role" form:"role"`
	Status string `json:"status" form:"status"`
}

// CreateUserRequest represents admin-side user creation parameters
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required,oneof=patient doctor pharmacist receptionist admin"`
}

// UpdateUserRequest represents admin-side user update parameters
type UpdateUserRequest struct {
	Name   *string `json:"name"`
	Status *string `json:"status" binding:"omitempty,oneof=active inactive locked"`
}
