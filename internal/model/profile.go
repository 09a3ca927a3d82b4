package model

import (
	"time"

	"github.com/google/uuid"
)

// RoleProfile is the role-specific record keyed by the account id. It is
// created as a pending row at registration; HasOnboarded flips false to true
// exactly once, at onboarding completion, and never reverts.
type RoleProfile struct {
	ID           uuid.UUID `json:"id" db:"id"`
	UserID       uuid.UUID `json:"user_id" db:"user_id"`
	Role         Role      `json:"role" db:"role"`
	HasOnboarded bool      `json:"has_onboarded" db:"has_onboarded"`

	Phone       *string    `json:"phone,omitempty" db:"phone"`
	Address     *string    `json:"address,omitempty" db:"address"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty" db:"date_of_birth"`
	Gender      *string    `json:"gender,omitempty" db:"gender"`

	// Doctor / pharmacist fields
	Specialty       *string  `json:"specialty,omitempty" db:"specialty"`
	LicenseNumber   *string  `json:"license_number,omitempty" db:"license_number"`
	ConsultationFee *float64 `json:"consultation_fee,omitempty" db:"consultation_fee"`

	// Receptionist fields
	Shift *string `json:"shift,omitempty" db:"shift"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// OnboardingRequest carries the one-time onboarding submission. Role-specific
// fields are validated in the onboarding service against the account role.
type OnboardingRequest struct {
	Phone           string  `json:"phone" binding:"required"`
	Address         string  `json:"address"`
	DateOfBirth     string  `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	Gender          string  `json:"gender" binding:"omitempty,oneof=male female other"`
	Specialty       string  `json:"specialty"`
	LicenseNumber   string  `json:"license_number"`
	ConsultationFee float64 `json:"consultation_fee"`
	Shift           string  `json:"shift"`
}

// UpdateProfileRequest covers post-onboarding profile edits.
type UpdateProfileRequest struct {
	Phone           *string  `json:"phone"`
	Address         *string  `json:"address"`
	Specialty       *string  `json:"specialty"`
	ConsultationFee *float64 `json:"consultation_fee"`
	Shift           *string  `json:"shift"`
}
