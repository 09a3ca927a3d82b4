package model

import (
	"time"
)

// Medication is an inventory item tracked by the pharmacy.
type Medication struct {
	Base
	Name         string    `json:"name" db:"name"`
	Description  *string   `json:"description,omitempty" db:"description"`
	Manufacturer string    `json:"manufacturer" db:"manufacturer"`
	UnitPrice    float64   `json:"unit_price" db:"unit_price"`
	Quantity     int       `json:"quantity" db:"quantity"`
	ReorderLevel int       `json:"reorder_level" db:"reorder_level"`
	ExpiryDate   time.Time `json:"expiry_date" db:"expiry_date"`
}

// LowStock reports whether the medication has fallen to its reorder level.
func (m *Medication) LowStock() bool {
	return m.Quantity <= m.ReorderLevel
}

// ExpiringWithin reports whether the medication expires inside the window.
func (m *Medication) ExpiringWithin(window time.Duration) bool {
	return time.Until(m.ExpiryDate) <= window
}

type CreateMedicationRequest struct {
	Name         string  `json:"name" binding:"required"`
	Description  string  `json:"description"`
	Manufacturer string  `json:"manufacturer" binding:"required"`
	UnitPrice    float64 `json:"unit_price" binding:"required,gt=0"`
	Quantity     int     `json:"quantity" binding:"min=0"`
	ReorderLevel int     `json:"reorder_level" binding:"min=0"`
	ExpiryDate   string  `json:"expiry_date" binding:"required,datetime=2006-01-02"`
}

type RestockRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}
