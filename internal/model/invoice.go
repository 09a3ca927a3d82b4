package model

import (
	"time"

	"github.com/google/uuid"
)

// Invoice status constants
const (
	InvoiceStatusPending = "pending"
	InvoiceStatusPaid    = "paid"
	InvoiceStatusVoid    = "void"
)

// Invoice bills a patient for an appointment or dispensed prescription.
type Invoice struct {
	Base
	PatientID     uuid.UUID  `json:"patient_id" db:"patient_id"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty" db:"appointment_id"`
	Amount        float64    `json:"amount" db:"amount"`
	Description   string     `json:"description" db:"description"`
	Status        string     `json:"status" db:"status"`
	PaidAt        *time.Time `json:"paid_at,omitempty" db:"paid_at"`
}

type CreateInvoiceRequest struct {
	PatientID     string  `json:"patient_id" binding:"required,uuid"`
	AppointmentID string  `json:"appointment_id" binding:"omitempty,uuid"`
	Amount        float64 `json:"amount" binding:"required,gt=0"`
	Description   string  `json:"description" binding:"required"`
}

// InvoiceFilters represents invoice list parameters
type InvoiceFilters struct {
	PatientID uuid.UUID
	Status    string
}
