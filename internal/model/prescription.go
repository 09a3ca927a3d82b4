package model

import (
	"github.com/google/uuid"
)

// Prescription status constants
const (
	PrescriptionStatusPending   = "pending"
	PrescriptionStatusFilled    = "filled"
	PrescriptionStatusCancelled = "cancelled"
)

// Prescription is written by a doctor and dispensed by a pharmacist.
type Prescription struct {
	Base
	PatientID    uuid.UUID  `json:"patient_id" db:"patient_id"`
	DoctorID     uuid.UUID  `json:"doctor_id" db:"doctor_id"`
	MedicationID uuid.UUID  `json:"medication_id" db:"medication_id"`
	Dosage       string     `json:"dosage" db:"dosage"`
	Frequency    string     `json:"frequency" db:"frequency"`
	DurationDays int        `json:"duration_days" db:"duration_days"`
	Instructions *string    `json:"instructions,omitempty" db:"instructions"`
	Status       string     `json:"status" db:"status"`
	FilledBy     *uuid.UUID `json:"filled_by,omitempty" db:"filled_by"`
}

type CreatePrescriptionRequest struct {
	PatientID    string `json:"patient_id" binding:"required,uuid"`
	MedicationID string `json:"medication_id" binding:"required,uuid"`
	Dosage       string `json:"dosage" binding:"required"`
	Frequency    string `json:"frequency" binding:"required"`
	DurationDays int    `json:"duration_days" binding:"required,min=1"`
	Instructions string `json:"instructions"`
}

type UpdatePrescriptionStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=filled cancelled"`
}

// PrescriptionFilters represents prescription list parameters
type PrescriptionFilters struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Status    string
}
