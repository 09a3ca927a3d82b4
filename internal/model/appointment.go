package model

import (
	"time"

	"github.com/google/uuid"
)

// Appointment status constants
const (
	AppointmentStatusScheduled = "scheduled"
	AppointmentStatusCompleted = "completed"
	AppointmentStatusCancelled = "cancelled"
)

// Appointment links a patient and a doctor at a time slot.
type Appointment struct {
	Base
	PatientID uuid.UUID `json:"patient_id" db:"patient_id"`
	DoctorID  uuid.UUID `json:"doctor_id" db:"doctor_id"`
	StartTime time.Time `json:"start_time" db:"start_time"`
	EndTime   time.Time `json:"end_time" db:"end_time"`
	Reason    string    `json:"reason" db:"reason"`
	Status    string    `json:"status" db:"status"`
	Notes     *string   `json:"notes,omitempty" db:"notes"`
}

// TimeSlot is a bookable window offered for a doctor on a given day.
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type BookAppointmentRequest struct {
	DoctorID  string `json:"doctor_id" binding:"required,uuid"`
	StartTime string `json:"start_time" binding:"required"`
	Reason    string `json:"reason" binding:"required"`
}

type CompleteAppointmentRequest struct {
	Notes string `json:"notes"`
}

// AppointmentFilters represents appointment list parameters
type AppointmentFilters struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Status    string
	From      time.Time
	To        time.Time
}
