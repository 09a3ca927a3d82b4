package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medicura/medicura-api/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filters *model.UserFilters) ([]*model.User, error)
}

type ProfileRepository interface {
	Create(ctx context.Context, profile *model.RoleProfile) error
	GetByUserID(ctx context.Context, userID uuid.UUID, role model.Role) (*model.RoleProfile, error)
	Update(ctx context.Context, profile *model.RoleProfile) error
	// MarkOnboarded flips has_onboarded false to true. It reports whether the
	// flip happened; a second call for the same profile reports false.
	MarkOnboarded(ctx context.Context, userID uuid.UUID, role model.Role) (bool, error)
	ListByRole(ctx context.Context, role model.Role) ([]*model.RoleProfile, error)
}

type AppointmentRepository interface {
	Create(ctx context.Context, appt *model.Appointment) error
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	Update(ctx context.Context, appt *model.Appointment) error
	List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
	// CountOverlapping reports scheduled appointments for the doctor that
	// overlap the window.
	CountOverlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time) (int, error)
}

type PrescriptionRepository interface {
	Create(ctx context.Context, p *model.Prescription) error
	Get(ctx context.Context, id uuid.UUID) (*model.Prescription, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, filledBy *uuid.UUID) error
	List(ctx context.Context, filters *model.PrescriptionFilters) ([]*model.Prescription, error)
}

type MedicationRepository interface {
	Create(ctx context.Context, m *model.Medication) error
	Get(ctx context.Context, id uuid.UUID) (*model.Medication, error)
	Update(ctx context.Context, m *model.Medication) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*model.Medication, error)
	// AdjustQuantity atomically adds delta to the stock level, failing if the
	// result would go negative.
	AdjustQuantity(ctx context.Context, id uuid.UUID, delta int) error
	ListLowStock(ctx context.Context) ([]*model.Medication, error)
	ListExpiringBefore(ctx context.Context, cutoff time.Time) ([]*model.Medication, error)
}

type InvoiceRepository interface {
	Create(ctx context.Context, inv *model.Invoice) error
	Get(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) error
	List(ctx context.Context, filters *model.InvoiceFilters) ([]*model.Invoice, error)
}
