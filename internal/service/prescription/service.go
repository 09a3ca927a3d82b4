package prescription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medicura/medicura-api/internal/model"
	"github.com/medicura/medicura-api/internal/repository"
)

var (
	ErrNotPending      = errors.New("prescription is not pending")
	ErrUnknownMedicine = errors.New("unknown medication")
)

type Service struct {
	repo    repository.PrescriptionRepository
	medRepo repository.MedicationRepository
}

func NewService(repo repository.PrescriptionRepository, medRepo repository.MedicationRepository) *Service {
	return &Service{
		repo:    repo,
		medRepo: medRepo,
	}
}

// Write records a new prescription by the doctor. The medication must exist
// in the inventory catalog.
func (s *Service) Write(ctx context.Context, doctorID uuid.UUID, req *model.CreatePrescriptionRequest) (*model.Prescription, error) {
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return nil, fmt.Errorf("invalid patient id: %w", err)
	}
	medicationID, err := uuid.Parse(req.MedicationID)
	if err != nil {
		return nil, fmt.Errorf("invalid medication id: %w", err)
	}

	if _, err := s.medRepo.Get(ctx, medicationID); err != nil {
		return nil, ErrUnknownMedicine
	}

	p := &model.Prescription{
		PatientID:    patientID,
		DoctorID:     doctorID,
		MedicationID: medicationID,
		Dosage:       req.Dosage,
		Frequency:    req.Frequency,
		DurationDays: req.DurationDays,
		Status:       model.PrescriptionStatusPending,
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	if req.Instructions != "" {
		p.Instructions = &req.Instructions
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create prescription: %w", err)
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Prescription, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters *model.PrescriptionFilters) ([]*model.Prescription, error) {
	return s.repo.List(ctx, filters)
}

// Fill dispenses a pending prescription: one unit is deducted from stock and
// the filling pharmacist is recorded. Both the status change and the stock
// deduction are guarded, so a raced fill fails cleanly.
func (s *Service) Fill(ctx context.Context, id, pharmacistID uuid.UUID) (*model.Prescription, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != model.PrescriptionStatusPending {
		return nil, ErrNotPending
	}

	if err := s.medRepo.AdjustQuantity(ctx, p.MedicationID, -1); err != nil {
		return nil, fmt.Errorf("failed to deduct stock: %w", err)
	}

	if err := s.repo.UpdateStatus(ctx, id, model.PrescriptionStatusFilled, &pharmacistID); err != nil {
		// Put the unit back; the status change did not land.
		if restockErr := s.medRepo.AdjustQuantity(ctx, p.MedicationID, 1); restockErr != nil {
			return nil, fmt.Errorf("failed to fill prescription: %w (restock also failed: %v)", err, restockErr)
		}
		return nil, fmt.Errorf("failed to fill prescription: %w", err)
	}

	p.Status = model.PrescriptionStatusFilled
	p.FilledBy = &pharmacistID
	return p, nil
}

// Cancel voids a pending prescription.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*model.Prescription, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != model.PrescriptionStatusPending {
		return nil, ErrNotPending
	}

	if err := s.repo.UpdateStatus(ctx, id, model.PrescriptionStatusCancelled, nil); err != nil {
		return nil, fmt.Errorf("failed to cancel prescription: %w", err)
	}
	p.Status = model.PrescriptionStatusCancelled
	return p, nil
}
