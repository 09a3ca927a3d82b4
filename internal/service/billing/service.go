package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medicura/medicura-api/internal/model"
	"github.com/medicura/medicura-api/internal/repository"
)

var ErrNotPayable = errors.New("invoice is not pending")

type Service struct {
	repo repository.InvoiceRepository
}

func NewService(repo repository.InvoiceRepository) *Service {
	return &Service{repo: repo}
}

// CreateInvoice records a charge as entered by reception. Amounts come from
// the request as-is; fee computation is not modelled here.
func (s *Service) CreateInvoice(ctx context.Context, req *model.CreateInvoiceRequest) (*model.Invoice, error) {
	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return nil, fmt.Errorf("invalid patient id: %w", err)
	}

	inv := &model.Invoice{
		PatientID:   patientID,
		Amount:      req.Amount,
		Description: req.Description,
		Status:      model.InvoiceStatusPending,
	}
	inv.ID = uuid.New()
	inv.CreatedAt = time.Now()
	inv.UpdatedAt = inv.CreatedAt
	if req.AppointmentID != "" {
		apptID, err := uuid.Parse(req.AppointmentID)
		if err != nil {
			return nil, fmt.Errorf("invalid appointment id: %w", err)
		}
		inv.AppointmentID = &apptID
	}

	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}
	return inv, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters *model.InvoiceFilters) ([]*model.Invoice, error) {
	return s.repo.List(ctx, filters)
}

// RecordPayment marks a pending invoice paid. The repository update is
// guarded on the pending status, so a double payment fails.
func (s *Service) RecordPayment(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != model.InvoiceStatusPending {
		return nil, ErrNotPayable
	}

	now := time.Now()
	if err := s.repo.MarkPaid(ctx, id, now); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}
	inv.Status = model.InvoiceStatusPaid
	inv.PaidAt = &now
	return inv, nil
}
