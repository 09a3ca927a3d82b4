package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medicura/medicura-api/internal/model"
	"github.com/medicura/medicura-api/internal/repository"
)

const expiryAlertWindow = 30 * 24 * time.Hour

type Service struct {
	repo repository.MedicationRepository
}

func NewService(repo repository.MedicationRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) AddMedication(ctx context.Context, req *model.CreateMedicationRequest) (*model.Medication, error) {
	expiry, err := time.Parse("2006-01-02", req.ExpiryDate)
	if err != nil {
		return nil, fmt.Errorf("invalid expiry date: %w", err)
	}

	m := &model.Medication{
		Name:         req.Name,
		Manufacturer: req.Manufacturer,
		UnitPrice:    req.UnitPrice,
		Quantity:     req.Quantity,
		ReorderLevel: req.ReorderLevel,
		ExpiryDate:   expiry,
	}
	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt
	if req.Description != "" {
		m.Description = &req.Description
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to create medication: %w", err)
	}
	return m, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Medication, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*model.Medication, error) {
	return s.repo.List(ctx)
}

// Restock adds stock; the repository rejects adjustments that would drive
// the quantity negative, which cannot happen here but keeps one code path.
func (s *Service) Restock(ctx context.Context, id uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("restock quantity must be positive")
	}
	if err := s.repo.AdjustQuantity(ctx, id, quantity); err != nil {
		return fmt.Errorf("failed to restock: %w", err)
	}
	return nil
}

func (s *Service) Remove(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// LowStock lists medications at or below their reorder level.
func (s *Service) LowStock(ctx context.Context) ([]*model.Medication, error) {
	return s.repo.ListLowStock(ctx)
}

// ExpiringSoon lists medications expiring within the alert window.
func (s *Service) ExpiringSoon(ctx context.Context) ([]*model.Medication, error) {
	return s.repo.ListExpiringBefore(ctx, time.Now().Add(expiryAlertWindow))
}
