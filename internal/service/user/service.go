package user

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/medicura/medicura-api/internal/model"
	"github.com/medicura/medicura-api/internal/repository"
)

// Service backs the admin user-management surface.
type Service struct {
	repo repository.UserRepository
}

func NewService(repo repository.UserRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters *model.UserFilters) ([]*model.User, error) {
	return s.repo.List(ctx, filters)
}

// SetStatus activates or deactivates an account. Clearing the attempt
// counter on activation also releases a lockout.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status string) (*model.User, error) {
	if status != model.UserStatusActive && status != model.UserStatusInactive {
		return nil, fmt.Errorf("unsupported status %q", status)
	}

	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Status = status
	if status == model.UserStatusActive {
		u.LoginAttempts = 0
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to update user status: %w", err)
	}
	return u, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
