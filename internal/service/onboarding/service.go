package onboarding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medicura/medicura-api/internal/model"
	"github.com/medicura/medicura-api/internal/repository"
	"github.com/medicura/medicura-api/internal/repository/postgres"
)

var (
	ErrAlreadyOnboarded = errors.New("onboarding already completed")
	ErrNoProfile        = errors.New("account has no onboarding profile")
	ErrMissingFields    = errors.New("missing required onboarding fields")
)

// CacheInvalidator drops a cached role resolution after the onboarding flag
// changes, so the next guard evaluation sees the new state.
type CacheInvalidator interface {
	Invalidate(email string)
}

type Service struct {
	profileRepo repository.ProfileRepository
	resolver    CacheInvalidator
}

func NewService(profileRepo repository.ProfileRepository, resolver CacheInvalidator) *Service {
	return &Service{
		profileRepo: profileRepo,
		resolver:    resolver,
	}
}

// Status reports whether the account finished onboarding. Roles without a
// profile are always considered done.
func (s *Service) Status(ctx context.Context, identity model.Identity, role model.Role) (bool, error) {
	if !role.HasProfile() {
		return true, nil
	}
	profile, err := s.profileRepo.GetByUserID(ctx, identity.UserID, role)
	if err != nil {
		// A missing profile row means onboarding never started.
		if errors.Is(err, postgres.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to fetch profile: %w", err)
	}
	return profile.HasOnboarded, nil
}

// Complete saves the submission and flips the onboarding flag. The flip is
// one-way: a repeat submission fails with ErrAlreadyOnboarded and leaves the
// stored profile untouched.
func (s *Service) Complete(ctx context.Context, identity model.Identity, role model.Role, req *model.OnboardingRequest) (*model.RoleProfile, error) {
	if !role.HasProfile() {
		return nil, ErrNoProfile
	}
	if err := validateForRole(role, req); err != nil {
		return nil, err
	}

	profile, err := s.profileRepo.GetByUserID(ctx, identity.UserID, role)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	if profile.HasOnboarded {
		return nil, ErrAlreadyOnboarded
	}

	applySubmission(profile, role, req)
	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to save onboarding details: %w", err)
	}

	flipped, err := s.profileRepo.MarkOnboarded(ctx, identity.UserID, role)
	if err != nil {
		return nil, fmt.Errorf("failed to complete onboarding: %w", err)
	}
	if !flipped {
		// Lost the race against a concurrent submission.
		return nil, ErrAlreadyOnboarded
	}
	profile.HasOnboarded = true

	s.resolver.Invalidate(identity.Email)
	log.Info().
		Stringer("user_id", identity.UserID).
		Str("role", string(role)).
		Msg("onboarding completed")

	return profile, nil
}

// Profile returns the stored role profile.
func (s *Service) Profile(ctx context.Context, identity model.Identity, role model.Role) (*model.RoleProfile, error) {
	if !role.HasProfile() {
		return nil, ErrNoProfile
	}
	profile, err := s.profileRepo.GetByUserID(ctx, identity.UserID, role)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	return profile, nil
}

// UpdateProfile applies a post-onboarding edit. Only the fields present in
// the request change; the onboarding flag is never touched here.
func (s *Service) UpdateProfile(ctx context.Context, identity model.Identity, role model.Role, req *model.UpdateProfileRequest) (*model.RoleProfile, error) {
	if !role.HasProfile() {
		return nil, ErrNoProfile
	}
	profile, err := s.profileRepo.GetByUserID(ctx, identity.UserID, role)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	if req.Phone != nil {
		profile.Phone = req.Phone
	}
	if req.Address != nil {
		profile.Address = req.Address
	}
	if role == model.RoleDoctor {
		if req.Specialty != nil {
			profile.Specialty = req.Specialty
		}
		if req.ConsultationFee != nil {
			profile.ConsultationFee = req.ConsultationFee
		}
	}
	if role == model.RoleReceptionist && req.Shift != nil {
		profile.Shift = req.Shift
	}

	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}

	s.resolver.Invalidate(identity.Email)
	return profile, nil
}

func validateForRole(role model.Role, req *model.OnboardingRequest) error {
	switch role {
	case model.RolePatient:
		if req.DateOfBirth == "" || req.Gender == "" {
			return fmt.Errorf("%w: date_of_birth and gender", ErrMissingFields)
		}
	case model.RoleDoctor:
		if req.Specialty == "" || req.LicenseNumber == "" || req.ConsultationFee <= 0 {
			return fmt.Errorf("%w: specialty, license_number and consultation_fee", ErrMissingFields)
		}
	case model.RolePharmacist:
		if req.LicenseNumber == "" {
			return fmt.Errorf("%w: license_number", ErrMissingFields)
		}
	case model.RoleReceptionist:
		if req.Shift == "" {
			return fmt.Errorf("%w: shift", ErrMissingFields)
		}
	}
	return nil
}

func applySubmission(profile *model.RoleProfile, role model.Role, req *model.OnboardingRequest) {
	profile.Phone = &req.Phone
	if req.Address != "" {
		profile.Address = &req.Address
	}
	if req.DateOfBirth != "" {
		if dob, err := time.Parse("2006-01-02", req.DateOfBirth); err == nil {
			profile.DateOfBirth = &dob
		}
	}
	if req.Gender != "" {
		profile.Gender = &req.Gender
	}

	switch role {
	case model.RoleDoctor:
		profile.Specialty = &req.Specialty
		profile.LicenseNumber = &req.LicenseNumber
		profile.ConsultationFee = &req.ConsultationFee
	case model.RolePharmacist:
		profile.LicenseNumber = &req.LicenseNumber
	case model.RoleReceptionist:
		profile.Shift = &req.Shift
	}
}
