package role

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/medicura/medicura-api/internal/model"
	"github.com/medicura/medicura-api/internal/repository"
	"github.com/medicura/medicura-api/internal/repository/postgres"
)

var (
	// ErrAccountNotFound means the email has no matching account row. Callers
	// treat it as "not authenticated" so account existence is not leaked.
	ErrAccountNotFound = errors.New("account not found")
	// ErrResolutionFailed is a transient lookup failure. Callers fall back to
	// the unauthenticated path, never to a stale or defaulted role.
	ErrResolutionFailed = errors.New("role resolution failed")
)

// Resolution is the outcome of a successful role lookup. Profile is nil when
// the role's profile row does not exist yet; onboarding is then treated as
// incomplete.
type Resolution struct {
	UserID      string
	Role        model.Role
	Profile     *model.RoleProfile
	DisplayName string
}

// Onboarded reports whether the resolved account completed onboarding.
// Roles without a profile (admin) are always considered onboarded.
func (r *Resolution) Onboarded() bool {
	if !r.Role.HasProfile() {
		return true
	}
	return r.Profile != nil && r.Profile.HasOnboarded
}

// Service resolves an authenticated identity to its account role and role
// profile. Read-only; results are cached briefly to keep the guard off the
// hot path of every dashboard request.
type Service struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	cache       *cache.Cache
}

func NewService(userRepo repository.UserRepository, profileRepo repository.ProfileRepository, cacheTTL time.Duration) *Service {
	return &Service{
		userRepo:    userRepo,
		profileRepo: profileRepo,
		cache:       cache.New(cacheTTL, 2*cacheTTL),
	}
}

// Resolve looks up the account role and profile by email.
func (s *Service) Resolve(ctx context.Context, email string) (*Resolution, error) {
	if cached, ok := s.cache.Get(email); ok {
		return cached.(*Resolution), nil
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, postgres.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrResolutionFailed, err)
	}

	res := &Resolution{
		UserID:      user.ID.String(),
		Role:        user.Role,
		DisplayName: user.Name,
	}

	if user.Role.HasProfile() {
		profile, err := s.profileRepo.GetByUserID(ctx, user.ID, user.Role)
		if err != nil && !errors.Is(err, postgres.ErrNoRows) {
			return nil, fmt.Errorf("%w: %v", ErrResolutionFailed, err)
		}
		res.Profile = profile
	}

	s.cache.Set(email, res, cache.DefaultExpiration)
	return res, nil
}

// Invalidate drops the cached resolution, e.g. after onboarding completion.
func (s *Service) Invalidate(email string) {
	s.cache.Delete(email)
}
