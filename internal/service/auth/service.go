package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/medicura/medicura-api/internal/email"
	"github.com/medicura/medicura-api/internal/model"
	"github.com/medicura/medicura-api/internal/repository"
	"github.com/medicura/medicura-api/internal/repository/postgres"
	"github.com/medicura/medicura-api/internal/session"
	"github.com/medicura/medicura-api/pkg/auth"
	"github.com/medicura/medicura-api/pkg/metrics"
)

var (
	ErrEmailTaken     = errors.New("email already registered")
	ErrAccountLocked  = errors.New("account is locked, please try again later")
	ErrSessionExpired = errors.New("session expired")
)

const (
	maxLoginAttempts = 5
	lockoutDuration  = 15 * time.Minute
	bcryptCost       = 12
)

type Service struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	jwtSvc      auth.JWTService
	sessions    session.Store
	supervisor  *session.Supervisor
	emailSvc    email.Service
	metrics     *metrics.Metrics

	sessionLifetime time.Duration
}

func NewService(userRepo repository.UserRepository, profileRepo repository.ProfileRepository,
	jwtSvc auth.JWTService, sessions session.Store, supervisor *session.Supervisor,
	emailSvc email.Service, m *metrics.Metrics, sessionLifetime time.Duration) *Service {
	return &Service{
		userRepo:        userRepo,
		profileRepo:     profileRepo,
		jwtSvc:          jwtSvc,
		sessions:        sessions,
		supervisor:      supervisor,
		emailSvc:        emailSvc,
		metrics:         m,
		sessionLifetime: sessionLifetime,
	}
}

// Register creates the account and an empty role profile. The profile starts
// un-onboarded; the user lands on the onboarding page until they complete it.
func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	role, err := model.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}

	if _, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, postgres.ErrNoRows) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hash),
		Role:         role,
		Status:       model.UserStatusActive,
	}
	user.ID = uuid.New()

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if role.HasProfile() {
		profile := &model.RoleProfile{
			ID:     uuid.New(),
			UserID: user.ID,
			Role:   role,
		}
		if err := s.profileRepo.Create(ctx, profile); err != nil {
			return nil, fmt.Errorf("failed to create profile: %w", err)
		}
	}

	if err := s.emailSvc.SendWelcome(ctx, user.Email, user.Name, role); err != nil {
		log.Warn().Err(err).Str("email", user.Email).Msg("failed to send welcome email")
	}

	return user, nil
}

// Login verifies credentials and issues a session with a fixed hard expiry.
// A watcher is armed for the session so it is signed out when the deadline
// passes even if no request arrives.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, postgres.ErrNoRows) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if user.Status == model.UserStatusLocked {
		if time.Since(user.LastLoginAttempt) < lockoutDuration {
			return nil, ErrAccountLocked
		}
		user.Status = model.UserStatusActive
		user.LoginAttempts = 0
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		user.LoginAttempts++
		user.LastLoginAttempt = time.Now()
		if user.LoginAttempts >= maxLoginAttempts {
			user.Status = model.UserStatusLocked
		}
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to update login attempts: %w", err)
		}
		return nil, model.ErrInvalidCredentials
	}

	user.LoginAttempts = 0
	now := time.Now()
	user.LastLoginAt = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update login timestamp: %w", err)
	}

	sess := &session.Session{
		ID:         uuid.New(),
		UserID:     user.ID,
		Email:      user.Email,
		Name:       user.Name,
		Role:       user.Role,
		IssuedAt:   now,
		HardExpiry: now.Add(s.sessionLifetime),
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	s.supervisor.Track(sess)

	if s.metrics != nil {
		s.metrics.SessionsIssued.Inc()
		s.metrics.SessionsActive.Inc()
	}

	return s.tokenPair(user, sess)
}

// Refresh issues a new token pair against the existing session. The hard
// expiry carries over unchanged, so refreshing cannot keep a session alive
// past its original deadline.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error) {
	claims, err := s.jwtSvc.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, model.ErrInvalidCredentials
	}

	sess, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}
	if sess.Expired(time.Now()) {
		return nil, ErrSessionExpired
	}

	user, err := s.userRepo.Get(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	return s.tokenPair(user, sess)
}

// Logout revokes the session and disarms its watcher.
func (s *Service) Logout(ctx context.Context, identity model.Identity) error {
	s.supervisor.Release(identity.SessionID)
	if err := s.sessions.Revoke(ctx, identity.SessionID); err != nil && !errors.Is(err, session.ErrNotFound) {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	if s.metrics != nil {
		s.metrics.SessionsRevoked.WithLabelValues("logout").Inc()
		s.metrics.SessionsActive.Dec()
	}
	return nil
}

func (s *Service) tokenPair(user *model.User, sess *session.Session) (*model.TokenResponse, error) {
	access, err := s.jwtSvc.GenerateAccessToken(user.ID, sess.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, err := s.jwtSvc.GenerateRefreshToken(user.ID, sess.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return &model.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		HardExpiry:   sess.HardExpiry,
	}, nil
}
