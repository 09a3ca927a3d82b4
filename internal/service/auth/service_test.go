package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/medicura/medicura-api/internal/config"
	"github.com/medicura/medicura-api/internal/email"
	"github.com/medicura/medicura-api/internal/model"
	"github.com/medicura/medicura-api/internal/repository/postgres"
	"github.com/medicura/medicura-api/internal/session"
	pkgauth "github.com/medicura/medicura-api/pkg/auth"
)

type fakeUserRepo struct {
	byEmail map[string]*model.User
	byID    map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byEmail: make(map[string]*model.User),
		byID:    make(map[uuid.UUID]*model.User),
	}
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	cp := *user
	r.byEmail[user.Email] = &cp
	r.byID[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, postgres.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	u, ok := r.byEmail[email]
	if !ok {
		return nil, postgres.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	cp := *user
	r.byEmail[user.Email] = &cp
	r.byID[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	if u, ok := r.byID[id]; ok {
		delete(r.byEmail, u.Email)
		delete(r.byID, id)
	}
	return nil
}

func (r *fakeUserRepo) List(_ context.Context, _ *model.UserFilters) ([]*model.User, error) {
	out := make([]*model.User, 0, len(r.byID))
	for _, u := range r.byID {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

type fakeProfileRepo struct {
	created []*model.RoleProfile
}

func (r *fakeProfileRepo) Create(_ context.Context, profile *model.RoleProfile) error {
	r.created = append(r.created, profile)
	return nil
}

func (r *fakeProfileRepo) GetByUserID(_ context.Context, userID uuid.UUID, role model.Role) (*model.RoleProfile, error) {
	for _, p := range r.created {
		if p.UserID == userID && p.Role == role {
			return p, nil
		}
	}
	return nil, postgres.ErrNoRows
}

func (r *fakeProfileRepo) Update(_ context.Context, _ *model.RoleProfile) error { return nil }

func (r *fakeProfileRepo) MarkOnboarded(_ context.Context, _ uuid.UUID, _ model.Role) (bool, error) {
	return true, nil
}

func (r *fakeProfileRepo) ListByRole(_ context.Context, _ model.Role) ([]*model.RoleProfile, error) {
	return nil, nil
}

func newTestService(t *testing.T, lifetime time.Duration) (*Service, *fakeUserRepo, *session.MemoryStore, *session.Supervisor) {
	t.Helper()

	userRepo := newFakeUserRepo()
	profileRepo := &fakeProfileRepo{}
	store := session.NewMemoryStore()
	supervisor := session.NewSupervisor(func(context.Context, *session.Session) error { return nil })
	jwtSvc := pkgauth.NewJWTService(pkgauth.JWTConfig{
		Secret:        "test-secret",
		RefreshSecret: "test-refresh-secret",
		Expiry:        15 * time.Minute,
		RefreshExpiry: 24 * time.Hour,
	})
	emailSvc := email.NewService(config.SMTPConfig{}, nil)

	svc := NewService(userRepo, profileRepo, jwtSvc, store, supervisor, emailSvc, nil, lifetime)
	return svc, userRepo, store, supervisor
}

func seedUser(t *testing.T, repo *fakeUserRepo, email, password string, role model.Role) *model.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &model.User{
		Email:        email,
		Name:         "Test User",
		PasswordHash: string(hash),
		Role:         role,
		Status:       model.UserStatusActive,
	}
	user.ID = uuid.New()
	require.NoError(t, repo.Create(context.Background(), user))
	return user
}

func TestRegisterCreatesPendingProfile(t *testing.T) {
	svc, _, _, _ := newTestService(t, time.Hour)
	profileRepo := svc.profileRepo.(*fakeProfileRepo)

	user, err := svc.Register(context.Background(), &model.RegisterRequest{
		Email:    "doc@example.com",
		Name:     "Doc",
		Password: "secret12",
		Role:     "doctor",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleDoctor, user.Role)

	require.Len(t, profileRepo.created, 1)
	assert.Equal(t, user.ID, profileRepo.created[0].UserID)
	assert.False(t, profileRepo.created[0].HasOnboarded)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, userRepo, _, _ := newTestService(t, time.Hour)
	seedUser(t, userRepo, "taken@example.com", "secret12", model.RolePatient)

	_, err := svc.Register(context.Background(), &model.RegisterRequest{
		Email:    "taken@example.com",
		Name:     "Dup",
		Password: "secret12",
		Role:     "patient",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginIssuesSessionWithFixedDeadline(t *testing.T) {
	lifetime := time.Hour
	svc, userRepo, store, supervisor := newTestService(t, lifetime)
	seedUser(t, userRepo, "pat@example.com", "secret12", model.RolePatient)

	before := time.Now()
	tokens, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    "pat@example.com",
		Password: "secret12",
	})
	require.NoError(t, err)
	require.NotEmpty(t, tokens.AccessToken)
	require.NotEmpty(t, tokens.RefreshToken)

	assert.WithinDuration(t, before.Add(lifetime), tokens.HardExpiry, 2*time.Second)
	assert.Equal(t, 1, supervisor.Tracked())

	sessions, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, tokens.HardExpiry.Unix(), sessions[0].HardExpiry.Unix())
}

func TestLoginLocksAfterRepeatedFailures(t *testing.T) {
	svc, userRepo, _, _ := newTestService(t, time.Hour)
	seedUser(t, userRepo, "locked@example.com", "secret12", model.RolePatient)

	for i := 0; i < maxLoginAttempts; i++ {
		_, err := svc.Login(context.Background(), &model.LoginRequest{
			Email:    "locked@example.com",
			Password: "wrong",
		})
		assert.ErrorIs(t, err, model.ErrInvalidCredentials)
	}

	// Correct password no longer helps while the lockout window is open.
	_, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    "locked@example.com",
		Password: "secret12",
	})
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestLoginRecoversAfterLockoutWindow(t *testing.T) {
	svc, userRepo, _, _ := newTestService(t, time.Hour)
	user := seedUser(t, userRepo, "back@example.com", "secret12", model.RolePatient)

	user.Status = model.UserStatusLocked
	user.LoginAttempts = maxLoginAttempts
	user.LastLoginAttempt = time.Now().Add(-lockoutDuration - time.Minute)
	require.NoError(t, userRepo.Update(context.Background(), user))

	_, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    "back@example.com",
		Password: "secret12",
	})
	require.NoError(t, err)

	stored, err := userRepo.GetByEmail(context.Background(), "back@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.UserStatusActive, stored.Status)
	assert.Zero(t, stored.LoginAttempts)
}

func TestRefreshKeepsOriginalDeadline(t *testing.T) {
	svc, userRepo, store, _ := newTestService(t, time.Hour)
	seedUser(t, userRepo, "fresh@example.com", "secret12", model.RolePatient)

	tokens, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    "fresh@example.com",
		Password: "secret12",
	})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, tokens.HardExpiry.Unix(), refreshed.HardExpiry.Unix())

	sessions, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, tokens.HardExpiry.Unix(), sessions[0].HardExpiry.Unix())
}

func TestRefreshRefusesExpiredSession(t *testing.T) {
	svc, userRepo, store, _ := newTestService(t, time.Hour)
	user := seedUser(t, userRepo, "old@example.com", "secret12", model.RolePatient)

	sess := &session.Session{
		ID:         uuid.New(),
		UserID:     user.ID,
		Email:      user.Email,
		Role:       user.Role,
		IssuedAt:   time.Now().Add(-2 * time.Hour),
		HardExpiry: time.Now().Add(-time.Hour),
	}
	require.NoError(t, store.Save(context.Background(), sess))

	jwtSvc := svc.jwtSvc
	refresh, err := jwtSvc.GenerateRefreshToken(user.ID, sess.ID, user.Email, string(user.Role))
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), refresh)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestLogoutRevokesSessionAndWatcher(t *testing.T) {
	svc, userRepo, store, supervisor := newTestService(t, time.Hour)
	user := seedUser(t, userRepo, "bye@example.com", "secret12", model.RolePatient)

	_, err := svc.Login(context.Background(), &model.LoginRequest{
		Email:    "bye@example.com",
		Password: "secret12",
	})
	require.NoError(t, err)

	sessions, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	identity := model.Identity{UserID: user.ID, SessionID: sessions[0].ID, Email: user.Email}
	require.NoError(t, svc.Logout(context.Background(), identity))

	_, err = store.Get(context.Background(), sessions[0].ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.Zero(t, supervisor.Tracked())

	// A repeated logout for the same session is a no-op.
	assert.NoError(t, svc.Logout(context.Background(), identity))
}
