package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicura/medicura-api/internal/model"
	"github.com/medicura/medicura-api/internal/service/role"
	"github.com/medicura/medicura-api/internal/session"
)

type fakeResolver struct {
	res *role.Resolution
	err error
}

func (f *fakeResolver) Resolve(context.Context, string) (*role.Resolution, error) {
	return f.res, f.err
}

// slowStore blocks Get until the caller's context gives up.
type slowStore struct {
	session.Store
}

func (s *slowStore) Get(ctx context.Context, _ uuid.UUID) (*session.Session, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func onboardedResolution(r model.Role) *role.Resolution {
	return &role.Resolution{
		UserID:      uuid.New().String(),
		Role:        r,
		Profile:     &model.RoleProfile{Role: r, HasOnboarded: true},
		DisplayName: "Alex Doe",
	}
}

func seedSession(t *testing.T, store session.Store, expiry time.Time) *session.Session {
	t.Helper()
	s := &session.Session{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		Email:      "a@x.com",
		Name:       "Alex Doe",
		Role:       model.RolePatient,
		IssuedAt:   time.Now(),
		HardExpiry: expiry,
	}
	require.NoError(t, store.Save(context.Background(), s))
	return s
}

func TestAuthorizedWhenRoleMatchesAndOnboarded(t *testing.T) {
	store := session.NewMemoryStore()
	s := seedSession(t, store, time.Now().Add(time.Hour))
	e := NewEvaluator(store, &fakeResolver{res: onboardedResolution(model.RolePatient)}, time.Second)

	d := e.Evaluate(context.Background(), s.Identity(), model.RolePatient)
	assert.Equal(t, OutcomeAuthorized, d.Outcome)
	assert.Equal(t, model.RolePatient, d.Role)
	assert.Equal(t, "a@x.com", d.Identity.Email)
}

func TestOnboardingRequiredWhenFlagFalse(t *testing.T) {
	store := session.NewMemoryStore()
	s := seedSession(t, store, time.Now().Add(time.Hour))
	res := &role.Resolution{
		Role:        model.RolePatient,
		Profile:     &model.RoleProfile{Role: model.RolePatient, HasOnboarded: false},
		DisplayName: "Alex Doe",
	}
	e := NewEvaluator(store, &fakeResolver{res: res}, time.Second)

	d := e.Evaluate(context.Background(), s.Identity(), model.RolePatient)
	assert.Equal(t, OutcomeOnboardingRequired, d.Outcome)
	assert.Equal(t, "/patient/onboarding", d.Redirect)
	assert.Equal(t, "Alex Doe", d.DisplayName)
}

func TestOnboardingRequiredWhenProfileAbsent(t *testing.T) {
	store := session.NewMemoryStore()
	s := seedSession(t, store, time.Now().Add(time.Hour))
	for _, r := range []model.Role{model.RolePatient, model.RoleDoctor, model.RolePharmacist, model.RoleReceptionist} {
		res := &role.Resolution{Role: r, Profile: nil, DisplayName: "Alex Doe"}
		e := NewEvaluator(store, &fakeResolver{res: res}, time.Second)

		d := e.Evaluate(context.Background(), s.Identity(), r)
		assert.Equal(t, OutcomeOnboardingRequired, d.Outcome, "role %s", r)
		assert.Equal(t, r.OnboardingPath(), d.Redirect, "role %s", r)
	}
}

func TestForbiddenOnRoleMismatch(t *testing.T) {
	store := session.NewMemoryStore()
	s := seedSession(t, store, time.Now().Add(time.Hour))
	e := NewEvaluator(store, &fakeResolver{res: onboardedResolution(model.RoleDoctor)}, time.Second)

	d := e.Evaluate(context.Background(), s.Identity(), model.RolePatient)
	assert.Equal(t, OutcomeForbidden, d.Outcome)
	assert.Equal(t, "/doctor/dashboard", d.Redirect)
}

func TestNoAdminOverride(t *testing.T) {
	store := session.NewMemoryStore()
	s := seedSession(t, store, time.Now().Add(time.Hour))
	res := &role.Resolution{Role: model.RoleAdmin, DisplayName: "Root"}
	e := NewEvaluator(store, &fakeResolver{res: res}, time.Second)

	// Admin visiting a patient dashboard is forbidden like any mismatch.
	d := e.Evaluate(context.Background(), s.Identity(), model.RolePatient)
	assert.Equal(t, OutcomeForbidden, d.Outcome)
	assert.Equal(t, "/admin/dashboard", d.Redirect)
}

func TestOnboardingTakesPrecedenceOverRoleMismatch(t *testing.T) {
	store := session.NewMemoryStore()
	s := seedSession(t, store, time.Now().Add(time.Hour))
	res := &role.Resolution{Role: model.RoleDoctor, Profile: nil, DisplayName: "Alex Doe"}
	e := NewEvaluator(store, &fakeResolver{res: res}, time.Second)

	// Unboarded doctor on a patient route sees onboarding, not forbidden.
	d := e.Evaluate(context.Background(), s.Identity(), model.RolePatient)
	assert.Equal(t, OutcomeOnboardingRequired, d.Outcome)
	assert.Equal(t, "/doctor/onboarding", d.Redirect)
}

func TestExpiredSessionIsRevokedInline(t *testing.T) {
	store := session.NewMemoryStore()
	s := seedSession(t, store, time.Now().Add(-time.Second))
	e := NewEvaluator(store, &fakeResolver{res: onboardedResolution(model.RolePatient)}, time.Second)

	d := e.Evaluate(context.Background(), s.Identity(), model.RolePatient)
	assert.Equal(t, OutcomeSignInRequired, d.Outcome)
	assert.True(t, d.SessionExpired)

	_, err := store.Get(context.Background(), s.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestRevokedSessionConsumesExpiredMarkerOnce(t *testing.T) {
	store := session.NewMemoryStore()
	s := seedSession(t, store, time.Now().Add(time.Hour))
	require.NoError(t, store.Revoke(context.Background(), s.ID))
	require.NoError(t, store.SetExpiredMarker(context.Background(), s.UserID))

	e := NewEvaluator(store, &fakeResolver{res: onboardedResolution(model.RolePatient)}, time.Second)

	d := e.Evaluate(context.Background(), s.Identity(), model.RolePatient)
	assert.Equal(t, OutcomeSignInRequired, d.Outcome)
	assert.True(t, d.SessionExpired)

	// One-shot: the next evaluation reports a plain sign-in requirement.
	d = e.Evaluate(context.Background(), s.Identity(), model.RolePatient)
	assert.Equal(t, OutcomeSignInRequired, d.Outcome)
	assert.False(t, d.SessionExpired)
}

func TestAccountNotFoundResolvesToSignIn(t *testing.T) {
	store := session.NewMemoryStore()
	s := seedSession(t, store, time.Now().Add(time.Hour))
	e := NewEvaluator(store, &fakeResolver{err: role.ErrAccountNotFound}, time.Second)

	d := e.Evaluate(context.Background(), s.Identity(), model.RolePatient)
	assert.Equal(t, OutcomeSignInRequired, d.Outcome)
}

func TestResolutionFailureNeverAuthorizes(t *testing.T) {
	store := session.NewMemoryStore()
	s := seedSession(t, store, time.Now().Add(time.Hour))
	e := NewEvaluator(store, &fakeResolver{err: errors.New("boom")}, time.Second)

	d := e.Evaluate(context.Background(), s.Identity(), model.RolePatient)
	assert.Equal(t, OutcomeSignInRequired, d.Outcome)
}

func TestUnresponsiveStoreResolvesWithinTimeout(t *testing.T) {
	e := NewEvaluator(&slowStore{}, &fakeResolver{res: onboardedResolution(model.RolePatient)}, 50*time.Millisecond)

	start := time.Now()
	d := e.Evaluate(context.Background(), model.Identity{SessionID: uuid.New(), UserID: uuid.New()}, model.RolePatient)
	elapsed := time.Since(start)

	assert.Equal(t, OutcomeSignInRequired, d.Outcome)
	assert.Less(t, elapsed, time.Second, "guard must not hang on an unresponsive store")
}

func TestDecisionHookSeesOutcome(t *testing.T) {
	store := session.NewMemoryStore()
	s := seedSession(t, store, time.Now().Add(time.Hour))

	var gotOutcome Outcome
	var gotRole model.Role
	var gotElapsed time.Duration
	e := NewEvaluator(store, &fakeResolver{res: onboardedResolution(model.RolePatient)}, time.Second,
		WithDecisionHook(func(d Decision, required model.Role, elapsed time.Duration) {
			gotOutcome = d.Outcome
			gotRole = required
			gotElapsed = elapsed
		}))

	e.Evaluate(context.Background(), s.Identity(), model.RolePatient)
	assert.Equal(t, OutcomeAuthorized, gotOutcome)
	assert.Equal(t, model.RolePatient, gotRole)
	assert.Greater(t, gotElapsed, time.Duration(0))
}
