package onboarding

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicura/medicura-api/internal/model"
	"github.com/medicura/medicura-api/internal/repository/postgres"
)

type fakeProfileRepo struct {
	profiles map[uuid.UUID]*model.RoleProfile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[uuid.UUID]*model.RoleProfile)}
}

func (f *fakeProfileRepo) Create(_ context.Context, p *model.RoleProfile) error {
	f.profiles[p.UserID] = p
	return nil
}

func (f *fakeProfileRepo) GetByUserID(_ context.Context, userID uuid.UUID, _ model.Role) (*model.RoleProfile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return nil, postgres.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfileRepo) Update(_ context.Context, p *model.RoleProfile) error {
	stored := f.profiles[p.UserID]
	onboarded := stored.HasOnboarded
	cp := *p
	cp.HasOnboarded = onboarded
	f.profiles[p.UserID] = &cp
	return nil
}

func (f *fakeProfileRepo) MarkOnboarded(_ context.Context, userID uuid.UUID, _ model.Role) (bool, error) {
	p := f.profiles[userID]
	if p.HasOnboarded {
		return false, nil
	}
	p.HasOnboarded = true
	return true, nil
}

func (f *fakeProfileRepo) ListByRole(context.Context, model.Role) ([]*model.RoleProfile, error) {
	return nil, nil
}

type recordingInvalidator struct {
	emails []string
}

func (r *recordingInvalidator) Invalidate(email string) {
	r.emails = append(r.emails, email)
}

func patientRequest() *model.OnboardingRequest {
	return &model.OnboardingRequest{
		Phone:       "555-0100",
		DateOfBirth: "1990-04-02",
		Gender:      "female",
	}
}

func TestCompleteFlipsFlagAndInvalidatesCache(t *testing.T) {
	repo := newFakeProfileRepo()
	inv := &recordingInvalidator{}
	svc := NewService(repo, inv)

	id := model.Identity{UserID: uuid.New(), Email: "p@medicura.test"}
	require.NoError(t, repo.Create(context.Background(), &model.RoleProfile{
		UserID: id.UserID,
		Role:   model.RolePatient,
	}))

	profile, err := svc.Complete(context.Background(), id, model.RolePatient, patientRequest())
	require.NoError(t, err)
	assert.True(t, profile.HasOnboarded)
	require.NotNil(t, profile.DateOfBirth)
	assert.Equal(t, []string{"p@medicura.test"}, inv.emails)
}

func TestCompleteIsOneWay(t *testing.T) {
	repo := newFakeProfileRepo()
	svc := NewService(repo, &recordingInvalidator{})

	id := model.Identity{UserID: uuid.New(), Email: "p@medicura.test"}
	require.NoError(t, repo.Create(context.Background(), &model.RoleProfile{
		UserID: id.UserID,
		Role:   model.RolePatient,
	}))

	_, err := svc.Complete(context.Background(), id, model.RolePatient, patientRequest())
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), id, model.RolePatient, patientRequest())
	assert.ErrorIs(t, err, ErrAlreadyOnboarded)
}

func TestCompleteValidatesRoleFields(t *testing.T) {
	repo := newFakeProfileRepo()
	svc := NewService(repo, &recordingInvalidator{})

	id := model.Identity{UserID: uuid.New(), Email: "d@medicura.test"}
	require.NoError(t, repo.Create(context.Background(), &model.RoleProfile{
		UserID: id.UserID,
		Role:   model.RoleDoctor,
	}))

	// Doctor submission without licensing details is rejected.
	_, err := svc.Complete(context.Background(), id, model.RoleDoctor, &model.OnboardingRequest{Phone: "555-0100"})
	assert.ErrorIs(t, err, ErrMissingFields)

	_, err = svc.Complete(context.Background(), id, model.RoleDoctor, &model.OnboardingRequest{
		Phone:           "555-0100",
		Specialty:       "cardiology",
		LicenseNumber:   "MD-123",
		ConsultationFee: 150,
	})
	require.NoError(t, err)
}

func TestCompleteRejectsRolesWithoutProfile(t *testing.T) {
	svc := NewService(newFakeProfileRepo(), &recordingInvalidator{})

	id := model.Identity{UserID: uuid.New(), Email: "a@medicura.test"}
	_, err := svc.Complete(context.Background(), id, model.RoleAdmin, patientRequest())
	assert.ErrorIs(t, err, ErrNoProfile)
}

func TestStatus(t *testing.T) {
	repo := newFakeProfileRepo()
	svc := NewService(repo, &recordingInvalidator{})

	id := model.Identity{UserID: uuid.New(), Email: "p@medicura.test"}
	require.NoError(t, repo.Create(context.Background(), &model.RoleProfile{
		UserID: id.UserID,
		Role:   model.RolePatient,
	}))

	done, err := svc.Status(context.Background(), id, model.RolePatient)
	require.NoError(t, err)
	assert.False(t, done)

	done, err = svc.Status(context.Background(), id, model.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestStatusTreatsMissingProfileAsNotOnboarded(t *testing.T) {
	svc := NewService(newFakeProfileRepo(), &recordingInvalidator{})

	id := model.Identity{UserID: uuid.New(), Email: "new@medicura.test"}
	done, err := svc.Status(context.Background(), id, model.RolePatient)
	require.NoError(t, err)
	assert.False(t, done)
}
