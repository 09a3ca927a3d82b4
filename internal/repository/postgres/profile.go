package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medicura/medicura-api/internal/model"
	"github.com/medicura/medicura-api/internal/repository"
)

type profileRepository struct {
	BaseRepository
}

func NewProfileRepository(base BaseRepository) repository.ProfileRepository {
	return &profileRepository{base}
}

func (r *profileRepository) Create(ctx context.Context, profile *model.RoleProfile) error {
	query := `
		INSERT INTO role_profiles (
			id, user_id, role, has_onboarded, phone, address, date_of_birth,
			gender, specialty, license_number, consultation_fee, shift,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	profile.CreatedAt = time.Now()
	profile.UpdatedAt = time.Now()

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			profile.ID,
			profile.UserID,
			profile.Role,
			profile.HasOnboarded,
			profile.Phone,
			profile.Address,
			profile.DateOfBirth,
			profile.Gender,
			profile.Specialty,
			profile.LicenseNumber,
			profile.ConsultationFee,
			profile.Shift,
			profile.CreatedAt,
			profile.UpdatedAt,
		)
		return err
	})
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID uuid.UUID, role model.Role) (*model.RoleProfile, error) {
	query := `
		SELECT * FROM role_profiles
		WHERE user_id = $1 AND role = $2
	`

	var profile model.RoleProfile
	if err := r.db.GetContext(ctx, &profile, query, userID, role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("failed to get role profile: %w", err)
	}

	return &profile, nil
}

func (r *profileRepository) Update(ctx context.Context, profile *model.RoleProfile) error {
	query := `
		UPDATE role_profiles SET
			phone = $1,
			address = $2,
			date_of_birth = $3,
			gender = $4,
			specialty = $5,
			license_number = $6,
			consultation_fee = $7,
			shift = $8,
			updated_at = $9
		WHERE user_id = $10 AND role = $11
	`

	result, err := r.db.ExecContext(ctx, query,
		profile.Phone,
		profile.Address,
		profile.DateOfBirth,
		profile.Gender,
		profile.Specialty,
		profile.LicenseNumber,
		profile.ConsultationFee,
		profile.Shift,
		time.Now(),
		profile.UserID,
		profile.Role,
	)
	if err != nil {
		return fmt.Errorf("failed to update role profile: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("role profile not found")
	}

	return nil
}

func (r *profileRepository) MarkOnboarded(ctx context.Context, userID uuid.UUID, role model.Role) (bool, error) {
	// Guarded flip: the false -> true transition happens at most once.
	query := `
		UPDATE role_profiles
		SET has_onboarded = TRUE, updated_at = NOW()
		WHERE user_id = $1 AND role = $2 AND has_onboarded = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, userID, role)
	if err != nil {
		return false, fmt.Errorf("failed to mark onboarded: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

func (r *profileRepository) ListByRole(ctx context.Context, role model.Role) ([]*model.RoleProfile, error) {
	query := `
		SELECT * FROM role_profiles
		WHERE role = $1
		ORDER BY created_at DESC
	`

	var profiles []*model.RoleProfile
	if err := r.db.SelectContext(ctx, &profiles, query, role); err != nil {
		return nil, fmt.Errorf("failed to list role profiles: %w", err)
	}

	return profiles, nil
}
