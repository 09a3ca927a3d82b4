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

type prescriptionRepository struct {
	BaseRepository
}

func NewPrescriptionRepository(base BaseRepository) repository.PrescriptionRepository {
	return &prescriptionRepository{base}
}

func (r *prescriptionRepository) Create(ctx context.Context, p *model.Prescription) error {
	query := `
		INSERT INTO prescriptions (
			id, patient_id, doctor_id, medication_id, dosage, frequency,
			duration_days, instructions, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			p.ID,
			p.PatientID,
			p.DoctorID,
			p.MedicationID,
			p.Dosage,
			p.Frequency,
			p.DurationDays,
			p.Instructions,
			p.Status,
			p.CreatedAt,
			p.UpdatedAt,
		)
		return err
	})
}

func (r *prescriptionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Prescription, error) {
	query := `
		SELECT * FROM prescriptions
		WHERE id = $1 AND deleted_at IS NULL
	`

	var p model.Prescription
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("failed to get prescription: %w", err)
	}

	return &p, nil
}

func (r *prescriptionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, filledBy *uuid.UUID) error {
	// Only pending prescriptions may transition.
	query := `
		UPDATE prescriptions
		SET status = $1, filled_by = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, status, filledBy, id, model.PrescriptionStatusPending)
	if err != nil {
		return fmt.Errorf("failed to update prescription status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("prescription not pending")
	}

	return nil
}

func (r *prescriptionRepository) List(ctx context.Context, filters *model.PrescriptionFilters) ([]*model.Prescription, error) {
	query := `
		SELECT * FROM prescriptions
		WHERE deleted_at IS NULL
	`
	args := []interface{}{}

	if filters.PatientID != uuid.Nil {
		query += fmt.Sprintf(" AND patient_id = $%d", len(args)+1)
		args = append(args, filters.PatientID)
	}

	if filters.DoctorID != uuid.Nil {
		query += fmt.Sprintf(" AND doctor_id = $%d", len(args)+1)
		args = append(args, filters.DoctorID)
	}

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filters.Status)
	}

	query += " ORDER BY created_at DESC"

	var prescriptions []*model.Prescription
	if err := r.db.SelectContext(ctx, &prescriptions, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}

	return prescriptions, nil
}
