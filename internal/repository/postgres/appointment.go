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

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(base BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{base}
}

func (r *appointmentRepository) Create(ctx context.Context, appt *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, patient_id, doctor_id, start_time, end_time, reason,
			status, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = time.Now()

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			appt.ID,
			appt.PatientID,
			appt.DoctorID,
			appt.StartTime,
			appt.EndTime,
			appt.Reason,
			appt.Status,
			appt.Notes,
			appt.CreatedAt,
			appt.UpdatedAt,
		)
		return err
	})
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT * FROM appointments
		WHERE id = $1 AND deleted_at IS NULL
	`

	var appt model.Appointment
	if err := r.db.GetContext(ctx, &appt, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	return &appt, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appt *model.Appointment) error {
	query := `
		UPDATE appointments SET
			start_time = $1,
			end_time = $2,
			reason = $3,
			status = $4,
			notes = $5,
			updated_at = $6
		WHERE id = $7 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		appt.StartTime,
		appt.EndTime,
		appt.Reason,
		appt.Status,
		appt.Notes,
		time.Now(),
		appt.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("appointment not found")
	}

	return nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `
		SELECT * FROM appointments
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

	if !filters.From.IsZero() {
		query += fmt.Sprintf(" AND start_time >= $%d", len(args)+1)
		args = append(args, filters.From)
	}

	if !filters.To.IsZero() {
		query += fmt.Sprintf(" AND start_time < $%d", len(args)+1)
		args = append(args, filters.To)
	}

	query += " ORDER BY start_time ASC"

	var appts []*model.Appointment
	if err := r.db.SelectContext(ctx, &appts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}

	return appts, nil
}

func (r *appointmentRepository) CountOverlapping(ctx context.Context, doctorID uuid.UUID, start, end time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM appointments
		WHERE doctor_id = $1
		  AND status = $2
		  AND start_time < $3
		  AND end_time > $4
		  AND deleted_at IS NULL
	`

	var count int
	if err := r.db.GetContext(ctx, &count, query, doctorID, model.AppointmentStatusScheduled, end, start); err != nil {
		return 0, fmt.Errorf("failed to count overlapping appointments: %w", err)
	}

	return count, nil
}
