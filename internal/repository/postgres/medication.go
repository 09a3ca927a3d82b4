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

type medicationRepository struct {
	BaseRepository
}

func NewMedicationRepository(base BaseRepository) repository.MedicationRepository {
	return &medicationRepository{base}
}

func (r *medicationRepository) Create(ctx context.Context, m *model.Medication) error {
	query := `
		INSERT INTO medications (
			id, name, description, manufacturer, unit_price, quantity,
			reorder_level, expiry_date, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = time.Now()
	m.UpdatedAt = time.Now()

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			m.ID,
			m.Name,
			m.Description,
			m.Manufacturer,
			m.UnitPrice,
			m.Quantity,
			m.ReorderLevel,
			m.ExpiryDate,
			m.CreatedAt,
			m.UpdatedAt,
		)
		return err
	})
}

func (r *medicationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Medication, error) {
	query := `
		SELECT * FROM medications
		WHERE id = $1 AND deleted_at IS NULL
	`

	var m model.Medication
	if err := r.db.GetContext(ctx, &m, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("failed to get medication: %w", err)
	}

	return &m, nil
}

func (r *medicationRepository) Update(ctx context.Context, m *model.Medication) error {
	query := `
		UPDATE medications SET
			name = $1,
			description = $2,
			manufacturer = $3,
			unit_price = $4,
			reorder_level = $5,
			expiry_date = $6,
			updated_at = $7
		WHERE id = $8 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		m.Name,
		m.Description,
		m.Manufacturer,
		m.UnitPrice,
		m.ReorderLevel,
		m.ExpiryDate,
		time.Now(),
		m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update medication: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("medication not found")
	}

	return nil
}

func (r *medicationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE medications
		SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete medication: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("medication not found")
	}

	return nil
}

func (r *medicationRepository) List(ctx context.Context) ([]*model.Medication, error) {
	query := `
		SELECT * FROM medications
		WHERE deleted_at IS NULL
		ORDER BY name ASC
	`

	var medications []*model.Medication
	if err := r.db.SelectContext(ctx, &medications, query); err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}

	return medications, nil
}

func (r *medicationRepository) AdjustQuantity(ctx context.Context, id uuid.UUID, delta int) error {
	query := `
		UPDATE medications
		SET quantity = quantity + $1, updated_at = NOW()
		WHERE id = $2 AND quantity + $1 >= 0 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, delta, id)
	if err != nil {
		return fmt.Errorf("failed to adjust medication quantity: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("medication not found or insufficient stock")
	}

	return nil
}

func (r *medicationRepository) ListLowStock(ctx context.Context) ([]*model.Medication, error) {
	query := `
		SELECT * FROM medications
		WHERE quantity <= reorder_level AND deleted_at IS NULL
		ORDER BY quantity ASC
	`

	var medications []*model.Medication
	if err := r.db.SelectContext(ctx, &medications, query); err != nil {
		return nil, fmt.Errorf("failed to list low stock medications: %w", err)
	}

	return medications, nil
}

func (r *medicationRepository) ListExpiringBefore(ctx context.Context, cutoff time.Time) ([]*model.Medication, error) {
	query := `
		SELECT * FROM medications
		WHERE expiry_date < $1 AND deleted_at IS NULL
		ORDER BY expiry_date ASC
	`

	var medications []*model.Medication
	if err := r.db.SelectContext(ctx, &medications, query, cutoff); err != nil {
		return nil, fmt.Errorf("failed to list expiring medications: %w", err)
	}

	return medications, nil
}
