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

type invoiceRepository struct {
	BaseRepository
}

func NewInvoiceRepository(base BaseRepository) repository.InvoiceRepository {
	return &invoiceRepository{base}
}

func (r *invoiceRepository) Create(ctx context.Context, inv *model.Invoice) error {
	query := `
		INSERT INTO invoices (
			id, patient_id, appointment_id, amount, description, status,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	inv.CreatedAt = time.Now()
	inv.UpdatedAt = time.Now()

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			inv.ID,
			inv.PatientID,
			inv.AppointmentID,
			inv.Amount,
			inv.Description,
			inv.Status,
			inv.CreatedAt,
			inv.UpdatedAt,
		)
		return err
	})
}

func (r *invoiceRepository) Get(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	query := `
		SELECT * FROM invoices
		WHERE id = $1 AND deleted_at IS NULL
	`

	var inv model.Invoice
	if err := r.db.GetContext(ctx, &inv, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	return &inv, nil
}

func (r *invoiceRepository) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) error {
	query := `
		UPDATE invoices
		SET status = $1, paid_at = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, model.InvoiceStatusPaid, paidAt, id, model.InvoiceStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark invoice paid: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("invoice not pending")
	}

	return nil
}

func (r *invoiceRepository) List(ctx context.Context, filters *model.InvoiceFilters) ([]*model.Invoice, error) {
	query := `
		SELECT * FROM invoices
		WHERE deleted_at IS NULL
	`
	args := []interface{}{}

	if filters.PatientID != uuid.Nil {
		query += fmt.Sprintf(" AND patient_id = $%d", len(args)+1)
		args = append(args, filters.PatientID)
	}

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filters.Status)
	}

	query += " ORDER BY created_at DESC"

	var invoices []*model.Invoice
	if err := r.db.SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}

	return invoices, nil
}
