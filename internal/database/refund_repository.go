package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/tripnest/booking-core/internal/models"
)

const refundColumns = `id, bill_id, user_id, status, description, version, resolved_by, resolution_note, created_at, resolved_at`

// RefundRepository handles database operations for refund requests
type RefundRepository struct {
	db *sqlx.DB
}

// NewRefundRepository creates a new RefundRepository
func NewRefundRepository(db *sqlx.DB) *RefundRepository {
	return &RefundRepository{db: db}
}

// Create stores a pending refund request. The partial unique index on pending rows turns a
// second concurrent request for the same bill into a ConflictError.
func (r *RefundRepository) Create(ctx context.Context, refund *models.Refund) error {
	if refund.ID == uuid.Nil {
		refund.ID = uuid.New()
	}
	refund.Status = models.RefundStatusPending
	refund.Version = 1

	query := `
		INSERT INTO refunds (id, bill_id, user_id, status, description, version)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.QueryRowxContext(ctx, query,
		refund.ID, refund.BillID, refund.UserID, refund.Status, refund.Description, refund.Version,
	).Scan(&refund.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("a refund request is already pending for this bill")
		}
		return fmt.Errorf("failed to create refund: %w", err)
	}
	return nil
}

// GetPendingByBill retrieves the pending refund of a bill. Returns nil, nil when none.
func (r *RefundRepository) GetPendingByBill(ctx context.Context, billID uuid.UUID) (*models.Refund, error) {
	return r.getOne(ctx, `SELECT `+refundColumns+` FROM refunds WHERE bill_id = $1 AND status = 'pending'`, billID)
}

// GetByID retrieves a refund. Returns nil, nil when not found.
func (r *RefundRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Refund, error) {
	return r.getOne(ctx, `SELECT `+refundColumns+` FROM refunds WHERE id = $1`, id)
}

func (r *RefundRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.Refund, error) {
	var refund models.Refund
	err := r.db.GetContext(ctx, &refund, query, arg)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get refund: %w", err)
	}
	return &refund, nil
}

// ListPending returns pending refunds, oldest first
func (r *RefundRepository) ListPending(ctx context.Context, limit int) ([]models.Refund, error) {
	refunds := []models.Refund{}
	query := `SELECT ` + refundColumns + ` FROM refunds WHERE status = 'pending' ORDER BY created_at LIMIT $1`
	if err := r.db.SelectContext(ctx, &refunds, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list pending refunds: %w", err)
	}
	return refunds, nil
}

// ============================================================================
// RESOLUTION (optimistic concurrency on version)
// ============================================================================

// Approve archives the refund as approved and moves the bill paid→refunded with refundPrice,
// both in one transaction. A concurrent resolution yields ConflictError; a bill that is no
// longer paid yields StateError.
func (r *RefundRepository) Approve(ctx context.Context, refund *models.Refund, approverID uuid.UUID, refundPrice float64, at time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ok, err := resolveRefund(ctx, tx, refund, models.RefundStatusApproved, approverID, nil, at)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewConflictError("refund request was resolved concurrently")
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE bills
		SET status = 'refunded', refund_price = $2, updated_at = $3
		WHERE id = $1 AND status = 'paid'`,
		refund.BillID, refundPrice, at)
	if err != nil {
		return fmt.Errorf("failed to mark bill refunded: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.NewStateError("bill is not in a refundable state")
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	refund.Status = models.RefundStatusApproved
	refund.Version++
	refund.ResolvedBy = &approverID
	refund.ResolvedAt = &at
	return nil
}

// Reject marks the refund rejected without touching the bill.
// Returns false when the refund was already resolved.
func (r *RefundRepository) Reject(ctx context.Context, refund *models.Refund, approverID uuid.UUID, note *string, at time.Time) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ok, err := resolveRefund(ctx, tx, refund, models.RefundStatusRejected, approverID, note, at)
	if err != nil || !ok {
		return false, err
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	refund.Status = models.RefundStatusRejected
	refund.Version++
	refund.ResolvedBy = &approverID
	refund.ResolutionNote = note
	refund.ResolvedAt = &at
	return true, nil
}

func resolveRefund(ctx context.Context, tx *sqlx.Tx, refund *models.Refund, status models.RefundStatus, approverID uuid.UUID, note *string, at time.Time) (bool, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE refunds
		SET status = $3, version = version + 1, resolved_by = $4, resolution_note = $5, resolved_at = $6
		WHERE id = $1 AND status = 'pending' AND version = $2`,
		refund.ID, refund.Version, status, approverID, note, at)
	if err != nil {
		return false, fmt.Errorf("failed to resolve refund: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// PurgeResolved deletes rejected refunds resolved before cutoff. Approved rows are kept as the archive.
func (r *RefundRepository) PurgeResolved(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM refunds WHERE status = 'rejected' AND resolved_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge refunds: %w", err)
	}
	return result.RowsAffected()
}
