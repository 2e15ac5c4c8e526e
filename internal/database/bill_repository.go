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

const billColumns = `id, booking_id, deposit, original_price, total_price, refund_price, status, voucher_id, paid_at, created_at, updated_at`

// BillRepository handles database operations for bills, bill details and voucher links
type BillRepository struct {
	db *sqlx.DB
}

// NewBillRepository creates a new BillRepository
func NewBillRepository(db *sqlx.DB) *BillRepository {
	return &BillRepository{db: db}
}

// GetByID retrieves a bill. Returns nil, nil when not found.
func (r *BillRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Bill, error) {
	return r.getOne(ctx, `SELECT `+billColumns+` FROM bills WHERE id = $1`, id)
}

// GetByBookingID retrieves the bill of a booking. Returns nil, nil when not found.
func (r *BillRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.Bill, error) {
	return r.getOne(ctx, `SELECT `+billColumns+` FROM bills WHERE booking_id = $1`, bookingID)
}

func (r *BillRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.Bill, error) {
	var bill models.Bill
	err := r.db.GetContext(ctx, &bill, query, arg)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}
	return &bill, nil
}

// GetDetails returns the price snapshot lines of a bill
func (r *BillRepository) GetDetails(ctx context.Context, billID uuid.UUID) ([]models.BillDetail, error) {
	details := []models.BillDetail{}
	query := `
		SELECT id, bill_id, item_type, item_id, item_name, quantity, unit_price, total_price
		FROM bill_details
		WHERE bill_id = $1
		ORDER BY item_name, id`

	if err := r.db.SelectContext(ctx, &details, query, billID); err != nil {
		return nil, fmt.Errorf("failed to get bill details: %w", err)
	}
	return details, nil
}

// ============================================================================
// VOUCHERS
// ============================================================================

// ApplyVoucher sets the voucher and discounted total on a pending bill that has no voucher yet,
// records the redemption and retires pending QR codes issued for the old amount.
// Returns false when the bill already carries a voucher or is no longer pending.
func (r *BillRepository) ApplyVoucher(ctx context.Context, billID, voucherID, userID uuid.UUID, newTotal float64, at time.Time) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE bills
		SET voucher_id = $2, total_price = $3, updated_at = $4
		WHERE id = $1 AND voucher_id IS NULL AND status = 'pending'`,
		billID, voucherID, newTotal, at)
	if err != nil {
		return false, fmt.Errorf("failed to apply voucher: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_vouchers (id, user_id, voucher_id, bill_id, used_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), userID, voucherID, billID, at)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to record voucher usage: %w", err)
	}

	if err := supersedePendingCodes(ctx, tx, billID); err != nil {
		return false, err
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// RemoveVoucher restores the original price of a pending bill and deletes the redemption.
// Returns the restored total, or false when no voucher was applied.
func (r *BillRepository) RemoveVoucher(ctx context.Context, billID uuid.UUID, at time.Time) (float64, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var restored float64
	err = tx.QueryRowxContext(ctx, `
		UPDATE bills
		SET voucher_id = NULL, total_price = original_price, updated_at = $2
		WHERE id = $1 AND voucher_id IS NOT NULL AND status = 'pending'
		RETURNING total_price`,
		billID, at).Scan(&restored)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to remove voucher: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM user_vouchers WHERE bill_id = $1`, billID); err != nil {
		return 0, false, fmt.Errorf("failed to delete voucher usage: %w", err)
	}

	if err := supersedePendingCodes(ctx, tx, billID); err != nil {
		return 0, false, err
	}

	if err = tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return restored, true, nil
}

func supersedePendingCodes(ctx context.Context, tx *sqlx.Tx, billID uuid.UUID) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE qr_payments SET status = 'superseded' WHERE bill_id = $1 AND status = 'pending'`,
		billID); err != nil {
		return fmt.Errorf("failed to supersede payment codes: %w", err)
	}
	return nil
}
