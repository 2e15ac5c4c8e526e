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

const qrPaymentColumns = `id, bill_id, code_hash, amount, status, expires_at, paid_at, created_at`

// QRPaymentRepository handles database operations for QR payment codes
type QRPaymentRepository struct {
	db *sqlx.DB
}

// NewQRPaymentRepository creates a new QRPaymentRepository
func NewQRPaymentRepository(db *sqlx.DB) *QRPaymentRepository {
	return &QRPaymentRepository{db: db}
}

// Create stores a new code for a bill and supersedes any code still pending for it
func (r *QRPaymentRepository) Create(ctx context.Context, qr *models.QRPayment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := supersedePendingCodes(ctx, tx, qr.BillID); err != nil {
		return err
	}

	if qr.ID == uuid.Nil {
		qr.ID = uuid.New()
	}
	if qr.Status == "" {
		qr.Status = models.QRPaymentPending
	}

	query := `
		INSERT INTO qr_payments (id, bill_id, code_hash, amount, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err = tx.QueryRowxContext(ctx, query,
		qr.ID, qr.BillID, qr.CodeHash, qr.Amount, qr.Status, qr.ExpiresAt,
	).Scan(&qr.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("payment code collision, please retry")
		}
		return fmt.Errorf("failed to create QR payment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetByCodeHash retrieves a code by its digest. Returns nil, nil when not found.
func (r *QRPaymentRepository) GetByCodeHash(ctx context.Context, codeHash string) (*models.QRPayment, error) {
	return r.getOne(ctx, `SELECT `+qrPaymentColumns+` FROM qr_payments WHERE code_hash = $1`, codeHash)
}

// GetLatestByBill retrieves the most recently issued code of a bill. Returns nil, nil when none.
func (r *QRPaymentRepository) GetLatestByBill(ctx context.Context, billID uuid.UUID) (*models.QRPayment, error) {
	return r.getOne(ctx, `
		SELECT `+qrPaymentColumns+`
		FROM qr_payments
		WHERE bill_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, billID)
}

func (r *QRPaymentRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.QRPayment, error) {
	var qr models.QRPayment
	err := r.db.GetContext(ctx, &qr, query, arg)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get QR payment: %w", err)
	}
	return &qr, nil
}

// ConfirmPayment settles a scanned code in one transaction: code pending→paid, bill pending→paid
// for exactly the code's amount, booking pending→confirmed. Returns false when another scan
// already moved the code out of pending, in which case nothing is written.
//
// Rows are locked booking, then bill, then code, the same order Cancel takes them.
func (r *QRPaymentRepository) ConfirmPayment(ctx context.Context, qr *models.QRPayment, at time.Time) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. Lock the booking and the bill
	bookingID, err := lockBookingAndBill(ctx, tx, qr.BillID)
	if err != nil {
		return false, err
	}
	if bookingID == uuid.Nil {
		return false, models.NewStateError("bill is no longer payable with this code")
	}

	// 2. Claim the code
	result, err := tx.ExecContext(ctx, `
		UPDATE qr_payments
		SET status = 'paid', paid_at = $2
		WHERE id = $1 AND status = 'pending' AND expires_at > $2`,
		qr.ID, at)
	if err != nil {
		return false, fmt.Errorf("failed to claim QR payment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, nil
	}

	// 3. Settle the bill
	result, err = tx.ExecContext(ctx, `
		UPDATE bills
		SET status = 'paid', paid_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'pending' AND total_price = ROUND($3::numeric, 2)`,
		qr.BillID, at, qr.Amount)
	if err != nil {
		return false, fmt.Errorf("failed to mark bill paid: %w", err)
	}
	rows, err = result.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, models.NewStateError("bill is no longer payable with this code")
	}

	// 4. Confirm the booking
	if _, err := tx.ExecContext(ctx, `
		UPDATE bookings
		SET status = 'confirmed', updated_at = $2
		WHERE id = $1 AND status = 'pending'`,
		bookingID, at); err != nil {
		return false, fmt.Errorf("failed to confirm booking: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	qr.Status = models.QRPaymentPaid
	qr.PaidAt = &at
	return true, nil
}

// lockBookingAndBill takes row locks on a bill's booking and then on the bill itself.
// Returns uuid.Nil when the bill does not exist.
func lockBookingAndBill(ctx context.Context, tx *sqlx.Tx, billID uuid.UUID) (uuid.UUID, error) {
	var bookingID uuid.UUID
	err := tx.QueryRowxContext(ctx, `
		SELECT b.id
		FROM bookings b
		JOIN bills bi ON bi.booking_id = b.id
		WHERE bi.id = $1
		FOR UPDATE OF b`, billID).Scan(&bookingID)
	if err == sql.ErrNoRows {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to lock booking: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `SELECT id FROM bills WHERE id = $1 FOR UPDATE`, billID); err != nil {
		return uuid.Nil, fmt.Errorf("failed to lock bill: %w", err)
	}
	return bookingID, nil
}

// ExpireStale marks pending codes past their expiry as expired
func (r *QRPaymentRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE qr_payments SET status = 'expired' WHERE status = 'pending' AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire QR payments: %w", err)
	}
	return result.RowsAffected()
}

// PurgeExpired deletes expired and superseded codes that expired before cutoff
func (r *QRPaymentRepository) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM qr_payments
		WHERE status IN ('expired', 'superseded') AND expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge QR payments: %w", err)
	}
	return result.RowsAffected()
}
