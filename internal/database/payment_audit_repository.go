package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/tripnest/booking-core/internal/models"
)

// PaymentAuditRepository handles payment audit operations
type PaymentAuditRepository struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPaymentAuditRepository creates a new payment audit repository
func NewPaymentAuditRepository(db *sqlx.DB, logger *logrus.Logger) *PaymentAuditRepository {
	return &PaymentAuditRepository{
		db:     db,
		logger: logger,
	}
}

// Log creates a new payment audit entry
func (r *PaymentAuditRepository) Log(ctx context.Context, audit *models.PaymentAudit) error {
	if audit == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}

	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO payment_audits (
			id, bill_id, qr_payment_id, refund_id, actor_id,
			event_type, event_source,
			expected_amount, actual_amount, currency,
			is_duplicate, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.ExecContext(ctx, query,
		audit.ID, audit.BillID, audit.QRPaymentID, audit.RefundID, audit.ActorID,
		audit.EventType, audit.EventSource,
		audit.ExpectedAmount, audit.ActualAmount, audit.Currency,
		audit.IsDuplicate, audit.ErrorMessage, audit.CreatedAt,
	)
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"event_type": audit.EventType,
			"bill_id":    audit.BillID,
		}).Error("CRITICAL: Failed to log payment audit")
		return fmt.Errorf("failed to log payment audit: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"audit_id":   audit.ID,
		"event_type": audit.EventType,
		"bill_id":    audit.BillID,
	}).Debug("Payment audit logged")

	return nil
}

// GetByBillID retrieves all audit entries for a bill in order
func (r *PaymentAuditRepository) GetByBillID(ctx context.Context, billID uuid.UUID) ([]*models.PaymentAudit, error) {
	var audits []*models.PaymentAudit
	query := `
		SELECT id, bill_id, qr_payment_id, refund_id, actor_id, event_type, event_source,
		       expected_amount, actual_amount, currency, is_duplicate, error_message, created_at
		FROM payment_audits
		WHERE bill_id = $1
		ORDER BY created_at ASC`

	if err := r.db.SelectContext(ctx, &audits, query, billID); err != nil {
		return nil, fmt.Errorf("failed to get audits by bill: %w", err)
	}
	return audits, nil
}
