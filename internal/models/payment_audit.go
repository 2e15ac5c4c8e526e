package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentEventType represents the type of payment event
type PaymentEventType string

const (
	PaymentEventQRIssued        PaymentEventType = "qr_issued"
	PaymentEventQRScanned       PaymentEventType = "qr_scanned"
	PaymentEventQRReplay        PaymentEventType = "qr_replay"
	PaymentEventQRRejected      PaymentEventType = "qr_rejected"
	PaymentEventSuccess         PaymentEventType = "payment_success"
	PaymentEventVoucherApplied  PaymentEventType = "voucher_applied"
	PaymentEventVoucherRemoved  PaymentEventType = "voucher_removed"
	PaymentEventRefundRequested PaymentEventType = "refund_requested"
	PaymentEventRefundApproved  PaymentEventType = "refund_approved"
	PaymentEventRefundRejected  PaymentEventType = "refund_rejected"
	PaymentEventBillCancelled   PaymentEventType = "bill_cancelled"
)

// PaymentEventSource identifies where the event originated
type PaymentEventSource string

const (
	PaymentSourceUser     PaymentEventSource = "user"
	PaymentSourceApprover PaymentEventSource = "approver"
	PaymentSourceScanner  PaymentEventSource = "scanner"
	PaymentSourceSystem   PaymentEventSource = "system"
)

// PaymentAudit represents an immutable audit log entry for money-moving events
type PaymentAudit struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	BillID      uuid.UUID  `json:"bill_id" db:"bill_id"`
	QRPaymentID *uuid.UUID `json:"qr_payment_id,omitempty" db:"qr_payment_id"`
	RefundID    *uuid.UUID `json:"refund_id,omitempty" db:"refund_id"`
	ActorID     *uuid.UUID `json:"actor_id,omitempty" db:"actor_id"`

	EventType   PaymentEventType   `json:"event_type" db:"event_type"`
	EventSource PaymentEventSource `json:"event_source" db:"event_source"`

	// Amount tracking
	ExpectedAmount *float64 `json:"expected_amount,omitempty" db:"expected_amount"`
	ActualAmount   *float64 `json:"actual_amount,omitempty" db:"actual_amount"`
	Currency       string   `json:"currency" db:"currency"`

	IsDuplicate  bool    `json:"is_duplicate" db:"is_duplicate"`
	ErrorMessage *string `json:"error_message,omitempty" db:"error_message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Float64Ptr returns a pointer to the given amount
func Float64Ptr(v float64) *float64 {
	return &v
}

// UUIDPtr returns a pointer to the given id
func UUIDPtr(id uuid.UUID) *uuid.UUID {
	return &id
}

// StringPtr returns a pointer to the given string
func StringPtr(s string) *string {
	return &s
}
