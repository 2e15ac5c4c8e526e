package models

import (
	"time"

	"github.com/google/uuid"
)

// QRPaymentStatus represents the state of a QR payment code
type QRPaymentStatus string

const (
	QRPaymentPending    QRPaymentStatus = "pending"
	QRPaymentPaid       QRPaymentStatus = "paid"
	QRPaymentExpired    QRPaymentStatus = "expired"
	QRPaymentSuperseded QRPaymentStatus = "superseded"
)

// QRPayment binds an opaque code to a bill and an amount.
// Only the keyed digest of the code is persisted.
type QRPayment struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	BillID    uuid.UUID       `json:"bill_id" db:"bill_id"`
	CodeHash  string          `json:"-" db:"code_hash"`
	Amount    float64         `json:"amount" db:"amount"`
	Status    QRPaymentStatus `json:"status" db:"status"`
	ExpiresAt time.Time       `json:"expires_at" db:"expires_at"`
	PaidAt    *time.Time      `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// IsExpiredAt reports whether the code can no longer be scanned at t
func (q *QRPayment) IsExpiredAt(t time.Time) bool {
	return !t.Before(q.ExpiresAt)
}

// CreateQRPaymentRequest is the body of POST /bills/qr/create
type CreateQRPaymentRequest struct {
	BillID uuid.UUID `json:"bill_id" binding:"required"`
}

// CreateQRPaymentResponse carries the plaintext code exactly once
type CreateQRPaymentResponse struct {
	Code      string    `json:"code"`
	Amount    float64   `json:"amount"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ScanQRPaymentResponse is the result of a scan
type ScanQRPaymentResponse struct {
	BillID uuid.UUID  `json:"bill_id"`
	Status BillStatus `json:"status"`
	PaidAt *time.Time `json:"paid_at,omitempty"`
}

// PaymentStatusResponse is the read-only payment projection of a bill
type PaymentStatusResponse struct {
	BillID      uuid.UUID        `json:"bill_id"`
	Status      BillStatus       `json:"status"`
	TotalPrice  float64          `json:"total_price"`
	PaidAt      *time.Time       `json:"paid_at,omitempty"`
	QRStatus    *QRPaymentStatus `json:"qr_status,omitempty"`
	QRExpiresAt *time.Time       `json:"qr_expires_at,omitempty"`
}
