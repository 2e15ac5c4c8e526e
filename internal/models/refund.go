package models

import (
	"time"

	"github.com/google/uuid"
)

// RefundStatus represents a refund request's state
type RefundStatus string

const (
	RefundStatusPending  RefundStatus = "pending"
	RefundStatusApproved RefundStatus = "approved"
	RefundStatusRejected RefundStatus = "rejected"
)

// Refund is a request to reverse payment on a bill.
// Version is bumped on every resolution and used for optimistic concurrency.
type Refund struct {
	ID             uuid.UUID    `json:"id" db:"id"`
	BillID         uuid.UUID    `json:"bill_id" db:"bill_id"`
	UserID         uuid.UUID    `json:"user_id" db:"user_id"`
	Status         RefundStatus `json:"status" db:"status"`
	Description    string       `json:"description" db:"description"`
	Version        int          `json:"version" db:"version"`
	ResolvedBy     *uuid.UUID   `json:"resolved_by,omitempty" db:"resolved_by"`
	ResolutionNote *string      `json:"resolution_note,omitempty" db:"resolution_note"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
	ResolvedAt     *time.Time   `json:"resolved_at,omitempty" db:"resolved_at"`
}

// CreateRefundRequest is the body of POST /refunds
type CreateRefundRequest struct {
	BillID uuid.UUID `json:"bill_id" binding:"required"`
	Reason string    `json:"reason" binding:"required"`
}

// CreateRefundResponse is returned once the refund request is recorded
type CreateRefundResponse struct {
	RefundID uuid.UUID    `json:"refund_id"`
	Status   RefundStatus `json:"status"`
}

// RefundDecisionResponse is returned by approve/reject
type RefundDecisionResponse struct {
	BillID      uuid.UUID  `json:"bill_id"`
	BillStatus  BillStatus `json:"bill_status"`
	RefundPrice *float64   `json:"refund_price,omitempty"`
	Message     string     `json:"message"`
}
