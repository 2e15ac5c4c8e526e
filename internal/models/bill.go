package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// BillStatus represents the payment state of a bill
type BillStatus string

const (
	BillStatusPending   BillStatus = "pending"
	BillStatusPaid      BillStatus = "paid"
	BillStatusRefunded  BillStatus = "refunded"
	BillStatusCancelled BillStatus = "cancelled"
)

// billTransitions lists the forward-only moves allowed from each status
var billTransitions = map[BillStatus][]BillStatus{
	BillStatusPending: {BillStatusPaid, BillStatusCancelled},
	BillStatusPaid:    {BillStatusRefunded, BillStatusCancelled},
}

// CanTransitionTo reports whether moving to next keeps the bill moving forward
func (s BillStatus) CanTransitionTo(next BillStatus) bool {
	for _, allowed := range billTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Bill is the financial record attached 1:1 to a booking
type Bill struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	BookingID     uuid.UUID  `json:"booking_id" db:"booking_id"`
	Deposit       float64    `json:"deposit" db:"deposit"`
	OriginalPrice float64    `json:"original_price" db:"original_price"`
	TotalPrice    float64    `json:"total_price" db:"total_price"`
	RefundPrice   *float64   `json:"refund_price,omitempty" db:"refund_price"`
	Status        BillStatus `json:"status" db:"status"`
	VoucherID     *uuid.UUID `json:"voucher_id,omitempty" db:"voucher_id"`
	PaidAt        *time.Time `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`

	Details []BillDetail `json:"details,omitempty" db:"-"`
}

// BillItemType identifies what a line item prices
type BillItemType string

const (
	BillItemRoom BillItemType = "room"
	BillItemTour BillItemType = "tour"
)

// BillDetail is an immutable price snapshot taken at booking time
type BillDetail struct {
	ID         uuid.UUID    `json:"id" db:"id"`
	BillID     uuid.UUID    `json:"bill_id" db:"bill_id"`
	ItemType   BillItemType `json:"item_type" db:"item_type"`
	ItemID     uuid.UUID    `json:"item_id" db:"item_id"`
	ItemName   string       `json:"item_name" db:"item_name"`
	Quantity   int          `json:"quantity" db:"quantity"`
	UnitPrice  float64      `json:"unit_price" db:"unit_price"`
	TotalPrice float64      `json:"total_price" db:"total_price"`
}

// RoundMoney rounds an amount to cents
func RoundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// ApplyVoucherRequest is the body of PUT /bills/apply-voucher
type ApplyVoucherRequest struct {
	BillID    uuid.UUID `json:"bill_id" binding:"required"`
	VoucherID uuid.UUID `json:"voucher_id" binding:"required"`
}

// VoucherResultResponse reports the recomputed bill total
type VoucherResultResponse struct {
	BillID   uuid.UUID `json:"bill_id"`
	NewTotal float64   `json:"new_total"`
}
