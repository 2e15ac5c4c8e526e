package models

import (
	"time"

	"github.com/google/uuid"
)

// Voucher is a percentage discount code with a validity window
type Voucher struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Code      string    `json:"code" db:"code"`
	Percent   float64   `json:"percent" db:"percent"`
	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   time.Time `json:"end_date" db:"end_date"`
	IsDeleted bool      `json:"is_deleted" db:"is_deleted"`
}

// IsActiveAt reports whether the voucher may be redeemed at t
func (v *Voucher) IsActiveAt(t time.Time) bool {
	return !v.IsDeleted && !t.Before(v.StartDate) && !t.After(v.EndDate)
}

// Discounted returns price reduced by the voucher percentage, rounded to cents
func (v *Voucher) Discounted(price float64) float64 {
	return RoundMoney(price * (1 - v.Percent/100))
}

// UserVoucher links a voucher redemption to a user and a bill
type UserVoucher struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	VoucherID uuid.UUID `json:"voucher_id" db:"voucher_id"`
	BillID    uuid.UUID `json:"bill_id" db:"bill_id"`
	UsedAt    time.Time `json:"used_at" db:"used_at"`
}
