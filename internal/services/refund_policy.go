package services

import (
	"fmt"
	"math"
	"time"

	"github.com/tripnest/booking-core/internal/models"
)

// RefundPolicy computes how much of a paid bill is returned for a refund requested at a given time
type RefundPolicy interface {
	Name() string
	RefundAmount(bill *models.Bill, booking *models.Booking, at time.Time) float64
}

// NewRefundPolicy selects a policy by its configured name
func NewRefundPolicy(name string) (RefundPolicy, error) {
	switch name {
	case "full":
		return FullRefundPolicy{}, nil
	case "deposit_forfeit":
		return DepositForfeitPolicy{}, nil
	case "prorated", "":
		return DefaultProratedRefundPolicy(), nil
	}
	return nil, fmt.Errorf("unknown refund policy: %s", name)
}

// FullRefundPolicy returns the whole amount paid
type FullRefundPolicy struct{}

func (FullRefundPolicy) Name() string { return "full" }

func (FullRefundPolicy) RefundAmount(bill *models.Bill, _ *models.Booking, _ time.Time) float64 {
	return models.RoundMoney(bill.TotalPrice)
}

// DepositForfeitPolicy keeps the deposit and returns the rest
type DepositForfeitPolicy struct{}

func (DepositForfeitPolicy) Name() string { return "deposit_forfeit" }

func (DepositForfeitPolicy) RefundAmount(bill *models.Bill, _ *models.Booking, _ time.Time) float64 {
	return models.RoundMoney(math.Max(bill.TotalPrice-bill.Deposit, 0))
}

// RefundTier returns Percent of the total when requested at least MinNotice before check-in
type RefundTier struct {
	MinNotice time.Duration
	Percent   float64
}

// ProratedRefundPolicy applies the first tier whose notice is met; tiers are sorted by notice descending.
// A request after the last tier's notice refunds nothing.
type ProratedRefundPolicy struct {
	Tiers []RefundTier
}

// DefaultProratedRefundPolicy: 7+ days 100%, 3+ days 70%, 1+ day 50%
func DefaultProratedRefundPolicy() ProratedRefundPolicy {
	day := 24 * time.Hour
	return ProratedRefundPolicy{Tiers: []RefundTier{
		{MinNotice: 7 * day, Percent: 100},
		{MinNotice: 3 * day, Percent: 70},
		{MinNotice: 1 * day, Percent: 50},
	}}
}

func (ProratedRefundPolicy) Name() string { return "prorated" }

func (p ProratedRefundPolicy) RefundAmount(bill *models.Bill, booking *models.Booking, at time.Time) float64 {
	notice := booking.CheckIn.Sub(at)
	for _, tier := range p.Tiers {
		if notice >= tier.MinNotice {
			return models.RoundMoney(bill.TotalPrice * tier.Percent / 100)
		}
	}
	return 0
}
