package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripnest/booking-core/internal/models"
)

func TestRefundPolicies(t *testing.T) {
	checkIn := time.Date(2030, 6, 10, 14, 0, 0, 0, time.UTC)
	bill := &models.Bill{TotalPrice: 450, Deposit: 100}
	booking := &models.Booking{CheckIn: checkIn}
	day := 24 * time.Hour

	t.Run("Full", func(t *testing.T) {
		assert.Equal(t, 450.0, FullRefundPolicy{}.RefundAmount(bill, booking, checkIn))
	})

	t.Run("Deposit forfeit", func(t *testing.T) {
		assert.Equal(t, 350.0, DepositForfeitPolicy{}.RefundAmount(bill, booking, checkIn))
		small := &models.Bill{TotalPrice: 50, Deposit: 100}
		assert.Equal(t, 0.0, DepositForfeitPolicy{}.RefundAmount(small, booking, checkIn))
	})

	t.Run("Prorated tiers", func(t *testing.T) {
		policy := DefaultProratedRefundPolicy()
		tests := []struct {
			notice   time.Duration
			expected float64
		}{
			{10 * day, 450},
			{7 * day, 450},
			{5 * day, 315},
			{3 * day, 315},
			{2 * day, 225},
			{day, 225},
			{12 * time.Hour, 0},
			{-day, 0},
		}
		for _, tt := range tests {
			assert.Equal(t, tt.expected, policy.RefundAmount(bill, booking, checkIn.Add(-tt.notice)), "notice %s", tt.notice)
		}
	})
}

func TestNewRefundPolicy(t *testing.T) {
	for _, name := range []string{"full", "deposit_forfeit", "prorated"} {
		policy, err := NewRefundPolicy(name)
		require.NoError(t, err)
		assert.Equal(t, name, policy.Name())
	}

	policy, err := NewRefundPolicy("")
	require.NoError(t, err)
	assert.Equal(t, "prorated", policy.Name())

	_, err = NewRefundPolicy("generous")
	assert.Error(t, err)
}
