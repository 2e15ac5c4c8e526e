package cache

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripnest/booking-core/internal/models"
)

func TestPendingRefundKey(t *testing.T) {
	billID := uuid.MustParse("5b1c3f0e-8f0a-4b8e-9a57-1a2b3c4d5e6f")
	assert.Equal(t, "refunds:pending:5b1c3f0e-8f0a-4b8e-9a57-1a2b3c4d5e6f", pendingRefundKey(billID))
}

func TestNoopRefundIndex_AlwaysMisses(t *testing.T) {
	ctx := context.Background()
	idx := NoopRefundIndex{}
	refund := &models.Refund{ID: uuid.New(), BillID: uuid.New(), Status: models.RefundStatusPending}

	require.NoError(t, idx.Put(ctx, refund))

	got, ok, err := idx.Get(ctx, refund.BillID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)

	assert.NoError(t, idx.Remove(ctx, refund.BillID))
}
