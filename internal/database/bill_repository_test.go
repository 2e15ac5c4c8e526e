package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBillRepository_ApplyVoucher(t *testing.T) {
	ctx := context.Background()
	billID, voucherID, userID := uuid.New(), uuid.New(), uuid.New()
	at := time.Now()

	t.Run("Success", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewBillRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`SET voucher_id = \$2, total_price = \$3`).
			WithArgs(billID, voucherID, 90.0, at).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO user_vouchers`).
			WithArgs(sqlmock.AnyArg(), userID, voucherID, billID, at).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE qr_payments SET status = 'superseded'`).
			WithArgs(billID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		ok, err := repo.ApplyVoucher(ctx, billID, voucherID, userID, 90, at)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Voucher Already Applied", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewBillRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE bills`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		ok, err := repo.ApplyVoucher(ctx, billID, voucherID, userID, 90, at)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Redemption Race", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewBillRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE bills`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO user_vouchers`).
			WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectRollback()

		ok, err := repo.ApplyVoucher(ctx, billID, voucherID, userID, 90, at)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBillRepository_RemoveVoucher(t *testing.T) {
	ctx := context.Background()
	billID := uuid.New()
	at := time.Now()

	t.Run("Restores Original Price", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewBillRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`SET voucher_id = NULL, total_price = original_price`).
			WithArgs(billID, at).
			WillReturnRows(sqlmock.NewRows([]string{"total_price"}).AddRow(100.0))
		mock.ExpectExec(`DELETE FROM user_vouchers WHERE bill_id = \$1`).
			WithArgs(billID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE qr_payments`).
			WithArgs(billID).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		restored, ok, err := repo.RemoveVoucher(ctx, billID, at)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 100.0, restored)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("No Voucher", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewBillRepository(db)

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE bills`).
			WillReturnRows(sqlmock.NewRows([]string{"total_price"}))
		mock.ExpectRollback()

		_, ok, err := repo.RemoveVoucher(ctx, billID, at)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBillRepository_GetDetails(t *testing.T) {
	ctx := context.Background()
	db, mock := setupMockDB(t)
	repo := NewBillRepository(db)
	billID := uuid.New()

	mock.ExpectQuery(`FROM bill_details`).
		WithArgs(billID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "bill_id", "item_type", "item_id", "item_name", "quantity", "unit_price", "total_price"}).
			AddRow(uuid.NewString(), billID.String(), "room", uuid.NewString(), "Deluxe", 2, 100.0, 200.0))

	details, err := repo.GetDetails(ctx, billID)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "Deluxe", details[0].ItemName)
	assert.Equal(t, 200.0, details[0].TotalPrice)
	assert.NoError(t, mock.ExpectationsWereMet())
}
