package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripnest/booking-core/internal/models"
)

func issueCode(t *testing.T, f *fixture) (models.Principal, *models.CreateHotelBookingResponse, *models.CreateQRPaymentResponse) {
	t.Helper()
	h := seedHotel(f)
	user := customer()
	booking := bookRooms(t, f, user, []uuid.UUID{h.roomA}, "2030-03-10", "2030-03-12")
	qr, err := f.payments.CreateQRPayment(context.Background(), user, booking.BillID)
	require.NoError(t, err)
	return user, booking, qr
}

func TestScanQRPayment_SettlesBillAndBooking(t *testing.T) {
	f := newFixture()
	_, booking, qr := issueCode(t, f)

	assert.NotEmpty(t, qr.Code)
	assert.Equal(t, 200.0, qr.Amount)
	assert.Equal(t, testNow.Add(15*time.Minute), qr.ExpiresAt)

	resp, err := f.payments.ScanQRPayment(context.Background(), qr.Code)
	require.NoError(t, err)
	assert.Equal(t, models.BillStatusPaid, resp.Status)
	require.NotNil(t, resp.PaidAt)
	assert.Equal(t, testNow, *resp.PaidAt)

	assert.Equal(t, models.BillStatusPaid, f.db.bill(booking.BillID).Status)
	assert.Equal(t, models.BookingStatusConfirmed, f.db.booking(booking.BookingID).Status)
}

func TestScanQRPayment_ReplayKeepsFirstPayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, _, qr := issueCode(t, f)

	first, err := f.payments.ScanQRPayment(ctx, qr.Code)
	require.NoError(t, err)

	f.advance(5 * time.Minute)
	second, err := f.payments.ScanQRPayment(ctx, qr.Code)
	require.NoError(t, err)

	assert.Equal(t, models.BillStatusPaid, second.Status)
	require.NotNil(t, second.PaidAt)
	assert.Equal(t, *first.PaidAt, *second.PaidAt)

	// replays still answer after the code's expiry
	f.advance(time.Hour)
	third, err := f.payments.ScanQRPayment(ctx, qr.Code)
	require.NoError(t, err)
	assert.Equal(t, *first.PaidAt, *third.PaidAt)

	events := f.db.auditEvents()
	assert.Equal(t, models.PaymentEventQRIssued, events[0])
	assert.Equal(t, models.PaymentEventSuccess, events[1])
	assert.Equal(t, models.PaymentEventQRReplay, events[2])
	assert.Equal(t, models.PaymentEventQRReplay, events[3])
}

func TestScanQRPayment_ReplayMatchesStoredPrecision(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, _, qr := issueCode(t, f)
	f.clock = testNow.Add(123456789 * time.Nanosecond)

	first, err := f.payments.ScanQRPayment(ctx, qr.Code)
	require.NoError(t, err)
	require.NotNil(t, first.PaidAt)
	assert.Zero(t, first.PaidAt.Nanosecond()%int(time.Microsecond))

	second, err := f.payments.ScanQRPayment(ctx, qr.Code)
	require.NoError(t, err)
	require.NotNil(t, second.PaidAt)
	assert.True(t, first.PaidAt.Equal(*second.PaidAt))
	assert.Equal(t, testNow.Add(123456*time.Microsecond), *first.PaidAt)
}

func TestScanQRPayment_ConcurrentScansSettleOnce(t *testing.T) {
	f := newFixture()
	_, booking, qr := issueCode(t, f)

	const n = 8
	results := make([]*models.ScanQRPaymentResponse, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.payments.ScanQRPayment(context.Background(), qr.Code)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, models.BillStatusPaid, results[i].Status)
		assert.Equal(t, testNow, *results[i].PaidAt)
	}

	successes := 0
	for _, e := range f.db.auditEvents() {
		if e == models.PaymentEventSuccess {
			successes++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, models.BillStatusPaid, f.db.bill(booking.BillID).Status)
}

func TestScanQRPayment_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("Unknown code", func(t *testing.T) {
		f := newFixture()
		_, err := f.payments.ScanQRPayment(ctx, "not-a-code")
		assert.True(t, models.IsKind(err, models.ErrorKindNotFound))
	})

	t.Run("Empty code", func(t *testing.T) {
		f := newFixture()
		_, err := f.payments.ScanQRPayment(ctx, "   ")
		assert.True(t, models.IsKind(err, models.ErrorKindValidation))
	})

	t.Run("Expired code", func(t *testing.T) {
		f := newFixture()
		_, booking, qr := issueCode(t, f)
		f.advance(15 * time.Minute)

		_, err := f.payments.ScanQRPayment(ctx, qr.Code)
		assert.True(t, models.IsKind(err, models.ErrorKindState))
		assert.Equal(t, models.BillStatusPending, f.db.bill(booking.BillID).Status)
		assert.Contains(t, f.db.auditEvents(), models.PaymentEventQRRejected)
	})

	t.Run("Superseded code", func(t *testing.T) {
		f := newFixture()
		user, booking, first := issueCode(t, f)
		second, err := f.payments.CreateQRPayment(ctx, user, booking.BillID)
		require.NoError(t, err)
		assert.NotEqual(t, first.Code, second.Code)

		_, err = f.payments.ScanQRPayment(ctx, first.Code)
		assert.True(t, models.IsKind(err, models.ErrorKindState))

		resp, err := f.payments.ScanQRPayment(ctx, second.Code)
		require.NoError(t, err)
		assert.Equal(t, models.BillStatusPaid, resp.Status)
	})

	t.Run("Cancelled booking", func(t *testing.T) {
		f := newFixture()
		user, booking, qr := issueCode(t, f)
		_, err := f.orch.CustomerCancelBooking(ctx, user, models.BookingKindHotel, booking.BookingID, nil)
		require.NoError(t, err)

		_, err = f.payments.ScanQRPayment(ctx, qr.Code)
		assert.True(t, models.IsKind(err, models.ErrorKindState))
	})
}

func TestCreateQRPayment_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("Not the owner", func(t *testing.T) {
		f := newFixture()
		h := seedHotel(f)
		booking := bookRooms(t, f, customer(), []uuid.UUID{h.roomA}, "2030-03-10", "2030-03-12")
		_, err := f.payments.CreateQRPayment(ctx, customer(), booking.BillID)
		assert.True(t, models.IsKind(err, models.ErrorKindAuthorization))
	})

	t.Run("Already paid", func(t *testing.T) {
		f := newFixture()
		user, booking, qr := issueCode(t, f)
		_, err := f.payments.ScanQRPayment(ctx, qr.Code)
		require.NoError(t, err)

		_, err = f.payments.CreateQRPayment(ctx, user, booking.BillID)
		assert.True(t, models.IsKind(err, models.ErrorKindState))
	})

	t.Run("Unknown bill", func(t *testing.T) {
		f := newFixture()
		_, err := f.payments.CreateQRPayment(ctx, customer(), uuid.New())
		assert.True(t, models.IsKind(err, models.ErrorKindNotFound))
	})
}

func TestGetPaymentStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	user, booking, qr := issueCode(t, f)

	status, err := f.payments.GetPaymentStatus(ctx, user, booking.BillID)
	require.NoError(t, err)
	assert.Equal(t, models.BillStatusPending, status.Status)
	require.NotNil(t, status.QRStatus)
	assert.Equal(t, models.QRPaymentPending, *status.QRStatus)

	f.advance(20 * time.Minute)
	status, err = f.payments.GetPaymentStatus(ctx, user, booking.BillID)
	require.NoError(t, err)
	assert.Equal(t, models.QRPaymentExpired, *status.QRStatus)

	expired, err := f.payments.ExpireStaleCodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)

	_, err = f.payments.ScanQRPayment(ctx, qr.Code)
	assert.True(t, models.IsKind(err, models.ErrorKindState))

	_, err = f.payments.GetPaymentStatus(ctx, customer(), booking.BillID)
	assert.True(t, models.IsKind(err, models.ErrorKindAuthorization))
}
