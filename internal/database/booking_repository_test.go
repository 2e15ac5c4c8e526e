package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripnest/booking-core/internal/models"
)

func newHotelBooking(rooms ...uuid.UUID) (*models.Booking, *models.Bill) {
	hotelID := uuid.New()
	checkIn := time.Date(2030, 3, 10, 0, 0, 0, 0, time.UTC)
	booking := &models.Booking{
		UserID:     uuid.New(),
		Kind:       models.BookingKindHotel,
		HotelID:    &hotelID,
		RoomIDs:    rooms,
		CheckIn:    checkIn,
		CheckOut:   checkIn.AddDate(0, 0, 2),
		TotalPrice: 200,
	}
	bill := &models.Bill{
		Deposit:       200,
		OriginalPrice: 200,
		TotalPrice:    200,
		Details: []models.BillDetail{
			{ItemType: models.BillItemRoom, ItemID: rooms[0], ItemName: "Deluxe", Quantity: 2, UnitPrice: 100, TotalPrice: 200},
		},
	}
	return booking, bill
}

func TestBookingRepository_CreateHotelBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewBookingRepository(db)
		roomID := uuid.New()
		booking, bill := newHotelBooking(roomID)
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM hotel_rooms WHERE id = ANY\(\$1::uuid\[\]\) ORDER BY id FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(roomID.String()))
		mock.ExpectQuery(`SELECT DISTINCT br.room_id`).
			WithArgs(sqlmock.AnyArg(), booking.CheckIn, booking.CheckOut).
			WillReturnRows(sqlmock.NewRows([]string{"room_id"}))
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectExec(`INSERT INTO booking_rooms`).
			WithArgs(sqlmock.AnyArg(), roomID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO bills`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectExec(`INSERT INTO bill_details`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		require.NoError(t, repo.CreateHotelBooking(ctx, booking, bill))
		assert.NotEqual(t, uuid.Nil, booking.ID)
		assert.Equal(t, models.BookingStatusPending, booking.Status)
		assert.Equal(t, booking.ID, bill.BookingID)
		assert.Equal(t, models.BillStatusPending, bill.Status)
		assert.Equal(t, bill.ID, bill.Details[0].BillID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown Room", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewBookingRepository(db)
		booking, bill := newHotelBooking(uuid.New(), uuid.New())

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM hotel_rooms`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(booking.RoomIDs[0].String()))
		mock.ExpectRollback()

		err := repo.CreateHotelBooking(ctx, booking, bill)
		assert.True(t, models.IsKind(err, models.ErrorKindNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Room Already Held", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewBookingRepository(db)
		roomID := uuid.New()
		booking, bill := newHotelBooking(roomID)

		mock.ExpectBegin()
		mock.ExpectQuery(`FROM hotel_rooms`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(roomID.String()))
		mock.ExpectQuery(`SELECT DISTINCT br.room_id`).
			WillReturnRows(sqlmock.NewRows([]string{"room_id"}).AddRow(roomID.String()))
		mock.ExpectRollback()

		err := repo.CreateHotelBooking(ctx, booking, bill)
		require.Error(t, err)
		assert.True(t, models.IsKind(err, models.ErrorKindConflict))
		assert.Contains(t, err.Error(), roomID.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingRepository_CreateTourBooking(t *testing.T) {
	ctx := context.Background()
	scheduleID := uuid.New()
	start := time.Date(2030, 4, 1, 9, 0, 0, 0, time.UTC)

	newBooking := func() (*models.Booking, *models.Bill) {
		return &models.Booking{
				UserID:     uuid.New(),
				Kind:       models.BookingKindTour,
				ScheduleID: &scheduleID,
				Guests:     3,
				CheckIn:    start,
				CheckOut:   start.Add(4 * time.Hour),
				TotalPrice: 150,
			}, &models.Bill{
				Deposit:       150,
				OriginalPrice: 150,
				TotalPrice:    150,
			}
	}

	t.Run("Success", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewBookingRepository(db)
		booking, bill := newBooking()
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE schedules\s+SET current_bookings = current_bookings \+ \$2`).
			WithArgs(scheduleID, 3).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectQuery(`INSERT INTO bills`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectCommit()

		require.NoError(t, repo.CreateTourBooking(ctx, booking, bill))
		assert.Equal(t, booking.ID, bill.BookingID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Schedule Full", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewBookingRepository(db)
		booking, bill := newBooking()

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE schedules`).
			WithArgs(scheduleID, 3).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.CreateTourBooking(ctx, booking, bill)
		assert.True(t, models.IsKind(err, models.ErrorKindConflict))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingRepository_Transitions(t *testing.T) {
	ctx := context.Background()
	db, mock := setupMockDB(t)
	repo := NewBookingRepository(db)
	id := uuid.New()
	at := time.Now()

	mock.ExpectExec(`SET status = 'checked_in'`).
		WithArgs(id, at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	ok, err := repo.MarkCheckedIn(ctx, id, at)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec(`SET status = 'checked_out'`).
		WithArgs(id, at).
		WillReturnResult(sqlmock.NewResult(0, 0))
	ok, err = repo.MarkCheckedOut(ctx, id, at)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_Cancel(t *testing.T) {
	ctx := context.Background()
	at := time.Now()
	reason := "plans changed"

	t.Run("Tour Booking Releases Places", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewBookingRepository(db)
		scheduleID := uuid.New()
		booking := &models.Booking{
			ID:         uuid.New(),
			Kind:       models.BookingKindTour,
			ScheduleID: &scheduleID,
			Guests:     2,
			Status:     models.BookingStatusConfirmed,
		}

		mock.ExpectBegin()
		mock.ExpectExec(`SET status = 'cancelled', cancellation_reason`).
			WithArgs(booking.ID, reason, at).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`GREATEST\(current_bookings - \$2, 0\)`).
			WithArgs(scheduleID, 2).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE bills`).
			WithArgs(booking.ID, at).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`UPDATE qr_payments`).
			WithArgs(booking.ID).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		ok, billCancelled, err := repo.Cancel(ctx, booking, &reason, at)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.False(t, billCancelled)
		assert.Equal(t, models.BookingStatusCancelled, booking.Status)
		assert.Equal(t, &reason, booking.CancellationReason)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already Past Cancellable", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewBookingRepository(db)
		booking := &models.Booking{ID: uuid.New(), Kind: models.BookingKindHotel, Status: models.BookingStatusCheckedIn}

		mock.ExpectBegin()
		mock.ExpectExec(`SET status = 'cancelled'`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		ok, billCancelled, err := repo.Cancel(ctx, booking, nil, at)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.False(t, billCancelled)
		assert.Equal(t, models.BookingStatusCheckedIn, booking.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unpaid Bill Cancelled", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewBookingRepository(db)
		booking := &models.Booking{ID: uuid.New(), Kind: models.BookingKindHotel, Status: models.BookingStatusPending}

		mock.ExpectBegin()
		mock.ExpectExec(`SET status = 'cancelled', cancellation_reason`).
			WithArgs(booking.ID, nil, at).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE bills\s+SET status = 'cancelled'`).
			WithArgs(booking.ID, at).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE qr_payments`).
			WithArgs(booking.ID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		ok, billCancelled, err := repo.Cancel(ctx, booking, nil, at)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, billCancelled)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
