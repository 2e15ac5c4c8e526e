package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tripnest/booking-core/internal/models"
)

// Persistence contracts used by the services. The database package implements them on
// Postgres; tests use in-memory fakes.

// ScheduleStore persists guide schedules
type ScheduleStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Schedule, error)
	GetTour(ctx context.Context, tourID uuid.UUID) (*models.Tour, error)
	CreateWithOverlapCheck(ctx context.Context, s *models.Schedule) error
	UpdateWithOverlapCheck(ctx context.Context, s *models.Schedule) error
	Remove(ctx context.Context, id uuid.UUID) (bool, error)
	ListBookable(ctx context.Context, tourID uuid.UUID, from, to time.Time, guests int) ([]models.Schedule, error)
	ListByGuide(ctx context.Context, guideID uuid.UUID, from, to time.Time) ([]models.Schedule, error)
	MarkCompleted(ctx context.Context, now time.Time) (int64, error)
}

// RoomStore reads hotel rooms and their occupancy
type RoomStore interface {
	GetRoomsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.HotelRoom, error)
	GetHotelOwnerID(ctx context.Context, hotelID uuid.UUID) (*uuid.UUID, error)
	IsRoomAvailable(ctx context.Context, roomID uuid.UUID, checkIn, checkOut time.Time) (bool, error)
	UnavailableRooms(ctx context.Context, ids []uuid.UUID, checkIn, checkOut time.Time) ([]uuid.UUID, error)
}

// BookingStore persists bookings together with their bill
type BookingStore interface {
	CreateHotelBooking(ctx context.Context, booking *models.Booking, bill *models.Bill) error
	CreateTourBooking(ctx context.Context, booking *models.Booking, bill *models.Bill) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Booking, error)
	MarkCheckedIn(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	MarkCheckedOut(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	Cancel(ctx context.Context, booking *models.Booking, reason *string, at time.Time) (cancelled, billCancelled bool, err error)
}

// BillStore persists bills and voucher links
type BillStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Bill, error)
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.Bill, error)
	GetDetails(ctx context.Context, billID uuid.UUID) ([]models.BillDetail, error)
	ApplyVoucher(ctx context.Context, billID, voucherID, userID uuid.UUID, newTotal float64, at time.Time) (bool, error)
	RemoveVoucher(ctx context.Context, billID uuid.UUID, at time.Time) (float64, bool, error)
}

// VoucherStore reads voucher definitions
type VoucherStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Voucher, error)
}

// QRPaymentStore persists QR payment codes and settles payments
type QRPaymentStore interface {
	Create(ctx context.Context, qr *models.QRPayment) error
	GetByCodeHash(ctx context.Context, codeHash string) (*models.QRPayment, error)
	GetLatestByBill(ctx context.Context, billID uuid.UUID) (*models.QRPayment, error)
	ConfirmPayment(ctx context.Context, qr *models.QRPayment, at time.Time) (bool, error)
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

// RefundStore persists refund requests and their resolution
type RefundStore interface {
	Create(ctx context.Context, refund *models.Refund) error
	GetPendingByBill(ctx context.Context, billID uuid.UUID) (*models.Refund, error)
	ListPending(ctx context.Context, limit int) ([]models.Refund, error)
	Approve(ctx context.Context, refund *models.Refund, approverID uuid.UUID, refundPrice float64, at time.Time) error
	Reject(ctx context.Context, refund *models.Refund, approverID uuid.UUID, note *string, at time.Time) (bool, error)
}

// PaymentAuditor records money-moving events
type PaymentAuditor interface {
	Log(ctx context.Context, audit *models.PaymentAudit) error
}

// PendingRefundIndex is an optional read-path index of pending refunds keyed by bill
type PendingRefundIndex interface {
	Get(ctx context.Context, billID uuid.UUID) (*models.Refund, bool, error)
	Put(ctx context.Context, refund *models.Refund) error
	Remove(ctx context.Context, billID uuid.UUID) error
}
