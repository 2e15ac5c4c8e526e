package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tripnest/booking-core/internal/models"
)

// BookingOrchestratorService drives the booking lifecycle:
// Reserve (booking + bill) → Pay (QR) → Check-in → Check-out, or Cancel before check-in
type BookingOrchestratorService struct {
	access    *bookingAccess
	bills     BillStore
	rooms     *RoomAvailabilityService
	schedules ScheduleStore
	billing   *BillingService
	auditor   PaymentAuditor
	currency  string
	logger    *logrus.Logger
	now       func() time.Time
}

// NewBookingOrchestratorService creates a new orchestrator service
func NewBookingOrchestratorService(
	bookings BookingStore,
	bills BillStore,
	rooms RoomStore,
	schedules ScheduleStore,
	billing *BillingService,
	authz *Authorizer,
	auditor PaymentAuditor,
	currency string,
	logger *logrus.Logger,
) *BookingOrchestratorService {
	return &BookingOrchestratorService{
		access:    &bookingAccess{bookings: bookings, rooms: rooms, schedules: schedules, authz: authz},
		bills:     bills,
		rooms:     NewRoomAvailabilityService(rooms),
		schedules: schedules,
		billing:   billing,
		auditor:   auditor,
		currency:  currency,
		logger:    logger,
		now:       time.Now,
	}
}

// ============================================================================
// RESERVE
// ============================================================================

// CreateMultipleRoomBooking reserves several rooms of one hotel for the same stay, all or nothing.
// Each room becomes a bill line priced at room price × nights.
func (s *BookingOrchestratorService) CreateMultipleRoomBooking(ctx context.Context, p models.Principal, req *models.CreateHotelBookingRequest) (*models.CreateHotelBookingResponse, error) {
	// 1. Validate request
	if err := req.Validate(); err != nil {
		return nil, err
	}
	checkIn, checkOut, err := req.Dates()
	if err != nil {
		return nil, err
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	if checkIn.Before(today) {
		return nil, models.NewValidationError("check_in_date cannot be in the past")
	}

	// 2. Resolve rooms
	rooms, err := s.access.rooms.GetRoomsByIDs(ctx, req.Rooms)
	if err != nil {
		return nil, err
	}
	if missing := missingRooms(req.Rooms, rooms); len(missing) > 0 {
		return nil, models.NewNotFoundError(fmt.Sprintf("rooms not found: %s", joinUUIDs(missing)))
	}
	hotelID := rooms[0].HotelID
	for _, room := range rooms[1:] {
		if room.HotelID != hotelID {
			return nil, models.NewValidationError("all rooms must belong to the same hotel")
		}
	}

	// 3. Advisory availability check for a precise message; the insert transaction re-checks under lock
	taken, err := s.rooms.Unavailable(ctx, req.Rooms, checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	if len(taken) > 0 {
		return nil, models.NewConflictError(fmt.Sprintf("rooms not available for the selected dates: %s", joinUUIDs(taken)))
	}

	// 4. Price snapshot
	nights := models.Nights(checkIn, checkOut)
	details := make([]models.BillDetail, 0, len(rooms))
	total := 0.0
	for _, room := range rooms {
		line := models.RoundMoney(room.Price * float64(nights))
		details = append(details, models.BillDetail{
			ItemType:   models.BillItemRoom,
			ItemID:     room.ID,
			ItemName:   room.Name,
			Quantity:   nights,
			UnitPrice:  room.Price,
			TotalPrice: line,
		})
		total += line
	}
	total = models.RoundMoney(total)

	booking := &models.Booking{
		UserID:     p.UserID,
		Kind:       models.BookingKindHotel,
		HotelID:    &hotelID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Status:     models.BookingStatusPending,
		TotalPrice: total,
		RoomIDs:    req.Rooms,
	}
	bill := s.newBill(total, details)

	// 5. Persist atomically
	if err := s.access.bookings.CreateHotelBooking(ctx, booking, bill); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"bill_id":    bill.ID,
		"user_id":    p.UserID,
		"rooms":      len(rooms),
		"nights":     nights,
		"total":      total,
	}).Info("Hotel booking created")

	return &models.CreateHotelBookingResponse{
		BookingID:  booking.ID,
		BillID:     bill.ID,
		TotalRooms: len(rooms),
		TotalPrice: total,
	}, nil
}

// CreateTourBooking claims places on a schedule. The claim is a storage-level compare-and-swap
// on current_bookings, so concurrent requests can never oversell a schedule.
func (s *BookingOrchestratorService) CreateTourBooking(ctx context.Context, p models.Principal, req *models.CreateTourBookingRequest) (*models.CreateTourBookingResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	schedule, err := s.schedules.GetByID(ctx, req.ScheduleID)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, models.NewNotFoundError("schedule not found")
	}
	if schedule.Status != models.ScheduleStatusActive {
		return nil, models.NewStateError("schedule is not open for booking")
	}
	if !schedule.StartTime.After(s.now()) {
		return nil, models.NewStateError("schedule has already started")
	}
	if schedule.Remaining() < req.Guests {
		return nil, models.NewConflictError(fmt.Sprintf("only %d places left on this schedule", max(schedule.Remaining(), 0)))
	}

	tour, err := s.schedules.GetTour(ctx, schedule.TourID)
	if err != nil {
		return nil, err
	}
	if tour == nil {
		return nil, models.NewNotFoundError("tour not found")
	}

	total := models.RoundMoney(tour.Price * float64(req.Guests))
	booking := &models.Booking{
		UserID:     p.UserID,
		Kind:       models.BookingKindTour,
		ScheduleID: &schedule.ID,
		Guests:     req.Guests,
		CheckIn:    schedule.StartTime,
		CheckOut:   schedule.EndTime,
		Status:     models.BookingStatusPending,
		TotalPrice: total,
	}
	bill := s.newBill(total, []models.BillDetail{{
		ItemType:   models.BillItemTour,
		ItemID:     tour.ID,
		ItemName:   tour.Name,
		Quantity:   req.Guests,
		UnitPrice:  tour.Price,
		TotalPrice: total,
	}})

	if err := s.access.bookings.CreateTourBooking(ctx, booking, bill); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":  booking.ID,
		"bill_id":     bill.ID,
		"schedule_id": schedule.ID,
		"guests":      req.Guests,
		"total":       total,
	}).Info("Tour booking created")

	return &models.CreateTourBookingResponse{
		BookingID:  booking.ID,
		BillID:     bill.ID,
		Guests:     req.Guests,
		TotalPrice: total,
	}, nil
}

func (s *BookingOrchestratorService) newBill(total float64, details []models.BillDetail) *models.Bill {
	return &models.Bill{
		Deposit:       s.billing.Deposit(total),
		OriginalPrice: total,
		TotalPrice:    total,
		Status:        models.BillStatusPending,
		Details:       details,
	}
}

// ============================================================================
// LIFECYCLE
// ============================================================================

// CheckInBooking moves a paid booking to checked_in once its check-in time has come.
// An empty kind accepts either booking kind.
func (s *BookingOrchestratorService) CheckInBooking(ctx context.Context, p models.Principal, kind models.BookingKind, id uuid.UUID) (*models.Booking, error) {
	booking, err := s.access.load(ctx, id, kind)
	if err != nil {
		return nil, err
	}
	if err := s.access.authorize(ctx, ActionCheckIn, booking, p); err != nil {
		return nil, err
	}

	now := s.now()
	if booking.Status != models.BookingStatusConfirmed {
		return nil, models.NewStateError(fmt.Sprintf("cannot check in a %s booking, it must be paid first", booking.Status))
	}
	if booking.CheckIn.After(now) {
		return nil, models.NewStateError("check-in time has not been reached")
	}

	ok, err := s.access.bookings.MarkCheckedIn(ctx, booking.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewStateError("booking changed concurrently, reload and try again")
	}

	booking.Status = models.BookingStatusCheckedIn
	booking.CheckedInAt = &now

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"actor_id":   p.UserID,
	}).Info("Booking checked in")

	return booking, nil
}

// CheckOutBooking moves a checked-in booking to its terminal checked_out status
func (s *BookingOrchestratorService) CheckOutBooking(ctx context.Context, p models.Principal, kind models.BookingKind, id uuid.UUID) (*models.Booking, error) {
	booking, err := s.access.load(ctx, id, kind)
	if err != nil {
		return nil, err
	}
	if err := s.access.authorize(ctx, ActionCheckOut, booking, p); err != nil {
		return nil, err
	}

	if booking.Status != models.BookingStatusCheckedIn {
		return nil, models.NewStateError(fmt.Sprintf("cannot check out a %s booking, it must be checked in first", booking.Status))
	}

	now := s.now()
	ok, err := s.access.bookings.MarkCheckedOut(ctx, booking.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewStateError("booking changed concurrently, reload and try again")
	}

	booking.Status = models.BookingStatusCheckedOut
	booking.CheckedOutAt = &now

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"actor_id":   p.UserID,
	}).Info("Booking checked out")

	return booking, nil
}

// CustomerCancelBooking lets the owner cancel before check-in. Held inventory is released in the
// same transaction; an unpaid bill is cancelled, a paid bill stays paid for the refund workflow.
func (s *BookingOrchestratorService) CustomerCancelBooking(ctx context.Context, p models.Principal, kind models.BookingKind, id uuid.UUID, reason *string) (*models.Booking, error) {
	booking, err := s.access.load(ctx, id, kind)
	if err != nil {
		return nil, err
	}
	if err := s.access.authorize(ctx, ActionCancel, booking, p); err != nil {
		return nil, err
	}
	if !booking.Status.CustomerCancellable() {
		return nil, models.NewStateError(fmt.Sprintf("a %s booking can no longer be cancelled", booking.Status))
	}

	if reason != nil {
		trimmed := strings.TrimSpace(*reason)
		if trimmed == "" {
			reason = nil
		} else {
			reason = &trimmed
		}
	}

	ok, billCancelled, err := s.access.bookings.Cancel(ctx, booking, reason, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewStateError("booking can no longer be cancelled")
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"kind":       booking.Kind,
		"user_id":    p.UserID,
	}).Info("Booking cancelled by customer")

	if billCancelled {
		s.recordBillCancelled(ctx, booking, p)
	}

	return booking, nil
}

func (s *BookingOrchestratorService) recordBillCancelled(ctx context.Context, booking *models.Booking, p models.Principal) {
	bill, err := s.bills.GetByBookingID(ctx, booking.ID)
	if err != nil || bill == nil {
		s.logger.WithError(err).WithField("booking_id", booking.ID).Warn("Could not load bill for cancellation audit")
		return
	}
	recordPaymentEvent(ctx, s.auditor, s.logger, &models.PaymentAudit{
		BillID:         bill.ID,
		ActorID:        models.UUIDPtr(p.UserID),
		EventType:      models.PaymentEventBillCancelled,
		EventSource:    models.PaymentSourceUser,
		ExpectedAmount: models.Float64Ptr(bill.TotalPrice),
		Currency:       s.currency,
	})
}

// ============================================================================
// READS
// ============================================================================

// GetBooking returns a booking to its owner, its hotel owner or guide, or staff
func (s *BookingOrchestratorService) GetBooking(ctx context.Context, p models.Principal, id uuid.UUID) (*models.Booking, error) {
	booking, err := s.access.load(ctx, id, "")
	if err != nil {
		return nil, err
	}
	if err := s.access.authorize(ctx, ActionView, booking, p); err != nil {
		return nil, err
	}
	return booking, nil
}

// ListMyBookings returns the caller's bookings, newest first
func (s *BookingOrchestratorService) ListMyBookings(ctx context.Context, p models.Principal) ([]models.Booking, error) {
	return s.access.bookings.ListByUser(ctx, p.UserID)
}

func missingRooms(requested []uuid.UUID, found []models.HotelRoom) []uuid.UUID {
	present := make(map[uuid.UUID]bool, len(found))
	for _, r := range found {
		present[r.ID] = true
	}
	var missing []uuid.UUID
	for _, id := range requested {
		if !present[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

func joinUUIDs(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ", ")
}
