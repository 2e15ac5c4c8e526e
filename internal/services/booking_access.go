package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tripnest/booking-core/internal/models"
)

// bookingAccess loads bookings and runs capability checks against them
type bookingAccess struct {
	bookings  BookingStore
	rooms     RoomStore
	schedules ScheduleStore
	authz     *Authorizer
}

// load returns the booking or NotFoundError. An empty kind accepts either kind.
func (a *bookingAccess) load(ctx context.Context, id uuid.UUID, kind models.BookingKind) (*models.Booking, error) {
	booking, err := a.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking == nil || (kind != "" && booking.Kind != kind) {
		return nil, models.NewNotFoundError("booking not found")
	}
	return booking, nil
}

// managerOf returns the hotel owner of a hotel booking or the guide of a tour booking
func (a *bookingAccess) managerOf(ctx context.Context, b *models.Booking) (*uuid.UUID, error) {
	switch b.Kind {
	case models.BookingKindHotel:
		if b.HotelID == nil {
			return nil, nil
		}
		return a.rooms.GetHotelOwnerID(ctx, *b.HotelID)
	case models.BookingKindTour:
		if b.ScheduleID == nil {
			return nil, nil
		}
		schedule, err := a.schedules.GetByID(ctx, *b.ScheduleID)
		if err != nil || schedule == nil {
			return nil, err
		}
		return &schedule.GuideID, nil
	}
	return nil, nil
}

// authorize returns AuthorizationError unless p may perform action on b
func (a *bookingAccess) authorize(ctx context.Context, action Action, b *models.Booking, p models.Principal) error {
	var managerID *uuid.UUID
	switch action {
	case ActionCancel, ActionPay, ActionRequestRefund:
		// owner-only actions need no manager lookup
	default:
		var err error
		if managerID, err = a.managerOf(ctx, b); err != nil {
			return err
		}
	}

	if !a.authz.Authorize(action, BookingResource(b, managerID), p) {
		return models.NewAuthorizationError(fmt.Sprintf("not allowed to %s this booking", humanAction(action)))
	}
	return nil
}

func humanAction(a Action) string {
	switch a {
	case ActionCheckIn:
		return "check in"
	case ActionCheckOut:
		return "check out"
	case ActionRequestRefund:
		return "request a refund for"
	case ActionApproveRefund:
		return "decide refunds for"
	}
	return string(a)
}
