package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// BOOKING TYPES & STATUSES
// ============================================================================

// BookingKind identifies what a booking reserves
type BookingKind string

const (
	BookingKindHotel BookingKind = "hotel"
	BookingKindTour  BookingKind = "tour"
)

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusCheckedIn  BookingStatus = "checked_in"
	BookingStatusCheckedOut BookingStatus = "checked_out"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

// HoldingStatuses are the statuses that keep a room window reserved
var HoldingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusCheckedIn,
}

// HoldsInventory reports whether a booking in this status blocks its room window
func (s BookingStatus) HoldsInventory() bool {
	for _, held := range HoldingStatuses {
		if s == held {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCheckedOut || s == BookingStatusCancelled
}

// CustomerCancellable reports whether the customer may still cancel (before check-in)
func (s BookingStatus) CustomerCancellable() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

// ============================================================================
// BOOKING (bookings table)
// ============================================================================

// Booking is a customer's reservation of a room set or a tour schedule slot.
// For tour bookings CheckIn/CheckOut mirror the schedule window.
type Booking struct {
	ID         uuid.UUID     `json:"id" db:"id"`
	UserID     uuid.UUID     `json:"user_id" db:"user_id"`
	Kind       BookingKind   `json:"kind" db:"kind"`
	HotelID    *uuid.UUID    `json:"hotel_id,omitempty" db:"hotel_id"`
	ScheduleID *uuid.UUID    `json:"schedule_id,omitempty" db:"schedule_id"`
	Guests     int           `json:"guests" db:"guests"`
	CheckIn    time.Time     `json:"check_in" db:"check_in"`
	CheckOut   time.Time     `json:"check_out" db:"check_out"`
	Status     BookingStatus `json:"status" db:"status"`
	TotalPrice float64       `json:"total_price" db:"total_price"`

	CancellationReason *string    `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	CheckedInAt        *time.Time `json:"checked_in_at,omitempty" db:"checked_in_at"`
	CheckedOutAt       *time.Time `json:"checked_out_at,omitempty" db:"checked_out_at"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Populated from booking_rooms for hotel bookings
	RoomIDs []uuid.UUID `json:"room_ids,omitempty" db:"-"`
}

// Nights returns the number of nights between check-in and check-out
func Nights(checkIn, checkOut time.Time) int {
	return int(checkOut.Sub(checkIn).Hours() / 24)
}

// ============================================================================
// REQUEST / RESPONSE DTOs
// ============================================================================

const dateLayout = "2006-01-02"

// CreateHotelBookingRequest is the body of POST /bookings/hotel
type CreateHotelBookingRequest struct {
	Rooms        []uuid.UUID `json:"rooms" binding:"required,min=1"`
	CheckInDate  string      `json:"check_in_date" binding:"required"`
	CheckOutDate string      `json:"check_out_date" binding:"required"`
}

// Dates parses and validates the stay window. Dates are calendar days in UTC.
func (r *CreateHotelBookingRequest) Dates() (time.Time, time.Time, error) {
	checkIn, err := time.Parse(dateLayout, r.CheckInDate)
	if err != nil {
		return time.Time{}, time.Time{}, NewValidationError("check_in_date must be formatted as YYYY-MM-DD")
	}
	checkOut, err := time.Parse(dateLayout, r.CheckOutDate)
	if err != nil {
		return time.Time{}, time.Time{}, NewValidationError("check_out_date must be formatted as YYYY-MM-DD")
	}
	if !checkOut.After(checkIn) {
		return time.Time{}, time.Time{}, NewValidationError("check_out_date must be after check_in_date")
	}
	return checkIn, checkOut, nil
}

// Validate checks the request shape
func (r *CreateHotelBookingRequest) Validate() error {
	if len(r.Rooms) == 0 {
		return NewValidationError("at least one room is required")
	}
	seen := make(map[uuid.UUID]struct{}, len(r.Rooms))
	for _, id := range r.Rooms {
		if id == uuid.Nil {
			return NewValidationError("room id cannot be empty")
		}
		if _, dup := seen[id]; dup {
			return NewValidationError(fmt.Sprintf("room %s is listed more than once", id))
		}
		seen[id] = struct{}{}
	}
	_, _, err := r.Dates()
	return err
}

// CreateHotelBookingResponse is returned after a successful hotel reservation
type CreateHotelBookingResponse struct {
	BookingID  uuid.UUID `json:"booking_id"`
	BillID     uuid.UUID `json:"bill_id"`
	TotalRooms int       `json:"total_rooms"`
	TotalPrice float64   `json:"total_price"`
}

// CreateTourBookingRequest is the body of POST /bookings/tour
type CreateTourBookingRequest struct {
	ScheduleID uuid.UUID `json:"schedule_id" binding:"required"`
	Guests     int       `json:"guests" binding:"required"`
}

// Validate checks the request shape
func (r *CreateTourBookingRequest) Validate() error {
	if r.ScheduleID == uuid.Nil {
		return NewValidationError("schedule_id is required")
	}
	if r.Guests < 1 {
		return NewValidationError("guests must be at least 1")
	}
	return nil
}

// CreateTourBookingResponse is returned after a successful tour reservation
type CreateTourBookingResponse struct {
	BookingID  uuid.UUID `json:"booking_id"`
	BillID     uuid.UUID `json:"bill_id"`
	Guests     int       `json:"guests"`
	TotalPrice float64   `json:"total_price"`
}
