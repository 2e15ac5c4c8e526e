package models

import (
	"time"

	"github.com/google/uuid"
)

// ScheduleStatus represents the lifecycle of a guide schedule slot
type ScheduleStatus string

const (
	ScheduleStatusActive    ScheduleStatus = "active"
	ScheduleStatusRemoved   ScheduleStatus = "removed"
	ScheduleStatusCompleted ScheduleStatus = "completed"
)

// Schedule assigns a tour guide to a tour for a fixed window with a people capacity
type Schedule struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	TourID          uuid.UUID      `json:"tour_id" db:"tour_id"`
	GuideID         uuid.UUID      `json:"guide_id" db:"guide_id"`
	StartTime       time.Time      `json:"start_time" db:"start_time"`
	EndTime         time.Time      `json:"end_time" db:"end_time"`
	Capacity        int            `json:"capacity" db:"capacity"`
	CurrentBookings int            `json:"current_bookings" db:"current_bookings"`
	Status          ScheduleStatus `json:"status" db:"status"`
	CreatedAt       time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at" db:"updated_at"`
}

// Remaining returns the number of free places
func (s *Schedule) Remaining() int {
	return s.Capacity - s.CurrentBookings
}

// Overlaps reports whether two half-open windows [aStart,aEnd) and [bStart,bEnd) intersect
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Tour is the read-only slice of tour content the core needs
type Tour struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Price     float64   `json:"price" db:"price"`
	MaxGuests int       `json:"max_guests" db:"max_guests"`
}

// CreateScheduleRequest is the body of POST /schedules
type CreateScheduleRequest struct {
	TourID    uuid.UUID `json:"tour_id" binding:"required"`
	GuideID   uuid.UUID `json:"guide_id" binding:"required"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
	Capacity  *int      `json:"capacity,omitempty"`
}

// Validate checks the request shape
func (r *CreateScheduleRequest) Validate() error {
	if r.TourID == uuid.Nil || r.GuideID == uuid.Nil {
		return NewValidationError("tour_id and guide_id are required")
	}
	if !r.StartTime.Before(r.EndTime) {
		return NewValidationError("start_time must be before end_time")
	}
	if r.Capacity != nil && *r.Capacity < 1 {
		return NewValidationError("capacity must be at least 1")
	}
	return nil
}

// UpdateScheduleRequest is the body of PUT /schedules/:id; nil fields are left unchanged
type UpdateScheduleRequest struct {
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Capacity  *int       `json:"capacity,omitempty"`
}
