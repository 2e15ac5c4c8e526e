package models

import (
	"time"

	"github.com/google/uuid"
)

// HotelRoom is the read-only slice of hotel content the core needs for pricing
type HotelRoom struct {
	ID      uuid.UUID `json:"id" db:"id"`
	HotelID uuid.UUID `json:"hotel_id" db:"hotel_id"`
	Name    string    `json:"name" db:"name"`
	Price   float64   `json:"price" db:"price"`
}

// RoomAvailabilityResponse is returned by GET /rooms/:id/availability
type RoomAvailabilityResponse struct {
	RoomID    uuid.UUID `json:"room_id"`
	CheckIn   time.Time `json:"check_in"`
	CheckOut  time.Time `json:"check_out"`
	Available bool      `json:"available"`
}
