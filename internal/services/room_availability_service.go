package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tripnest/booking-core/internal/models"
)

// RoomAvailabilityService answers whether rooms are free for a stay window.
// Answers are advisory: the reservation transaction re-checks under row locks.
type RoomAvailabilityService struct {
	rooms RoomStore
}

// NewRoomAvailabilityService creates a new RoomAvailabilityService
func NewRoomAvailabilityService(rooms RoomStore) *RoomAvailabilityService {
	return &RoomAvailabilityService{rooms: rooms}
}

// CheckAvailability reports whether no pending, confirmed or checked-in booking of the room
// overlaps [checkIn, checkOut)
func (s *RoomAvailabilityService) CheckAvailability(ctx context.Context, roomID uuid.UUID, checkIn, checkOut time.Time) (bool, error) {
	if !checkIn.Before(checkOut) {
		return false, models.NewValidationError("check_out must be after check_in")
	}

	rooms, err := s.rooms.GetRoomsByIDs(ctx, []uuid.UUID{roomID})
	if err != nil {
		return false, err
	}
	if len(rooms) == 0 {
		return false, models.NewNotFoundError("room not found")
	}

	return s.rooms.IsRoomAvailable(ctx, roomID, checkIn, checkOut)
}

// CheckRooms returns the availability of each requested room for [checkIn, checkOut)
func (s *RoomAvailabilityService) CheckRooms(ctx context.Context, roomIDs []uuid.UUID, checkIn, checkOut time.Time) (map[uuid.UUID]bool, error) {
	if !checkIn.Before(checkOut) {
		return nil, models.NewValidationError("check_out must be after check_in")
	}

	taken, err := s.rooms.UnavailableRooms(ctx, roomIDs, checkIn, checkOut)
	if err != nil {
		return nil, err
	}

	availability := make(map[uuid.UUID]bool, len(roomIDs))
	for _, id := range roomIDs {
		availability[id] = true
	}
	for _, id := range taken {
		availability[id] = false
	}
	return availability, nil
}

// Unavailable returns the ids in roomIDs that are taken for [checkIn, checkOut)
func (s *RoomAvailabilityService) Unavailable(ctx context.Context, roomIDs []uuid.UUID, checkIn, checkOut time.Time) ([]uuid.UUID, error) {
	availability, err := s.CheckRooms(ctx, roomIDs, checkIn, checkOut)
	if err != nil {
		return nil, err
	}
	var taken []uuid.UUID
	for _, id := range roomIDs {
		if !availability[id] {
			taken = append(taken, id)
		}
	}
	return taken, nil
}
