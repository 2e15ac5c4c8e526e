package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/tripnest/booking-core/internal/models"
)

// roomHoldFilter matches bookings that still occupy their room window
const roomHoldFilter = `b.status IN ('pending', 'confirmed', 'checked_in')`

// RoomRepository reads hotel room content and room occupancy
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository creates a new RoomRepository
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// GetRoomsByIDs returns the rooms that exist among ids, ordered by id
func (r *RoomRepository) GetRoomsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.HotelRoom, error) {
	query := `
		SELECT id, hotel_id, name, price
		FROM hotel_rooms
		WHERE id = ANY($1::uuid[])
		ORDER BY id`

	rooms := []models.HotelRoom{}
	if err := r.db.SelectContext(ctx, &rooms, query, pq.Array(uuidStrings(ids))); err != nil {
		return nil, fmt.Errorf("failed to get rooms: %w", err)
	}
	return rooms, nil
}

// GetHotelOwnerID returns the owner of a hotel. Returns nil, nil when the hotel does not exist.
func (r *RoomRepository) GetHotelOwnerID(ctx context.Context, hotelID uuid.UUID) (*uuid.UUID, error) {
	var ownerID uuid.UUID
	err := r.db.GetContext(ctx, &ownerID, `SELECT owner_id FROM hotels WHERE id = $1`, hotelID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get hotel owner: %w", err)
	}
	return &ownerID, nil
}

// IsRoomAvailable reports whether no holding booking of the room overlaps [checkIn, checkOut)
func (r *RoomRepository) IsRoomAvailable(ctx context.Context, roomID uuid.UUID, checkIn, checkOut time.Time) (bool, error) {
	query := `
		SELECT NOT EXISTS (
			SELECT 1
			FROM booking_rooms br
			JOIN bookings b ON b.id = br.booking_id
			WHERE br.room_id = $1
			  AND ` + roomHoldFilter + `
			  AND b.check_in < $3
			  AND b.check_out > $2
		)`

	var available bool
	if err := r.db.GetContext(ctx, &available, query, roomID, checkIn, checkOut); err != nil {
		return false, fmt.Errorf("failed to check room availability: %w", err)
	}
	return available, nil
}

// UnavailableRooms returns the subset of ids held by an overlapping booking
func (r *RoomRepository) UnavailableRooms(ctx context.Context, ids []uuid.UUID, checkIn, checkOut time.Time) ([]uuid.UUID, error) {
	return unavailableRooms(ctx, r.db, ids, checkIn, checkOut)
}

func unavailableRooms(ctx context.Context, q sqlx.QueryerContext, ids []uuid.UUID, checkIn, checkOut time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT br.room_id
		FROM booking_rooms br
		JOIN bookings b ON b.id = br.booking_id
		WHERE br.room_id = ANY($1::uuid[])
		  AND ` + roomHoldFilter + `
		  AND b.check_in < $3
		  AND b.check_out > $2
		ORDER BY br.room_id`

	taken := []uuid.UUID{}
	if err := sqlx.SelectContext(ctx, q, &taken, query, pq.Array(uuidStrings(ids)), checkIn, checkOut); err != nil {
		return nil, fmt.Errorf("failed to check room overlap: %w", err)
	}
	return taken, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
