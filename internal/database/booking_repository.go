package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/tripnest/booking-core/internal/models"
)

const bookingColumns = `id, user_id, kind, hotel_id, schedule_id, guests, check_in, check_out, status, total_price,
	cancellation_reason, checked_in_at, checked_out_at, cancelled_at, created_at, updated_at`

// BookingRepository handles database operations for bookings and their bills
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// ============================================================================
// RESERVATION (booking + bill + details in one transaction)
// ============================================================================

// CreateHotelBooking reserves a room set. The candidate rooms are locked in id order and
// overlap is re-checked under the lock, so two concurrent reservations of the same room
// window cannot both commit.
func (r *BookingRepository) CreateHotelBooking(ctx context.Context, booking *models.Booking, bill *models.Bill) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. Lock the rooms
	var locked []uuid.UUID
	lockQuery := `SELECT id FROM hotel_rooms WHERE id = ANY($1::uuid[]) ORDER BY id FOR UPDATE`
	if err := tx.SelectContext(ctx, &locked, lockQuery, pq.Array(uuidStrings(booking.RoomIDs))); err != nil {
		return fmt.Errorf("failed to lock rooms: %w", err)
	}
	if len(locked) != len(booking.RoomIDs) {
		return models.NewNotFoundError("one or more rooms do not exist")
	}

	// 2. Re-check overlap under the lock
	taken, err := unavailableRooms(ctx, tx, booking.RoomIDs, booking.CheckIn, booking.CheckOut)
	if err != nil {
		return err
	}
	if len(taken) > 0 {
		return models.NewConflictError(fmt.Sprintf("rooms not available for the selected dates: %s", joinIDs(taken)))
	}

	// 3. Insert booking and its rooms
	if err := insertBooking(ctx, tx, booking); err != nil {
		return err
	}
	for _, roomID := range booking.RoomIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO booking_rooms (booking_id, room_id) VALUES ($1, $2)`,
			booking.ID, roomID); err != nil {
			return fmt.Errorf("failed to attach room %s: %w", roomID, err)
		}
	}

	// 4. Insert bill and snapshot
	bill.BookingID = booking.ID
	if err := insertBill(ctx, tx, bill); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CreateTourBooking claims booking.Guests places on the schedule with a single conditional
// UPDATE and creates the booking and bill in the same transaction.
func (r *BookingRepository) CreateTourBooking(ctx context.Context, booking *models.Booking, bill *models.Bill) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. Capacity compare-and-swap
	claimQuery := `
		UPDATE schedules
		SET current_bookings = current_bookings + $2,
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'active'
		  AND start_time > NOW()
		  AND current_bookings + $2 <= capacity`

	result, err := tx.ExecContext(ctx, claimQuery, booking.ScheduleID, booking.Guests)
	if err != nil {
		return fmt.Errorf("failed to claim schedule capacity: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.NewConflictError("not enough places left on this schedule")
	}

	// 2. Booking
	if err := insertBooking(ctx, tx, booking); err != nil {
		return err
	}

	// 3. Bill and snapshot
	bill.BookingID = booking.ID
	if err := insertBill(ctx, tx, bill); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertBooking(ctx context.Context, tx *sqlx.Tx, b *models.Booking) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Status == "" {
		b.Status = models.BookingStatusPending
	}

	query := `
		INSERT INTO bookings (
			id, user_id, kind, hotel_id, schedule_id, guests,
			check_in, check_out, status, total_price
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	err := tx.QueryRowxContext(ctx, query,
		b.ID, b.UserID, b.Kind, b.HotelID, b.ScheduleID, b.Guests,
		b.CheckIn, b.CheckOut, b.Status, b.TotalPrice,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func insertBill(ctx context.Context, tx *sqlx.Tx, bill *models.Bill) error {
	if bill.ID == uuid.Nil {
		bill.ID = uuid.New()
	}
	if bill.Status == "" {
		bill.Status = models.BillStatusPending
	}

	query := `
		INSERT INTO bills (id, booking_id, deposit, original_price, total_price, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	err := tx.QueryRowxContext(ctx, query,
		bill.ID, bill.BookingID, bill.Deposit, bill.OriginalPrice, bill.TotalPrice, bill.Status,
	).Scan(&bill.CreatedAt, &bill.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("booking already has a bill")
		}
		return fmt.Errorf("failed to create bill: %w", err)
	}

	for i := range bill.Details {
		d := &bill.Details[i]
		if d.ID == uuid.Nil {
			d.ID = uuid.New()
		}
		d.BillID = bill.ID

		_, err := tx.ExecContext(ctx, `
			INSERT INTO bill_details (id, bill_id, item_type, item_id, item_name, quantity, unit_price, total_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			d.ID, d.BillID, d.ItemType, d.ItemID, d.ItemName, d.Quantity, d.UnitPrice, d.TotalPrice)
		if err != nil {
			return fmt.Errorf("failed to create bill detail for %s: %w", d.ItemName, err)
		}
	}
	return nil
}

// ============================================================================
// READS
// ============================================================================

// GetByID retrieves a booking with its room ids. Returns nil, nil when not found.
func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var b models.Booking
	err := r.db.GetContext(ctx, &b, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}

	if b.Kind == models.BookingKindHotel {
		if err := r.db.SelectContext(ctx, &b.RoomIDs,
			`SELECT room_id FROM booking_rooms WHERE booking_id = $1 ORDER BY room_id`, id); err != nil {
			return nil, fmt.Errorf("failed to get booking rooms: %w", err)
		}
	}
	return &b, nil
}

// ListByUser returns a user's bookings, newest first
func (r *BookingRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Booking, error) {
	bookings := []models.Booking{}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &bookings, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// ============================================================================
// STATE TRANSITIONS (conditional on the prior status)
// ============================================================================

// MarkCheckedIn moves a confirmed booking whose stay has started to checked_in
func (r *BookingRepository) MarkCheckedIn(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE bookings
		SET status = 'checked_in', checked_in_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'confirmed' AND check_in <= $2`

	return r.execTransition(ctx, "check in", query, id, at)
}

// MarkCheckedOut moves a checked-in booking to checked_out
func (r *BookingRepository) MarkCheckedOut(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE bookings
		SET status = 'checked_out', checked_out_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'checked_in'`

	return r.execTransition(ctx, "check out", query, id, at)
}

func (r *BookingRepository) execTransition(ctx context.Context, action, query string, args ...interface{}) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to %s booking: %w", action, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// Cancel cancels a pending or confirmed booking and releases what it holds in one transaction:
// tour places go back to the schedule, an unpaid bill is cancelled and pending QR codes are retired.
// Room windows are released by the status change itself. Returns false when the booking had
// already moved past a cancellable status. billCancelled reports whether this call moved the
// bill out of pending; it stays false when a payment settled first.
func (r *BookingRepository) Cancel(ctx context.Context, booking *models.Booking, reason *string, at time.Time) (cancelled, billCancelled bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE bookings
		SET status = 'cancelled', cancellation_reason = $2, cancelled_at = $3, updated_at = $3
		WHERE id = $1 AND status IN ('pending', 'confirmed')`,
		booking.ID, reason, at)
	if err != nil {
		return false, false, fmt.Errorf("failed to cancel booking: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, false, err
	}
	if rows == 0 {
		return false, false, nil
	}

	if booking.Kind == models.BookingKindTour && booking.ScheduleID != nil {
		if _, err := tx.ExecContext(ctx, `
			UPDATE schedules
			SET current_bookings = GREATEST(current_bookings - $2, 0), updated_at = NOW()
			WHERE id = $1`,
			*booking.ScheduleID, booking.Guests); err != nil {
			return false, false, fmt.Errorf("failed to release schedule capacity: %w", err)
		}
	}

	result, err = tx.ExecContext(ctx, `
		UPDATE bills
		SET status = 'cancelled', updated_at = $2
		WHERE booking_id = $1 AND status = 'pending'`,
		booking.ID, at)
	if err != nil {
		return false, false, fmt.Errorf("failed to cancel bill: %w", err)
	}
	rows, err = result.RowsAffected()
	if err != nil {
		return false, false, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE qr_payments
		SET status = 'superseded'
		WHERE bill_id IN (SELECT id FROM bills WHERE booking_id = $1)
		  AND status = 'pending'`,
		booking.ID); err != nil {
		return false, false, fmt.Errorf("failed to retire payment codes: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	booking.Status = models.BookingStatusCancelled
	booking.CancellationReason = reason
	booking.CancelledAt = &at
	return true, rows > 0, nil
}

func joinIDs(ids []uuid.UUID) string {
	return strings.Join(uuidStrings(ids), ", ")
}
