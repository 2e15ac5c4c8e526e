package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/tripnest/booking-core/internal/models"
)

const scheduleColumns = `id, tour_id, guide_id, start_time, end_time, capacity, current_bookings, status, created_at, updated_at`

// ScheduleRepository handles database operations for guide schedules
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new ScheduleRepository
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// ============================================================================
// READS
// ============================================================================

// GetByID retrieves a schedule by ID. Returns nil, nil when not found.
func (r *ScheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Schedule, error) {
	var s models.Schedule
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`

	err := r.db.GetContext(ctx, &s, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return &s, nil
}

// GetTour retrieves the tour a schedule is created for. Returns nil, nil when not found.
func (r *ScheduleRepository) GetTour(ctx context.Context, tourID uuid.UUID) (*models.Tour, error) {
	var t models.Tour
	query := `SELECT id, name, price, max_guests FROM tours WHERE id = $1`

	err := r.db.GetContext(ctx, &t, query, tourID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tour: %w", err)
	}
	return &t, nil
}

// ListBookable returns active schedules of a tour starting in [from, to) with room for guests
func (r *ScheduleRepository) ListBookable(ctx context.Context, tourID uuid.UUID, from, to time.Time, guests int) ([]models.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules
		WHERE tour_id = $1
		  AND status = 'active'
		  AND start_time >= $2
		  AND start_time < $3
		  AND capacity - current_bookings >= $4
		ORDER BY start_time`

	schedules := []models.Schedule{}
	if err := r.db.SelectContext(ctx, &schedules, query, tourID, from, to, guests); err != nil {
		return nil, fmt.Errorf("failed to list bookable schedules: %w", err)
	}
	return schedules, nil
}

// ListByGuide returns a guide's non-removed schedules overlapping [from, to)
func (r *ScheduleRepository) ListByGuide(ctx context.Context, guideID uuid.UUID, from, to time.Time) ([]models.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules
		WHERE guide_id = $1
		  AND status <> 'removed'
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time`

	schedules := []models.Schedule{}
	if err := r.db.SelectContext(ctx, &schedules, query, guideID, from, to); err != nil {
		return nil, fmt.Errorf("failed to list guide schedules: %w", err)
	}
	return schedules, nil
}

// ============================================================================
// WRITES (guide row is locked so overlap check + write are atomic per guide)
// ============================================================================

// CreateWithOverlapCheck inserts a schedule unless the guide already has an overlapping one
func (r *ScheduleRepository) CreateWithOverlapCheck(ctx context.Context, s *models.Schedule) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockGuide(ctx, tx, s.GuideID); err != nil {
		return err
	}

	if err := checkGuideOverlap(ctx, tx, s.GuideID, s.StartTime, s.EndTime, uuid.Nil); err != nil {
		return err
	}

	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = models.ScheduleStatusActive
	}

	query := `
		INSERT INTO schedules (id, tour_id, guide_id, start_time, end_time, capacity, current_bookings, status)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7)
		RETURNING created_at, updated_at`

	err = tx.QueryRowxContext(ctx, query,
		s.ID, s.TourID, s.GuideID, s.StartTime, s.EndTime, s.Capacity, s.Status,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if isExclusionViolation(err) {
			return models.NewConflictError("tour guide already has a schedule in this time window")
		}
		return fmt.Errorf("failed to create schedule: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateWithOverlapCheck rewrites the window and capacity of an active schedule.
// The capacity may not drop below the places already booked.
func (r *ScheduleRepository) UpdateWithOverlapCheck(ctx context.Context, s *models.Schedule) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockGuide(ctx, tx, s.GuideID); err != nil {
		return err
	}

	if err := checkGuideOverlap(ctx, tx, s.GuideID, s.StartTime, s.EndTime, s.ID); err != nil {
		return err
	}

	query := `
		UPDATE schedules
		SET start_time = $2,
		    end_time = $3,
		    capacity = $4,
		    updated_at = NOW()
		WHERE id = $1
		  AND status = 'active'
		  AND current_bookings <= $4
		RETURNING current_bookings, updated_at`

	err = tx.QueryRowxContext(ctx, query, s.ID, s.StartTime, s.EndTime, s.Capacity).
		Scan(&s.CurrentBookings, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.NewStateError("schedule is not active or capacity is below current bookings")
	}
	if err != nil {
		if isExclusionViolation(err) {
			return models.NewConflictError("tour guide already has a schedule in this time window")
		}
		if isCheckViolation(err) {
			return models.NewValidationError("schedule violates capacity or time constraints")
		}
		return fmt.Errorf("failed to update schedule: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Remove marks an active schedule with no bookings as removed
func (r *ScheduleRepository) Remove(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE schedules
		SET status = 'removed', updated_at = NOW()
		WHERE id = $1 AND status = 'active' AND current_bookings = 0`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to remove schedule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// MarkCompleted closes active schedules whose window has ended
func (r *ScheduleRepository) MarkCompleted(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE schedules
		SET status = 'completed', updated_at = NOW()
		WHERE status = 'active' AND end_time <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to complete schedules: %w", err)
	}
	return result.RowsAffected()
}

func lockGuide(ctx context.Context, tx *sqlx.Tx, guideID uuid.UUID) error {
	var locked uuid.UUID
	err := tx.GetContext(ctx, &locked, `SELECT id FROM tour_guides WHERE id = $1 FOR UPDATE`, guideID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewNotFoundError("tour guide not found")
	}
	if err != nil {
		return fmt.Errorf("failed to lock tour guide: %w", err)
	}
	return nil
}

// checkGuideOverlap rejects any non-removed schedule of the guide intersecting [start, end).
// exclude skips the schedule being updated.
func checkGuideOverlap(ctx context.Context, tx *sqlx.Tx, guideID uuid.UUID, start, end time.Time, exclude uuid.UUID) error {
	var overlapping bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM schedules
			WHERE guide_id = $1
			  AND status <> 'removed'
			  AND id <> $4
			  AND start_time < $3
			  AND end_time > $2
		)`

	if err := tx.GetContext(ctx, &overlapping, query, guideID, start, end, exclude); err != nil {
		return fmt.Errorf("failed to check schedule overlap: %w", err)
	}
	if overlapping {
		return models.NewConflictError("tour guide already has a schedule in this time window")
	}
	return nil
}
