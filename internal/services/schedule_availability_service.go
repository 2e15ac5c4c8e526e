package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tripnest/booking-core/internal/models"
)

// ScheduleAvailabilityService manages guide schedules and answers which schedules can still take guests
type ScheduleAvailabilityService struct {
	schedules ScheduleStore
	authz     *Authorizer
	logger    *logrus.Logger
	now       func() time.Time
}

// NewScheduleAvailabilityService creates a new ScheduleAvailabilityService
func NewScheduleAvailabilityService(schedules ScheduleStore, authz *Authorizer, logger *logrus.Logger) *ScheduleAvailabilityService {
	return &ScheduleAvailabilityService{
		schedules: schedules,
		authz:     authz,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *ScheduleAvailabilityService) authorizeManage(p models.Principal) error {
	if !s.authz.Authorize(ActionManageSchedule, Resource{Kind: ResourceSchedule}, p) {
		return models.NewAuthorizationError("only supervisors can manage schedules")
	}
	return nil
}

// CreateSchedule assigns a guide to a tour for a window. Capacity defaults to the tour's max guests.
func (s *ScheduleAvailabilityService) CreateSchedule(ctx context.Context, p models.Principal, req *models.CreateScheduleRequest) (*models.Schedule, error) {
	if err := s.authorizeManage(p); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !req.StartTime.After(s.now()) {
		return nil, models.NewValidationError("start_time must be in the future")
	}

	tour, err := s.schedules.GetTour(ctx, req.TourID)
	if err != nil {
		return nil, err
	}
	if tour == nil {
		return nil, models.NewNotFoundError("tour not found")
	}

	capacity := tour.MaxGuests
	if req.Capacity != nil {
		capacity = *req.Capacity
	}

	schedule := &models.Schedule{
		TourID:    req.TourID,
		GuideID:   req.GuideID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Capacity:  capacity,
		Status:    models.ScheduleStatusActive,
	}
	if err := s.schedules.CreateWithOverlapCheck(ctx, schedule); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"schedule_id": schedule.ID,
		"guide_id":    schedule.GuideID,
		"start_time":  schedule.StartTime,
		"end_time":    schedule.EndTime,
		"capacity":    schedule.Capacity,
	}).Info("Schedule created")

	return schedule, nil
}

// UpdateSchedule changes the window or capacity of an active schedule, re-running the overlap check
// against the guide's other schedules
func (s *ScheduleAvailabilityService) UpdateSchedule(ctx context.Context, p models.Principal, id uuid.UUID, req *models.UpdateScheduleRequest) (*models.Schedule, error) {
	if err := s.authorizeManage(p); err != nil {
		return nil, err
	}

	schedule, err := s.schedules.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, models.NewNotFoundError("schedule not found")
	}
	if schedule.Status != models.ScheduleStatusActive {
		return nil, models.NewStateError(fmt.Sprintf("cannot update a %s schedule", schedule.Status))
	}

	updated := *schedule
	if req.StartTime != nil {
		updated.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		updated.EndTime = *req.EndTime
	}
	if req.Capacity != nil {
		updated.Capacity = *req.Capacity
	}

	if !updated.StartTime.Before(updated.EndTime) {
		return nil, models.NewValidationError("start_time must be before end_time")
	}
	if updated.Capacity < 1 {
		return nil, models.NewValidationError("capacity must be at least 1")
	}
	if updated.Capacity < schedule.CurrentBookings {
		return nil, models.NewValidationError(fmt.Sprintf("capacity cannot drop below the %d places already booked", schedule.CurrentBookings))
	}

	if err := s.schedules.UpdateWithOverlapCheck(ctx, &updated); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"schedule_id": updated.ID,
		"start_time":  updated.StartTime,
		"end_time":    updated.EndTime,
		"capacity":    updated.Capacity,
	}).Info("Schedule updated")

	return &updated, nil
}

// RemoveSchedule withdraws an active schedule that nobody has booked yet
func (s *ScheduleAvailabilityService) RemoveSchedule(ctx context.Context, p models.Principal, id uuid.UUID) error {
	if err := s.authorizeManage(p); err != nil {
		return err
	}

	schedule, err := s.schedules.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if schedule == nil {
		return models.NewNotFoundError("schedule not found")
	}
	if schedule.Status != models.ScheduleStatusActive {
		return models.NewStateError(fmt.Sprintf("schedule is already %s", schedule.Status))
	}
	if schedule.CurrentBookings > 0 {
		return models.NewStateError("schedule has bookings and cannot be removed")
	}

	removed, err := s.schedules.Remove(ctx, id)
	if err != nil {
		return err
	}
	if !removed {
		return models.NewStateError("schedule was booked or changed, reload and try again")
	}

	s.logger.WithField("schedule_id", id).Info("Schedule removed")
	return nil
}

// GetSchedule returns one schedule
func (s *ScheduleAvailabilityService) GetSchedule(ctx context.Context, id uuid.UUID) (*models.Schedule, error) {
	schedule, err := s.schedules.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, models.NewNotFoundError("schedule not found")
	}
	return schedule, nil
}

// GetBookableSchedules lists active schedules of a tour starting in [from, to) that can take guests.
// Schedules that already started are never bookable.
func (s *ScheduleAvailabilityService) GetBookableSchedules(ctx context.Context, tourID uuid.UUID, from, to time.Time, guests int) ([]models.Schedule, error) {
	if guests < 1 {
		return nil, models.NewValidationError("guests must be at least 1")
	}
	if !from.Before(to) {
		return nil, models.NewValidationError("from must be before to")
	}
	if now := s.now(); from.Before(now) {
		from = now
	}
	if !from.Before(to) {
		return []models.Schedule{}, nil
	}
	return s.schedules.ListBookable(ctx, tourID, from, to, guests)
}

// GetGuideSchedules lists a guide's non-removed schedules overlapping [from, to)
func (s *ScheduleAvailabilityService) GetGuideSchedules(ctx context.Context, guideID uuid.UUID, from, to time.Time) ([]models.Schedule, error) {
	if !from.Before(to) {
		return nil, models.NewValidationError("from must be before to")
	}
	return s.schedules.ListByGuide(ctx, guideID, from, to)
}

// CompleteFinishedSchedules closes active schedules whose window has ended
func (s *ScheduleAvailabilityService) CompleteFinishedSchedules(ctx context.Context) (int64, error) {
	return s.schedules.MarkCompleted(ctx, s.now())
}
