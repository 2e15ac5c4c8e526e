package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tripnest/booking-core/internal/models"
	"github.com/tripnest/booking-core/internal/services"
)

const (
	dateLayout          = "2006-01-02"
	defaultBookableSpan = 30 * 24 * time.Hour
)

// ScheduleHandler handles tour schedule and room availability endpoints
type ScheduleHandler struct {
	schedules *services.ScheduleAvailabilityService
	rooms     *services.RoomAvailabilityService
	audit     auditRecorder
	logger    *logrus.Logger
	now       func() time.Time
}

// NewScheduleHandler creates a new ScheduleHandler
func NewScheduleHandler(
	schedules *services.ScheduleAvailabilityService,
	rooms *services.RoomAvailabilityService,
	auditService *services.AuditService,
	logger *logrus.Logger,
) *ScheduleHandler {
	return &ScheduleHandler{
		schedules: schedules,
		rooms:     rooms,
		audit:     newAuditRecorder(auditService, logger),
		logger:    logger,
		now:       time.Now,
	}
}

// CreateSchedule publishes a guided tour window
// @Summary Create schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param request body models.CreateScheduleRequest true "Schedule"
// @Success 201 {object} models.Schedule
// @Router /schedules [post]
func (h *ScheduleHandler) CreateSchedule(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req models.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	schedule, err := h.schedules.CreateSchedule(c.Request.Context(), principal, &req)
	if err != nil {
		h.audit.deniedIfForbidden(c, principal, "schedule", nil, "create_schedule", err)
		respondError(c, h.logger, "CreateSchedule", err)
		return
	}

	h.audit.scheduleChange(c, principal, schedule.ID, "created")
	c.JSON(http.StatusCreated, schedule)
}

// UpdateSchedule changes the window or capacity of a schedule
// @Summary Update schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param request body models.UpdateScheduleRequest true "Changed fields"
// @Success 200 {object} models.Schedule
// @Router /schedules/{id} [put]
func (h *ScheduleHandler) UpdateSchedule(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req models.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	schedule, err := h.schedules.UpdateSchedule(c.Request.Context(), principal, id, &req)
	if err != nil {
		h.audit.deniedIfForbidden(c, principal, "schedule", &id, "update_schedule", err)
		respondError(c, h.logger, "UpdateSchedule", err)
		return
	}

	h.audit.scheduleChange(c, principal, id, "updated")
	c.JSON(http.StatusOK, schedule)
}

// RemoveSchedule withdraws an unbooked schedule
// @Summary Remove schedule
// @Tags Schedules
// @Param id path string true "Schedule ID"
// @Router /schedules/{id} [delete]
func (h *ScheduleHandler) RemoveSchedule(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.schedules.RemoveSchedule(c.Request.Context(), principal, id); err != nil {
		h.audit.deniedIfForbidden(c, principal, "schedule", &id, "remove_schedule", err)
		respondError(c, h.logger, "RemoveSchedule", err)
		return
	}

	h.audit.scheduleChange(c, principal, id, "removed")
	c.JSON(http.StatusOK, gin.H{
		"schedule_id": id,
		"message":     "Schedule removed",
	})
}

// GetSchedule returns one schedule
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	schedule, err := h.schedules.GetSchedule(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, "GetSchedule", err)
		return
	}

	c.JSON(http.StatusOK, schedule)
}

// GetBookableSchedules lists schedules of a tour with room for the party.
// Query: tour_id (required), from and to (RFC 3339, default now and +30 days), guests (default 1).
func (h *ScheduleHandler) GetBookableSchedules(c *gin.Context) {
	tourID, err := uuid.Parse(c.Query("tour_id"))
	if err != nil {
		badRequest(c, "tour_id is required")
		return
	}

	from, to, ok := h.window(c)
	if !ok {
		return
	}

	guests := 1
	if raw := c.Query("guests"); raw != "" {
		guests, err = strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "guests must be a number")
			return
		}
	}

	schedules, err := h.schedules.GetBookableSchedules(c.Request.Context(), tourID, from, to, guests)
	if err != nil {
		respondError(c, h.logger, "GetBookableSchedules", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"schedules": schedules,
		"count":     len(schedules),
	})
}

// GetGuideSchedules lists a guide's schedules in a window (same from/to query as bookable)
func (h *ScheduleHandler) GetGuideSchedules(c *gin.Context) {
	guideID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	from, to, ok := h.window(c)
	if !ok {
		return
	}

	schedules, err := h.schedules.GetGuideSchedules(c.Request.Context(), guideID, from, to)
	if err != nil {
		respondError(c, h.logger, "GetGuideSchedules", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"schedules": schedules,
		"count":     len(schedules),
	})
}

func (h *ScheduleHandler) window(c *gin.Context) (time.Time, time.Time, bool) {
	from := h.now()
	to := from.Add(defaultBookableSpan)

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(c, "from must be an RFC 3339 timestamp")
			return time.Time{}, time.Time{}, false
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(c, "to must be an RFC 3339 timestamp")
			return time.Time{}, time.Time{}, false
		}
		to = parsed
	}
	return from, to, true
}

// ============================================================================
// ROOM AVAILABILITY - GET /api/v1/rooms/...
// ============================================================================

// GetRoomAvailability reports whether a room is free for a stay.
// Query: check_in and check_out as YYYY-MM-DD.
func (h *ScheduleHandler) GetRoomAvailability(c *gin.Context) {
	roomID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	checkIn, checkOut, ok := stayDates(c)
	if !ok {
		return
	}

	available, err := h.rooms.CheckAvailability(c.Request.Context(), roomID, checkIn, checkOut)
	if err != nil {
		respondError(c, h.logger, "GetRoomAvailability", err)
		return
	}

	c.JSON(http.StatusOK, models.RoomAvailabilityResponse{
		RoomID:    roomID,
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Available: available,
	})
}

// GetRoomsAvailability checks several rooms at once: ?room_ids=a,b&check_in=&check_out=
func (h *ScheduleHandler) GetRoomsAvailability(c *gin.Context) {
	var roomIDs []uuid.UUID
	for _, raw := range strings.Split(c.Query("room_ids"), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(c, "invalid room id: "+raw)
			return
		}
		roomIDs = append(roomIDs, id)
	}
	if len(roomIDs) == 0 {
		badRequest(c, "room_ids is required")
		return
	}

	checkIn, checkOut, ok := stayDates(c)
	if !ok {
		return
	}

	availability, err := h.rooms.CheckRooms(c.Request.Context(), roomIDs, checkIn, checkOut)
	if err != nil {
		respondError(c, h.logger, "GetRoomsAvailability", err)
		return
	}

	rooms := make([]models.RoomAvailabilityResponse, 0, len(roomIDs))
	for _, id := range roomIDs {
		rooms = append(rooms, models.RoomAvailabilityResponse{
			RoomID:    id,
			CheckIn:   checkIn,
			CheckOut:  checkOut,
			Available: availability[id],
		})
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func stayDates(c *gin.Context) (time.Time, time.Time, bool) {
	checkIn, err := time.Parse(dateLayout, c.Query("check_in"))
	if err != nil {
		badRequest(c, "check_in must be formatted as YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	checkOut, err := time.Parse(dateLayout, c.Query("check_out"))
	if err != nil {
		badRequest(c, "check_out must be formatted as YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	return checkIn, checkOut, true
}
