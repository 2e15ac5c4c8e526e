package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tripnest/booking-core/internal/models"
	"github.com/tripnest/booking-core/internal/services"
)

// BookingHandler handles hotel and tour reservation endpoints
type BookingHandler struct {
	orchestrator *services.BookingOrchestratorService
	audit        auditRecorder
	logger       *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(
	orchestrator *services.BookingOrchestratorService,
	auditService *services.AuditService,
	logger *logrus.Logger,
) *BookingHandler {
	return &BookingHandler{
		orchestrator: orchestrator,
		audit:        newAuditRecorder(auditService, logger),
		logger:       logger,
	}
}

// ============================================================================
// CREATE - POST /api/v1/bookings/hotel, POST /api/v1/bookings/tour
// ============================================================================

// CreateHotelBooking reserves one or more rooms for a stay
// @Summary Create hotel booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param request body models.CreateHotelBookingRequest true "Rooms and stay dates"
// @Success 201 {object} models.CreateHotelBookingResponse
// @Failure 400 {object} map[string]interface{} "Validation error or room unavailable"
// @Router /bookings/hotel [post]
func (h *BookingHandler) CreateHotelBooking(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req models.CreateHotelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	response, err := h.orchestrator.CreateMultipleRoomBooking(c.Request.Context(), principal, &req)
	if err != nil {
		h.audit.deniedIfForbidden(c, principal, "booking", nil, "create_hotel_booking", err)
		respondError(c, h.logger, "CreateHotelBooking", err)
		return
	}

	h.audit.bookingCreated(c, principal, models.BookingKindHotel, response.BookingID, response.BillID, response.TotalPrice)
	c.JSON(http.StatusCreated, response)
}

// CreateTourBooking reserves seats on a guided tour schedule
// @Summary Create tour booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param request body models.CreateTourBookingRequest true "Schedule and party size"
// @Success 201 {object} models.CreateTourBookingResponse
// @Failure 400 {object} map[string]interface{} "Validation error or schedule full"
// @Router /bookings/tour [post]
func (h *BookingHandler) CreateTourBooking(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req models.CreateTourBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	response, err := h.orchestrator.CreateTourBooking(c.Request.Context(), principal, &req)
	if err != nil {
		h.audit.deniedIfForbidden(c, principal, "booking", nil, "create_tour_booking", err)
		respondError(c, h.logger, "CreateTourBooking", err)
		return
	}

	h.audit.bookingCreated(c, principal, models.BookingKindTour, response.BookingID, response.BillID, response.TotalPrice)
	c.JSON(http.StatusCreated, response)
}

// ============================================================================
// READ - GET /api/v1/bookings/:id, GET /api/v1/bookings/my
// ============================================================================

// GetBooking returns a booking visible to the caller
func (h *BookingHandler) GetBooking(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	booking, err := h.orchestrator.GetBooking(c.Request.Context(), principal, id)
	if err != nil {
		h.audit.deniedIfForbidden(c, principal, "booking", &id, "view_booking", err)
		respondError(c, h.logger, "GetBooking", err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// GetMyBookings lists the caller's own bookings
func (h *BookingHandler) GetMyBookings(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	bookings, err := h.orchestrator.ListMyBookings(c.Request.Context(), principal)
	if err != nil {
		respondError(c, h.logger, "GetMyBookings", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

// ============================================================================
// LIFECYCLE - PUT /api/v1/bookings/{hotel|tour}/:id/{check-in|check-out|customer-cancel}
// ============================================================================

// CheckIn returns the check-in handler for one booking kind
func (h *BookingHandler) CheckIn(kind models.BookingKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := requirePrincipal(c)
		if !ok {
			return
		}
		id, ok := uuidParam(c, "id")
		if !ok {
			return
		}

		booking, err := h.orchestrator.CheckInBooking(c.Request.Context(), principal, kind, id)
		if err != nil {
			h.audit.deniedIfForbidden(c, principal, "booking", &id, "check_in", err)
			respondError(c, h.logger, "CheckIn", err)
			return
		}

		h.audit.bookingAction(c, principal, models.AuditBookingCheckedIn, booking)
		c.JSON(http.StatusOK, booking)
	}
}

// CheckOut returns the check-out handler for one booking kind
func (h *BookingHandler) CheckOut(kind models.BookingKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := requirePrincipal(c)
		if !ok {
			return
		}
		id, ok := uuidParam(c, "id")
		if !ok {
			return
		}

		booking, err := h.orchestrator.CheckOutBooking(c.Request.Context(), principal, kind, id)
		if err != nil {
			h.audit.deniedIfForbidden(c, principal, "booking", &id, "check_out", err)
			respondError(c, h.logger, "CheckOut", err)
			return
		}

		h.audit.bookingAction(c, principal, models.AuditBookingCheckedOut, booking)
		c.JSON(http.StatusOK, booking)
	}
}

// CustomerCancel returns the cancel handler for one booking kind.
// The optional reason comes from the ?reason= query parameter.
func (h *BookingHandler) CustomerCancel(kind models.BookingKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := requirePrincipal(c)
		if !ok {
			return
		}
		id, ok := uuidParam(c, "id")
		if !ok {
			return
		}

		var reason *string
		if r := strings.TrimSpace(c.Query("reason")); r != "" {
			reason = &r
		}

		booking, err := h.orchestrator.CustomerCancelBooking(c.Request.Context(), principal, kind, id, reason)
		if err != nil {
			h.audit.deniedIfForbidden(c, principal, "booking", &id, "cancel", err)
			respondError(c, h.logger, "CustomerCancel", err)
			return
		}

		h.audit.bookingAction(c, principal, models.AuditBookingCancelled, booking)
		c.JSON(http.StatusOK, booking)
	}
}
