package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tripnest/booking-core/internal/services"
)

// ActivityHandler exposes the caller's own audit trail
type ActivityHandler struct {
	audit  *services.AuditService
	logger *logrus.Logger
}

// NewActivityHandler creates a new ActivityHandler
func NewActivityHandler(audit *services.AuditService, logger *logrus.Logger) *ActivityHandler {
	return &ActivityHandler{audit: audit, logger: logger}
}

// GetMyActivity returns the most recent audited actions of the caller; ?limit= defaults to 20
func (h *ActivityHandler) GetMyActivity(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit > 100 {
		limit = 100
	}

	events, err := h.audit.GetRecentEvents(c.Request.Context(), principal.UserID, limit)
	if err != nil {
		respondError(c, h.logger, "GetMyActivity", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"count":  len(events),
	})
}
