package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tripnest/booking-core/internal/models"
	"github.com/tripnest/booking-core/internal/services"
	"github.com/tripnest/booking-core/internal/utils"
)

// auditRecorder writes action audit entries without failing the request.
// A nil service disables auditing.
type auditRecorder struct {
	service *services.AuditService
	logger  *logrus.Logger
}

func newAuditRecorder(service *services.AuditService, logger *logrus.Logger) auditRecorder {
	return auditRecorder{service: service, logger: logger}
}

func requestMeta(c *gin.Context) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: utils.GetRealIP(c),
		UserAgent: utils.GetUserAgent(c),
	}
}

func (a auditRecorder) logError(operation string, err error) {
	if err != nil {
		a.logger.WithField("operation", operation).WithError(err).Warn("Audit write failed")
	}
}

func (a auditRecorder) bookingCreated(c *gin.Context, p models.Principal, kind models.BookingKind, bookingID, billID uuid.UUID, total float64) {
	if a.service == nil {
		return
	}
	err := a.service.LogBookingCreated(c.Request.Context(), p.UserID, kind, bookingID, billID, total, requestMeta(c))
	a.logError("LogBookingCreated", err)
}

func (a auditRecorder) bookingAction(c *gin.Context, p models.Principal, action models.AuditAction, booking *models.Booking) {
	if a.service == nil {
		return
	}
	err := a.service.LogBookingAction(c.Request.Context(), p.UserID, action, booking, requestMeta(c))
	a.logError("LogBookingAction", err)
}

func (a auditRecorder) qrScan(c *gin.Context, billID uuid.UUID, success bool, reason string) {
	if a.service == nil {
		return
	}
	err := a.service.LogQRScan(c.Request.Context(), billID, success, reason, requestMeta(c))
	a.logError("LogQRScan", err)
}

func (a auditRecorder) refundDecision(c *gin.Context, p models.Principal, billID uuid.UUID, approved bool) {
	if a.service == nil {
		return
	}
	err := a.service.LogRefundDecision(c.Request.Context(), p.UserID, billID, approved, requestMeta(c))
	a.logError("LogRefundDecision", err)
}

func (a auditRecorder) scheduleChange(c *gin.Context, p models.Principal, scheduleID uuid.UUID, change string) {
	if a.service == nil {
		return
	}
	err := a.service.LogScheduleChange(c.Request.Context(), p.UserID, scheduleID, change, requestMeta(c))
	a.logError("LogScheduleChange", err)
}

// deniedIfForbidden records an access-denied entry when err is an authorization failure
func (a auditRecorder) deniedIfForbidden(c *gin.Context, p models.Principal, entityType string, entityID *uuid.UUID, operation string, err error) {
	if a.service == nil || !models.IsKind(err, models.ErrorKindAuthorization) {
		return
	}
	logErr := a.service.LogAccessDenied(c.Request.Context(), p.UserID, p.Role, entityType, entityID, operation, requestMeta(c))
	a.logError("LogAccessDenied", logErr)
}

// RateLimitAuditHook adapts the audit service to the rate limit middleware
func RateLimitAuditHook(service *services.AuditService, logger *logrus.Logger) func(c *gin.Context, ip string) {
	recorder := newAuditRecorder(service, logger)
	return func(c *gin.Context, ip string) {
		if recorder.service == nil {
			return
		}
		meta := requestMeta(c)
		meta.IPAddress = ip
		err := recorder.service.LogRateLimitViolation(c.Request.Context(), c.FullPath(), meta)
		recorder.logError("LogRateLimitViolation", err)
	}
}
