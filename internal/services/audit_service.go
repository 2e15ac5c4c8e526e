package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tripnest/booking-core/internal/models"
	"github.com/tripnest/booking-core/internal/utils"
)

// AuditStore persists action audit entries
type AuditStore interface {
	Insert(ctx context.Context, entry *models.AuditLogEntry) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.AuditLogEntry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditService records who did what to bookings, payments and schedules, and from which device
type AuditService struct {
	store AuditStore
	now   func() time.Time
}

// NewAuditService creates a new audit service
func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{
		store: store,
		now:   time.Now,
	}
}

// RequestMeta identifies the client behind an audited request
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// LogBookingAction records a booking lifecycle action (create, check-in, check-out, cancel)
func (s *AuditService) LogBookingAction(ctx context.Context, userID uuid.UUID, action models.AuditAction, booking *models.Booking, meta RequestMeta) error {
	details := map[string]interface{}{
		"kind":   booking.Kind,
		"status": booking.Status,
	}
	if booking.CancellationReason != nil {
		details["reason"] = *booking.CancellationReason
	}

	return s.logEvent(ctx, &userID, action, "booking", &booking.ID, meta, details)
}

// LogBookingCreated records a new reservation
func (s *AuditService) LogBookingCreated(ctx context.Context, userID uuid.UUID, kind models.BookingKind, bookingID, billID uuid.UUID, total float64, meta RequestMeta) error {
	details := map[string]interface{}{
		"kind":        kind,
		"bill_id":     billID,
		"total_price": total,
	}
	return s.logEvent(ctx, &userID, models.AuditBookingCreated, "booking", &bookingID, meta, details)
}

// LogQRScan records a payment scan. Scanners are not authenticated, so only the device is known.
func (s *AuditService) LogQRScan(ctx context.Context, billID uuid.UUID, success bool, reason string, meta RequestMeta) error {
	details := map[string]interface{}{
		"success": success,
	}
	if reason != "" {
		details["reason"] = reason
	}
	return s.logEvent(ctx, nil, models.AuditQRScanned, "bill", &billID, meta, details)
}

// LogRefundDecision records an approve or reject by a manager
func (s *AuditService) LogRefundDecision(ctx context.Context, approverID, billID uuid.UUID, approved bool, meta RequestMeta) error {
	details := map[string]interface{}{
		"approved": approved,
	}
	return s.logEvent(ctx, &approverID, models.AuditRefundDecided, "bill", &billID, meta, details)
}

// LogScheduleChange records a schedule create, update or removal
func (s *AuditService) LogScheduleChange(ctx context.Context, userID, scheduleID uuid.UUID, change string, meta RequestMeta) error {
	details := map[string]interface{}{
		"change": change,
	}
	return s.logEvent(ctx, &userID, models.AuditScheduleChanged, "schedule", &scheduleID, meta, details)
}

// LogAccessDenied records a capability check that failed
func (s *AuditService) LogAccessDenied(ctx context.Context, userID uuid.UUID, role models.Role, entityType string, entityID *uuid.UUID, operation string, meta RequestMeta) error {
	details := map[string]interface{}{
		"role":      role,
		"operation": operation,
	}
	return s.logEvent(ctx, &userID, models.AuditAccessDenied, entityType, entityID, meta, details)
}

// LogRateLimitViolation records a client throttled on a rate limited endpoint
func (s *AuditService) LogRateLimitViolation(ctx context.Context, endpoint string, meta RequestMeta) error {
	details := map[string]interface{}{
		"endpoint": endpoint,
	}
	return s.logEvent(ctx, nil, models.AuditRateLimitViolation, "rate_limit", nil, meta, details)
}

// logEvent attaches parsed device info and writes the entry
func (s *AuditService) logEvent(ctx context.Context, userID *uuid.UUID, action models.AuditAction, entityType string, entityID *uuid.UUID, meta RequestMeta, details map[string]interface{}) error {
	if details == nil {
		details = make(map[string]interface{})
	}
	details["device_info"] = utils.ParseUserAgent(meta.UserAgent)

	return s.store.Insert(ctx, &models.AuditLogEntry{
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
		Details:    details,
	})
}

// GetRecentEvents retrieves recent audit events for a user
func (s *AuditService) GetRecentEvents(ctx context.Context, userID uuid.UUID, limit int) ([]models.AuditLogEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.ListByUser(ctx, userID, limit)
}

// CleanupOldAuditLogs removes audit logs older than the specified duration
func (s *AuditService) CleanupOldAuditLogs(ctx context.Context, olderThan time.Duration) (int64, error) {
	return s.store.DeleteOlderThan(ctx, s.now().Add(-olderThan))
}
