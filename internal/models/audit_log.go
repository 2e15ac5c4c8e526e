package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction names an entry in the action audit log
type AuditAction string

const (
	AuditBookingCreated     AuditAction = "booking_created"
	AuditBookingCheckedIn   AuditAction = "booking_checked_in"
	AuditBookingCheckedOut  AuditAction = "booking_checked_out"
	AuditBookingCancelled   AuditAction = "booking_cancelled"
	AuditQRScanned          AuditAction = "qr_scanned"
	AuditRefundDecided      AuditAction = "refund_decided"
	AuditScheduleChanged    AuditAction = "schedule_changed"
	AuditAccessDenied       AuditAction = "access_denied"
	AuditRateLimitViolation AuditAction = "rate_limit_violation"
)

// AuditLogEntry is one row of audit_logs: who did what from where
type AuditLogEntry struct {
	ID         int64                  `json:"id" db:"id"`
	UserID     *uuid.UUID             `json:"user_id,omitempty" db:"user_id"`
	Action     AuditAction            `json:"action" db:"action"`
	EntityType string                 `json:"entity_type" db:"entity_type"`
	EntityID   *uuid.UUID             `json:"entity_id,omitempty" db:"entity_id"`
	IPAddress  string                 `json:"ip_address" db:"ip_address"`
	UserAgent  string                 `json:"user_agent" db:"user_agent"`
	Details    map[string]interface{} `json:"details,omitempty" db:"details"`
	CreatedAt  time.Time              `json:"created_at" db:"created_at"`
}
