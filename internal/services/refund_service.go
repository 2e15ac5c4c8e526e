package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tripnest/booking-core/internal/models"
)

const defaultPendingRefundsLimit = 50

// RefundService handles refund requests on paid bills and their approval.
// A pending refund row is the durable request; the index only speeds up reads.
type RefundService struct {
	bills    BillStore
	refunds  RefundStore
	access   *bookingAccess
	policy   RefundPolicy
	index    PendingRefundIndex
	auditor  PaymentAuditor
	currency string
	logger   *logrus.Logger
	now      func() time.Time
}

// NewRefundService creates a new RefundService. A nil index disables the read-path cache.
func NewRefundService(
	bills BillStore,
	refunds RefundStore,
	bookings BookingStore,
	rooms RoomStore,
	schedules ScheduleStore,
	authz *Authorizer,
	policy RefundPolicy,
	index PendingRefundIndex,
	auditor PaymentAuditor,
	currency string,
	logger *logrus.Logger,
) *RefundService {
	return &RefundService{
		bills:    bills,
		refunds:  refunds,
		access:   &bookingAccess{bookings: bookings, rooms: rooms, schedules: schedules, authz: authz},
		policy:   policy,
		index:    index,
		auditor:  auditor,
		currency: currency,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateRefundRequest records a pending refund for a paid bill owned by the caller
func (s *RefundService) CreateRefundRequest(ctx context.Context, p models.Principal, billID uuid.UUID, reason string) (*models.CreateRefundResponse, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, models.NewValidationError("reason is required")
	}

	bill, booking, err := s.loadBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if err := s.access.authorize(ctx, ActionRequestRefund, booking, p); err != nil {
		return nil, err
	}
	if bill.Status != models.BillStatusPaid {
		return nil, models.NewStateError("only paid bills can be refunded")
	}

	existing, err := s.refunds.GetPendingByBill(ctx, bill.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("a refund request is already pending for this bill")
	}

	refund := &models.Refund{
		BillID:      bill.ID,
		UserID:      p.UserID,
		Description: reason,
	}
	// the partial unique index rejects a concurrent duplicate with ConflictError
	if err := s.refunds.Create(ctx, refund); err != nil {
		return nil, err
	}

	s.indexPut(ctx, refund)

	s.logger.WithFields(logrus.Fields{
		"bill_id":   bill.ID,
		"refund_id": refund.ID,
		"user_id":   p.UserID,
	}).Info("Refund requested")

	recordPaymentEvent(ctx, s.auditor, s.logger, &models.PaymentAudit{
		BillID:         bill.ID,
		RefundID:       models.UUIDPtr(refund.ID),
		ActorID:        models.UUIDPtr(p.UserID),
		EventType:      models.PaymentEventRefundRequested,
		EventSource:    models.PaymentSourceUser,
		ExpectedAmount: models.Float64Ptr(bill.TotalPrice),
		Currency:       s.currency,
	})

	return &models.CreateRefundResponse{RefundID: refund.ID, Status: refund.Status}, nil
}

// ApproveRefundRequest resolves the pending refund of a bill and marks the bill refunded.
// The amount comes from the configured RefundPolicy evaluated at the time the customer asked,
// so a slow approval never shrinks the refund.
func (s *RefundService) ApproveRefundRequest(ctx context.Context, p models.Principal, billID uuid.UUID) (*models.RefundDecisionResponse, error) {
	bill, booking, err := s.loadBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if err := s.access.authorize(ctx, ActionApproveRefund, booking, p); err != nil {
		return nil, err
	}

	refund, err := s.refunds.GetPendingByBill(ctx, bill.ID)
	if err != nil {
		return nil, err
	}
	if refund == nil {
		return nil, models.NewNotFoundError("no pending refund request for this bill")
	}
	if bill.Status != models.BillStatusPaid {
		return nil, models.NewStateError("bill is no longer refundable")
	}

	now := s.now()
	requestedAt := refund.CreatedAt
	if requestedAt.IsZero() {
		requestedAt = now
	}
	amount := s.policy.RefundAmount(bill, booking, requestedAt)
	if err := s.refunds.Approve(ctx, refund, p.UserID, amount, now); err != nil {
		return nil, err
	}

	s.indexRemove(ctx, bill.ID)

	s.logger.WithFields(logrus.Fields{
		"bill_id":      bill.ID,
		"refund_id":    refund.ID,
		"approver_id":  p.UserID,
		"refund_price": amount,
		"policy":       s.policy.Name(),
	}).Info("Refund approved")

	recordPaymentEvent(ctx, s.auditor, s.logger, &models.PaymentAudit{
		BillID:         bill.ID,
		RefundID:       models.UUIDPtr(refund.ID),
		ActorID:        models.UUIDPtr(p.UserID),
		EventType:      models.PaymentEventRefundApproved,
		EventSource:    models.PaymentSourceApprover,
		ExpectedAmount: models.Float64Ptr(bill.TotalPrice),
		ActualAmount:   models.Float64Ptr(amount),
		Currency:       s.currency,
	})

	return &models.RefundDecisionResponse{
		BillID:      bill.ID,
		BillStatus:  models.BillStatusRefunded,
		RefundPrice: models.Float64Ptr(amount),
		Message:     "Refund approved",
	}, nil
}

// RejectRefundRequest closes the pending refund of a bill without touching the bill.
// Returns false when nothing was pending.
func (s *RefundService) RejectRefundRequest(ctx context.Context, p models.Principal, billID uuid.UUID, reason *string) (bool, error) {
	bill, booking, err := s.loadBill(ctx, billID)
	if err != nil {
		return false, err
	}
	if err := s.access.authorize(ctx, ActionApproveRefund, booking, p); err != nil {
		return false, err
	}

	refund, err := s.refunds.GetPendingByBill(ctx, bill.ID)
	if err != nil {
		return false, err
	}
	if refund == nil {
		return false, nil
	}

	if reason != nil {
		trimmed := strings.TrimSpace(*reason)
		reason = &trimmed
		if trimmed == "" {
			reason = nil
		}
	}

	rejected, err := s.refunds.Reject(ctx, refund, p.UserID, reason, s.now())
	if err != nil {
		return false, err
	}
	if !rejected {
		return false, nil
	}

	s.indexRemove(ctx, bill.ID)

	s.logger.WithFields(logrus.Fields{
		"bill_id":     bill.ID,
		"refund_id":   refund.ID,
		"approver_id": p.UserID,
	}).Info("Refund rejected")

	recordPaymentEvent(ctx, s.auditor, s.logger, &models.PaymentAudit{
		BillID:       bill.ID,
		RefundID:     models.UUIDPtr(refund.ID),
		ActorID:      models.UUIDPtr(p.UserID),
		EventType:    models.PaymentEventRefundRejected,
		EventSource:  models.PaymentSourceApprover,
		Currency:     s.currency,
		ErrorMessage: reason,
	})

	return true, nil
}

// GetPendingRefund returns the pending refund of a bill, or nil when none is pending
func (s *RefundService) GetPendingRefund(ctx context.Context, p models.Principal, billID uuid.UUID) (*models.Refund, error) {
	_, booking, err := s.loadBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if err := s.access.authorize(ctx, ActionView, booking, p); err != nil {
		return nil, err
	}

	if s.index != nil {
		refund, hit, err := s.index.Get(ctx, billID)
		if err != nil {
			s.logger.WithError(err).WithField("bill_id", billID).Warn("Pending refund index lookup failed")
		} else if hit {
			return refund, nil
		}
	}

	refund, err := s.refunds.GetPendingByBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if refund != nil {
		s.indexPut(ctx, refund)
	}
	return refund, nil
}

// ListPendingRefunds returns the oldest pending refunds for supervisors and admins
func (s *RefundService) ListPendingRefunds(ctx context.Context, p models.Principal, limit int) ([]models.Refund, error) {
	if !p.HasRole(models.RoleSupervisor, models.RoleAdmin) {
		return nil, models.NewAuthorizationError("not allowed to list refund requests")
	}
	if limit <= 0 || limit > 500 {
		limit = defaultPendingRefundsLimit
	}
	return s.refunds.ListPending(ctx, limit)
}

func (s *RefundService) loadBill(ctx context.Context, billID uuid.UUID) (*models.Bill, *models.Booking, error) {
	bill, err := s.bills.GetByID(ctx, billID)
	if err != nil {
		return nil, nil, err
	}
	if bill == nil {
		return nil, nil, models.NewNotFoundError("bill not found")
	}
	booking, err := s.access.load(ctx, bill.BookingID, "")
	if err != nil {
		return nil, nil, err
	}
	return bill, booking, nil
}

func (s *RefundService) indexPut(ctx context.Context, refund *models.Refund) {
	if s.index == nil {
		return
	}
	if err := s.index.Put(ctx, refund); err != nil {
		s.logger.WithError(err).WithField("bill_id", refund.BillID).Warn("Failed to index pending refund")
	}
}

func (s *RefundService) indexRemove(ctx context.Context, billID uuid.UUID) {
	if s.index == nil {
		return
	}
	if err := s.index.Remove(ctx, billID); err != nil {
		s.logger.WithError(err).WithField("bill_id", billID).Warn("Failed to drop pending refund from index")
	}
}
