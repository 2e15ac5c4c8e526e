package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tripnest/booking-core/internal/models"
)

// BillingConfig holds pricing settings
type BillingConfig struct {
	DepositRate float64 // share of the total collected as deposit
	Currency    string
}

// BillingService applies vouchers to bills and exposes bill reads
type BillingService struct {
	bills    BillStore
	vouchers VoucherStore
	access   *bookingAccess
	auditor  PaymentAuditor
	config   BillingConfig
	logger   *logrus.Logger
	now      func() time.Time
}

// NewBillingService creates a new BillingService
func NewBillingService(
	bills BillStore,
	vouchers VoucherStore,
	bookings BookingStore,
	rooms RoomStore,
	schedules ScheduleStore,
	authz *Authorizer,
	auditor PaymentAuditor,
	config BillingConfig,
	logger *logrus.Logger,
) *BillingService {
	return &BillingService{
		bills:    bills,
		vouchers: vouchers,
		access:   &bookingAccess{bookings: bookings, rooms: rooms, schedules: schedules, authz: authz},
		auditor:  auditor,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// Deposit returns the deposit collected for a bill total
func (s *BillingService) Deposit(total float64) float64 {
	return models.RoundMoney(total * s.config.DepositRate)
}

// GetBill returns a bill with its line items to the booking owner or its managers
func (s *BillingService) GetBill(ctx context.Context, p models.Principal, billID uuid.UUID) (*models.Bill, error) {
	bill, booking, err := s.loadBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if err := s.access.authorize(ctx, ActionView, booking, p); err != nil {
		return nil, err
	}

	details, err := s.bills.GetDetails(ctx, bill.ID)
	if err != nil {
		return nil, err
	}
	bill.Details = details
	return bill, nil
}

// ApplyVoucherToBill discounts a pending bill owned by userID. The discount is always taken
// from the original price, so apply then remove returns the bill to its original total.
func (s *BillingService) ApplyVoucherToBill(ctx context.Context, billID, voucherID, userID uuid.UUID) (*models.VoucherResultResponse, error) {
	bill, err := s.ownedPendingBill(ctx, billID, userID)
	if err != nil {
		return nil, err
	}
	if bill.VoucherID != nil {
		return nil, models.NewConflictError("a voucher is already applied to this bill")
	}

	voucher, err := s.vouchers.GetByID(ctx, voucherID)
	if err != nil {
		return nil, err
	}
	// a voucher id is request input, so an unknown one is rejected like an inactive one
	if voucher == nil {
		return nil, models.NewValidationError("voucher not found")
	}

	now := s.now()
	if !voucher.IsActiveAt(now) {
		return nil, models.NewValidationError("voucher is not active")
	}

	newTotal := voucher.Discounted(bill.OriginalPrice)
	applied, err := s.bills.ApplyVoucher(ctx, bill.ID, voucher.ID, userID, newTotal, now)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, models.NewConflictError("a voucher is already applied to this bill")
	}

	s.logger.WithFields(logrus.Fields{
		"bill_id":    bill.ID,
		"voucher_id": voucher.ID,
		"old_total":  bill.TotalPrice,
		"new_total":  newTotal,
	}).Info("Voucher applied")

	recordPaymentEvent(ctx, s.auditor, s.logger, &models.PaymentAudit{
		BillID:         bill.ID,
		ActorID:        models.UUIDPtr(userID),
		EventType:      models.PaymentEventVoucherApplied,
		EventSource:    models.PaymentSourceUser,
		ExpectedAmount: models.Float64Ptr(bill.OriginalPrice),
		ActualAmount:   models.Float64Ptr(newTotal),
		Currency:       s.config.Currency,
	})

	return &models.VoucherResultResponse{BillID: bill.ID, NewTotal: newTotal}, nil
}

// RemoveVoucherFromBill restores the original price of a pending bill owned by userID
func (s *BillingService) RemoveVoucherFromBill(ctx context.Context, billID, userID uuid.UUID) (*models.VoucherResultResponse, error) {
	bill, err := s.ownedPendingBill(ctx, billID, userID)
	if err != nil {
		return nil, err
	}
	if bill.VoucherID == nil {
		return nil, models.NewValidationError("no voucher is applied to this bill")
	}

	restored, removed, err := s.bills.RemoveVoucher(ctx, bill.ID, s.now())
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, models.NewValidationError("no voucher is applied to this bill")
	}

	s.logger.WithFields(logrus.Fields{
		"bill_id":   bill.ID,
		"new_total": restored,
	}).Info("Voucher removed")

	recordPaymentEvent(ctx, s.auditor, s.logger, &models.PaymentAudit{
		BillID:       bill.ID,
		ActorID:      models.UUIDPtr(userID),
		EventType:    models.PaymentEventVoucherRemoved,
		EventSource:  models.PaymentSourceUser,
		ActualAmount: models.Float64Ptr(restored),
		Currency:     s.config.Currency,
	})

	return &models.VoucherResultResponse{BillID: bill.ID, NewTotal: restored}, nil
}

func (s *BillingService) loadBill(ctx context.Context, billID uuid.UUID) (*models.Bill, *models.Booking, error) {
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

func (s *BillingService) ownedPendingBill(ctx context.Context, billID, userID uuid.UUID) (*models.Bill, error) {
	bill, booking, err := s.loadBill(ctx, billID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, models.NewAuthorizationError("bill belongs to another user")
	}
	if bill.Status != models.BillStatusPending {
		return nil, models.NewStateError("vouchers can only be changed on unpaid bills")
	}
	return bill, nil
}

// recordPaymentEvent writes a payment audit entry. The business change is already committed,
// so a failure is logged and not returned.
func recordPaymentEvent(ctx context.Context, auditor PaymentAuditor, logger *logrus.Logger, audit *models.PaymentAudit) {
	if auditor == nil {
		return
	}
	if err := auditor.Log(ctx, audit); err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"bill_id":    audit.BillID,
			"event_type": audit.EventType,
		}).Error("Failed to record payment event")
	}
}
