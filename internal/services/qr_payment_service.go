package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/tripnest/booking-core/internal/models"
	"github.com/tripnest/booking-core/internal/utils"
)

// QRPaymentConfig holds QR payment settings
type QRPaymentConfig struct {
	CodeTTL  time.Duration
	HashKey  []byte
	Currency string
}

// QRPaymentService issues one-time payment codes for bills and settles them when scanned.
//
// Code lifecycle: pending → paid | expired | superseded. Settling is idempotent: the first scan
// wins and every later scan of the same code returns the paid state unchanged.
type QRPaymentService struct {
	codes   QRPaymentStore
	bills   BillStore
	access  *bookingAccess
	auditor PaymentAuditor
	config  QRPaymentConfig
	logger  *logrus.Logger
	now     func() time.Time
}

// NewQRPaymentService creates a new QRPaymentService
func NewQRPaymentService(
	codes QRPaymentStore,
	bills BillStore,
	bookings BookingStore,
	rooms RoomStore,
	schedules ScheduleStore,
	authz *Authorizer,
	auditor PaymentAuditor,
	config QRPaymentConfig,
	logger *logrus.Logger,
) *QRPaymentService {
	return &QRPaymentService{
		codes:   codes,
		bills:   bills,
		access:  &bookingAccess{bookings: bookings, rooms: rooms, schedules: schedules, authz: authz},
		auditor: auditor,
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
}

// CreateQRPayment issues a code bound to the bill's current total. Earlier pending codes of the
// bill are superseded. The plaintext code is returned once and never stored.
func (s *QRPaymentService) CreateQRPayment(ctx context.Context, p models.Principal, billID uuid.UUID) (*models.CreateQRPaymentResponse, error) {
	bill, err := s.bills.GetByID(ctx, billID)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, models.NewNotFoundError("bill not found")
	}
	booking, err := s.access.load(ctx, bill.BookingID, "")
	if err != nil {
		return nil, err
	}
	if err := s.access.authorize(ctx, ActionPay, booking, p); err != nil {
		return nil, err
	}
	if bill.Status != models.BillStatusPending {
		return nil, models.NewStateError(fmt.Sprintf("bill is %s and cannot be paid", bill.Status))
	}

	code, err := utils.GeneratePaymentCode()
	if err != nil {
		return nil, err
	}
	codeHash, err := utils.HashPaymentCode(s.config.HashKey, code)
	if err != nil {
		return nil, err
	}

	qr := &models.QRPayment{
		BillID:    bill.ID,
		CodeHash:  codeHash,
		Amount:    bill.TotalPrice,
		Status:    models.QRPaymentPending,
		ExpiresAt: s.now().Add(s.config.CodeTTL),
	}
	if err := s.codes.Create(ctx, qr); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"bill_id":    bill.ID,
		"qr_id":      qr.ID,
		"amount":     qr.Amount,
		"expires_at": qr.ExpiresAt,
	}).Info("QR payment issued")

	recordPaymentEvent(ctx, s.auditor, s.logger, &models.PaymentAudit{
		BillID:         bill.ID,
		QRPaymentID:    models.UUIDPtr(qr.ID),
		ActorID:        models.UUIDPtr(p.UserID),
		EventType:      models.PaymentEventQRIssued,
		EventSource:    models.PaymentSourceUser,
		ExpectedAmount: models.Float64Ptr(qr.Amount),
		Currency:       s.config.Currency,
	})

	return &models.CreateQRPaymentResponse{
		Code:      code,
		Amount:    qr.Amount,
		ExpiresAt: qr.ExpiresAt,
	}, nil
}

// ScanQRPayment settles the bill behind a scanned code.
//
//	unknown code            → NotFoundError
//	already paid            → current bill status, original paid_at (no writes)
//	expired or superseded   → StateError
//	pending                 → code, bill and booking move to paid/confirmed in one transaction
func (s *QRPaymentService) ScanQRPayment(ctx context.Context, code string) (*models.ScanQRPaymentResponse, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, models.NewValidationError("code is required")
	}

	codeHash, err := utils.HashPaymentCode(s.config.HashKey, code)
	if err != nil {
		return nil, err
	}
	qr, err := s.codes.GetByCodeHash(ctx, codeHash)
	if err != nil {
		return nil, err
	}
	if qr == nil {
		return nil, models.NewNotFoundError("payment code not found")
	}

	if qr.Status == models.QRPaymentPaid {
		return s.replay(ctx, qr)
	}
	// paid_at is stored at microsecond precision; replays must report the same instant
	now := s.now().UTC().Truncate(time.Microsecond)
	if err := s.checkScannable(qr, now); err != nil {
		s.recordRejectedScan(ctx, qr, err)
		return nil, err
	}

	settled, err := s.codes.ConfirmPayment(ctx, qr, now)
	if err != nil {
		s.recordRejectedScan(ctx, qr, err)
		return nil, err
	}
	if !settled {
		// lost the race: report whatever the winner left behind
		current, err := s.codes.GetByCodeHash(ctx, codeHash)
		if err != nil {
			return nil, err
		}
		if current != nil && current.Status == models.QRPaymentPaid {
			return s.replay(ctx, current)
		}
		if current == nil {
			current = qr
		}
		stateErr := s.checkScannable(current, now)
		if stateErr == nil {
			stateErr = models.NewStateError("payment code can no longer be used")
		}
		s.recordRejectedScan(ctx, current, stateErr)
		return nil, stateErr
	}

	s.logger.WithFields(logrus.Fields{
		"bill_id": qr.BillID,
		"qr_id":   qr.ID,
		"amount":  qr.Amount,
	}).Info("QR payment settled")

	recordPaymentEvent(ctx, s.auditor, s.logger, &models.PaymentAudit{
		BillID:         qr.BillID,
		QRPaymentID:    models.UUIDPtr(qr.ID),
		EventType:      models.PaymentEventSuccess,
		EventSource:    models.PaymentSourceScanner,
		ExpectedAmount: models.Float64Ptr(qr.Amount),
		ActualAmount:   models.Float64Ptr(qr.Amount),
		Currency:       s.config.Currency,
	})

	return &models.ScanQRPaymentResponse{
		BillID: qr.BillID,
		Status: models.BillStatusPaid,
		PaidAt: &now,
	}, nil
}

func (s *QRPaymentService) checkScannable(qr *models.QRPayment, now time.Time) error {
	switch {
	case qr.Status == models.QRPaymentSuperseded:
		return models.NewStateError("payment code was replaced by a newer one")
	case qr.Status == models.QRPaymentExpired || qr.IsExpiredAt(now):
		return models.NewStateError("payment code has expired")
	}
	return nil
}

// replay answers a scan of an already settled code without writing anything but the audit entry
func (s *QRPaymentService) replay(ctx context.Context, qr *models.QRPayment) (*models.ScanQRPaymentResponse, error) {
	bill, err := s.bills.GetByID(ctx, qr.BillID)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, models.NewNotFoundError("bill not found")
	}

	recordPaymentEvent(ctx, s.auditor, s.logger, &models.PaymentAudit{
		BillID:      qr.BillID,
		QRPaymentID: models.UUIDPtr(qr.ID),
		EventType:   models.PaymentEventQRReplay,
		EventSource: models.PaymentSourceScanner,
		Currency:    s.config.Currency,
		IsDuplicate: true,
	})

	paidAt := bill.PaidAt
	if paidAt == nil {
		paidAt = qr.PaidAt
	}
	return &models.ScanQRPaymentResponse{
		BillID: bill.ID,
		Status: bill.Status,
		PaidAt: paidAt,
	}, nil
}

func (s *QRPaymentService) recordRejectedScan(ctx context.Context, qr *models.QRPayment, cause error) {
	recordPaymentEvent(ctx, s.auditor, s.logger, &models.PaymentAudit{
		BillID:         qr.BillID,
		QRPaymentID:    models.UUIDPtr(qr.ID),
		EventType:      models.PaymentEventQRRejected,
		EventSource:    models.PaymentSourceScanner,
		ExpectedAmount: models.Float64Ptr(qr.Amount),
		Currency:       s.config.Currency,
		ErrorMessage:   models.StringPtr(cause.Error()),
	})
}

// GetPaymentStatus is a read-only projection of a bill's payment state and its latest code
func (s *QRPaymentService) GetPaymentStatus(ctx context.Context, p models.Principal, billID uuid.UUID) (*models.PaymentStatusResponse, error) {
	bill, err := s.bills.GetByID(ctx, billID)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, models.NewNotFoundError("bill not found")
	}
	booking, err := s.access.load(ctx, bill.BookingID, "")
	if err != nil {
		return nil, err
	}
	if err := s.access.authorize(ctx, ActionView, booking, p); err != nil {
		return nil, err
	}

	resp := &models.PaymentStatusResponse{
		BillID:     bill.ID,
		Status:     bill.Status,
		TotalPrice: bill.TotalPrice,
		PaidAt:     bill.PaidAt,
	}

	qr, err := s.codes.GetLatestByBill(ctx, bill.ID)
	if err != nil {
		return nil, err
	}
	if qr != nil {
		status := qr.Status
		if status == models.QRPaymentPending && qr.IsExpiredAt(s.now()) {
			status = models.QRPaymentExpired
		}
		resp.QRStatus = &status
		resp.QRExpiresAt = &qr.ExpiresAt
	}
	return resp, nil
}

// ExpireStaleCodes marks pending codes past their expiry as expired. Scans check expiry on their
// own, so this only keeps the table tidy.
func (s *QRPaymentService) ExpireStaleCodes(ctx context.Context) (int64, error) {
	return s.codes.ExpireStale(ctx, s.now())
}
