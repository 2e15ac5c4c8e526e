package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tripnest/booking-core/internal/models"
	"github.com/tripnest/booking-core/internal/services"
)

// BillHandler handles bill, voucher and QR payment endpoints
type BillHandler struct {
	billing  *services.BillingService
	payments *services.QRPaymentService
	audit    auditRecorder
	logger   *logrus.Logger
}

// NewBillHandler creates a new BillHandler
func NewBillHandler(
	billing *services.BillingService,
	payments *services.QRPaymentService,
	auditService *services.AuditService,
	logger *logrus.Logger,
) *BillHandler {
	return &BillHandler{
		billing:  billing,
		payments: payments,
		audit:    newAuditRecorder(auditService, logger),
		logger:   logger,
	}
}

// GetBill returns a bill with its line items
// @Summary Get bill
// @Tags Bills
// @Produce json
// @Param id path string true "Bill ID"
// @Success 200 {object} models.Bill
// @Router /bills/{id} [get]
func (h *BillHandler) GetBill(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	billID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	bill, err := h.billing.GetBill(c.Request.Context(), principal, billID)
	if err != nil {
		h.audit.deniedIfForbidden(c, principal, "bill", &billID, "view_bill", err)
		respondError(c, h.logger, "GetBill", err)
		return
	}

	c.JSON(http.StatusOK, bill)
}

// ApplyVoucher recomputes a pending bill with a voucher discount
// @Summary Apply voucher
// @Tags Bills
// @Accept json
// @Produce json
// @Param request body models.ApplyVoucherRequest true "Bill and voucher"
// @Success 200 {object} models.VoucherResultResponse
// @Router /bills/apply-voucher [put]
func (h *BillHandler) ApplyVoucher(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req models.ApplyVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	response, err := h.billing.ApplyVoucherToBill(c.Request.Context(), req.BillID, req.VoucherID, principal.UserID)
	if err != nil {
		h.audit.deniedIfForbidden(c, principal, "bill", &req.BillID, "apply_voucher", err)
		respondError(c, h.logger, "ApplyVoucher", err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// RemoveVoucher restores the original total of a pending bill
// @Summary Remove voucher
// @Tags Bills
// @Produce json
// @Param id path string true "Bill ID"
// @Success 200 {object} models.VoucherResultResponse
// @Router /bills/{id}/remove-voucher [delete]
func (h *BillHandler) RemoveVoucher(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	billID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	response, err := h.billing.RemoveVoucherFromBill(c.Request.Context(), billID, principal.UserID)
	if err != nil {
		h.audit.deniedIfForbidden(c, principal, "bill", &billID, "remove_voucher", err)
		respondError(c, h.logger, "RemoveVoucher", err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ============================================================================
// QR PAYMENT - /api/v1/bills/qr/...
// ============================================================================

// CreateQRPayment issues a one-time payment code for a pending bill
// @Summary Create QR payment code
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body models.CreateQRPaymentRequest true "Bill"
// @Success 200 {object} models.CreateQRPaymentResponse
// @Router /bills/qr/create [post]
func (h *BillHandler) CreateQRPayment(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req models.CreateQRPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	response, err := h.payments.CreateQRPayment(c.Request.Context(), principal, req.BillID)
	if err != nil {
		h.audit.deniedIfForbidden(c, principal, "bill", &req.BillID, "create_qr_payment", err)
		respondError(c, h.logger, "CreateQRPayment", err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// ScanQRPayment settles the bill behind a code. Scanning is unauthenticated
// and idempotent: scanning a paid code again returns the same result.
// @Summary Scan QR payment code
// @Tags Payments
// @Produce json
// @Param code query string true "Payment code"
// @Success 200 {object} models.ScanQRPaymentResponse
// @Failure 429 {object} map[string]interface{} "Rate limited"
// @Router /bills/qr/scan [get]
func (h *BillHandler) ScanQRPayment(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		badRequest(c, "code is required")
		return
	}

	response, err := h.payments.ScanQRPayment(c.Request.Context(), code)
	if err != nil {
		respondError(c, h.logger, "ScanQRPayment", err)
		return
	}

	h.audit.qrScan(c, response.BillID, true, "")
	c.JSON(http.StatusOK, response)
}

// GetPaymentStatus reports whether a bill is paid and the state of its latest code
// @Summary Get payment status
// @Tags Payments
// @Produce json
// @Param bill_id path string true "Bill ID"
// @Success 200 {object} models.PaymentStatusResponse
// @Router /bills/qr/status/{bill_id} [get]
func (h *BillHandler) GetPaymentStatus(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	billID, ok := uuidParam(c, "bill_id")
	if !ok {
		return
	}

	response, err := h.payments.GetPaymentStatus(c.Request.Context(), principal, billID)
	if err != nil {
		h.audit.deniedIfForbidden(c, principal, "bill", &billID, "payment_status", err)
		respondError(c, h.logger, "GetPaymentStatus", err)
		return
	}

	c.JSON(http.StatusOK, response)
}
