package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tripnest/booking-core/internal/models"
	"github.com/tripnest/booking-core/internal/services"
)

// RefundHandler handles refund request and decision endpoints
type RefundHandler struct {
	refunds *services.RefundService
	audit   auditRecorder
	logger  *logrus.Logger
}

// NewRefundHandler creates a new RefundHandler
func NewRefundHandler(refunds *services.RefundService, auditService *services.AuditService, logger *logrus.Logger) *RefundHandler {
	return &RefundHandler{
		refunds: refunds,
		audit:   newAuditRecorder(auditService, logger),
		logger:  logger,
	}
}

// CreateRefund opens a refund request on a paid bill
// @Summary Request refund
// @Tags Refunds
// @Accept json
// @Produce json
// @Param request body models.CreateRefundRequest true "Bill and reason"
// @Success 201 {object} models.CreateRefundResponse
// @Router /refunds [post]
func (h *RefundHandler) CreateRefund(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req models.CreateRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	response, err := h.refunds.CreateRefundRequest(c.Request.Context(), principal, req.BillID, req.Reason)
	if err != nil {
		h.audit.deniedIfForbidden(c, principal, "bill", &req.BillID, "request_refund", err)
		respondError(c, h.logger, "CreateRefund", err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// ApproveRefund approves the pending refund of a bill
// @Summary Approve refund
// @Tags Refunds
// @Produce json
// @Param bill_id path string true "Bill ID"
// @Success 200 {object} models.RefundDecisionResponse
// @Router /refunds/{bill_id}/approve [put]
func (h *RefundHandler) ApproveRefund(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	billID, ok := uuidParam(c, "bill_id")
	if !ok {
		return
	}

	response, err := h.refunds.ApproveRefundRequest(c.Request.Context(), principal, billID)
	if err != nil {
		h.audit.deniedIfForbidden(c, principal, "bill", &billID, "approve_refund", err)
		respondError(c, h.logger, "ApproveRefund", err)
		return
	}

	h.audit.refundDecision(c, principal, billID, true)
	c.JSON(http.StatusOK, response)
}

// RejectRefund rejects the pending refund of a bill; ?reason= is optional
// @Summary Reject refund
// @Tags Refunds
// @Produce json
// @Param bill_id path string true "Bill ID"
// @Param reason query string false "Rejection reason"
// @Router /refunds/{bill_id}/reject [put]
func (h *RefundHandler) RejectRefund(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	billID, ok := uuidParam(c, "bill_id")
	if !ok {
		return
	}

	var reason *string
	if r, exists := c.GetQuery("reason"); exists {
		reason = &r
	}

	rejected, err := h.refunds.RejectRefundRequest(c.Request.Context(), principal, billID, reason)
	if err != nil {
		h.audit.deniedIfForbidden(c, principal, "bill", &billID, "reject_refund", err)
		respondError(c, h.logger, "RejectRefund", err)
		return
	}
	if !rejected {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   string(models.ErrorKindNotFound),
			"message": "no pending refund for this bill",
		})
		return
	}

	h.audit.refundDecision(c, principal, billID, false)
	c.JSON(http.StatusOK, gin.H{
		"bill_id":  billID,
		"rejected": true,
		"message":  "Refund rejected",
	})
}

// GetPendingRefund returns the open refund request of a bill
func (h *RefundHandler) GetPendingRefund(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	billID, ok := uuidParam(c, "bill_id")
	if !ok {
		return
	}

	refund, err := h.refunds.GetPendingRefund(c.Request.Context(), principal, billID)
	if err != nil {
		h.audit.deniedIfForbidden(c, principal, "bill", &billID, "view_refund", err)
		respondError(c, h.logger, "GetPendingRefund", err)
		return
	}
	if refund == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   string(models.ErrorKindNotFound),
			"message": "no pending refund for this bill",
		})
		return
	}

	c.JSON(http.StatusOK, refund)
}

// ListPendingRefunds lists the refund queue for supervisors and admins; ?limit= caps the page
func (h *RefundHandler) ListPendingRefunds(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	refunds, err := h.refunds.ListPendingRefunds(c.Request.Context(), principal, limit)
	if err != nil {
		h.audit.deniedIfForbidden(c, principal, "refund", nil, "list_pending_refunds", err)
		respondError(c, h.logger, "ListPendingRefunds", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"refunds": refunds,
		"count":   len(refunds),
	})
}
