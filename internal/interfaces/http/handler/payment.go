package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	financeapp "github.com/orderflow/backend/internal/application/finance"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/orderflow/backend/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
)

// IdempotencyKeyHeader makes a retried payment request safe
const IdempotencyKeyHeader = "Idempotency-Key"

// PaymentCommands is the payment ledger used by PaymentHandler
type PaymentCommands interface {
	CollectPayment(ctx context.Context, cmd financeapp.CollectPaymentCommand) (*financeapp.CollectPaymentResult, error)
	GetPaymentHistory(ctx context.Context, tenantID, orderID uuid.UUID) (*financeapp.PaymentHistoryResponse, error)
}

// ReversalCommands is the reversal engine used by PaymentHandler
type ReversalCommands interface {
	ReversePayment(ctx context.Context, tenantID, paymentID uuid.UUID, reason string, actor shared.Actor) (*financeapp.ReversalEntry, error)
	FlagPayment(ctx context.Context, tenantID, paymentID uuid.UUID, reason string, actor shared.Actor) (*financeapp.ReversalLogResponse, error)
	CompleteReview(ctx context.Context, tenantID, logID uuid.UUID, resolution string, actor shared.Actor) (*financeapp.ReversalLogResponse, error)
	ListReversalLogs(ctx context.Context, tenantID, orderID uuid.UUID) ([]financeapp.ReversalLogResponse, error)
}

// PaymentHandler serves payment collection and reversal endpoints
type PaymentHandler struct {
	BaseHandler
	payments  PaymentCommands
	reversals ReversalCommands
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(payments PaymentCommands, reversals ReversalCommands) *PaymentHandler {
	return &PaymentHandler{payments: payments, reversals: reversals}
}

// CollectPaymentRequest is the body of a payment collection
type CollectPaymentRequest struct {
	Amount          decimal.Decimal `json:"amount" binding:"decimal_gt0"`
	PaymentTypeID   *uuid.UUID      `json:"payment_type_id"`
	ReferenceNumber string          `json:"reference_number" binding:"max=100"`
	Note            string          `json:"note" binding:"max=2000"`
}

// ReasonRequest carries the reason of a manual reversal, flag or review resolution
type ReasonRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// CollectPayment godoc
// @Summary      Collect a payment against an order
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        type path string true "Order type" Enums(sale, purchase)
// @Param        id path string true "Order ID" format(uuid)
// @Param        Idempotency-Key header string false "Retry-safe request key"
// @Param        request body CollectPaymentRequest true "Payment"
// @Success      201 {object} dto.Response{data=financeapp.CollectPaymentResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{type}/{id}/payments [post]
func (h *PaymentHandler) CollectPayment(c *gin.Context) {
	tenantID, actor, err := identity(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	_, orderID, err := orderPath(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	var req CollectPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.payments.CollectPayment(c.Request.Context(), financeapp.CollectPaymentCommand{
		TenantID:        tenantID,
		OrderID:         orderID,
		Amount:          req.Amount,
		PaymentTypeID:   req.PaymentTypeID,
		ReferenceNumber: req.ReferenceNumber,
		Note:            req.Note,
		IdempotencyKey:  c.GetHeader(IdempotencyKeyHeader),
		Actor:           actor,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// GetPaymentHistory godoc
// @Summary      List an order's payments
// @Tags         payments
// @Produce      json
// @Param        type path string true "Order type" Enums(sale, purchase)
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=financeapp.PaymentHistoryResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{type}/{id}/payments [get]
func (h *PaymentHandler) GetPaymentHistory(c *gin.Context) {
	tenantID, _, err := identity(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	_, orderID, err := orderPath(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	history, err := h.payments.GetPaymentHistory(c.Request.Context(), tenantID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, history)
}

// ReversePayment godoc
// @Summary      Reverse a single payment
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Param        request body ReasonRequest true "Reason"
// @Success      200 {object} dto.Response{data=financeapp.ReversalEntry}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payments/{id}/reverse [post]
func (h *PaymentHandler) ReversePayment(c *gin.Context) {
	h.withReason(c, "id", func(ctx context.Context, tenantID, id uuid.UUID, reason string, actor shared.Actor) (any, error) {
		return h.reversals.ReversePayment(ctx, tenantID, id, reason, actor)
	})
}

// FlagPayment godoc
// @Summary      Flag a payment for review
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Payment ID" format(uuid)
// @Param        request body ReasonRequest true "Reason"
// @Success      200 {object} dto.Response{data=financeapp.ReversalLogResponse}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /payments/{id}/flag [post]
func (h *PaymentHandler) FlagPayment(c *gin.Context) {
	h.withReason(c, "id", func(ctx context.Context, tenantID, id uuid.UUID, reason string, actor shared.Actor) (any, error) {
		return h.reversals.FlagPayment(ctx, tenantID, id, reason, actor)
	})
}

// CompleteReview godoc
// @Summary      Close a review requested by a failed reversal
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Reversal log ID" format(uuid)
// @Param        request body ReasonRequest true "Resolution"
// @Success      200 {object} dto.Response{data=financeapp.ReversalLogResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /reversal-logs/{id}/complete-review [post]
func (h *PaymentHandler) CompleteReview(c *gin.Context) {
	h.withReason(c, "id", func(ctx context.Context, tenantID, id uuid.UUID, resolution string, actor shared.Actor) (any, error) {
		return h.reversals.CompleteReview(ctx, tenantID, id, resolution, actor)
	})
}

// ListReversalLogs godoc
// @Summary      List an order's reversal audit log
// @Tags         payments
// @Produce      json
// @Param        type path string true "Order type" Enums(sale, purchase)
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]financeapp.ReversalLogResponse}
// @Security     BearerAuth
// @Router       /orders/{type}/{id}/reversal-logs [get]
func (h *PaymentHandler) ListReversalLogs(c *gin.Context) {
	tenantID, _, err := identity(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	_, orderID, err := orderPath(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	logs, err := h.reversals.ListReversalLogs(c.Request.Context(), tenantID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, logs, len(logs))
}

type reasonAction func(ctx context.Context, tenantID, id uuid.UUID, reason string, actor shared.Actor) (any, error)

func (h *PaymentHandler) withReason(c *gin.Context, param string, action reasonAction) {
	tenantID, actor, err := identity(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	id, err := pathUUID(c, param)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	var req ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := action(c.Request.Context(), tenantID, id, req.Reason, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
