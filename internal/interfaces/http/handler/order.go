package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	tradeapp "github.com/orderflow/backend/internal/application/trade"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/orderflow/backend/internal/domain/trade"
	"github.com/orderflow/backend/internal/interfaces/http/dto"
	"github.com/orderflow/backend/internal/interfaces/http/middleware"
)

// Form fields of a status transition request
const (
	FieldStatus         = "status"
	FieldNotes          = "notes"
	FieldSignature      = "signature"
	FieldLatitude       = "latitude"
	FieldLongitude      = "longitude"
	FieldRestoreStock   = "restore_stock"
	FieldDamagedItemIDs = "damaged_item_ids[]"
	FieldProofImage     = "proof_image"
)

var acceptedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
}

// OrderCommands is the order service used by OrderHandler
type OrderCommands interface {
	CreateOrder(ctx context.Context, tenantID uuid.UUID, orderType trade.OrderType, req tradeapp.CreateOrderRequest, actor shared.Actor) (*tradeapp.OrderResponse, error)
	GetOrder(ctx context.Context, tenantID uuid.UUID, orderType trade.OrderType, orderID uuid.UUID) (*tradeapp.OrderResponse, error)
}

// StatusCommands is the status service used by OrderHandler
type StatusCommands interface {
	RequestTransition(ctx context.Context, cmd tradeapp.TransitionCommand) (*tradeapp.TransitionResult, error)
	GetStatusHistory(ctx context.Context, tenantID uuid.UUID, orderType trade.OrderType, orderID uuid.UUID) ([]tradeapp.StatusHistoryResponse, error)
}

// OrderHandler serves the sale and purchase order lifecycle endpoints
type OrderHandler struct {
	BaseHandler
	orders       OrderCommands
	statuses     StatusCommands
	maxProofSize int64
}

// NewOrderHandler creates a new OrderHandler. maxProofSize caps a single
// proof image or signature.
func NewOrderHandler(orders OrderCommands, statuses StatusCommands, maxProofSize int64) *OrderHandler {
	if maxProofSize <= 0 {
		maxProofSize = 5 << 20
	}
	return &OrderHandler{orders: orders, statuses: statuses, maxProofSize: maxProofSize}
}

// TransitionStatusRequest is the JSON form of a status transition.
// ProofImage and Signature are data URLs (data:image/png;base64,...) or bare base64.
type TransitionStatusRequest struct {
	Status         string      `json:"status" binding:"required"`
	Notes          string      `json:"notes" binding:"max=2000"`
	ProofImage     string      `json:"proof_image"`
	Signature      string      `json:"signature"`
	Latitude       *float64    `json:"latitude"`
	Longitude      *float64    `json:"longitude"`
	RestoreStock   bool        `json:"restore_stock"`
	DamagedItemIDs []uuid.UUID `json:"damaged_item_ids"`
}

// CreateOrder godoc
// @Summary      Create an order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        type path string true "Order type" Enums(sale, purchase)
// @Param        request body tradeapp.CreateOrderRequest true "Order"
// @Success      201 {object} dto.Response{data=tradeapp.OrderResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{type} [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	tenantID, actor, err := identity(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	orderType, err := pathOrderType(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var req tradeapp.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), tenantID, orderType, req, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// GetOrder godoc
// @Summary      Get an order
// @Tags         orders
// @Produce      json
// @Param        type path string true "Order type" Enums(sale, purchase)
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=tradeapp.OrderResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{type}/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	tenantID, _, err := identity(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	orderType, orderID, err := orderPath(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), tenantID, orderType, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// RequestStatusTransition godoc
// @Summary      Move an order to a new status
// @Description  Accepts multipart/form-data (with an optional proof_image file) or JSON.
// @Description  A post-delivery cancel or return reverses the order's payments; when some
// @Description  of them fail the transition still commits and warning_code is set.
// @Tags         orders
// @Accept       multipart/form-data,json
// @Produce      json
// @Param        type path string true "Order type" Enums(sale, purchase)
// @Param        id path string true "Order ID" format(uuid)
// @Param        status formData string true "Target status"
// @Param        proof_image formData file false "Proof of delivery image"
// @Success      200 {object} dto.Response{data=tradeapp.TransitionResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      413 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{type}/{id}/status [post]
func (h *OrderHandler) RequestStatusTransition(c *gin.Context) {
	tenantID, actor, err := identity(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	orderType, orderID, err := orderPath(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	cmd := tradeapp.TransitionCommand{
		TenantID:  tenantID,
		OrderID:   orderID,
		OrderType: orderType,
		Actor:     actor,
	}
	if c.ContentType() == binding.MIMEJSON {
		err = h.bindTransitionJSON(c, &cmd)
	} else {
		err = h.bindTransitionForm(c, &cmd)
	}
	if err != nil {
		var tooLarge proofTooLargeError
		if errors.As(err, &tooLarge) {
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, tooLarge.Error())
			return
		}
		h.HandleError(c, err)
		return
	}

	result, err := h.statuses.RequestTransition(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// GetStatusHistory godoc
// @Summary      List an order's status history
// @Tags         orders
// @Produce      json
// @Param        type path string true "Order type" Enums(sale, purchase)
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]tradeapp.StatusHistoryResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /orders/{type}/{id}/status-history [get]
func (h *OrderHandler) GetStatusHistory(c *gin.Context) {
	tenantID, _, err := identity(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	orderType, orderID, err := orderPath(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	history, err := h.statuses.GetStatusHistory(c.Request.Context(), tenantID, orderType, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, history, len(history))
}

type proofTooLargeError struct {
	field string
	limit int64
}

func (e proofTooLargeError) Error() string {
	return fmt.Sprintf("%s exceeds the %d byte limit", e.field, e.limit)
}

func invalidField(field, message string) error {
	return shared.NewValidationError(shared.CodeInvalidInput, field+": "+message)
}

func (h *OrderHandler) bindTransitionJSON(c *gin.Context, cmd *tradeapp.TransitionCommand) error {
	var req TransitionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return invalidField("body", err.Error())
	}
	cmd.ToStatus = trade.OrderStatus(strings.TrimSpace(req.Status))
	cmd.Evidence.Notes = req.Notes
	cmd.Evidence.Latitude = req.Latitude
	cmd.Evidence.Longitude = req.Longitude
	cmd.RestoreStock = req.RestoreStock
	cmd.DamagedItemIDs = req.DamagedItemIDs

	var err error
	if req.ProofImage != "" {
		if cmd.Evidence.ProofImage, cmd.Evidence.ProofContentType, err = h.decodeDataURL(FieldProofImage, req.ProofImage); err != nil {
			return err
		}
	}
	if req.Signature != "" {
		if cmd.Evidence.Signature, cmd.Evidence.SignatureContentType, err = h.decodeDataURL(FieldSignature, req.Signature); err != nil {
			return err
		}
	}
	return nil
}

func (h *OrderHandler) bindTransitionForm(c *gin.Context, cmd *tradeapp.TransitionCommand) error {
	status := strings.TrimSpace(c.PostForm(FieldStatus))
	if status == "" {
		return invalidField(FieldStatus, "is required")
	}
	cmd.ToStatus = trade.OrderStatus(status)
	cmd.Evidence.Notes = c.PostForm(FieldNotes)

	var err error
	if cmd.Evidence.Latitude, err = formFloat(c, FieldLatitude); err != nil {
		return err
	}
	if cmd.Evidence.Longitude, err = formFloat(c, FieldLongitude); err != nil {
		return err
	}
	if raw := c.PostForm(FieldRestoreStock); raw != "" {
		if cmd.RestoreStock, err = strconv.ParseBool(raw); err != nil {
			return invalidField(FieldRestoreStock, "must be true or false")
		}
	}
	ids := c.PostFormArray(FieldDamagedItemIDs)
	ids = append(ids, c.PostFormArray(strings.TrimSuffix(FieldDamagedItemIDs, "[]"))...)
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return invalidField(FieldDamagedItemIDs, "invalid UUID "+raw)
		}
		cmd.DamagedItemIDs = append(cmd.DamagedItemIDs, id)
	}

	if header, err := c.FormFile(FieldProofImage); err == nil {
		data, contentType, err := h.readImage(FieldProofImage, header)
		if err != nil {
			return err
		}
		cmd.Evidence.ProofImage, cmd.Evidence.ProofContentType = data, contentType
	} else if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		return invalidField(FieldProofImage, err.Error())
	}

	if header, err := c.FormFile(FieldSignature); err == nil {
		data, contentType, err := h.readImage(FieldSignature, header)
		if err != nil {
			return err
		}
		cmd.Evidence.Signature, cmd.Evidence.SignatureContentType = data, contentType
	} else if raw := c.PostForm(FieldSignature); raw != "" {
		data, contentType, err := h.decodeDataURL(FieldSignature, raw)
		if err != nil {
			return err
		}
		cmd.Evidence.Signature, cmd.Evidence.SignatureContentType = data, contentType
	}
	return nil
}

func formFloat(c *gin.Context, field string) (*float64, error) {
	raw := strings.TrimSpace(c.PostForm(field))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, invalidField(field, "must be a number")
	}
	return &v, nil
}

func (h *OrderHandler) readImage(field string, header *multipart.FileHeader) ([]byte, string, error) {
	if header.Size > h.maxProofSize {
		return nil, "", proofTooLargeError{field: field, limit: h.maxProofSize}
	}
	f, err := header.Open()
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", field, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.maxProofSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", field, err)
	}
	if int64(len(data)) > h.maxProofSize {
		return nil, "", proofTooLargeError{field: field, limit: h.maxProofSize}
	}
	contentType := http.DetectContentType(data)
	if !acceptedImageTypes[contentType] {
		return nil, "", invalidField(field, "must be a PNG, JPEG or WebP image")
	}
	return data, contentType, nil
}

// decodeDataURL accepts data:image/png;base64,... or bare base64
func (h *OrderHandler) decodeDataURL(field, raw string) ([]byte, string, error) {
	payload := raw
	if strings.HasPrefix(raw, "data:") {
		comma := strings.IndexByte(raw, ',')
		if comma < 0 || !strings.HasSuffix(raw[:comma], ";base64") {
			return nil, "", invalidField(field, "malformed data URL")
		}
		payload = raw[comma+1:]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", invalidField(field, "invalid base64 payload")
	}
	if int64(len(data)) > h.maxProofSize {
		return nil, "", proofTooLargeError{field: field, limit: h.maxProofSize}
	}
	contentType := http.DetectContentType(data)
	if !acceptedImageTypes[contentType] {
		return nil, "", invalidField(field, "must be a PNG, JPEG or WebP image")
	}
	return data, contentType, nil
}
