package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/orderflow/backend/internal/domain/trade"
	"github.com/orderflow/backend/internal/infrastructure/logger"
	"github.com/orderflow/backend/internal/interfaces/http/dto"
	"github.com/orderflow/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// errNoIdentity is returned when a handler runs without the JWT middleware
var errNoIdentity = errors.New("request carries no authenticated tenant or actor")

// BaseHandler provides common handler utilities
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	if id := c.GetString(logger.RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(logger.RequestIDHeader)
}

// identity returns the authenticated tenant and actor
func identity(c *gin.Context) (uuid.UUID, shared.Actor, error) {
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		return uuid.Nil, shared.Actor{}, errNoIdentity
	}
	actor, ok := middleware.GetActor(c)
	if !ok {
		return uuid.Nil, shared.Actor{}, errNoIdentity
	}
	return tenantID, actor, nil
}

// pathUUID parses the named path parameter as a UUID
func pathUUID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, shared.NewValidationError(shared.CodeInvalidInput,
			fmt.Sprintf("Invalid %s format", name))
	}
	return id, nil
}

// pathOrderType parses the :type path parameter
func pathOrderType(c *gin.Context) (trade.OrderType, error) {
	orderType := trade.OrderType(c.Param("type"))
	if !orderType.IsValid() {
		return "", shared.NewValidationError("INVALID_ORDER_TYPE",
			fmt.Sprintf("Unknown order type %q, expected sale or purchase", c.Param("type")))
	}
	return orderType, nil
}

// orderPath parses the :type and :id parameters of an order route
func orderPath(c *gin.Context) (trade.OrderType, uuid.UUID, error) {
	orderType, err := pathOrderType(c)
	if err != nil {
		return "", uuid.Nil, err
	}
	orderID, err := pathUUID(c, "id")
	if err != nil {
		return "", uuid.Nil, err
	}
	return orderType, orderID, nil
}

func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a list response with its total
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, int64(total)))
}

func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error writes the error envelope with the request id
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// HandleError answers with the status derived from the error's kind. Errors
// that are not domain errors are logged and answered as internal errors
// without leaking their text.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, errNoIdentity) {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
		return
	}
	_ = c.Error(err)

	status, code := dto.StatusForError(err)
	if status == http.StatusInternalServerError {
		logger.RequestLogger(c).Error("request failed", zap.Error(err))
		h.Error(c, status, code, "An unexpected error occurred")
		return
	}

	domainErr, _ := shared.AsDomainError(err)
	resp := dto.NewErrorResponseWithRequestID(code, domainErr.Message, getRequestID(c))
	resp.Error.Retryable = domainErr.Retryable()
	c.JSON(status, resp)
}
