package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	inventoryapp "github.com/orderflow/backend/internal/application/inventory"
	"github.com/orderflow/backend/internal/interfaces/http/middleware"
)

// InventoryQueries is the inventory service used by InventoryHandler
type InventoryQueries interface {
	CreateItem(ctx context.Context, tenantID uuid.UUID, req inventoryapp.CreateItemRequest) (*inventoryapp.ItemResponse, error)
	GetItem(ctx context.Context, tenantID, id uuid.UUID) (*inventoryapp.ItemResponse, error)
	ListOrderMovements(ctx context.Context, tenantID, orderID uuid.UUID) ([]inventoryapp.MovementResponse, error)
}

// InventoryHandler serves stock items and the movements orders produce
type InventoryHandler struct {
	BaseHandler
	inventory InventoryQueries
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(inventory InventoryQueries) *InventoryHandler {
	return &InventoryHandler{inventory: inventory}
}

// CreateItem godoc
// @Summary      Register a stock item with its opening balance
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.CreateItemRequest true "Item"
// @Success      201 {object} dto.Response{data=inventoryapp.ItemResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /inventory/items [post]
func (h *InventoryHandler) CreateItem(c *gin.Context) {
	tenantID, _, err := identity(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	var req inventoryapp.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	item, err := h.inventory.CreateItem(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, item)
}

// GetItem godoc
// @Summary      Get a stock item
// @Tags         inventory
// @Produce      json
// @Param        id path string true "Item ID" format(uuid)
// @Success      200 {object} dto.Response{data=inventoryapp.ItemResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /inventory/items/{id} [get]
func (h *InventoryHandler) GetItem(c *gin.Context) {
	tenantID, _, err := identity(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return
	}

	item, err := h.inventory.GetItem(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, item)
}

// ListOrderMovements godoc
// @Summary      List the stock movements of an order
// @Tags         inventory
// @Produce      json
// @Param        type path string true "Order type" Enums(sale, purchase)
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response{data=[]inventoryapp.MovementResponse}
// @Security     BearerAuth
// @Router       /orders/{type}/{id}/inventory-movements [get]
func (h *InventoryHandler) ListOrderMovements(c *gin.Context) {
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

	movements, err := h.inventory.ListOrderMovements(c.Request.Context(), tenantID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, movements, len(movements))
}
