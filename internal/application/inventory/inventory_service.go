package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/inventory"
	"go.uber.org/zap"
)

// InventoryService registers stock items and reports stock movements.
// Stock itself only changes through the MovementApplier.
type InventoryService struct {
	scope  TransactionScope
	logger *zap.Logger
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(scope TransactionScope, logger *zap.Logger) *InventoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryService{scope: scope, logger: logger}
}

// CreateItem registers a stock item with its opening balance
func (s *InventoryService) CreateItem(ctx context.Context, tenantID uuid.UUID, req CreateItemRequest) (*ItemResponse, error) {
	item, err := inventory.NewItem(tenantID, req.SKU, req.Name, req.OpeningStock)
	if err != nil {
		return nil, err
	}
	err = s.scope.Execute(ctx, func(store Store) error {
		return store.Items().Save(ctx, item)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("inventory item created",
		zap.String("item_id", item.ID.String()),
		zap.String("sku", item.SKU),
		zap.String("opening_stock", item.CurrentStock.String()),
	)
	resp := ToItemResponse(item)
	return &resp, nil
}

// GetItem returns a stock item
func (s *InventoryService) GetItem(ctx context.Context, tenantID, id uuid.UUID) (*ItemResponse, error) {
	var item *inventory.Item
	err := s.scope.Execute(ctx, func(store Store) error {
		var err error
		item, err = store.Items().FindByID(ctx, tenantID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToItemResponse(item)
	return &resp, nil
}

// ListOrderMovements returns the stock movements of an order, oldest first
func (s *InventoryService) ListOrderMovements(ctx context.Context, tenantID, orderID uuid.UUID) ([]MovementResponse, error) {
	var movements []inventory.Movement
	err := s.scope.Execute(ctx, func(store Store) error {
		var err error
		movements, err = store.Movements().FindByOrder(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	responses := make([]MovementResponse, 0, len(movements))
	for i := range movements {
		if movements[i].TenantID != tenantID {
			continue
		}
		responses = append(responses, ToMovementResponse(&movements[i]))
	}
	return responses, nil
}
