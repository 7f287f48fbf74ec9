package inventory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/inventory"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/orderflow/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MovementApplier moves stock for an order exactly once, and undoes it once
// when explicitly asked after a post-delivery cancel or return
type MovementApplier struct {
	logger *zap.Logger
}

// NewMovementApplier creates a new MovementApplier
func NewMovementApplier(logger *zap.Logger) *MovementApplier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MovementApplier{logger: logger}
}

// line is the total quantity of one item on an order
type line struct {
	itemID   uuid.UUID
	quantity decimal.Decimal
}

// Apply deducts (sale) or adds (purchase) the order's quantities.
// An order whose inventory is already applied is left untouched and Apply
// returns its current inventory status. On success the order is marked applied;
// the caller persists it.
func (a *MovementApplier) Apply(ctx context.Context, store Store, order *trade.Order, actor shared.Actor) (trade.InventoryStatus, error) {
	if order.IsInventoryApplied() {
		a.logger.Debug("inventory already applied, skipping",
			zap.String("order_id", order.ID.String()),
			zap.String("inventory_status", string(order.InventoryStatus)),
		)
		return order.InventoryStatus, nil
	}

	direction := order.Lifecycle().Direction
	lines := aggregateLines(order.Items, nil)
	if err := a.move(ctx, store, order, lines, direction, inventory.ReasonOrderApplied, actor); err != nil {
		return order.InventoryStatus, err
	}

	order.MarkInventoryApplied(time.Now())
	a.logger.Info("inventory applied",
		zap.String("order_id", order.ID.String()),
		zap.String("direction", direction.String()),
		zap.Int("lines", len(lines)),
	)
	return order.InventoryStatus, nil
}

// Restore moves the applied quantities back, skipping lines whose items are
// reported damaged. It is only allowed once, after a post-delivery action.
func (a *MovementApplier) Restore(ctx context.Context, store Store, order *trade.Order, damagedItemIDs []uuid.UUID, actor shared.Actor) error {
	now := time.Now()
	// Validate against a copy so a rejected restore leaves the order untouched
	trial := *order
	if err := trial.MarkInventoryRestored(now); err != nil {
		return err
	}

	order.MarkDamaged(damagedItemIDs)
	skip := make(map[uuid.UUID]bool, len(damagedItemIDs))
	for _, id := range damagedItemIDs {
		skip[id] = true
	}

	direction := order.Lifecycle().Direction.Opposite()
	lines := aggregateLines(order.Items, skip)
	if err := a.move(ctx, store, order, lines, direction, inventory.ReasonOrderRestored, actor); err != nil {
		return err
	}

	if err := order.MarkInventoryRestored(now); err != nil {
		return err
	}
	a.logger.Info("inventory restored",
		zap.String("order_id", order.ID.String()),
		zap.String("direction", direction.String()),
		zap.Int("lines", len(lines)),
		zap.Int("damaged_items", len(damagedItemIDs)),
	)
	return nil
}

// move locks the items, checks every line and only then writes stock and movements
func (a *MovementApplier) move(ctx context.Context, store Store, order *trade.Order, lines []line, direction inventory.Direction, reason inventory.MovementReason, actor shared.Actor) error {
	if len(lines) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(lines))
	for i, l := range lines {
		ids[i] = l.itemID
	}
	items, err := store.Items().FindByIDsForUpdate(ctx, order.TenantID, ids)
	if err != nil {
		return fmt.Errorf("lock inventory items: %w", err)
	}
	byID := make(map[uuid.UUID]inventory.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	var shortages []string
	for _, l := range lines {
		item, ok := byID[l.itemID]
		if !ok {
			return shared.NewNotFoundError("inventory item", l.itemID)
		}
		if !item.CanMove(direction, l.quantity) {
			shortages = append(shortages, fmt.Sprintf("%s (available %s, requested %s)",
				item.SKU, item.CurrentStock.String(), l.quantity.String()))
		}
	}
	if len(shortages) > 0 {
		a.logger.Warn("insufficient inventory",
			zap.String("order_id", order.ID.String()),
			zap.Strings("shortages", shortages),
		)
		return shared.NewInsufficientInventoryError("Insufficient stock: " + strings.Join(shortages, ", "))
	}

	for _, l := range lines {
		balance, err := store.Items().AdjustStock(ctx, l.itemID, direction.Delta(l.quantity))
		if err != nil {
			return err
		}
		movement := inventory.NewMovement(order.TenantID, order.ID, l.itemID, direction, l.quantity, balance, reason, actor.IDPtr())
		if err := store.Movements().Create(ctx, movement); err != nil {
			return fmt.Errorf("record inventory movement: %w", err)
		}
	}
	return nil
}

// aggregateLines sums quantities per item in ascending item id order
func aggregateLines(items []trade.OrderItem, skip map[uuid.UUID]bool) []line {
	totals := make(map[uuid.UUID]decimal.Decimal)
	for _, item := range items {
		if skip[item.ItemID] || item.IsDamaged {
			continue
		}
		totals[item.ItemID] = totals[item.ItemID].Add(item.Quantity)
	}
	lines := make([]line, 0, len(totals))
	for id, qty := range totals {
		lines = append(lines, line{itemID: id, quantity: qty})
	}
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].itemID.String() < lines[j].itemID.String()
	})
	return lines
}
