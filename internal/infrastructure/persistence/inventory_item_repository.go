package persistence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/inventory"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/orderflow/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInventoryItemRepository implements ItemRepository using GORM
type GormInventoryItemRepository struct {
	db *gorm.DB
}

// NewGormInventoryItemRepository creates a new GormInventoryItemRepository
func NewGormInventoryItemRepository(db *gorm.DB) *GormInventoryItemRepository {
	return &GormInventoryItemRepository{db: db}
}

// FindByID finds an item within a tenant
func (r *GormInventoryItemRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.Item, error) {
	var model models.InventoryItemModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Take(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByIDsForUpdate locks each item with its own SELECT ... FOR UPDATE,
// walking the ids in ascending order
func (r *GormInventoryItemRepository) FindByIDsForUpdate(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]inventory.Item, error) {
	sorted := slices.Clone(ids)
	slices.SortFunc(sorted, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	sorted = slices.Compact(sorted)

	items := make([]inventory.Item, 0, len(sorted))
	for _, id := range sorted {
		var model models.InventoryItemModel
		err := r.db.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tenant_id = ? AND id = ?", tenantID, id).
			Take(&model).Error
		if err != nil {
			err = translateError(err)
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewNotFoundError("inventory item", id)
			}
			return nil, err
		}
		items = append(items, *model.ToDomain())
	}
	return items, nil
}

// Save creates or updates an item
func (r *GormInventoryItemRepository) Save(ctx context.Context, item *inventory.Item) error {
	model := models.InventoryItemModelFromDomain(item)
	return translateError(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"sku", "name", "current_stock", "version", "updated_at"}),
		}).
		Create(model).Error)
}

// AdjustStock adds delta to current_stock under a row lock and returns the new balance
func (r *GormInventoryItemRepository) AdjustStock(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	var model models.InventoryItemModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&model).Error
	if err != nil {
		return decimal.Zero, translateError(err)
	}

	next := model.CurrentStock.Add(delta)
	if next.IsNegative() {
		return model.CurrentStock, shared.NewInsufficientInventoryError(
			fmt.Sprintf("Insufficient stock for %s: available %s, requested %s",
				model.SKU, model.CurrentStock.String(), delta.Abs().String()))
	}

	err = r.db.WithContext(ctx).
		Model(&models.InventoryItemModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"current_stock": next,
			"version":       gorm.Expr("version + 1"),
			"updated_at":    time.Now(),
		}).Error
	if err != nil {
		return decimal.Zero, translateError(err)
	}
	return next, nil
}

// Ensure GormInventoryItemRepository implements ItemRepository
var _ inventory.ItemRepository = (*GormInventoryItemRepository)(nil)

// GormInventoryMovementRepository implements MovementRepository using GORM
type GormInventoryMovementRepository struct {
	db *gorm.DB
}

// NewGormInventoryMovementRepository creates a new GormInventoryMovementRepository
func NewGormInventoryMovementRepository(db *gorm.DB) *GormInventoryMovementRepository {
	return &GormInventoryMovementRepository{db: db}
}

// Create appends a movement
func (r *GormInventoryMovementRepository) Create(ctx context.Context, movement *inventory.Movement) error {
	model := models.InventoryMovementModelFromDomain(movement)
	return translateError(r.db.WithContext(ctx).Create(model).Error)
}

// FindByOrder lists movements of an order, oldest first
func (r *GormInventoryMovementRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]inventory.Movement, error) {
	var rows []models.InventoryMovementModel
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}
	movements := make([]inventory.Movement, len(rows))
	for i := range rows {
		movements[i] = rows[i].ToDomain()
	}
	return movements, nil
}

// Ensure GormInventoryMovementRepository implements MovementRepository
var _ inventory.MovementRepository = (*GormInventoryMovementRepository)(nil)
