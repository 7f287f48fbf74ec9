package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/finance"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/orderflow/backend/internal/domain/trade"
	"github.com/orderflow/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order with its items within a tenant
func (r *GormOrderRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*trade.Order, error) {
	var model models.OrderModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Take(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	if err := r.loadItems(ctx, &model); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate loads the order under SELECT ... FOR UPDATE.
// The lock is held until the surrounding transaction commits or rolls back.
func (r *GormOrderRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*trade.Order, error) {
	var model models.OrderModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Take(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	if err := r.loadItems(ctx, &model); err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

func (r *GormOrderRepository) loadItems(ctx context.Context, model *models.OrderModel) error {
	var items []models.OrderItemModel
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", model.ID).
		Order("item_id ASC").
		Find(&items).Error; err != nil {
		return translateError(err)
	}
	model.Items = items
	return nil
}

// Create inserts a new order and its items
func (r *GormOrderRepository) Create(ctx context.Context, order *trade.Order) error {
	model := models.OrderModelFromDomain(order)
	return translateError(r.db.WithContext(ctx).Create(model).Error)
}

// Save writes the lifecycle columns of an order and its damaged flags
func (r *GormOrderRepository) Save(ctx context.Context, order *trade.Order) error {
	updates := map[string]any{
		"status":                  order.Status,
		"inventory_status":        order.InventoryStatus,
		"inventory_applied_at":    order.InventoryAppliedAt,
		"inventory_restored_at":   order.InventoryRestoredAt,
		"post_delivery_action":    order.PostDeliveryAction,
		"post_delivery_action_at": order.PostDeliveryActionAt,
		"version":                 order.Version,
		"updated_at":              time.Now(),
	}
	result := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("tenant_id = ? AND id = ?", order.TenantID, order.ID).
		Updates(updates)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}

	var damaged []uuid.UUID
	for _, item := range order.Items {
		if item.IsDamaged {
			damaged = append(damaged, item.ID)
		}
	}
	if len(damaged) == 0 {
		return nil
	}
	return translateError(r.db.WithContext(ctx).
		Model(&models.OrderItemModel{}).
		Where("order_id = ? AND id IN ?", order.ID, damaged).
		Update("is_damaged", true).Error)
}

// AdjustPaidAmount adds delta to paid_amount under a row lock, clamping at zero
func (r *GormOrderRepository) AdjustPaidAmount(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, bool, error) {
	var model models.OrderModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "paid_amount").
		Where("id = ?", id).
		Take(&model).Error
	if err != nil {
		return decimal.Zero, false, translateError(err)
	}

	next, clamped := finance.ApplyToPaidAmount(model.PaidAmount, delta)
	err = r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"paid_amount": next, "updated_at": time.Now()}).Error
	if err != nil {
		return decimal.Zero, false, translateError(err)
	}
	return next, clamped, nil
}

// Ensure GormOrderRepository implements OrderRepository
var _ trade.OrderRepository = (*GormOrderRepository)(nil)
