package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/trade"
	"github.com/orderflow/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormStatusHistoryRepository implements StatusHistoryRepository using GORM.
// Rows go to the history table of the order's type.
type GormStatusHistoryRepository struct {
	db *gorm.DB
}

// NewGormStatusHistoryRepository creates a new GormStatusHistoryRepository
func NewGormStatusHistoryRepository(db *gorm.DB) *GormStatusHistoryRepository {
	return &GormStatusHistoryRepository{db: db}
}

// Append inserts a history row
func (r *GormStatusHistoryRepository) Append(ctx context.Context, entry *trade.StatusHistory) error {
	model := models.StatusHistoryModelFromDomain(entry)
	return translateError(r.db.WithContext(ctx).
		Table(models.StatusHistoryTable(entry.OrderType)).
		Create(model).Error)
}

// FindByOrder lists the history of an order, newest first
func (r *GormStatusHistoryRepository) FindByOrder(ctx context.Context, orderType trade.OrderType, orderID uuid.UUID) ([]trade.StatusHistory, error) {
	var rows []models.StatusHistoryModel
	err := r.db.WithContext(ctx).
		Table(models.StatusHistoryTable(orderType)).
		Where("order_id = ?", orderID).
		Order("changed_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}

	entries := make([]trade.StatusHistory, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain(orderType)
	}
	return entries, nil
}

// Ensure GormStatusHistoryRepository implements StatusHistoryRepository
var _ trade.StatusHistoryRepository = (*GormStatusHistoryRepository)(nil)
