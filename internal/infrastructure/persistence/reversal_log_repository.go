package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/finance"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/orderflow/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPaymentReversalLogRepository implements PaymentReversalLogRepository using GORM.
// Rows are only ever inserted; UpdateStatus touches status and error_message
// of rows that are still pending.
type GormPaymentReversalLogRepository struct {
	db *gorm.DB
}

// NewGormPaymentReversalLogRepository creates a new GormPaymentReversalLogRepository
func NewGormPaymentReversalLogRepository(db *gorm.DB) *GormPaymentReversalLogRepository {
	return &GormPaymentReversalLogRepository{db: db}
}

// Create appends a log row
func (r *GormPaymentReversalLogRepository) Create(ctx context.Context, log *finance.PaymentReversalLog) error {
	model := models.PaymentReversalLogModelFromDomain(log)
	return translateError(r.db.WithContext(ctx).Create(model).Error)
}

// FindByID finds a log row within a tenant
func (r *GormPaymentReversalLogRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*finance.PaymentReversalLog, error) {
	var model models.PaymentReversalLogModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Take(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByOrder lists log rows of an order, newest first
func (r *GormPaymentReversalLogRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]finance.PaymentReversalLog, error) {
	var rows []models.PaymentReversalLogModel
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("performed_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}
	logs := make([]finance.PaymentReversalLog, len(rows))
	for i := range rows {
		logs[i] = *rows[i].ToDomain()
	}
	return logs, nil
}

// UpdateStatus advances a pending row's status and error_message
func (r *GormPaymentReversalLogRepository) UpdateStatus(ctx context.Context, log *finance.PaymentReversalLog) error {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentReversalLogModel{}).
		Where("id = ? AND status = ?", log.ID, finance.LogStatusPending).
		Updates(map[string]any{
			"status":        log.Status,
			"error_message": log.ErrorMessage,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewPolicyViolation("LOG_ALREADY_RESOLVED",
			fmt.Sprintf("Reversal log %s is not pending", log.ID))
	}
	return nil
}

// Ensure GormPaymentReversalLogRepository implements PaymentReversalLogRepository
var _ finance.PaymentReversalLogRepository = (*GormPaymentReversalLogRepository)(nil)
