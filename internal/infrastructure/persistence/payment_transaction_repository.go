package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/finance"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/orderflow/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentTransactionRepository implements PaymentTransactionRepository using GORM
type GormPaymentTransactionRepository struct {
	db *gorm.DB
}

// NewGormPaymentTransactionRepository creates a new GormPaymentTransactionRepository
func NewGormPaymentTransactionRepository(db *gorm.DB) *GormPaymentTransactionRepository {
	return &GormPaymentTransactionRepository{db: db}
}

// FindByID finds a payment within a tenant
func (r *GormPaymentTransactionRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*finance.PaymentTransaction, error) {
	var model models.PaymentTransactionModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Take(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate loads and row-locks a payment
func (r *GormPaymentTransactionRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*finance.PaymentTransaction, error) {
	var model models.PaymentTransactionModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindActiveByOrder lists active, non-reversal payments of an order, oldest first
func (r *GormPaymentTransactionRepository) FindActiveByOrder(ctx context.Context, orderID uuid.UUID) ([]finance.PaymentTransaction, error) {
	return r.find(r.db.WithContext(ctx).
		Where("order_id = ? AND is_reversal = ? AND payment_status = ?",
			orderID, false, finance.PaymentStatusActive))
}

// FindByOrder lists every transaction of an order, oldest first
func (r *GormPaymentTransactionRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]finance.PaymentTransaction, error) {
	return r.find(r.db.WithContext(ctx).Where("order_id = ?", orderID))
}

func (r *GormPaymentTransactionRepository) find(query *gorm.DB) ([]finance.PaymentTransaction, error) {
	var rows []models.PaymentTransactionModel
	if err := query.Order("transaction_date ASC, created_at ASC").Find(&rows).Error; err != nil {
		return nil, translateError(err)
	}
	payments := make([]finance.PaymentTransaction, len(rows))
	for i := range rows {
		payments[i] = *rows[i].ToDomain()
	}
	return payments, nil
}

// Create inserts a payment or reversal entry
func (r *GormPaymentTransactionRepository) Create(ctx context.Context, payment *finance.PaymentTransaction) error {
	model := models.PaymentTransactionModelFromDomain(payment)
	return translateError(r.db.WithContext(ctx).Create(model).Error)
}

// UpdateStatus writes payment_status, reversed_at and reversed_by
func (r *GormPaymentTransactionRepository) UpdateStatus(ctx context.Context, payment *finance.PaymentTransaction) error {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentTransactionModel{}).
		Where("id = ?", payment.ID).
		Updates(map[string]any{
			"payment_status": payment.PaymentStatus,
			"reversed_at":    payment.ReversedAt,
			"reversed_by":    payment.ReversedBy,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormPaymentTransactionRepository implements PaymentTransactionRepository
var _ finance.PaymentTransactionRepository = (*GormPaymentTransactionRepository)(nil)
