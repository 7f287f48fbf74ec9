package persistence

import (
	"context"
	"fmt"
	"time"

	financeapp "github.com/orderflow/backend/internal/application/finance"
	inventoryapp "github.com/orderflow/backend/internal/application/inventory"
	tradeapp "github.com/orderflow/backend/internal/application/trade"
	"github.com/orderflow/backend/internal/domain/finance"
	"github.com/orderflow/backend/internal/domain/inventory"
	"github.com/orderflow/backend/internal/domain/trade"
	"gorm.io/gorm"
)

// GormStore hands out repositories bound to one *gorm.DB, normally a
// transaction. It satisfies the Store interface of every application package.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GormStore
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Orders returns the order repository scoped to the current transaction
func (s *GormStore) Orders() trade.OrderRepository {
	return NewGormOrderRepository(s.db)
}

// Histories returns the status history repository scoped to the current transaction
func (s *GormStore) Histories() trade.StatusHistoryRepository {
	return NewGormStatusHistoryRepository(s.db)
}

// Payments returns the payment repository scoped to the current transaction
func (s *GormStore) Payments() finance.PaymentTransactionRepository {
	return NewGormPaymentTransactionRepository(s.db)
}

// ReversalLogs returns the reversal log repository scoped to the current transaction
func (s *GormStore) ReversalLogs() finance.PaymentReversalLogRepository {
	return NewGormPaymentReversalLogRepository(s.db)
}

// Items returns the inventory item repository scoped to the current transaction
func (s *GormStore) Items() inventory.ItemRepository {
	return NewGormInventoryItemRepository(s.db)
}

// Movements returns the movement repository scoped to the current transaction
func (s *GormStore) Movements() inventory.MovementRepository {
	return NewGormInventoryMovementRepository(s.db)
}

// Savepoint runs fn in a nested GORM transaction, which is a SAVEPOINT when
// s is already inside a transaction
func (s *GormStore) Savepoint(ctx context.Context, fn func(financeapp.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormStore(tx))
	})
}

// GormTransactionScope runs units of work in a GORM transaction and hands
// them a store of type S. On PostgreSQL every transaction first sets a local
// lock_timeout so a request blocked on a row lock fails with a conflict
// instead of waiting indefinitely.
type GormTransactionScope[S any] struct {
	db          *gorm.DB
	lockTimeout time.Duration
	bind        func(*GormStore) S
}

// Execute runs fn within a database transaction.
// If fn returns an error, the transaction is rolled back.
func (s *GormTransactionScope[S]) Execute(ctx context.Context, fn func(S) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := setLockTimeout(tx, s.lockTimeout); err != nil {
			return err
		}
		return fn(s.bind(NewGormStore(tx)))
	})
	return translateError(err)
}

func setLockTimeout(tx *gorm.DB, timeout time.Duration) error {
	if timeout <= 0 || tx.Dialector.Name() != "postgres" {
		return nil
	}
	stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeout.Milliseconds())
	if err := tx.Exec(stmt).Error; err != nil {
		return fmt.Errorf("set lock timeout: %w", err)
	}
	return nil
}

// NewTradeTransactionScope creates the scope used by the order services
func NewTradeTransactionScope(db *gorm.DB, lockTimeout time.Duration) *GormTransactionScope[tradeapp.Store] {
	return &GormTransactionScope[tradeapp.Store]{
		db:          db,
		lockTimeout: lockTimeout,
		bind:        func(s *GormStore) tradeapp.Store { return s },
	}
}

// NewFinanceTransactionScope creates the scope used by the payment ledger and reversal engine
func NewFinanceTransactionScope(db *gorm.DB, lockTimeout time.Duration) *GormTransactionScope[financeapp.Store] {
	return &GormTransactionScope[financeapp.Store]{
		db:          db,
		lockTimeout: lockTimeout,
		bind:        func(s *GormStore) financeapp.Store { return s },
	}
}

// NewInventoryTransactionScope creates the scope used by the inventory service
func NewInventoryTransactionScope(db *gorm.DB, lockTimeout time.Duration) *GormTransactionScope[inventoryapp.Store] {
	return &GormTransactionScope[inventoryapp.Store]{
		db:          db,
		lockTimeout: lockTimeout,
		bind:        func(s *GormStore) inventoryapp.Store { return s },
	}
}

// Ensure the scopes and store satisfy the application interfaces
var (
	_ tradeapp.TransactionScope     = (*GormTransactionScope[tradeapp.Store])(nil)
	_ financeapp.TransactionScope   = (*GormTransactionScope[financeapp.Store])(nil)
	_ inventoryapp.TransactionScope = (*GormTransactionScope[inventoryapp.Store])(nil)
	_ tradeapp.Store                = (*GormStore)(nil)
)
