// Package testutil opens test databases and seeds orders, stock items and
// payments for the service and repository tests.
package testutil

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/orderflow/backend/internal/domain/trade"
	"github.com/orderflow/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// quietGorm builds a fresh Config per handle; gorm keeps the dialect clause
// builders on it.
func quietGorm() *gorm.Config {
	return &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	}
}

// MockDB is a postgres-dialect GORM handle backed by sqlmock, for asserting
// the exact SQL a repository issues (row locks, lock_timeout, guarded updates)
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB matches queries by regular expression. The connection is closed
// when the test ends.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB, DriverName: "postgres"}), quietGorm())
	require.NoError(t, err, "Failed to open GORM over sqlmock")
	return &MockDB{DB: db, Mock: mock, SqlDB: sqlDB}
}

func (m *MockDB) Close() error {
	return m.SqlDB.Close()
}

// ExpectationsWereMet fails the test on any unmet or unexpected statement
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet(), "Unmet database expectations")
}

// NewSQLiteDB opens an in-memory SQLite database with the full schema,
// including one status history table per order type. The pool holds a
// single connection so nested transactions and savepoints see the same
// database.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), quietGorm())
	require.NoError(t, err, "Failed to open SQLite database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	for _, orderType := range []trade.OrderType{trade.OrderTypeSale, trade.OrderTypePurchase} {
		err := db.Table(models.StatusHistoryTable(orderType)).AutoMigrate(&models.StatusHistoryModel{})
		require.NoError(t, err)
	}
	return db
}
