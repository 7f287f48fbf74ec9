//go:build integration

// Package integration runs the order lifecycle against a real PostgreSQL
// started with testcontainers.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/orderflow/backend/internal/infrastructure/migration"
	"github.com/orderflow/backend/migrations"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// server is the container shared by every test in the package; each test
// gets its own database on it
var server struct {
	container *tcpostgres.PostgresContainer
	adminDSN  string
	err       error
}

// startServer is called from TestMain
func startServer(ctx context.Context) func() {
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("orderflow"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("admin123"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		server.err = fmt.Errorf("start postgres container: %w", err)
		return func() {}
	}
	server.container = container
	server.adminDSN, server.err = container.ConnectionString(ctx, "sslmode=disable")
	return func() {
		if err := container.Terminate(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "terminate postgres container: %v\n", err)
		}
	}
}

// TestDB is a freshly migrated database owned by one test
type TestDB struct {
	DB    *gorm.DB
	SqlDB *sql.DB
	Name  string
}

// NewTestDB creates an empty database, applies the embedded migrations and
// drops the database when the test ends
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	require.NoError(t, server.err, "PostgreSQL container unavailable")

	admin, err := sql.Open("postgres", server.adminDSN)
	require.NoError(t, err)
	defer admin.Close()

	name := "t_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	_, err = admin.Exec("CREATE DATABASE " + name)
	require.NoError(t, err, "create test database")

	dsn := withDatabase(t, server.adminDSN, name)
	migrateDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	m, err := migration.New(migrateDB, migration.Source{FS: migrations.FS}, nil)
	require.NoError(t, err, "create migrator")
	require.NoError(t, m.Up(), "apply migrations")
	_ = m.Close()

	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if os.Getenv("TEST_DB_DEBUG") != "" {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	}
	db, err := gorm.Open(gormpostgres.Open(dsn), gormCfg)
	require.NoError(t, err, "connect to test database")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// enough connections for the concurrency tests to contend for row locks
	sqlDB.SetMaxOpenConns(10)

	t.Cleanup(func() {
		_ = sqlDB.Close()
		cleanup, err := sql.Open("postgres", server.adminDSN)
		if err != nil {
			return
		}
		defer cleanup.Close()
		if _, err := cleanup.Exec("DROP DATABASE IF EXISTS " + name + " WITH (FORCE)"); err != nil {
			t.Logf("drop test database %s: %v", name, err)
		}
	})
	return &TestDB{DB: db, SqlDB: sqlDB, Name: name}
}

func withDatabase(t *testing.T, dsn, name string) string {
	t.Helper()
	u, err := url.Parse(dsn)
	require.NoError(t, err)
	u.Path = "/" + name
	return u.String()
}
