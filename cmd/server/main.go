package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	financeapp "github.com/orderflow/backend/internal/application/finance"
	inventoryapp "github.com/orderflow/backend/internal/application/inventory"
	tradeapp "github.com/orderflow/backend/internal/application/trade"
	"github.com/orderflow/backend/internal/infrastructure/auth"
	"github.com/orderflow/backend/internal/infrastructure/cache"
	"github.com/orderflow/backend/internal/infrastructure/config"
	"github.com/orderflow/backend/internal/infrastructure/event"
	"github.com/orderflow/backend/internal/infrastructure/logger"
	"github.com/orderflow/backend/internal/infrastructure/persistence"
	"github.com/orderflow/backend/internal/infrastructure/storage"
	"github.com/orderflow/backend/internal/infrastructure/telemetry"
	"github.com/orderflow/backend/internal/interfaces/http/handler"
	"github.com/orderflow/backend/internal/interfaces/http/middleware"
	"github.com/orderflow/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.FromAppConfig(cfg.App, cfg.Log))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting orderflow",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	tel, err := telemetry.Setup(ctx, cfg.Telemetry, version, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	meter := tel.Meter()

	businessMetrics, err := telemetry.NewBusinessMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create business metrics", zap.Error(err))
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		stats := db.Stats()
		log.Info("Closing database pool",
			zap.Int("open_connections", stats.OpenConnections),
			zap.Int64("wait_count", stats.WaitCount),
			zap.Duration("wait_duration", stats.WaitDuration),
		)
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfigFrom(cfg.Telemetry), log).Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	idempotencyStore, err := cache.NewIdempotencyStore(ctx, cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		_ = idempotencyStore.Close()
	}()

	proofStorage, err := newProofStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize proof storage", zap.Error(err))
	}

	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewReversalAlertHandler(log))
	eventBus.Subscribe(event.NewOrderActivityHandler(log))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Application services
	lockTimeout := cfg.Database.LockTimeout
	reversalEngine := financeapp.NewReversalEngine(
		persistence.NewFinanceTransactionScope(db.DB, lockTimeout), businessMetrics, log)
	paymentLedger := financeapp.NewPaymentLedgerService(
		persistence.NewFinanceTransactionScope(db.DB, lockTimeout),
		financeapp.PaymentLedgerConfig{
			IdempotencyStore: idempotencyStore,
			IdempotencyTTL:   cfg.Lifecycle.IdempotencyTTL,
			EventPublisher:   eventBus,
			Metrics:          businessMetrics,
			Logger:           log,
		})
	inventoryService := inventoryapp.NewInventoryService(
		persistence.NewInventoryTransactionScope(db.DB, lockTimeout), log)

	tradeScope := persistence.NewTradeTransactionScope(db.DB, lockTimeout)
	history := tradeapp.NewHistoryRecorder(proofStorage, log)
	orderService := tradeapp.NewOrderService(tradeScope, history, eventBus, businessMetrics, log)
	statusService := tradeapp.NewOrderStatusService(tradeScope, tradeapp.OrderStatusServiceConfig{
		Applier:        inventoryapp.NewMovementApplier(log),
		Reversals:      reversalEngine,
		History:        history,
		ProofStorage:   proofStorage,
		EventPublisher: eventBus,
		Metrics:        businessMetrics,
		Logger:         log,
	})

	jwtService := auth.NewJWTService(cfg.JWT)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to register request validators", zap.Error(err))
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware order:
	// 1. Recovery - catch panics
	// 2. Logger - request ID and access log
	// 3. Tracing - server span, then error status on >= 400
	// 4. Metrics
	// 5. BodyLimit
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName:   cfg.Telemetry.ServiceName,
		Enabled:       cfg.Telemetry.Enabled,
		UntracedPaths: []string{"/health"},
	}))
	engine.Use(middleware.SpanStatus())
	if cfg.Telemetry.MetricsEnabled {
		engine.Use(middleware.HTTPMetrics(meter))
	}
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize, log))

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, map[string]handler.Pinger{
		"database": db,
	})
	engine.GET("/health", systemHandler.Health)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"), router.WithLogger(log))
	r.Use(
		middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
			JWTService: jwtService,
			SkipPaths:  []string{"/api/v1/health"},
			Logger:     log,
		}),
		middleware.SpanIdentity(),
	)
	router.RegisterAPI(r, router.APIHandlers{
		Orders:    handler.NewOrderHandler(orderService, statusService, cfg.HTTP.MaxProofSize),
		Payments:  handler.NewPaymentHandler(paymentLedger, reversalEngine),
		Inventory: handler.NewInventoryHandler(inventoryService),
		Health:    systemHandler.Health,
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Warn("Event bus did not stop cleanly", zap.Error(err))
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		log.Warn("Telemetry shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newProofStorage returns the S3 store when object storage is configured and
// an in-memory store otherwise
func newProofStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (tradeapp.ProofStorage, error) {
	if !cfg.Storage.Enabled {
		log.Warn("Object storage disabled, proofs are kept in memory")
		return storage.NewMemoryProofStorage(), nil
	}
	s3Storage, err := storage.NewS3ProofStorage(&cfg.Storage,
		storage.WithLogger(log),
		storage.WithPresignExpiration(cfg.Storage.PresignExpiration),
	)
	if err != nil {
		return nil, err
	}
	if err := s3Storage.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	log.Info("Proof storage ready", zap.String("bucket", s3Storage.Bucket()))
	return s3Storage, nil
}
