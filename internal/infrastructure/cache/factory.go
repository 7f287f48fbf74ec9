// Package cache holds the idempotency stores that guard payment collection
// against retried requests.
package cache

import (
	"context"
	"fmt"

	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/orderflow/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// StoreOption configures NewIdempotencyStore
type StoreOption func(*storeOptions)

type storeOptions struct {
	logger        *zap.Logger
	allowFallback bool
}

// WithLogger logs which store was selected
func WithLogger(logger *zap.Logger) StoreOption {
	return func(o *storeOptions) { o.logger = logger }
}

// WithInMemoryFallback allows the in-memory store when Redis is enabled but
// unreachable. It is on by default and turned off in production.
func WithInMemoryFallback(allow bool) StoreOption {
	return func(o *storeOptions) { o.allowFallback = allow }
}

// NewIdempotencyStore picks the Redis store when Redis is enabled and
// reachable and the in-memory store otherwise
func NewIdempotencyStore(ctx context.Context, cfg config.RedisConfig, opts ...StoreOption) (shared.IdempotencyStore, error) {
	o := storeOptions{logger: zap.NewNop(), allowFallback: true}
	for _, opt := range opts {
		opt(&o)
	}

	if !cfg.Enabled {
		o.logger.Info("redis disabled, using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(), nil
	}

	store, err := NewRedisIdempotencyStore(ctx, cfg)
	switch {
	case err == nil:
		o.logger.Info("using Redis idempotency store", zap.String("host", cfg.Host), zap.Int("db", cfg.DB))
		return store, nil
	case !o.allowFallback:
		return nil, fmt.Errorf("redis required for idempotency but unavailable: %w", err)
	}

	o.logger.Warn("Redis unavailable, falling back to in-memory idempotency store; "+
		"retried payments reaching another instance will not be detected",
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStore(), nil
}
