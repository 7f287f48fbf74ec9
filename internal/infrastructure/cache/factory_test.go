package cache

import (
	"context"
	"testing"

	"github.com/orderflow/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	// port 1 refuses connections, so Redis is never reachable
	unreachable := config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}

	t.Run("redis disabled uses memory", func(t *testing.T) {
		store, err := NewIdempotencyStore(ctx, config.RedisConfig{})
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("unreachable redis falls back", func(t *testing.T) {
		store, err := NewIdempotencyStore(ctx, unreachable, WithLogger(zap.NewNop()))
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("unreachable redis without fallback fails", func(t *testing.T) {
		store, err := NewIdempotencyStore(ctx, unreachable, WithInMemoryFallback(false))
		require.Error(t, err)
		assert.Nil(t, store)
		assert.Contains(t, err.Error(), "redis required")
	})
}
