package cache

import (
	"context"
	"testing"
	"time"

	"github.com/orderflow/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachableClient(t *testing.T) redis.UniversalClient {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestNewRedisIdempotencyStore_PingFails(t *testing.T) {
	store, err := NewRedisIdempotencyStore(context.Background(), config.RedisConfig{Host: "127.0.0.1", Port: 1})
	require.Error(t, err)
	assert.Nil(t, store)
	assert.Contains(t, err.Error(), "ping redis")
}

func TestRedisIdempotencyStore_Namespace(t *testing.T) {
	store := NewRedisIdempotencyStoreWithClient(unreachableClient(t), "")
	assert.Equal(t, "orderflow:idempotency:abc", store.key("abc"))

	custom := NewRedisIdempotencyStoreWithClient(unreachableClient(t), "test:")
	assert.Equal(t, "test:abc", custom.key("abc"))
}

func TestRedisIdempotencyStore_ErrorsNameTheKey(t *testing.T) {
	ctx := context.Background()
	store := NewRedisIdempotencyStoreWithClient(unreachableClient(t), "")

	won, err := store.Claim(ctx, "pay-1", time.Minute)
	require.Error(t, err)
	assert.False(t, won)
	assert.Contains(t, err.Error(), `claim idempotency key "pay-1"`)

	_, ok, err := store.Result(ctx, "pay-1")
	require.Error(t, err)
	assert.False(t, ok)

	assert.ErrorContains(t, store.Complete(ctx, "pay-1", "id", time.Minute), "complete idempotency key")
	assert.ErrorContains(t, store.Release(ctx, "pay-1"), "release idempotency key")
}
