package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/orderflow/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyNamespace = "orderflow:idempotency:"
	redisPingTimeout  = 5 * time.Second
	// inFlight marks a claimed key whose request has not produced a result
	inFlight = "\x00in-flight"
)

// RedisIdempotencyStore keeps payment request keys in Redis so every service
// instance sees the same claims
type RedisIdempotencyStore struct {
	rdb       redis.UniversalClient
	namespace string
}

// NewRedisIdempotencyStore connects to cfg and fails when the server does not
// answer a ping
func NewRedisIdempotencyStore(ctx context.Context, cfg config.RedisConfig) (*RedisIdempotencyStore, error) {
	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))},
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, errors.Join(fmt.Errorf("ping redis: %w", err), rdb.Close())
	}
	return NewRedisIdempotencyStoreWithClient(rdb, ""), nil
}

// NewRedisIdempotencyStoreWithClient uses rdb under namespace, or the default
// namespace when it is empty
func NewRedisIdempotencyStoreWithClient(rdb redis.UniversalClient, namespace string) *RedisIdempotencyStore {
	if namespace == "" {
		namespace = redisKeyNamespace
	}
	return &RedisIdempotencyStore{rdb: rdb, namespace: namespace}
}

func (s *RedisIdempotencyStore) key(k string) string { return s.namespace + k }

// Claim is a SET NX, so one of several concurrent callers wins
func (s *RedisIdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	won, err := s.rdb.SetNX(ctx, s.key(key), inFlight, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim idempotency key %q: %w", key, err)
	}
	return won, nil
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, key, result string, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, s.key(key), result, ttl).Err(); err != nil {
		return fmt.Errorf("complete idempotency key %q: %w", key, err)
	}
	return nil
}

func (s *RedisIdempotencyStore) Result(ctx context.Context, key string) (string, bool, error) {
	value, err := s.rdb.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read idempotency key %q: %w", key, err)
	}
	if value == inFlight {
		return "", false, nil
	}
	return value, true, nil
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("release idempotency key %q: %w", key, err)
	}
	return nil
}

func (s *RedisIdempotencyStore) Close() error {
	return s.rdb.Close()
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
