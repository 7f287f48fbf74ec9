package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers client-supplied request keys so a retried
// payment is recorded once. A key is claimed before the work starts and
// completed with the id of what the work produced.
type IdempotencyStore interface {
	// Claim reserves key for ttl. It returns false when the key is already
	// claimed or completed.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Complete stores result under a claimed key for ttl
	Complete(ctx context.Context, key, result string, ttl time.Duration) error

	// Result returns what Complete stored. ok is false for an unknown key
	// and for one whose request is still in flight.
	Result(ctx context.Context, key string) (result string, ok bool, err error)

	// Release forgets key so a request that failed after claiming can be retried
	Release(ctx context.Context, key string) error

	Close() error
}

// DefaultIdempotencyTTL is how long a processed request key is remembered
const DefaultIdempotencyTTL = 24 * time.Hour
