package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers operation keys that already took effect,
// so a retried request does not apply the same stock movement twice.
type IdempotencyStore interface {
	// MarkProcessed marks a key as processed with a TTL.
	// Returns true if the key was newly marked, false if it was already processed
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key has already been processed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Commit keeps a marked key for ttl from now, whether or not the
	// mark is still live
	Commit(ctx context.Context, key string, ttl time.Duration) error

	// Forget releases a key so the operation may be attempted again
	Forget(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// DefaultIdempotencyTTL bounds how long receipt keys are remembered
const DefaultIdempotencyTTL = 72 * time.Hour
