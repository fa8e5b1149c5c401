package cache

import (
	"context"
	"time"
)

// IdempotencyStore deduplicates finalization requests carrying an
// Idempotency-Key header. The store only answers "was this key seen
// recently"; the real double-finalization guard is the order state check
// inside the finalization transaction.
type IdempotencyStore interface {
	// MarkProcessed records the key with a TTL. Returns true if the key was
	// newly recorded, false if it had already been seen.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// IsProcessed checks whether the key has been seen and not yet expired
	IsProcessed(ctx context.Context, key string) (bool, error)
	Close() error
}
