package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers submission keys so a repeated request can be
// rejected instead of applied twice. A key is reserved before the work runs
// and released if the work fails.
type IdempotencyStore interface {
	// MarkProcessed atomically records key with a TTL.
	// Returns true if the key was newly recorded, false if it was already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release forgets key so it can be submitted again
	Release(ctx context.Context, key string) error

	// Close releases resources held by the store
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL after which the same key is accepted again
	TTL time.Duration
	// Enabled turns key checking on or off
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
