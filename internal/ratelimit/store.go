package ratelimit

import (
	"context"
	"time"
)

// QuotaStore is durable key to counter storage with expiry. Implementations
// must perform UpsertIncrement as a single atomic operation in the backing
// store wherever the backend allows it.
type QuotaStore interface {
	// Get returns the live entry for key, or nil when there is none.
	Get(ctx context.Context, key string) (*QuotaEntry, error)

	// UpsertIncrement counts one request for key at now. A missing or
	// elapsed entry starts a new window of length window with Count 1;
	// a live entry is incremented. The resulting entry is returned.
	UpsertIncrement(ctx context.Context, key string, now time.Time, window time.Duration) (*QuotaEntry, error)

	// SweepExpired deletes entries whose window ended at or before now and
	// returns how many were removed. Safe to run concurrently with
	// UpsertIncrement and idempotent.
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}
