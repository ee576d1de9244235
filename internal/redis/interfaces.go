package redis

import (
	"context"
	"time"

	"movix/internal/domain"
)

// LocationStoreInterface defines the latest-sample cache operations.
type LocationStoreInterface interface {
	SetLatest(ctx context.Context, sample *domain.LocationSample) error
	GetLatest(ctx context.Context, serviceID string) (*domain.LocationSample, error)
	Remove(ctx context.Context, serviceID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireAcceptLock(ctx context.Context, requestID string, ttl time.Duration) (bool, error)
	ReleaseAcceptLock(ctx context.Context, requestID string) error
}

// SnapshotStoreInterface defines the request snapshot cache operations.
type SnapshotStoreInterface interface {
	GetRequest(ctx context.Context, requestID string) (*RequestSnapshot, error)
	SetRequest(ctx context.Context, snap *RequestSnapshot) error
	InvalidateRequest(ctx context.Context, requestID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
	_ SnapshotStoreInterface = (*SnapshotStore)(nil)
)
