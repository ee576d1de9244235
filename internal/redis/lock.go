package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles distributed locking in Redis. The accept lock is a
// fast-path guard in front of the database CAS: it turns most concurrent
// acceptance races into an immediate conflict instead of a wasted
// transaction. The CAS remains the source of truth.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireAcceptLock attempts to acquire the acceptance lock for a request.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquireAcceptLock(ctx context.Context, requestID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:request:accept:%s", requestID)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// ReleaseAcceptLock releases the acceptance lock for a request.
func (s *LockStore) ReleaseAcceptLock(ctx context.Context, requestID string) error {
	key := fmt.Sprintf("lock:request:accept:%s", requestID)

	return s.client.Del(ctx, key).Err()
}
