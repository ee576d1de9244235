package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// SnapshotStore caches compact request snapshots in Redis. The poll path
// reads through it; every state transition invalidates it so stale reads
// are bounded by the TTL.
type SnapshotStore struct {
	client *redis.Client
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(client *redis.Client) *SnapshotStore {
	return &SnapshotStore{client: client}
}

const (
	requestSnapshotPrefix = "cache:request:"

	// Request status changes quickly during negotiation.
	requestSnapshotTTL = 10 * time.Second
)

// RequestSnapshot is the compact cached view of a service request.
type RequestSnapshot struct {
	ID               string  `json:"id"`
	ClientID         string  `json:"client_id"`
	Status           string  `json:"status"`
	TrackingStep     string  `json:"tracking_step,omitempty"`
	AssignedDriverID string  `json:"assigned_driver_id,omitempty"`
	FinalPrice       float64 `json:"final_price"`
	Version          int64   `json:"version"`
}

// GetRequest retrieves a request snapshot from cache. A nil result with nil
// error is a cache miss.
func (s *SnapshotStore) GetRequest(ctx context.Context, requestID string) (*RequestSnapshot, error) {
	data, err := s.client.Get(ctx, requestSnapshotPrefix+requestID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var snap RequestSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// SetRequest stores a request snapshot in cache.
func (s *SnapshotStore) SetRequest(ctx context.Context, snap *RequestSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, requestSnapshotPrefix+snap.ID, data, requestSnapshotTTL).Err()
}

// InvalidateRequest removes a request snapshot from cache.
func (s *SnapshotStore) InvalidateRequest(ctx context.Context, requestID string) error {
	return s.client.Del(ctx, requestSnapshotPrefix+requestID).Err()
}
