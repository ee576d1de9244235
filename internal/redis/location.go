package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"movix/internal/domain"
)

const (
	latestLocationPrefix = "location:latest:"
	latestLocationTTL    = 2 * time.Minute
)

// LocationStore keeps the most recent accepted GPS sample per service in
// Redis so observers can prime themselves without hitting Postgres.
type LocationStore struct {
	client *redis.Client
}

// NewLocationStore creates a new LocationStore.
func NewLocationStore(client *redis.Client) *LocationStore {
	return &LocationStore{client: client}
}

// SetLatest stores the latest sample for a service.
func (s *LocationStore) SetLatest(ctx context.Context, sample *domain.LocationSample) error {
	data, err := json.Marshal(sample)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, latestLocationPrefix+sample.ServiceID, data, latestLocationTTL).Err()
}

// GetLatest returns the latest sample for a service, or nil on cache miss.
func (s *LocationStore) GetLatest(ctx context.Context, serviceID string) (*domain.LocationSample, error) {
	data, err := s.client.Get(ctx, latestLocationPrefix+serviceID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var sample domain.LocationSample
	if err := json.Unmarshal(data, &sample); err != nil {
		return nil, err
	}
	return &sample, nil
}

// Remove drops the cached latest sample for a service.
func (s *LocationStore) Remove(ctx context.Context, serviceID string) error {
	return s.client.Del(ctx, latestLocationPrefix+serviceID).Err()
}
