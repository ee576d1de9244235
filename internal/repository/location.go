package repository

import (
	"context"

	"movix/internal/domain"
)

// LocationRepository defines the persistence operations for GPS samples.
// Samples are append-only; there is no update or delete.
type LocationRepository interface {
	// Append persists a new location sample.
	Append(ctx context.Context, sample *domain.LocationSample) error

	// Latest returns the most recent sample for a service, or ErrNotFound
	// when none has been recorded yet.
	Latest(ctx context.Context, serviceID string) (*domain.LocationSample, error)
}
