package repository

import (
	"context"

	"movix/internal/domain"
)

// RequestRepository defines the persistence operations for service requests.
type RequestRepository interface {
	// Create persists a new request.
	Create(ctx context.Context, req *domain.ServiceRequest) error

	// GetByID retrieves a request by ID.
	GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error)

	// UpdateIfVersion writes the request only if the stored version still
	// equals expectedVersion, bumping the version on success. Returns
	// ErrVersionConflict when the conditional write matches no row.
	UpdateIfVersion(ctx context.Context, req *domain.ServiceRequest, expectedVersion int64) error

	// ListActiveByDriver returns requests currently assigned to the driver
	// in a non-terminal state.
	ListActiveByDriver(ctx context.Context, driverID string) ([]*domain.ServiceRequest, error)
}
