package repository

import (
	"context"

	"movix/internal/domain"
)

// StopRepository defines the persistence operations for stops and their items.
type StopRepository interface {
	// CreateStop persists a new stop.
	CreateStop(ctx context.Context, stop *domain.Stop) error

	// GetStop retrieves a stop by ID.
	GetStop(ctx context.Context, id string) (*domain.Stop, error)

	// ListByRequest returns the request's stops ordered by stop_order.
	ListByRequest(ctx context.Context, requestID string) ([]*domain.Stop, error)

	// UpdateStopStatus writes the stop's status.
	UpdateStopStatus(ctx context.Context, id string, status domain.StopStatus) error

	// CreateItem persists a new stop item.
	CreateItem(ctx context.Context, item *domain.StopItem) error

	// GetItem retrieves a stop item by ID.
	GetItem(ctx context.Context, id string) (*domain.StopItem, error)

	// ListItems returns all items of a stop.
	ListItems(ctx context.Context, stopID string) ([]*domain.StopItem, error)

	// UpdateItem writes the item unconditionally.
	UpdateItem(ctx context.Context, item *domain.StopItem) error

	// CountUnpurchased returns how many items of the stop are not yet purchased.
	CountUnpurchased(ctx context.Context, stopID string) (int64, error)

	// AnyPurchasedForRequest reports whether any item of any stop of the
	// request has been purchased already.
	AnyPurchasedForRequest(ctx context.Context, requestID string) (bool, error)

	// ItemsTotalForRequest returns the sum of actual_cost over all purchased
	// items of the request.
	ItemsTotalForRequest(ctx context.Context, requestID string) (float64, error)
}
