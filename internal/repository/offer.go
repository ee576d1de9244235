package repository

import (
	"context"

	"movix/internal/domain"
)

// OfferRepository defines the persistence operations for offers.
type OfferRepository interface {
	// Create persists a new offer.
	Create(ctx context.Context, offer *domain.Offer) error

	// GetByID retrieves an offer by ID.
	GetByID(ctx context.Context, id string) (*domain.Offer, error)

	// ListByRequest returns all offers made against a request, newest first.
	ListByRequest(ctx context.Context, requestID string) ([]*domain.Offer, error)

	// Update writes the offer unconditionally.
	Update(ctx context.Context, offer *domain.Offer) error

	// RejectOtherPending invalidates every pending offer for the request
	// except the accepted one. Returns the number of offers rejected.
	RejectOtherPending(ctx context.Context, requestID, acceptedOfferID string) (int64, error)
}
