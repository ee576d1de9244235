package postgres

import (
	"context"
	"database/sql"
	"errors"

	"movix/internal/domain"
	"movix/internal/repository"
)

// OfferRepository is a PostgreSQL implementation of repository.OfferRepository.
type OfferRepository struct {
	q Querier
}

// NewOfferRepository creates a new PostgreSQL offer repository.
func NewOfferRepository(db *sql.DB) *OfferRepository {
	return &OfferRepository{q: db}
}

// NewOfferRepositoryWithTx creates an offer repository using a transaction.
func NewOfferRepositoryWithTx(tx *sql.Tx) *OfferRepository {
	return &OfferRepository{q: tx}
}

// Create persists a new offer.
func (r *OfferRepository) Create(ctx context.Context, offer *domain.Offer) error {
	query := `
		INSERT INTO offers (id, request_id, driver_id, offered_price, offer_type, status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.q.ExecContext(ctx, query,
		offer.ID,
		offer.RequestID,
		offer.DriverID,
		offer.OfferedPrice,
		offer.OfferType,
		offer.Status,
		offer.ExpiresAt,
		offer.CreatedAt,
	)
	return err
}

// GetByID retrieves an offer by ID.
func (r *OfferRepository) GetByID(ctx context.Context, id string) (*domain.Offer, error) {
	query := `
		SELECT id, request_id, driver_id, offered_price, offer_type, status, expires_at, created_at
		FROM offers WHERE id = $1
	`

	var offer domain.Offer
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&offer.ID,
		&offer.RequestID,
		&offer.DriverID,
		&offer.OfferedPrice,
		&offer.OfferType,
		&offer.Status,
		&offer.ExpiresAt,
		&offer.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &offer, nil
}

// ListByRequest returns all offers made against a request, newest first.
func (r *OfferRepository) ListByRequest(ctx context.Context, requestID string) ([]*domain.Offer, error) {
	query := `
		SELECT id, request_id, driver_id, offered_price, offer_type, status, expires_at, created_at
		FROM offers WHERE request_id = $1 ORDER BY created_at DESC
	`

	rows, err := r.q.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offers []*domain.Offer
	for rows.Next() {
		var offer domain.Offer
		if err := rows.Scan(
			&offer.ID,
			&offer.RequestID,
			&offer.DriverID,
			&offer.OfferedPrice,
			&offer.OfferType,
			&offer.Status,
			&offer.ExpiresAt,
			&offer.CreatedAt,
		); err != nil {
			return nil, err
		}
		offers = append(offers, &offer)
	}
	return offers, rows.Err()
}

// Update writes the offer unconditionally.
func (r *OfferRepository) Update(ctx context.Context, offer *domain.Offer) error {
	query := `
		UPDATE offers
		SET offered_price = $1, offer_type = $2, status = $3, expires_at = $4
		WHERE id = $5
	`

	result, err := r.q.ExecContext(ctx, query,
		offer.OfferedPrice,
		offer.OfferType,
		offer.Status,
		offer.ExpiresAt,
		offer.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// RejectOtherPending invalidates every pending offer for the request except
// the accepted one.
func (r *OfferRepository) RejectOtherPending(ctx context.Context, requestID, acceptedOfferID string) (int64, error) {
	query := `
		UPDATE offers SET status = $1
		WHERE request_id = $2 AND id <> $3 AND status = $4
	`

	result, err := r.q.ExecContext(ctx, query,
		domain.OfferStatusRejected,
		requestID,
		acceptedOfferID,
		domain.OfferStatusPending,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
