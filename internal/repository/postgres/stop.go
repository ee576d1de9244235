package postgres

import (
	"context"
	"database/sql"
	"errors"

	"movix/internal/domain"
	"movix/internal/repository"
)

// StopRepository is a PostgreSQL implementation of repository.StopRepository.
type StopRepository struct {
	q Querier
}

// NewStopRepository creates a new PostgreSQL stop repository.
func NewStopRepository(db *sql.DB) *StopRepository {
	return &StopRepository{q: db}
}

// CreateStop persists a new stop.
func (r *StopRepository) CreateStop(ctx context.Context, stop *domain.Stop) error {
	query := `
		INSERT INTO stops (id, request_id, stop_order, address, lat, lng, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.ExecContext(ctx, query,
		stop.ID, stop.RequestID, stop.StopOrder, stop.Address, stop.Lat, stop.Lng, stop.Status)
	return err
}

// GetStop retrieves a stop by ID.
func (r *StopRepository) GetStop(ctx context.Context, id string) (*domain.Stop, error) {
	query := `SELECT id, request_id, stop_order, address, lat, lng, status FROM stops WHERE id = $1`

	var stop domain.Stop
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&stop.ID, &stop.RequestID, &stop.StopOrder, &stop.Address, &stop.Lat, &stop.Lng, &stop.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &stop, nil
}

// ListByRequest returns the request's stops ordered by stop_order.
func (r *StopRepository) ListByRequest(ctx context.Context, requestID string) ([]*domain.Stop, error) {
	query := `
		SELECT id, request_id, stop_order, address, lat, lng, status
		FROM stops WHERE request_id = $1 ORDER BY stop_order
	`

	rows, err := r.q.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stops []*domain.Stop
	for rows.Next() {
		var stop domain.Stop
		if err := rows.Scan(
			&stop.ID, &stop.RequestID, &stop.StopOrder, &stop.Address, &stop.Lat, &stop.Lng, &stop.Status); err != nil {
			return nil, err
		}
		stops = append(stops, &stop)
	}
	return stops, rows.Err()
}

// UpdateStopStatus writes the stop's status.
func (r *StopRepository) UpdateStopStatus(ctx context.Context, id string, status domain.StopStatus) error {
	result, err := r.q.ExecContext(ctx, `UPDATE stops SET status = $1 WHERE id = $2`, status, id)
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

// CreateItem persists a new stop item.
func (r *StopRepository) CreateItem(ctx context.Context, item *domain.StopItem) error {
	query := `
		INSERT INTO stop_items (id, stop_id, name, quantity, actual_cost, is_purchased)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.q.ExecContext(ctx, query,
		item.ID, item.StopID, item.Name, item.Quantity, item.ActualCost, item.IsPurchased)
	return err
}

// GetItem retrieves a stop item by ID.
func (r *StopRepository) GetItem(ctx context.Context, id string) (*domain.StopItem, error) {
	query := `SELECT id, stop_id, name, quantity, actual_cost, is_purchased FROM stop_items WHERE id = $1`

	var item domain.StopItem
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&item.ID, &item.StopID, &item.Name, &item.Quantity, &item.ActualCost, &item.IsPurchased)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// ListItems returns all items of a stop.
func (r *StopRepository) ListItems(ctx context.Context, stopID string) ([]*domain.StopItem, error) {
	query := `SELECT id, stop_id, name, quantity, actual_cost, is_purchased FROM stop_items WHERE stop_id = $1`

	rows, err := r.q.QueryContext(ctx, query, stopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.StopItem
	for rows.Next() {
		var item domain.StopItem
		if err := rows.Scan(
			&item.ID, &item.StopID, &item.Name, &item.Quantity, &item.ActualCost, &item.IsPurchased); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

// UpdateItem writes the item unconditionally.
func (r *StopRepository) UpdateItem(ctx context.Context, item *domain.StopItem) error {
	query := `
		UPDATE stop_items SET name = $1, quantity = $2, actual_cost = $3, is_purchased = $4
		WHERE id = $5
	`

	result, err := r.q.ExecContext(ctx, query,
		item.Name, item.Quantity, item.ActualCost, item.IsPurchased, item.ID)
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

// CountUnpurchased returns how many items of the stop are not yet purchased.
func (r *StopRepository) CountUnpurchased(ctx context.Context, stopID string) (int64, error) {
	var count int64
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM stop_items WHERE stop_id = $1 AND NOT is_purchased`, stopID).Scan(&count)
	return count, err
}

// AnyPurchasedForRequest reports whether any item of any stop of the request
// has already been purchased.
func (r *StopRepository) AnyPurchasedForRequest(ctx context.Context, requestID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM stop_items i
			JOIN stops s ON s.id = i.stop_id
			WHERE s.request_id = $1 AND i.is_purchased
		)
	`

	var exists bool
	err := r.q.QueryRowContext(ctx, query, requestID).Scan(&exists)
	return exists, err
}

// ItemsTotalForRequest returns the sum of actual_cost over purchased items.
func (r *StopRepository) ItemsTotalForRequest(ctx context.Context, requestID string) (float64, error) {
	query := `
		SELECT COALESCE(SUM(i.actual_cost), 0) FROM stop_items i
		JOIN stops s ON s.id = i.stop_id
		WHERE s.request_id = $1 AND i.is_purchased
	`

	var total float64
	err := r.q.QueryRowContext(ctx, query, requestID).Scan(&total)
	return total, err
}
