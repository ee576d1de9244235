package postgres

import (
	"context"
	"database/sql"
	"errors"

	"movix/internal/domain"
	"movix/internal/repository"
)

// LocationRepository is a PostgreSQL implementation of repository.LocationRepository.
// The table is append-only; rows are never updated or deleted while the
// service is live.
type LocationRepository struct {
	q Querier
}

// NewLocationRepository creates a new PostgreSQL location repository.
func NewLocationRepository(db *sql.DB) *LocationRepository {
	return &LocationRepository{q: db}
}

// Append persists a new location sample.
func (r *LocationRepository) Append(ctx context.Context, sample *domain.LocationSample) error {
	query := `
		INSERT INTO location_samples (id, service_id, driver_id, lat, lng, accuracy, bearing, speed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.ExecContext(ctx, query,
		sample.ID,
		sample.ServiceID,
		sample.DriverID,
		sample.Lat,
		sample.Lng,
		sample.Accuracy,
		sample.Bearing,
		sample.Speed,
		sample.CreatedAt,
	)
	return err
}

// Latest returns the most recent sample for a service.
func (r *LocationRepository) Latest(ctx context.Context, serviceID string) (*domain.LocationSample, error) {
	query := `
		SELECT id, service_id, driver_id, lat, lng, accuracy, bearing, speed, created_at
		FROM location_samples
		WHERE service_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var sample domain.LocationSample
	err := r.q.QueryRowContext(ctx, query, serviceID).Scan(
		&sample.ID,
		&sample.ServiceID,
		&sample.DriverID,
		&sample.Lat,
		&sample.Lng,
		&sample.Accuracy,
		&sample.Bearing,
		&sample.Speed,
		&sample.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &sample, nil
}
