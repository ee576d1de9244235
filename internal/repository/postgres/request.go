package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"movix/internal/domain"
	"movix/internal/repository"
)

// RequestRepository is a PostgreSQL implementation of repository.RequestRepository.
type RequestRepository struct {
	q Querier
}

// NewRequestRepository creates a new PostgreSQL request repository.
func NewRequestRepository(db *sql.DB) *RequestRepository {
	return &RequestRepository{q: db}
}

// NewRequestRepositoryWithTx creates a request repository using a transaction.
func NewRequestRepositoryWithTx(tx *sql.Tx) *RequestRepository {
	return &RequestRepository{q: tx}
}

const requestColumns = `
	id, client_id, assigned_driver_id, service_type, mandadito_type,
	origin_lat, origin_lng, origin_address,
	destination_lat, destination_lng, destination_address,
	estimated_price, final_price, status, tracking_step,
	created_at, request_expires_at, assigned_at, started_at, completed_at,
	boarding_pin, cancellation_reason, version`

// Create persists a new service request.
func (r *RequestRepository) Create(ctx context.Context, req *domain.ServiceRequest) error {
	query := `
		INSERT INTO service_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`

	_, err := r.q.ExecContext(ctx, query,
		req.ID,
		req.ClientID,
		nullString(req.AssignedDriverID),
		req.ServiceType,
		nullString(string(req.MandaditoType)),
		req.OriginLat,
		req.OriginLng,
		req.OriginAddress,
		nullFloat(req.DestinationLat),
		nullFloat(req.DestinationLng),
		nullString(req.DestinationAddress),
		req.EstimatedPrice,
		req.FinalPrice,
		req.Status,
		nullString(string(req.TrackingStep)),
		req.CreatedAt,
		req.RequestExpiresAt,
		nullTime(req.AssignedAt),
		nullTime(req.StartedAt),
		nullTime(req.CompletedAt),
		nullString(req.BoardingPin),
		nullString(req.CancellationReason),
		req.Version,
	)

	return err
}

// GetByID retrieves a request by ID.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM service_requests WHERE id = $1`

	row := r.q.QueryRowContext(ctx, query, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return req, nil
}

// UpdateIfVersion performs the conditional write that backs every guarded
// transition. The WHERE clause on version makes two racing writers resolve
// to exactly one winner; the loser sees ErrVersionConflict.
func (r *RequestRepository) UpdateIfVersion(ctx context.Context, req *domain.ServiceRequest, expectedVersion int64) error {
	query := `
		UPDATE service_requests
		SET assigned_driver_id = $1, final_price = $2, status = $3, tracking_step = $4,
		    created_at = $5, request_expires_at = $6, assigned_at = $7, started_at = $8,
		    completed_at = $9, boarding_pin = $10, cancellation_reason = $11,
		    version = version + 1
		WHERE id = $12 AND version = $13
	`

	result, err := r.q.ExecContext(ctx, query,
		nullString(req.AssignedDriverID),
		req.FinalPrice,
		req.Status,
		nullString(string(req.TrackingStep)),
		req.CreatedAt,
		req.RequestExpiresAt,
		nullTime(req.AssignedAt),
		nullTime(req.StartedAt),
		nullTime(req.CompletedAt),
		nullString(req.BoardingPin),
		nullString(req.CancellationReason),
		req.ID,
		expectedVersion,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrVersionConflict
	}

	req.Version = expectedVersion + 1
	return nil
}

// ListActiveByDriver returns non-terminal requests assigned to the driver.
func (r *RequestRepository) ListActiveByDriver(ctx context.Context, driverID string) ([]*domain.ServiceRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM service_requests
		WHERE assigned_driver_id = $1 AND status IN ('assigned', 'in_progress')
		ORDER BY assigned_at DESC
	`

	rows, err := r.q.QueryContext(ctx, query, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*domain.ServiceRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*domain.ServiceRequest, error) {
	var req domain.ServiceRequest
	var assignedDriverID, mandaditoType, destinationAddress sql.NullString
	var trackingStep, boardingPin, cancellationReason sql.NullString
	var destinationLat, destinationLng sql.NullFloat64
	var assignedAt, startedAt, completedAt sql.NullTime

	err := row.Scan(
		&req.ID,
		&req.ClientID,
		&assignedDriverID,
		&req.ServiceType,
		&mandaditoType,
		&req.OriginLat,
		&req.OriginLng,
		&req.OriginAddress,
		&destinationLat,
		&destinationLng,
		&destinationAddress,
		&req.EstimatedPrice,
		&req.FinalPrice,
		&req.Status,
		&trackingStep,
		&req.CreatedAt,
		&req.RequestExpiresAt,
		&assignedAt,
		&startedAt,
		&completedAt,
		&boardingPin,
		&cancellationReason,
		&req.Version,
	)
	if err != nil {
		return nil, err
	}

	if assignedDriverID.Valid {
		req.AssignedDriverID = assignedDriverID.String
	}
	if mandaditoType.Valid {
		req.MandaditoType = domain.MandaditoType(mandaditoType.String)
	}
	if destinationLat.Valid {
		req.DestinationLat = &destinationLat.Float64
	}
	if destinationLng.Valid {
		req.DestinationLng = &destinationLng.Float64
	}
	if destinationAddress.Valid {
		req.DestinationAddress = destinationAddress.String
	}
	if trackingStep.Valid {
		req.TrackingStep = domain.TrackingStep(trackingStep.String)
	}
	if assignedAt.Valid {
		req.AssignedAt = assignedAt.Time
	}
	if startedAt.Valid {
		req.StartedAt = startedAt.Time
	}
	if completedAt.Valid {
		req.CompletedAt = completedAt.Time
	}
	if boardingPin.Valid {
		req.BoardingPin = boardingPin.String
	}
	if cancellationReason.Valid {
		req.CancellationReason = cancellationReason.String
	}

	return &req, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
