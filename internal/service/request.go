package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"movix/internal/config"
	"movix/internal/domain"
	"movix/internal/geo"
	"movix/internal/observability"
	"movix/internal/redis"
	"movix/internal/repository"
)

// LocationSource exposes the latest known position of a live service.
// Used by the client-cancellation proximity guard.
type LocationSource interface {
	GetLatest(ctx context.Context, serviceID string) (*domain.LocationSample, error)
}

// RequestService owns the request lifecycle state machine. Every transition
// is a guarded conditional write; a guard violation fails before any
// mutation and a lost write surfaces as a conflict.
type RequestService struct {
	requestRepo repository.RequestRepository
	stopRepo    repository.StopRepository
	locations   LocationSource
	snapshots   redis.SnapshotStoreInterface
	events      *EventService

	matching   config.MatchingConfig
	commercial config.CommercialConfig

	now func() time.Time
}

// NewRequestService creates a new RequestService. locations, snapshots and
// events may be nil; the corresponding side effects are skipped.
func NewRequestService(
	requestRepo repository.RequestRepository,
	stopRepo repository.StopRepository,
	locations LocationSource,
	snapshots redis.SnapshotStoreInterface,
	events *EventService,
	matching config.MatchingConfig,
	commercial config.CommercialConfig,
) *RequestService {
	return &RequestService{
		requestRepo: requestRepo,
		stopRepo:    stopRepo,
		locations:   locations,
		snapshots:   snapshots,
		events:      events,
		matching:    matching,
		commercial:  commercial,
		now:         time.Now,
	}
}

// WithClock overrides the service's clock. Intended for tests; business
// deadlines are always anchored to this clock, never a client's.
func (s *RequestService) WithClock(now func() time.Time) *RequestService {
	s.now = now
	return s
}

// CreateRequestParams contains the parameters for creating a request.
type CreateRequestParams struct {
	ClientID           string
	ServiceType        domain.ServiceType
	MandaditoType      domain.MandaditoType
	OriginLat          float64
	OriginLng          float64
	OriginAddress      string
	DestinationLat     *float64
	DestinationLng     *float64
	DestinationAddress string
	EstimatedPrice     float64
}

// CreateRequest validates the payload per service type and persists a new
// pending request with its negotiation deadline stamped on the server clock.
func (s *RequestService) CreateRequest(ctx context.Context, params CreateRequestParams) (*domain.ServiceRequest, error) {
	if err := s.validateCreateParams(params); err != nil {
		return nil, err
	}

	now := s.now()
	window := s.matching.NegotiationWindow(string(params.ServiceType))

	req := &domain.ServiceRequest{
		ID:                 uuid.New().String(),
		ClientID:           params.ClientID,
		ServiceType:        params.ServiceType,
		MandaditoType:      params.MandaditoType,
		OriginLat:          params.OriginLat,
		OriginLng:          params.OriginLng,
		OriginAddress:      params.OriginAddress,
		DestinationLat:     params.DestinationLat,
		DestinationLng:     params.DestinationLng,
		DestinationAddress: params.DestinationAddress,
		EstimatedPrice:     params.EstimatedPrice,
		Status:             domain.RequestStatusPending,
		CreatedAt:          now,
		RequestExpiresAt:   now.Add(window),
		Version:            1,
	}

	if err := s.requestRepo.Create(ctx, req); err != nil {
		return nil, err
	}
	observability.RequestsCreated.WithLabelValues(string(req.ServiceType)).Inc()

	if s.events != nil {
		s.events.RequestUpdated(ctx, "request_created", req)
	}
	return req, nil
}

func (s *RequestService) validateCreateParams(params CreateRequestParams) error {
	if params.ClientID == "" {
		return ErrInvalidClientID
	}

	switch params.ServiceType {
	case domain.ServiceTypeTaxi, domain.ServiceTypeMotoRide:
		if params.MandaditoType != "" {
			return ErrInvalidMandaditoType
		}
		// Destination stays nullable: a rider can hail first and settle
		// the drop-off with the driver. Route recompute degrades to the
		// pickup leg only until a destination is known.
	case domain.ServiceTypeMandadito:
		switch params.MandaditoType {
		case domain.MandaditoTypeShopping, domain.MandaditoTypeDelivery, domain.MandaditoTypePayment:
		default:
			return ErrInvalidMandaditoType
		}
	default:
		return ErrInvalidServiceType
	}

	if !geo.ValidLatitude(params.OriginLat) || !geo.ValidLongitude(params.OriginLng) {
		return ErrInvalidOrigin
	}
	if params.DestinationLat != nil || params.DestinationLng != nil {
		if params.DestinationLat == nil || params.DestinationLng == nil ||
			!geo.ValidLatitude(*params.DestinationLat) || !geo.ValidLongitude(*params.DestinationLng) {
			return ErrInvalidDestination
		}
	}
	if params.EstimatedPrice <= 0 {
		return ErrInvalidPrice
	}
	return nil
}

// RequestView is a request plus its server-anchored countdown snapshot.
// RemainingSeconds is taken once; clients extrapolate locally instead of
// re-fetching every tick.
type RequestView struct {
	Request          *domain.ServiceRequest
	ServerTime       time.Time
	RemainingSeconds int64
	Expired          bool
}

// GetRequest fetches a request with its countdown snapshot.
func (s *RequestService) GetRequest(ctx context.Context, requestID string) (*RequestView, error) {
	if requestID == "" {
		return nil, ErrInvalidRequestID
	}

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	view := &RequestView{Request: req, ServerTime: now, Expired: req.Expired(now)}
	if req.Status == domain.RequestStatusPending && !view.Expired {
		view.RemainingSeconds = int64(req.RequestExpiresAt.Sub(now).Seconds())
	}
	return view, nil
}

// StatusView is the compact, cache-friendly view backing the status poll
// loop. Clients hammering this endpoint during negotiation hit Redis, not
// Postgres.
type StatusView struct {
	ID               string
	Status           string
	TrackingStep     string
	AssignedDriverID string
	FinalPrice       float64
	ServerTime       time.Time
}

// GetStatus reads the request's compact status through the snapshot cache.
func (s *RequestService) GetStatus(ctx context.Context, requestID string) (*StatusView, error) {
	if requestID == "" {
		return nil, ErrInvalidRequestID
	}

	if s.snapshots != nil {
		snap, err := s.snapshots.GetRequest(ctx, requestID)
		if err == nil && snap != nil {
			return &StatusView{
				ID:               snap.ID,
				Status:           snap.Status,
				TrackingStep:     snap.TrackingStep,
				AssignedDriverID: snap.AssignedDriverID,
				FinalPrice:       snap.FinalPrice,
				ServerTime:       s.now(),
			}, nil
		}
	}

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if s.snapshots != nil {
		_ = s.snapshots.SetRequest(ctx, snapshotOf(req))
	}
	return &StatusView{
		ID:               req.ID,
		Status:           string(req.Status),
		TrackingStep:     string(req.TrackingStep),
		AssignedDriverID: req.AssignedDriverID,
		FinalPrice:       req.FinalPrice,
		ServerTime:       s.now(),
	}, nil
}

// ActiveForDriver returns the driver's current workload, newest first.
// Drivers resume from this on app restart instead of losing the trip.
func (s *RequestService) ActiveForDriver(ctx context.Context, driverID string) ([]*domain.ServiceRequest, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	return s.requestRepo.ListActiveByDriver(ctx, driverID)
}

func snapshotOf(req *domain.ServiceRequest) *redis.RequestSnapshot {
	return &redis.RequestSnapshot{
		ID:               req.ID,
		ClientID:         req.ClientID,
		Status:           string(req.Status),
		TrackingStep:     string(req.TrackingStep),
		AssignedDriverID: req.AssignedDriverID,
		FinalPrice:       req.FinalPrice,
		Version:          req.Version,
	}
}

// ReissueRequest re-arms an expired pending request. This is an explicit
// client action, never automatic.
func (s *RequestService) ReissueRequest(ctx context.Context, requestID, clientID string) (*domain.ServiceRequest, error) {
	if requestID == "" {
		return nil, ErrInvalidRequestID
	}
	if clientID == "" {
		return nil, ErrInvalidClientID
	}

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.ClientID != clientID {
		return nil, ErrNotRequestClient
	}
	if req.Terminal() {
		return nil, ErrRequestTerminal
	}

	now := s.now()
	if req.Status != domain.RequestStatusPending || !req.Expired(now) {
		return nil, ErrRequestNotExpired
	}

	req.CreatedAt = now
	req.RequestExpiresAt = now.Add(s.matching.NegotiationWindow(string(req.ServiceType)))
	req.AssignedDriverID = ""
	req.FinalPrice = 0
	req.BoardingPin = ""

	if err := s.writeTransition(ctx, req); err != nil {
		return nil, err
	}
	if s.events != nil {
		s.events.RequestUpdated(ctx, "request_reissued", req)
	}
	return req, nil
}

// AdvanceTrackingStep moves the request's tracking step forward on an
// explicit driver action. Steps only ever advance; reaching picked_up
// flips the request to in_progress and stamps started_at.
func (s *RequestService) AdvanceTrackingStep(ctx context.Context, requestID, driverID string, step domain.TrackingStep) (*domain.ServiceRequest, error) {
	if requestID == "" {
		return nil, ErrInvalidRequestID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	newIdx := step.Index()
	if newIdx < 0 || step == domain.TrackingStepCompleted {
		// Completion is PIN-gated, never a plain step advance.
		return nil, ErrInvalidTrackingStep
	}

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.AssignedDriverID != driverID {
		return nil, ErrNotAssignedDriver
	}
	if req.Status != domain.RequestStatusAssigned && req.Status != domain.RequestStatusInProgress {
		return nil, ErrRequestNotAssigned
	}
	if req.TrackingStep != "" && newIdx <= req.TrackingStep.Index() {
		return nil, ErrStepNotMonotonic
	}

	req.TrackingStep = step
	if newIdx >= domain.TrackingStepPickedUp.Index() && req.Status == domain.RequestStatusAssigned {
		req.Status = domain.RequestStatusInProgress
		req.StartedAt = s.now()
	}

	if err := s.writeTransition(ctx, req); err != nil {
		return nil, err
	}
	if s.events != nil {
		s.events.RequestUpdated(ctx, "tracking_step_advanced", req)
	}
	return req, nil
}

// PinResult is the outcome of a successful PIN validation.
type PinResult struct {
	Request  *domain.ServiceRequest
	Earnings float64
}

// ValidateBoardingPin checks the candidate PIN server-side and, only on a
// match, closes the request and computes the driver's earnings. A mismatch
// mutates nothing. There is deliberately no retry lockout.
func (s *RequestService) ValidateBoardingPin(ctx context.Context, requestID, driverID, pin string) (*PinResult, error) {
	if requestID == "" {
		return nil, ErrInvalidRequestID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	if !validPinFormat(pin) {
		return nil, ErrInvalidPin
	}

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.AssignedDriverID != driverID {
		return nil, ErrNotAssignedDriver
	}
	if req.Terminal() {
		return nil, ErrRequestTerminal
	}
	if req.Status != domain.RequestStatusInProgress {
		return nil, ErrRequestNotInProgress
	}
	if req.BoardingPin != pin {
		return nil, ErrPinMismatch
	}

	req.Status = domain.RequestStatusCompleted
	req.TrackingStep = domain.TrackingStepCompleted
	req.CompletedAt = s.now()

	if err := s.writeTransition(ctx, req); err != nil {
		return nil, err
	}

	earnings := req.FinalPrice * (1 - s.commercial.CommissionRate)
	if req.ServiceType == domain.ServiceTypeMandadito && req.MandaditoType == domain.MandaditoTypeShopping && s.stopRepo != nil {
		// Purchased item costs are advanced by the driver and reimbursed
		// on top of the fee.
		itemsTotal, err := s.stopRepo.ItemsTotalForRequest(ctx, req.ID)
		if err != nil {
			log.Printf("request: items total for request %s: %v", req.ID, err)
		} else {
			earnings += itemsTotal
		}
	}

	if s.events != nil {
		s.events.RequestUpdated(ctx, "request_completed", req)
	}
	return &PinResult{Request: req, Earnings: earnings}, nil
}

// CancelByClient cancels a request on behalf of its client, enforcing the
// anti-abuse guardrails: not after the free window, and not once the
// driver is effectively at the pickup point.
func (s *RequestService) CancelByClient(ctx context.Context, requestID, clientID, reason string) (*domain.ServiceRequest, error) {
	if requestID == "" {
		return nil, ErrInvalidRequestID
	}
	if clientID == "" {
		return nil, ErrInvalidClientID
	}
	if reason == "" {
		return nil, ErrMissingReason
	}

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.ClientID != clientID {
		return nil, ErrNotRequestClient
	}
	if req.Terminal() {
		return nil, ErrRequestTerminal
	}

	if req.Status == domain.RequestStatusAssigned || req.Status == domain.RequestStatusInProgress {
		now := s.now()
		window := s.matching.CancelFreeWindow(string(req.ServiceType))
		if !req.AssignedAt.IsZero() && now.Sub(req.AssignedAt) > window {
			return nil, ErrCancelWindowElapsed
		}
		if err := s.guardDriverProximity(ctx, req); err != nil {
			return nil, err
		}
	}

	return s.cancel(ctx, req, reason)
}

// guardDriverProximity refuses client cancellation when the driver's last
// known position is within the configured radius of the origin.
func (s *RequestService) guardDriverProximity(ctx context.Context, req *domain.ServiceRequest) error {
	if s.locations == nil {
		return nil
	}

	sample, err := s.locations.GetLatest(ctx, req.ID)
	if err != nil || sample == nil {
		// No position available: the guard cannot fire. Location freshness
		// never blocks the state machine.
		return nil
	}

	dist := geo.Haversine(sample.Lat, sample.Lng, req.OriginLat, req.OriginLng)
	if dist <= s.matching.CancelProximityMeters {
		return ErrDriverTooClose
	}
	return nil
}

// CancelByDriver cancels a request on behalf of its assigned driver. Once
// shopping items have been purchased the cost is sunk and the driver can
// no longer walk away.
func (s *RequestService) CancelByDriver(ctx context.Context, requestID, driverID, reason string) (*domain.ServiceRequest, error) {
	if requestID == "" {
		return nil, ErrInvalidRequestID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	if reason == "" {
		return nil, ErrMissingReason
	}

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Terminal() {
		return nil, ErrRequestTerminal
	}
	if req.AssignedDriverID != driverID {
		return nil, ErrNotAssignedDriver
	}

	if s.stopRepo != nil {
		purchased, err := s.stopRepo.AnyPurchasedForRequest(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		if purchased {
			return nil, ErrPurchasedItemsExist
		}
	}

	return s.cancel(ctx, req, reason)
}

func (s *RequestService) cancel(ctx context.Context, req *domain.ServiceRequest, reason string) (*domain.ServiceRequest, error) {
	req.Status = domain.RequestStatusCancelled
	req.CancellationReason = reason

	if err := s.writeTransition(ctx, req); err != nil {
		return nil, err
	}
	if s.events != nil {
		s.events.RequestUpdated(ctx, "request_cancelled", req)
	}
	return req, nil
}

// writeTransition performs the conditional write for a transition and
// invalidates the cached snapshot. A lost version race is a conflict: the
// caller refetches, nothing was partially applied.
func (s *RequestService) writeTransition(ctx context.Context, req *domain.ServiceRequest) error {
	if err := s.requestRepo.UpdateIfVersion(ctx, req, req.Version); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return ErrAcceptConflict
		}
		return err
	}
	if s.snapshots != nil {
		_ = s.snapshots.InvalidateRequest(ctx, req.ID)
	}
	return nil
}
