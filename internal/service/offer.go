package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"movix/internal/config"
	"movix/internal/domain"
	"movix/internal/observability"
	"movix/internal/redis"
	"movix/internal/repository"
)

// acceptLockTTL bounds how long a crashed acceptance attempt can keep
// other accepts shedding to the slow path.
const acceptLockTTL = 5 * time.Second

// OfferService runs the negotiation protocol: drivers bid, either side
// counters, and exactly one offer per request ever reaches accepted.
type OfferService struct {
	requestRepo repository.RequestRepository
	offerRepo   repository.OfferRepository
	uow         repository.UnitOfWork
	locks       redis.LockStoreInterface
	snapshots   redis.SnapshotStoreInterface
	events      *EventService

	matching config.MatchingConfig

	now func() time.Time
}

// NewOfferService creates a new OfferService. locks, snapshots and events
// may be nil; the corresponding side effects are skipped.
func NewOfferService(
	requestRepo repository.RequestRepository,
	offerRepo repository.OfferRepository,
	uow repository.UnitOfWork,
	locks redis.LockStoreInterface,
	snapshots redis.SnapshotStoreInterface,
	events *EventService,
	matching config.MatchingConfig,
) *OfferService {
	return &OfferService{
		requestRepo: requestRepo,
		offerRepo:   offerRepo,
		uow:         uow,
		locks:       locks,
		snapshots:   snapshots,
		events:      events,
		matching:    matching,
		now:         time.Now,
	}
}

// WithClock overrides the service's clock. Intended for tests.
func (s *OfferService) WithClock(now func() time.Time) *OfferService {
	s.now = now
	return s
}

// SubmitOffer records a driver's initial bid on an open request. The first
// bid moves the request from pending to negotiating, which stops the
// expiry countdown.
func (s *OfferService) SubmitOffer(ctx context.Context, requestID, driverID string, price float64) (*domain.Offer, error) {
	if requestID == "" {
		return nil, ErrInvalidRequestID
	}
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	if price <= 0 {
		return nil, ErrInvalidPrice
	}

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if req.Terminal() || req.Status == domain.RequestStatusAssigned || req.Status == domain.RequestStatusInProgress {
		return nil, ErrRequestClosed
	}
	if !req.OpenForOffers(now) {
		return nil, ErrRequestExpired
	}

	offer := &domain.Offer{
		ID:           uuid.New().String(),
		RequestID:    requestID,
		DriverID:     driverID,
		OfferedPrice: price,
		OfferType:    domain.OfferTypeInitial,
		Status:       domain.OfferStatusPending,
		ExpiresAt:    now.Add(s.matching.OfferTTL),
		CreatedAt:    now,
	}
	if err := s.offerRepo.Create(ctx, offer); err != nil {
		return nil, err
	}
	observability.OffersSubmitted.Inc()

	if req.Status == domain.RequestStatusPending {
		req.Status = domain.RequestStatusNegotiating
		if err := s.requestRepo.UpdateIfVersion(ctx, req, req.Version); err != nil {
			// Another driver's first bid won the flip; the request is
			// already negotiating and this offer still stands.
			if !errors.Is(err, repository.ErrVersionConflict) {
				return nil, err
			}
		}
		if s.snapshots != nil {
			_ = s.snapshots.InvalidateRequest(ctx, req.ID)
		}
	}

	if s.events != nil {
		s.events.OfferUpdated(ctx, "offer_submitted", offer)
	}
	return offer, nil
}

// CounterOffer answers the latest price with a new one. A client counters
// a driver-priced offer and vice versa; each counter supersedes the offer
// it answers and re-arms the offer deadline.
func (s *OfferService) CounterOffer(ctx context.Context, offerID, actorID string, price float64) (*domain.Offer, error) {
	if offerID == "" {
		return nil, ErrInvalidOfferID
	}
	if actorID == "" {
		return nil, ErrInvalidClientID
	}
	if price <= 0 {
		return nil, ErrInvalidPrice
	}

	prev, err := s.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if prev.Status != domain.OfferStatusPending {
		return nil, ErrOfferNotPending
	}

	req, err := s.requestRepo.GetByID(ctx, prev.RequestID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !req.OpenForOffers(now) {
		return nil, ErrRequestClosed
	}

	var counterType domain.OfferType
	switch {
	case driverPriced(prev.OfferType):
		// Only the request's client may answer a driver price.
		if req.ClientID != actorID {
			return nil, ErrNotRequestClient
		}
		counterType = domain.OfferTypeClientCounter
	default:
		// Only the driver on this offer thread may answer a client price.
		if prev.DriverID != actorID {
			return nil, ErrNotOfferOwner
		}
		counterType = domain.OfferTypeDriverCounter
	}

	prev.Status = domain.OfferStatusRejected
	if err := s.offerRepo.Update(ctx, prev); err != nil {
		return nil, err
	}

	counter := &domain.Offer{
		ID:           uuid.New().String(),
		RequestID:    prev.RequestID,
		DriverID:     prev.DriverID,
		OfferedPrice: price,
		OfferType:    counterType,
		Status:       domain.OfferStatusPending,
		ExpiresAt:    now.Add(s.matching.OfferTTL),
		CreatedAt:    now,
	}
	if err := s.offerRepo.Create(ctx, counter); err != nil {
		return nil, err
	}
	observability.OffersSubmitted.Inc()

	if s.events != nil {
		s.events.OfferUpdated(ctx, "offer_countered", counter)
	}
	return counter, nil
}

// RejectOffer declines a pending offer without countering.
func (s *OfferService) RejectOffer(ctx context.Context, offerID, actorID string) (*domain.Offer, error) {
	if offerID == "" {
		return nil, ErrInvalidOfferID
	}
	if actorID == "" {
		return nil, ErrInvalidClientID
	}

	offer, err := s.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.Status != domain.OfferStatusPending {
		return nil, ErrOfferNotPending
	}

	req, err := s.requestRepo.GetByID(ctx, offer.RequestID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeCounterparty(req, offer, actorID); err != nil {
		return nil, err
	}

	offer.Status = domain.OfferStatusRejected
	if err := s.offerRepo.Update(ctx, offer); err != nil {
		return nil, err
	}

	if s.events != nil {
		s.events.OfferUpdated(ctx, "offer_rejected", offer)
	}
	return offer, nil
}

// AcceptOffer accepts a pending offer and assigns the request to the
// offer's driver at the offered price, atomically. Concurrent accepts on
// the same request race on the request's version; exactly one wins and
// every loser gets ErrAcceptConflict with nothing applied.
func (s *OfferService) AcceptOffer(ctx context.Context, offerID, actorID string) (*domain.ServiceRequest, error) {
	if offerID == "" {
		return nil, ErrInvalidOfferID
	}
	if actorID == "" {
		return nil, ErrInvalidClientID
	}

	offer, err := s.offerRepo.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}

	// Fast-path guard: one acceptance attempt per request at a time. The
	// version check inside the transaction is the real arbiter; the lock
	// only sheds the stampede.
	if s.locks != nil {
		ok, err := s.locks.AcquireAcceptLock(ctx, offer.RequestID, acceptLockTTL)
		if err == nil && !ok {
			observability.AcceptConflicts.Inc()
			return nil, ErrAcceptConflict
		}
		if err == nil {
			defer func() {
				if rerr := s.locks.ReleaseAcceptLock(context.WithoutCancel(ctx), offer.RequestID); rerr != nil {
					log.Printf("offer: release accept lock for request %s: %v", offer.RequestID, rerr)
				}
			}()
		}
	}

	var accepted *domain.ServiceRequest
	txErr := s.uow.WithinTx(ctx, func(repos repository.TxRepos) error {
		offer, err := repos.Offers.GetByID(ctx, offerID)
		if err != nil {
			return err
		}

		now := s.now()
		if offer.Status != domain.OfferStatusPending {
			return ErrOfferNotPending
		}
		if offer.IsExpired(now) {
			return ErrOfferExpired
		}

		req, err := repos.Requests.GetByID(ctx, offer.RequestID)
		if err != nil {
			return err
		}
		if err := s.authorizeCounterparty(req, offer, actorID); err != nil {
			return err
		}
		if !req.OpenForOffers(now) {
			return ErrRequestClosed
		}

		pin, err := generateBoardingPin()
		if err != nil {
			return err
		}

		req.Status = domain.RequestStatusAssigned
		req.AssignedDriverID = offer.DriverID
		req.FinalPrice = offer.OfferedPrice
		req.BoardingPin = pin
		req.AssignedAt = now
		req.TrackingStep = domain.TrackingStepAccepted

		if err := repos.Requests.UpdateIfVersion(ctx, req, req.Version); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				return ErrAcceptConflict
			}
			return err
		}

		offer.Status = domain.OfferStatusAccepted
		if err := repos.Offers.Update(ctx, offer); err != nil {
			return err
		}
		if _, err := repos.Offers.RejectOtherPending(ctx, req.ID, offer.ID); err != nil {
			return err
		}

		accepted = req
		return nil
	})
	if txErr != nil {
		if errors.Is(txErr, ErrAcceptConflict) {
			observability.AcceptConflicts.Inc()
		}
		return nil, txErr
	}

	if s.snapshots != nil {
		_ = s.snapshots.InvalidateRequest(ctx, accepted.ID)
	}
	if s.events != nil {
		s.events.RequestUpdated(ctx, "request_assigned", accepted)
	}
	return accepted, nil
}

// ListOffers returns all offers on a request, newest first.
func (s *OfferService) ListOffers(ctx context.Context, requestID string) ([]*domain.Offer, error) {
	if requestID == "" {
		return nil, ErrInvalidRequestID
	}
	return s.offerRepo.ListByRequest(ctx, requestID)
}

// authorizeCounterparty checks that the actor is the party entitled to
// answer the offer: the client for driver-priced offers, the offer's
// driver for client counters.
func (s *OfferService) authorizeCounterparty(req *domain.ServiceRequest, offer *domain.Offer, actorID string) error {
	if driverPriced(offer.OfferType) {
		if req.ClientID != actorID {
			return ErrNotRequestClient
		}
		return nil
	}
	if offer.DriverID != actorID {
		return ErrNotOfferOwner
	}
	return nil
}

// driverPriced reports whether the offer's current price was set by the
// driver side.
func driverPriced(t domain.OfferType) bool {
	return t == domain.OfferTypeInitial || t == domain.OfferTypeDriverCounter
}
