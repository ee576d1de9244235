package tests

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"movix/internal/domain"
	"movix/internal/service"
)

type offerFixture struct {
	clk      *fakeClock
	requests *MockRequestRepository
	offers   *MockOfferRepository
	locks    *MockLockStore
	svc      *service.OfferService
}

func newOfferFixture(withLocks bool) *offerFixture {
	clk := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	requests := NewMockRequestRepository()
	offers := NewMockOfferRepository()
	uow := NewMockUnitOfWork(requests, offers)
	events := service.NewEventService(NewMockPublisher())

	var locks *MockLockStore
	if withLocks {
		locks = NewMockLockStore()
	}

	f := &offerFixture{clk: clk, requests: requests, offers: offers, locks: locks}
	if withLocks {
		f.svc = service.NewOfferService(requests, offers, uow, locks, NewMockSnapshotStore(), events, testMatchingConfig()).WithClock(clk.Now)
	} else {
		f.svc = service.NewOfferService(requests, offers, uow, nil, NewMockSnapshotStore(), events, testMatchingConfig()).WithClock(clk.Now)
	}
	return f
}

func (f *offerFixture) seedPendingRequest(id string) *domain.ServiceRequest {
	// A hail with the drop-off still unsettled; negotiation does not need
	// a destination.
	req := &domain.ServiceRequest{
		ID:               id,
		ClientID:         "client-1",
		ServiceType:      domain.ServiceTypeTaxi,
		OriginLat:        19.43,
		OriginLng:        -99.13,
		EstimatedPrice:   35,
		Status:           domain.RequestStatusPending,
		CreatedAt:        f.clk.Now(),
		RequestExpiresAt: f.clk.Now().Add(45 * time.Second),
		Version:          1,
	}
	f.requests.AddRequest(req)
	return req
}

func TestSubmitOffer_MovesRequestToNegotiating(t *testing.T) {
	t.Parallel()

	f := newOfferFixture(false)
	f.seedPendingRequest("req-1")
	ctx := context.Background()

	offer, err := f.svc.SubmitOffer(ctx, "req-1", "driver-1", 40)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if offer.OfferType != domain.OfferTypeInitial || offer.Status != domain.OfferStatusPending {
		t.Fatalf("unexpected offer: %+v", offer)
	}

	stored, _ := f.requests.GetByID(ctx, "req-1")
	if stored.Status != domain.RequestStatusNegotiating {
		t.Fatalf("first offer should flip status to negotiating, got %s", stored.Status)
	}

	// Negotiating requests no longer expire; offers remain possible past
	// the original deadline.
	f.clk.Advance(2 * time.Minute)
	if _, err := f.svc.SubmitOffer(ctx, "req-1", "driver-2", 45); err != nil {
		t.Fatalf("submit on negotiating request: %v", err)
	}
}

func TestSubmitOffer_ExpiredRequest(t *testing.T) {
	t.Parallel()

	f := newOfferFixture(false)
	f.seedPendingRequest("req-1")
	f.clk.Advance(46 * time.Second)

	if _, err := f.svc.SubmitOffer(context.Background(), "req-1", "driver-1", 40); !errors.Is(err, service.ErrRequestExpired) {
		t.Fatalf("expected ErrRequestExpired, got %v", err)
	}
}

func TestNegotiation_CounterAndAccept(t *testing.T) {
	t.Parallel()

	f := newOfferFixture(false)
	f.seedPendingRequest("req-1")
	ctx := context.Background()

	initial, err := f.svc.SubmitOffer(ctx, "req-1", "driver-1", 50)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Only the client may answer a driver price.
	if _, err := f.svc.CounterOffer(ctx, initial.ID, "driver-1", 48); !errors.Is(err, service.ErrNotRequestClient) {
		t.Fatalf("expected ErrNotRequestClient, got %v", err)
	}

	clientCounter, err := f.svc.CounterOffer(ctx, initial.ID, "client-1", 40)
	if err != nil {
		t.Fatalf("client counter: %v", err)
	}
	if clientCounter.OfferType != domain.OfferTypeClientCounter {
		t.Fatalf("expected client_counter, got %s", clientCounter.OfferType)
	}

	// The countered offer is superseded; it can no longer be accepted.
	if _, err := f.svc.AcceptOffer(ctx, initial.ID, "client-1"); !errors.Is(err, service.ErrOfferNotPending) {
		t.Fatalf("expected ErrOfferNotPending for superseded offer, got %v", err)
	}

	driverCounter, err := f.svc.CounterOffer(ctx, clientCounter.ID, "driver-1", 45)
	if err != nil {
		t.Fatalf("driver counter: %v", err)
	}
	if driverCounter.OfferType != domain.OfferTypeDriverCounter {
		t.Fatalf("expected driver_counter, got %s", driverCounter.OfferType)
	}

	req, err := f.svc.AcceptOffer(ctx, driverCounter.ID, "client-1")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if req.Status != domain.RequestStatusAssigned {
		t.Fatalf("expected assigned, got %s", req.Status)
	}
	if req.FinalPrice != 45 {
		t.Fatalf("expected final price 45, got %.2f", req.FinalPrice)
	}
	if req.AssignedDriverID != "driver-1" {
		t.Fatalf("expected driver-1 assigned, got %s", req.AssignedDriverID)
	}
	if req.TrackingStep != domain.TrackingStepAccepted {
		t.Fatalf("expected tracking step accepted, got %s", req.TrackingStep)
	}
	if len(req.BoardingPin) != 4 {
		t.Fatalf("expected a 4-digit boarding PIN, got %q", req.BoardingPin)
	}
}

func TestAcceptOffer_RejectsOtherPending(t *testing.T) {
	t.Parallel()

	f := newOfferFixture(false)
	f.seedPendingRequest("req-1")
	ctx := context.Background()

	cheap, err := f.svc.SubmitOffer(ctx, "req-1", "driver-1", 40)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	expensive, err := f.svc.SubmitOffer(ctx, "req-1", "driver-2", 45)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := f.svc.AcceptOffer(ctx, cheap.ID, "client-1"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	stored, _ := f.offers.GetByID(ctx, expensive.ID)
	if stored.Status != domain.OfferStatusRejected {
		t.Fatalf("losing offer should be rejected, got %s", stored.Status)
	}

	// The loser's driver cannot resurrect the negotiation.
	if _, err := f.svc.AcceptOffer(ctx, expensive.ID, "client-1"); !errors.Is(err, service.ErrOfferNotPending) {
		t.Fatalf("expected ErrOfferNotPending, got %v", err)
	}
}

func TestAcceptOffer_Expired(t *testing.T) {
	t.Parallel()

	f := newOfferFixture(false)
	f.seedPendingRequest("req-1")
	ctx := context.Background()

	offer, err := f.svc.SubmitOffer(ctx, "req-1", "driver-1", 40)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	f.clk.Advance(61 * time.Second)
	if _, err := f.svc.AcceptOffer(ctx, offer.ID, "client-1"); !errors.Is(err, service.ErrOfferExpired) {
		t.Fatalf("expected ErrOfferExpired, got %v", err)
	}
}

func TestAcceptOffer_ExpiredRequestNeverAssigns(t *testing.T) {
	t.Parallel()

	f := newOfferFixture(false)
	f.seedPendingRequest("req-1")
	ctx := context.Background()

	// The offer outlives the request's negotiation window, so only the
	// request-side deadline can refuse the accept.
	f.offers.AddOffer(&domain.Offer{
		ID:           "offer-1",
		RequestID:    "req-1",
		DriverID:     "driver-1",
		OfferedPrice: 40,
		OfferType:    domain.OfferTypeInitial,
		Status:       domain.OfferStatusPending,
		ExpiresAt:    f.clk.Now().Add(60 * time.Second),
		CreatedAt:    f.clk.Now(),
	})

	f.clk.Advance(46 * time.Second)
	if _, err := f.svc.AcceptOffer(ctx, "offer-1", "client-1"); !errors.Is(err, service.ErrRequestClosed) {
		t.Fatalf("expected ErrRequestClosed, got %v", err)
	}

	stored, _ := f.requests.GetByID(ctx, "req-1")
	if stored.Status != domain.RequestStatusPending || stored.AssignedDriverID != "" {
		t.Fatalf("expired request must never become assigned, got %+v", stored)
	}
}

// TestAcceptOffer_ConcurrentSingleWinner drives many simultaneous accepts
// against one request and asserts the at-most-one-assignment invariant:
// exactly one accept succeeds, every other attempt fails cleanly, and the
// request ends up consistent with the single winner.
func TestAcceptOffer_ConcurrentSingleWinner(t *testing.T) {
	t.Parallel()

	const drivers = 8

	for _, withLocks := range []bool{false, true} {
		name := "version check only"
		if withLocks {
			name = "with accept lock"
		}
		t.Run(name, func(t *testing.T) {
			f := newOfferFixture(withLocks)
			f.seedPendingRequest("req-1")
			ctx := context.Background()

			offerIDs := make([]string, drivers)
			for i := 0; i < drivers; i++ {
				offer, err := f.svc.SubmitOffer(ctx, "req-1", fmt.Sprintf("driver-%d", i), float64(40+i))
				if err != nil {
					t.Fatalf("submit %d: %v", i, err)
				}
				offerIDs[i] = offer.ID
			}

			var wg sync.WaitGroup
			results := make([]error, drivers)
			winners := make([]*domain.ServiceRequest, drivers)
			for i := 0; i < drivers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					req, err := f.svc.AcceptOffer(ctx, offerIDs[i], "client-1")
					results[i] = err
					winners[i] = req
				}(i)
			}
			wg.Wait()

			var won int
			var winner *domain.ServiceRequest
			for i, err := range results {
				switch {
				case err == nil:
					won++
					winner = winners[i]
				case errors.Is(err, service.ErrAcceptConflict),
					errors.Is(err, service.ErrOfferNotPending),
					errors.Is(err, service.ErrRequestClosed):
					// Losing outcomes, all of them clean refusals.
				default:
					t.Fatalf("accept %d failed with unexpected error: %v", i, err)
				}
			}
			if won != 1 {
				t.Fatalf("expected exactly one winner, got %d", won)
			}

			stored, _ := f.requests.GetByID(ctx, "req-1")
			if stored.Status != domain.RequestStatusAssigned {
				t.Fatalf("expected assigned, got %s", stored.Status)
			}
			if stored.AssignedDriverID != winner.AssignedDriverID {
				t.Fatalf("stored driver %s does not match winner %s", stored.AssignedDriverID, winner.AssignedDriverID)
			}
			if stored.FinalPrice != winner.FinalPrice {
				t.Fatalf("stored price %.2f does not match winner %.2f", stored.FinalPrice, winner.FinalPrice)
			}

			// Exactly one offer accepted, the rest rejected.
			all, _ := f.offers.ListByRequest(ctx, "req-1")
			var accepted int
			for _, o := range all {
				if o.Status == domain.OfferStatusAccepted {
					accepted++
				}
			}
			if accepted != 1 {
				t.Fatalf("expected exactly one accepted offer, got %d", accepted)
			}
		})
	}
}

func TestAcceptOffer_DriverCannotAcceptOwnPrice(t *testing.T) {
	t.Parallel()

	f := newOfferFixture(false)
	f.seedPendingRequest("req-1")
	ctx := context.Background()

	offer, err := f.svc.SubmitOffer(ctx, "req-1", "driver-1", 40)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// A driver-priced offer is only acceptable by the client.
	if _, err := f.svc.AcceptOffer(ctx, offer.ID, "driver-1"); !errors.Is(err, service.ErrNotRequestClient) {
		t.Fatalf("expected ErrNotRequestClient, got %v", err)
	}

	// A client counter is only acceptable by the offer's driver.
	counter, err := f.svc.CounterOffer(ctx, offer.ID, "client-1", 35)
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	if _, err := f.svc.AcceptOffer(ctx, counter.ID, "client-1"); !errors.Is(err, service.ErrNotOfferOwner) {
		t.Fatalf("expected ErrNotOfferOwner, got %v", err)
	}
	if _, err := f.svc.AcceptOffer(ctx, counter.ID, "driver-1"); err != nil {
		t.Fatalf("driver accepting client counter: %v", err)
	}
}

func TestRejectOffer(t *testing.T) {
	t.Parallel()

	f := newOfferFixture(false)
	f.seedPendingRequest("req-1")
	ctx := context.Background()

	offer, err := f.svc.SubmitOffer(ctx, "req-1", "driver-1", 60)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	rejected, err := f.svc.RejectOffer(ctx, offer.ID, "client-1")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != domain.OfferStatusRejected {
		t.Fatalf("expected rejected, got %s", rejected.Status)
	}
	if _, err := f.svc.RejectOffer(ctx, offer.ID, "client-1"); !errors.Is(err, service.ErrOfferNotPending) {
		t.Fatalf("expected ErrOfferNotPending on double reject, got %v", err)
	}
}
