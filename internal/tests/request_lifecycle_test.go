package tests

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"movix/internal/config"
	"movix/internal/domain"
	"movix/internal/service"
)

func testMatchingConfig() config.MatchingConfig {
	return config.MatchingConfig{
		TaxiWindow:      45 * time.Second,
		MandaditoWindow: 110 * time.Second,
		MotoRideWindow:  110 * time.Second,
		OfferTTL:        60 * time.Second,

		CancelFreeWindowMandadito: 3 * time.Minute,
		CancelFreeWindowDefault:   5 * time.Minute,
		CancelProximityMeters:     300,
	}
}

func testCommercialConfig() config.CommercialConfig {
	return config.CommercialConfig{
		ServiceFee:     25,
		CommissionRate: 0.15,
	}
}

func newRequestService(clk *fakeClock, repo *MockRequestRepository, stops *MockStopRepository, locations *MockLocationStore) *service.RequestService {
	events := service.NewEventService(NewMockPublisher())
	return service.NewRequestService(repo, stops, locations, NewMockSnapshotStore(), events, testMatchingConfig(), testCommercialConfig()).
		WithClock(clk.Now)
}

func floatPtr(v float64) *float64 { return &v }

func closeTo(got, want float64) bool {
	return math.Abs(got-want) < 1e-9
}

func taxiParams(clientID string) service.CreateRequestParams {
	return service.CreateRequestParams{
		ClientID:       clientID,
		ServiceType:    domain.ServiceTypeTaxi,
		OriginLat:      19.4326,
		OriginLng:      -99.1332,
		DestinationLat: floatPtr(19.4410),
		DestinationLng: floatPtr(-99.1500),
		EstimatedPrice: 35,
	}
}

func TestCreateRequest_Validation(t *testing.T) {
	t.Parallel()

	clk := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := newRequestService(clk, NewMockRequestRepository(), NewMockStopRepository(), NewMockLocationStore())

	cases := []struct {
		name    string
		mutate  func(*service.CreateRequestParams)
		wantErr error
	}{
		{"missing client", func(p *service.CreateRequestParams) { p.ClientID = "" }, service.ErrInvalidClientID},
		{"taxi with mandadito type", func(p *service.CreateRequestParams) { p.MandaditoType = domain.MandaditoTypeShopping }, service.ErrInvalidMandaditoType},
		{"unknown service type", func(p *service.CreateRequestParams) { p.ServiceType = "boat" }, service.ErrInvalidServiceType},
		{"latitude out of range", func(p *service.CreateRequestParams) { p.OriginLat = 91 }, service.ErrInvalidOrigin},
		{"half a destination", func(p *service.CreateRequestParams) { p.DestinationLng = nil }, service.ErrInvalidDestination},
		{"non-positive price", func(p *service.CreateRequestParams) { p.EstimatedPrice = 0 }, service.ErrInvalidPrice},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := taxiParams("client-1")
			tc.mutate(&params)
			_, err := svc.CreateRequest(context.Background(), params)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestCreateRequest_TaxiDestinationDeferred(t *testing.T) {
	t.Parallel()

	clk := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := newRequestService(clk, NewMockRequestRepository(), NewMockStopRepository(), NewMockLocationStore())

	// A rider can hail with origin only and settle the drop-off later.
	params := taxiParams("client-1")
	params.DestinationLat, params.DestinationLng = nil, nil

	req, err := svc.CreateRequest(context.Background(), params)
	if err != nil {
		t.Fatalf("expected taxi without destination to be valid, got %v", err)
	}
	if req.HasDestination() {
		t.Fatal("expected no destination")
	}
	if req.Status != domain.RequestStatusPending {
		t.Fatalf("expected pending, got %s", req.Status)
	}
}

func TestCreateRequest_MandaditoWithoutDestination(t *testing.T) {
	t.Parallel()

	clk := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := newRequestService(clk, NewMockRequestRepository(), NewMockStopRepository(), NewMockLocationStore())

	req, err := svc.CreateRequest(context.Background(), service.CreateRequestParams{
		ClientID:       "client-1",
		ServiceType:    domain.ServiceTypeMandadito,
		MandaditoType:  domain.MandaditoTypeShopping,
		OriginLat:      19.4326,
		OriginLng:      -99.1332,
		EstimatedPrice: 80,
	})
	if err != nil {
		t.Fatalf("expected shopping mandadito without destination to be valid, got %v", err)
	}
	if req.HasDestination() {
		t.Fatal("expected no destination")
	}
	wantDeadline := clk.Now().Add(110 * time.Second)
	if !req.RequestExpiresAt.Equal(wantDeadline) {
		t.Fatalf("expected mandadito window deadline %v, got %v", wantDeadline, req.RequestExpiresAt)
	}
}

func TestRequestExpiry_AnchoredToServerClock(t *testing.T) {
	t.Parallel()

	clk := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	repo := NewMockRequestRepository()
	svc := newRequestService(clk, repo, NewMockStopRepository(), NewMockLocationStore())

	req, err := svc.CreateRequest(context.Background(), taxiParams("client-1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	clk.Advance(44 * time.Second)
	view, err := svc.GetRequest(context.Background(), req.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if view.Expired {
		t.Fatal("request should still be live one second before the deadline")
	}
	if view.RemainingSeconds != 1 {
		t.Fatalf("expected 1 remaining second, got %d", view.RemainingSeconds)
	}

	clk.Advance(2 * time.Second)
	view, err = svc.GetRequest(context.Background(), req.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !view.Expired {
		t.Fatal("request should be expired past the deadline")
	}
	if view.RemainingSeconds != 0 {
		t.Fatalf("expected 0 remaining seconds, got %d", view.RemainingSeconds)
	}
	// Expiry is a read-side predicate, never a background write.
	if view.Request.Status != domain.RequestStatusPending {
		t.Fatalf("expected stored status pending, got %s", view.Request.Status)
	}
}

func TestReissueRequest(t *testing.T) {
	t.Parallel()

	clk := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	repo := NewMockRequestRepository()
	svc := newRequestService(clk, repo, NewMockStopRepository(), NewMockLocationStore())

	req, err := svc.CreateRequest(context.Background(), taxiParams("client-1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Still live: reissue refused.
	if _, err := svc.ReissueRequest(context.Background(), req.ID, "client-1"); !errors.Is(err, service.ErrRequestNotExpired) {
		t.Fatalf("expected ErrRequestNotExpired, got %v", err)
	}

	clk.Advance(46 * time.Second)

	if _, err := svc.ReissueRequest(context.Background(), req.ID, "someone-else"); !errors.Is(err, service.ErrNotRequestClient) {
		t.Fatalf("expected ErrNotRequestClient, got %v", err)
	}

	reissued, err := svc.ReissueRequest(context.Background(), req.ID, "client-1")
	if err != nil {
		t.Fatalf("reissue: %v", err)
	}
	wantDeadline := clk.Now().Add(45 * time.Second)
	if !reissued.RequestExpiresAt.Equal(wantDeadline) {
		t.Fatalf("expected fresh deadline %v, got %v", wantDeadline, reissued.RequestExpiresAt)
	}
	if reissued.Expired(clk.Now()) {
		t.Fatal("reissued request should be live again")
	}
}

func seedAssignedRequest(repo *MockRequestRepository, clk *fakeClock, serviceType domain.ServiceType) *domain.ServiceRequest {
	req := &domain.ServiceRequest{
		ID:               "req-1",
		ClientID:         "client-1",
		AssignedDriverID: "driver-1",
		ServiceType:      serviceType,
		OriginLat:        19.4326,
		OriginLng:        -99.1332,
		DestinationLat:   floatPtr(19.4410),
		DestinationLng:   floatPtr(-99.1500),
		EstimatedPrice:   35,
		FinalPrice:       40,
		Status:           domain.RequestStatusAssigned,
		TrackingStep:     domain.TrackingStepAccepted,
		BoardingPin:      "4217",
		CreatedAt:        clk.Now().Add(-2 * time.Minute),
		AssignedAt:       clk.Now().Add(-1 * time.Minute),
		Version:          3,
	}
	repo.AddRequest(req)
	return req
}

func TestGetStatus_SnapshotReadThrough(t *testing.T) {
	t.Parallel()

	clk := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	repo := NewMockRequestRepository()
	snaps := NewMockSnapshotStore()
	events := service.NewEventService(NewMockPublisher())
	svc := service.NewRequestService(repo, NewMockStopRepository(), NewMockLocationStore(), snaps, events, testMatchingConfig(), testCommercialConfig()).
		WithClock(clk.Now)
	seedAssignedRequest(repo, clk, domain.ServiceTypeTaxi)

	ctx := context.Background()

	// Miss: served from the repository and written back to the cache.
	view, err := svc.GetStatus(ctx, "req-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Status != string(domain.RequestStatusAssigned) || view.AssignedDriverID != "driver-1" {
		t.Fatalf("unexpected status view: %+v", view)
	}
	snap, _ := snaps.GetRequest(ctx, "req-1")
	if snap == nil || snap.Version != 3 {
		t.Fatalf("expected snapshot populated after miss, got %+v", snap)
	}

	// Hit: mutate the cached copy and verify the repo is bypassed.
	snap.FinalPrice = 99
	if err := snaps.SetRequest(ctx, snap); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	view, err = svc.GetStatus(ctx, "req-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !closeTo(view.FinalPrice, 99) {
		t.Fatalf("expected snapshot hit, got final price %v", view.FinalPrice)
	}

	// A transition invalidates the snapshot.
	if _, err := svc.AdvanceTrackingStep(ctx, "req-1", "driver-1", domain.TrackingStepOnTheWay); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap, _ := snaps.GetRequest(ctx, "req-1"); snap != nil {
		t.Fatalf("expected snapshot invalidated after transition, got %+v", snap)
	}
}

func TestAdvanceTrackingStep_Monotonic(t *testing.T) {
	t.Parallel()

	clk := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	repo := NewMockRequestRepository()
	svc := newRequestService(clk, repo, NewMockStopRepository(), NewMockLocationStore())
	seedAssignedRequest(repo, clk, domain.ServiceTypeTaxi)

	ctx := context.Background()

	if _, err := svc.AdvanceTrackingStep(ctx, "req-1", "other-driver", domain.TrackingStepOnTheWay); !errors.Is(err, service.ErrNotAssignedDriver) {
		t.Fatalf("expected ErrNotAssignedDriver, got %v", err)
	}

	req, err := svc.AdvanceTrackingStep(ctx, "req-1", "driver-1", domain.TrackingStepOnTheWay)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if req.TrackingStep != domain.TrackingStepOnTheWay {
		t.Fatalf("expected on_the_way, got %s", req.TrackingStep)
	}

	// Steps never move backwards, and re-sending the current step is a no-op
	// violation too.
	if _, err := svc.AdvanceTrackingStep(ctx, "req-1", "driver-1", domain.TrackingStepAccepted); !errors.Is(err, service.ErrStepNotMonotonic) {
		t.Fatalf("expected ErrStepNotMonotonic, got %v", err)
	}
	if _, err := svc.AdvanceTrackingStep(ctx, "req-1", "driver-1", domain.TrackingStepOnTheWay); !errors.Is(err, service.ErrStepNotMonotonic) {
		t.Fatalf("expected ErrStepNotMonotonic, got %v", err)
	}

	// Skipping intermediate steps is allowed; they are advisory for the UI.
	req, err = svc.AdvanceTrackingStep(ctx, "req-1", "driver-1", domain.TrackingStepPickedUp)
	if err != nil {
		t.Fatalf("advance to picked_up: %v", err)
	}
	if req.Status != domain.RequestStatusInProgress {
		t.Fatalf("picked_up should flip status to in_progress, got %s", req.Status)
	}
	if !req.StartedAt.Equal(clk.Now()) {
		t.Fatalf("expected started_at stamped at %v, got %v", clk.Now(), req.StartedAt)
	}

	// Completion is PIN-gated.
	if _, err := svc.AdvanceTrackingStep(ctx, "req-1", "driver-1", domain.TrackingStepCompleted); !errors.Is(err, service.ErrInvalidTrackingStep) {
		t.Fatalf("expected ErrInvalidTrackingStep for completed, got %v", err)
	}
}

func TestValidateBoardingPin(t *testing.T) {
	t.Parallel()

	clk := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	repo := NewMockRequestRepository()
	stops := NewMockStopRepository()
	svc := newRequestService(clk, repo, stops, NewMockLocationStore())
	seedAssignedRequest(repo, clk, domain.ServiceTypeTaxi)

	ctx := context.Background()

	// PIN is only checked once the trip is underway.
	if _, err := svc.ValidateBoardingPin(ctx, "req-1", "driver-1", "4217"); !errors.Is(err, service.ErrRequestNotInProgress) {
		t.Fatalf("expected ErrRequestNotInProgress, got %v", err)
	}

	if _, err := svc.AdvanceTrackingStep(ctx, "req-1", "driver-1", domain.TrackingStepPickedUp); err != nil {
		t.Fatalf("advance: %v", err)
	}

	if _, err := svc.ValidateBoardingPin(ctx, "req-1", "driver-1", "0000"); !errors.Is(err, service.ErrPinMismatch) {
		t.Fatalf("expected ErrPinMismatch, got %v", err)
	}
	stored, _ := repo.GetByID(ctx, "req-1")
	if stored.Status != domain.RequestStatusInProgress {
		t.Fatalf("a mismatch must not mutate the request, got status %s", stored.Status)
	}

	result, err := svc.ValidateBoardingPin(ctx, "req-1", "driver-1", "4217")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if result.Request.Status != domain.RequestStatusCompleted {
		t.Fatalf("expected completed, got %s", result.Request.Status)
	}
	if want := 40 * 0.85; !closeTo(result.Earnings, want) {
		t.Fatalf("expected earnings %.2f, got %.2f", want, result.Earnings)
	}

	// A completed request never re-validates.
	if _, err := svc.ValidateBoardingPin(ctx, "req-1", "driver-1", "4217"); !errors.Is(err, service.ErrRequestTerminal) {
		t.Fatalf("expected ErrRequestTerminal, got %v", err)
	}
}

func TestValidateBoardingPin_ShoppingReimbursement(t *testing.T) {
	t.Parallel()

	clk := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	repo := NewMockRequestRepository()
	stops := NewMockStopRepository()
	svc := newRequestService(clk, repo, stops, NewMockLocationStore())

	req := seedAssignedRequest(repo, clk, domain.ServiceTypeMandadito)
	req.MandaditoType = domain.MandaditoTypeShopping
	req.Status = domain.RequestStatusInProgress
	req.TrackingStep = domain.TrackingStepInTransit
	repo.AddRequest(req)

	stops.AddStop(&domain.Stop{ID: "stop-1", RequestID: "req-1", Status: domain.StopStatusCompleted})
	stops.AddItem(&domain.StopItem{ID: "item-1", StopID: "stop-1", Name: "milk", Quantity: 2, ActualCost: 56.50, IsPurchased: true})
	stops.AddItem(&domain.StopItem{ID: "item-2", StopID: "stop-1", Name: "bread", Quantity: 1, ActualCost: 18, IsPurchased: true})

	result, err := svc.ValidateBoardingPin(context.Background(), "req-1", "driver-1", "4217")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	want := 40*0.85 + 56.50 + 18
	if !closeTo(result.Earnings, want) {
		t.Fatalf("expected earnings %.2f (fee share plus reimbursement), got %.2f", want, result.Earnings)
	}
}

func TestValidateBoardingPin_ReimbursementLookupFailure(t *testing.T) {
	t.Parallel()

	clk := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	repo := NewMockRequestRepository()
	stops := NewMockStopRepository()
	stops.ItemsTotalError = errors.New("connection reset")
	svc := newRequestService(clk, repo, stops, NewMockLocationStore())

	req := seedAssignedRequest(repo, clk, domain.ServiceTypeMandadito)
	req.MandaditoType = domain.MandaditoTypeShopping
	req.Status = domain.RequestStatusInProgress
	req.TrackingStep = domain.TrackingStepInTransit
	repo.AddRequest(req)

	// Completion itself must not depend on the reimbursement lookup; the
	// earnings figure degrades to the fare share.
	result, err := svc.ValidateBoardingPin(context.Background(), "req-1", "driver-1", "4217")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if result.Request.Status != domain.RequestStatusCompleted {
		t.Fatalf("expected completed, got %s", result.Request.Status)
	}
	if !closeTo(result.Earnings, 40*0.85) {
		t.Fatalf("expected fare share only, got %.2f", result.Earnings)
	}
}

func TestActiveForDriver(t *testing.T) {
	t.Parallel()

	clk := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	repo := NewMockRequestRepository()
	svc := newRequestService(clk, repo, NewMockStopRepository(), NewMockLocationStore())

	live := seedAssignedRequest(repo, clk, domain.ServiceTypeTaxi)

	finished := *live
	finished.ID = "req-2"
	finished.Status = domain.RequestStatusCompleted
	repo.AddRequest(&finished)

	othersRide := *live
	othersRide.ID = "req-3"
	othersRide.AssignedDriverID = "driver-2"
	repo.AddRequest(&othersRide)

	active, err := svc.ActiveForDriver(context.Background(), "driver-1")
	if err != nil {
		t.Fatalf("active for driver: %v", err)
	}
	if len(active) != 1 || active[0].ID != "req-1" {
		t.Fatalf("expected only the live assignment, got %+v", active)
	}

	if _, err := svc.ActiveForDriver(context.Background(), ""); !errors.Is(err, service.ErrInvalidDriverID) {
		t.Fatalf("expected ErrInvalidDriverID, got %v", err)
	}
}

func TestCancelByClient_Guardrails(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("pending cancels freely", func(t *testing.T) {
		clk := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
		repo := NewMockRequestRepository()
		svc := newRequestService(clk, repo, NewMockStopRepository(), NewMockLocationStore())

		req, _ := svc.CreateRequest(ctx, taxiParams("client-1"))
		cancelled, err := svc.CancelByClient(ctx, req.ID, "client-1", "changed my mind")
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if cancelled.Status != domain.RequestStatusCancelled || cancelled.CancellationReason != "changed my mind" {
			t.Fatalf("unexpected cancel result: %+v", cancelled)
		}
	})

	t.Run("reason is mandatory", func(t *testing.T) {
		clk := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
		repo := NewMockRequestRepository()
		svc := newRequestService(clk, repo, NewMockStopRepository(), NewMockLocationStore())
		seedAssignedRequest(repo, clk, domain.ServiceTypeTaxi)

		if _, err := svc.CancelByClient(ctx, "req-1", "client-1", ""); !errors.Is(err, service.ErrMissingReason) {
			t.Fatalf("expected ErrMissingReason, got %v", err)
		}
	})

	t.Run("free window elapsed", func(t *testing.T) {
		clk := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
		repo := NewMockRequestRepository()
		svc := newRequestService(clk, repo, NewMockStopRepository(), NewMockLocationStore())
		seedAssignedRequest(repo, clk, domain.ServiceTypeTaxi)

		clk.Advance(5 * time.Minute) // assigned 1m before start, so 6m since assignment
		if _, err := svc.CancelByClient(ctx, "req-1", "client-1", "too slow"); !errors.Is(err, service.ErrCancelWindowElapsed) {
			t.Fatalf("expected ErrCancelWindowElapsed, got %v", err)
		}
	})

	t.Run("driver effectively arrived", func(t *testing.T) {
		clk := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
		repo := NewMockRequestRepository()
		locations := NewMockLocationStore()
		svc := newRequestService(clk, repo, NewMockStopRepository(), locations)
		req := seedAssignedRequest(repo, clk, domain.ServiceTypeTaxi)

		// ~110m from the origin: inside the 300m proximity radius.
		_ = locations.SetLatest(ctx, &domain.LocationSample{
			ServiceID: req.ID,
			DriverID:  "driver-1",
			Lat:       req.OriginLat + 0.001,
			Lng:       req.OriginLng,
			CreatedAt: clk.Now(),
		})

		if _, err := svc.CancelByClient(ctx, "req-1", "client-1", "nevermind"); !errors.Is(err, service.ErrDriverTooClose) {
			t.Fatalf("expected ErrDriverTooClose, got %v", err)
		}
	})

	t.Run("driver still far away", func(t *testing.T) {
		clk := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
		repo := NewMockRequestRepository()
		locations := NewMockLocationStore()
		svc := newRequestService(clk, repo, NewMockStopRepository(), locations)
		req := seedAssignedRequest(repo, clk, domain.ServiceTypeTaxi)

		// ~5.5km out: cancellation allowed inside the free window.
		_ = locations.SetLatest(ctx, &domain.LocationSample{
			ServiceID: req.ID,
			DriverID:  "driver-1",
			Lat:       req.OriginLat + 0.05,
			Lng:       req.OriginLng,
			CreatedAt: clk.Now(),
		})

		cancelled, err := svc.CancelByClient(ctx, "req-1", "client-1", "plans changed")
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if cancelled.Status != domain.RequestStatusCancelled {
			t.Fatalf("expected cancelled, got %s", cancelled.Status)
		}
	})
}

func TestCancelByDriver_PurchasedItemsGuard(t *testing.T) {
	t.Parallel()

	clk := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	repo := NewMockRequestRepository()
	stops := NewMockStopRepository()
	svc := newRequestService(clk, repo, stops, NewMockLocationStore())
	seedAssignedRequest(repo, clk, domain.ServiceTypeMandadito)

	stops.AddStop(&domain.Stop{ID: "stop-1", RequestID: "req-1", Status: domain.StopStatusInProgress})
	stops.AddItem(&domain.StopItem{ID: "item-1", StopID: "stop-1", Name: "eggs", Quantity: 1, ActualCost: 42, IsPurchased: true})

	ctx := context.Background()

	if _, err := svc.CancelByDriver(ctx, "req-1", "other-driver", "stuck"); !errors.Is(err, service.ErrNotAssignedDriver) {
		t.Fatalf("expected ErrNotAssignedDriver, got %v", err)
	}

	// Money has been spent: the driver can no longer walk away.
	if _, err := svc.CancelByDriver(ctx, "req-1", "driver-1", "stuck"); !errors.Is(err, service.ErrPurchasedItemsExist) {
		t.Fatalf("expected ErrPurchasedItemsExist, got %v", err)
	}
}
