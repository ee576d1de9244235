package tracking

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"movix/internal/geo"
	"movix/internal/routing"
)

// stubProvider returns a canned route and counts calls. An optional gate
// blocks Route until released, for coalescing tests.
type stubProvider struct {
	calls int32
	err   error
	gate  chan struct{}
	route *routing.Route
}

func (p *stubProvider) Route(ctx context.Context, from, to geo.Point) (*routing.Route, error) {
	atomic.AddInt32(&p.calls, 1)
	if p.gate != nil {
		<-p.gate
	}
	if p.err != nil {
		return nil, p.err
	}
	if p.route != nil {
		return p.route, nil
	}
	return &routing.Route{
		Points:          []geo.Point{from, to},
		DistanceMeters:  1000,
		DurationSeconds: 120,
	}, nil
}

func (p *stubProvider) callCount() int32 {
	return atomic.LoadInt32(&p.calls)
}

var (
	origin = geo.Point{Lat: 19.4326, Lng: -99.1332}
	dest   = geo.Point{Lat: 19.4270, Lng: -99.1677}
)

func newTestEngine(p routing.Provider) (*RouteEngine, *time.Time) {
	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	engine := NewRouteEngine(p, EngineConfig{
		RerouteInterval:   30 * time.Second,
		OffRouteThreshold: 70,
		MaxLegMeters:      300_000,
	}).WithClock(func() time.Time { return current })
	return engine, &current
}

func TestRefresh_FirstComputeAndCache(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{}
	engine, _ := newTestEngine(provider)
	ctx := context.Background()

	snap, err := engine.Refresh(ctx, "svc-1", PhasePickup, origin, dest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap == nil || len(snap.Points) == 0 {
		t.Fatal("expected a computed route")
	}
	if provider.callCount() != 1 {
		t.Fatalf("expected 1 provider call, got %d", provider.callCount())
	}

	// Same phase, on-route, inside the interval: no recompute.
	if _, err := engine.Refresh(ctx, "svc-1", PhasePickup, origin, dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.callCount() != 1 {
		t.Fatalf("fresh route should be reused, got %d calls", provider.callCount())
	}
}

func TestShouldRecompute_PhaseChangeBeatsEverything(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{}
	engine, _ := newTestEngine(provider)
	ctx := context.Background()

	if _, err := engine.Refresh(ctx, "svc-1", PhasePickup, origin, dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// No time has passed and the driver is on-route, but the phase flipped.
	needed, reason := engine.ShouldRecompute("svc-1", PhaseTrip, origin)
	if !needed || reason != ReasonPhaseChanged {
		t.Fatalf("expected phase_changed trigger, got needed=%v reason=%q", needed, reason)
	}
}

func TestShouldRecompute_IntervalElapsed(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{}
	engine, clock := newTestEngine(provider)
	ctx := context.Background()

	if _, err := engine.Refresh(ctx, "svc-1", PhasePickup, origin, dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	*clock = clock.Add(31 * time.Second)
	needed, reason := engine.ShouldRecompute("svc-1", PhasePickup, origin)
	if !needed || reason != ReasonInterval {
		t.Fatalf("expected interval trigger, got needed=%v reason=%q", needed, reason)
	}
}

func TestShouldRecompute_OffRoute(t *testing.T) {
	t.Parallel()

	// Straight west-east route along the equator.
	provider := &stubProvider{route: &routing.Route{
		Points:          []geo.Point{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 0.01}},
		DistanceMeters:  1113,
		DurationSeconds: 90,
	}}
	engine, _ := newTestEngine(provider)
	ctx := context.Background()

	if _, err := engine.Refresh(ctx, "svc-1", PhasePickup, geo.Point{Lat: 0, Lng: 0}, geo.Point{Lat: 0, Lng: 0.01}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// ~100m north of the route: beyond the 70m threshold.
	offRoute := geo.Point{Lat: 100 / 111195.0, Lng: 0.005}
	needed, reason := engine.ShouldRecompute("svc-1", PhasePickup, offRoute)
	if !needed || reason != ReasonOffRoute {
		t.Fatalf("expected off_route trigger, got needed=%v reason=%q", needed, reason)
	}

	// ~50m north: still on-route.
	onRoute := geo.Point{Lat: 50 / 111195.0, Lng: 0.005}
	if needed, _ := engine.ShouldRecompute("svc-1", PhasePickup, onRoute); needed {
		t.Fatal("50m offset should not trigger a recompute")
	}
}

func TestRefresh_RejectsImplausibleLeg(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{}
	engine, _ := newTestEngine(provider)

	// Mexico City to Madrid is far beyond the 300km cap.
	madrid := geo.Point{Lat: 40.4168, Lng: -3.7038}
	_, err := engine.Refresh(context.Background(), "svc-1", PhasePickup, origin, madrid)
	if !errors.Is(err, ErrEndpointsTooFar) {
		t.Fatalf("expected ErrEndpointsTooFar, got %v", err)
	}
	if provider.callCount() != 0 {
		t.Fatal("provider must not be called for an implausible leg")
	}
}

func TestRefresh_ProviderFailureKeepsOldRoute(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{}
	engine, clock := newTestEngine(provider)
	ctx := context.Background()

	if _, err := engine.Refresh(ctx, "svc-1", PhasePickup, origin, dest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	provider.err = errors.New("routing provider unreachable")
	*clock = clock.Add(31 * time.Second)

	snap, err := engine.Refresh(ctx, "svc-1", PhasePickup, origin, dest)
	if err == nil {
		t.Fatal("expected provider error to surface")
	}
	if snap == nil || len(snap.Points) == 0 {
		t.Fatal("previous route should survive a failed recompute")
	}
}

func TestRefresh_CoalescesConcurrentComputes(t *testing.T) {
	t.Parallel()

	provider := &stubProvider{gate: make(chan struct{})}
	engine, _ := newTestEngine(provider)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = engine.Refresh(ctx, "svc-1", PhasePickup, origin, dest)
	}()

	// Wait until the first compute is in flight.
	for provider.callCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	// Duplicate trigger while in flight: suppressed, no second call.
	_, err := engine.Refresh(ctx, "svc-1", PhasePickup, origin, dest)
	if !errors.Is(err, ErrComputeInFlight) {
		t.Fatalf("expected ErrComputeInFlight, got %v", err)
	}

	close(provider.gate)
	wg.Wait()

	if provider.callCount() != 1 {
		t.Fatalf("expected 1 provider call, got %d", provider.callCount())
	}
	if snap := engine.Snapshot("svc-1"); snap == nil {
		t.Fatal("route should be available after the in-flight compute resolves")
	}
}
