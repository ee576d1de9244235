package tracking

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"movix/internal/geo"
	"movix/internal/routing"
)

// Phase identifies which leg of the service the driver is on.
type Phase string

const (
	// PhasePickup means the driver is heading to the origin.
	PhasePickup Phase = "pickup"
	// PhaseTrip means the driver is heading to the destination.
	PhaseTrip Phase = "trip"
)

// Recompute reasons, in evaluation priority order.
const (
	ReasonPhaseChanged = "phase_changed"
	ReasonNoRoute      = "no_route"
	ReasonInterval     = "interval_elapsed"
	ReasonOffRoute     = "off_route"
)

// ErrEndpointsTooFar is returned when a routing request's endpoints are
// implausibly far apart, which almost always means bad coordinates.
var ErrEndpointsTooFar = errors.New("route endpoints implausibly far apart")

// ErrComputeInFlight is returned when a recompute for the service is
// already running; the caller keeps the current route.
var ErrComputeInFlight = errors.New("route computation already in flight")

// RouteSnapshot is the externally visible state of one service's route.
type RouteSnapshot struct {
	Phase           Phase
	Points          []geo.Point
	DistanceMeters  float64
	DurationSeconds float64
	ComputedAt      time.Time
}

// EngineConfig carries the recompute thresholds.
type EngineConfig struct {
	RerouteInterval   time.Duration // max route age before a refresh
	OffRouteThreshold float64       // meters from polyline before a refresh
	MaxLegMeters      float64       // sanity cap on endpoint separation
}

// RouteEngine maintains one route per live service and decides when it is
// worth paying for a recompute instead of recomputing on every position
// update. Concurrent recomputes for the same service coalesce: a compute
// already in flight suppresses duplicate triggers until it resolves.
type RouteEngine struct {
	provider routing.Provider
	cfg      EngineConfig
	now      func() time.Time

	mu     sync.Mutex
	routes map[string]*routeState
}

type routeState struct {
	phase      Phase
	route      *routing.Route
	computedAt time.Time
	inFlight   bool
}

// NewRouteEngine creates a RouteEngine.
func NewRouteEngine(provider routing.Provider, cfg EngineConfig) *RouteEngine {
	if cfg.RerouteInterval <= 0 {
		cfg.RerouteInterval = 30 * time.Second
	}
	if cfg.OffRouteThreshold <= 0 {
		cfg.OffRouteThreshold = 70
	}
	if cfg.MaxLegMeters <= 0 {
		cfg.MaxLegMeters = 300_000
	}
	return &RouteEngine{
		provider: provider,
		cfg:      cfg,
		now:      time.Now,
		routes:   make(map[string]*routeState),
	}
}

// WithClock overrides the engine's clock. Intended for tests.
func (e *RouteEngine) WithClock(now func() time.Time) *RouteEngine {
	e.now = now
	return e
}

// ShouldRecompute evaluates the recompute triggers for the service in
// priority order and returns the first that fires.
func (e *RouteEngine) ShouldRecompute(serviceID string, phase Phase, current geo.Point) (bool, string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.routes[serviceID]
	if !ok || state.route == nil {
		if ok && state.phase != "" && state.phase != phase {
			return true, ReasonPhaseChanged
		}
		return true, ReasonNoRoute
	}

	if state.phase != phase {
		return true, ReasonPhaseChanged
	}

	if e.now().Sub(state.computedAt) > e.cfg.RerouteInterval {
		return true, ReasonInterval
	}

	if geo.DistanceToPolylineMeters(current, state.route.Points) > e.cfg.OffRouteThreshold {
		return true, ReasonOffRoute
	}

	return false, ""
}

// Refresh recomputes the route for the service if any trigger fires,
// returning the (possibly unchanged) current route. A compute already in
// flight makes Refresh return the existing route immediately.
func (e *RouteEngine) Refresh(ctx context.Context, serviceID string, phase Phase, current, target geo.Point) (*RouteSnapshot, error) {
	needed, reason := e.ShouldRecompute(serviceID, phase, current)
	if !needed {
		return e.Snapshot(serviceID), nil
	}

	// Bad coordinates must not reach the provider; keep whatever route we
	// have and report the guard violation.
	if geo.Haversine(current.Lat, current.Lng, target.Lat, target.Lng) > e.cfg.MaxLegMeters {
		log.Printf("route: rejecting implausible leg for service %s (>%.0fkm)", serviceID, e.cfg.MaxLegMeters/1000)
		return e.Snapshot(serviceID), ErrEndpointsTooFar
	}

	e.mu.Lock()
	state, ok := e.routes[serviceID]
	if !ok {
		state = &routeState{}
		e.routes[serviceID] = state
	}
	if state.inFlight {
		e.mu.Unlock()
		return e.Snapshot(serviceID), ErrComputeInFlight
	}
	state.inFlight = true
	e.mu.Unlock()

	route, err := e.provider.Route(ctx, current, target)

	e.mu.Lock()
	state.inFlight = false
	if err == nil {
		state.route = route
		state.phase = phase
		state.computedAt = e.now()
	}
	e.mu.Unlock()

	if err != nil {
		// Provider failures are transient; the stale route remains usable
		// and the next trigger retries.
		log.Printf("route: recompute (%s) failed for service %s: %v", reason, serviceID, err)
		return e.Snapshot(serviceID), err
	}

	return e.Snapshot(serviceID), nil
}

// Snapshot returns the current route state for a service, or nil when no
// route has ever been computed.
func (e *RouteEngine) Snapshot(serviceID string) *RouteSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.routes[serviceID]
	if !ok || state.route == nil {
		return nil
	}
	return &RouteSnapshot{
		Phase:           state.phase,
		Points:          state.route.Points,
		DistanceMeters:  state.route.DistanceMeters,
		DurationSeconds: state.route.DurationSeconds,
		ComputedAt:      state.computedAt,
	}
}

// Drop discards the route state for a service.
func (e *RouteEngine) Drop(serviceID string) {
	e.mu.Lock()
	delete(e.routes, serviceID)
	e.mu.Unlock()
}
