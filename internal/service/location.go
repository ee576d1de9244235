package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"movix/internal/domain"
	"movix/internal/geo"
	"movix/internal/observability"
	"movix/internal/redis"
	"movix/internal/repository"
	"movix/internal/tracking"
)

// LocationService accepts driver GPS samples, feeds the in-memory tracking
// channel, persists the accepted ones and keeps the route engine fresh.
type LocationService struct {
	requestRepo  repository.RequestRepository
	locationRepo repository.LocationRepository
	latest       redis.LocationStoreInterface
	ingestor     *tracking.Ingestor
	routes       *tracking.RouteEngine
	events       *EventService

	cameraCfg tracking.FollowConfig
	cameraMu  sync.Mutex
	cameras   map[string]*tracking.FollowController

	now func() time.Time
}

// NewLocationService creates a new LocationService. latest, routes and
// events may be nil; the corresponding side effects are skipped.
func NewLocationService(
	requestRepo repository.RequestRepository,
	locationRepo repository.LocationRepository,
	latest redis.LocationStoreInterface,
	ingestor *tracking.Ingestor,
	routes *tracking.RouteEngine,
	events *EventService,
) *LocationService {
	return &LocationService{
		requestRepo:  requestRepo,
		locationRepo: locationRepo,
		latest:       latest,
		ingestor:     ingestor,
		routes:       routes,
		events:       events,
		now:          time.Now,
	}
}

// WithClock overrides the service's clock. Intended for tests.
func (s *LocationService) WithClock(now func() time.Time) *LocationService {
	s.now = now
	return s
}

// WithCameras enables the per-service follow camera. Accepted samples feed
// it and the tracking view carries the suggested pose.
func (s *LocationService) WithCameras(cfg tracking.FollowConfig) *LocationService {
	s.cameraCfg = cfg
	s.cameras = make(map[string]*tracking.FollowController)
	return s
}

func (s *LocationService) cameraFor(serviceID string) *tracking.FollowController {
	if s.cameras == nil {
		return nil
	}
	s.cameraMu.Lock()
	defer s.cameraMu.Unlock()
	cam, ok := s.cameras[serviceID]
	if !ok {
		cam = tracking.NewFollowController(s.cameraCfg).WithClock(s.now)
		s.cameras[serviceID] = cam
	}
	return cam
}

// SampleParams is one GPS observation as reported by the driver app.
type SampleParams struct {
	ServiceID string
	DriverID  string
	Lat       float64
	Lng       float64
	Accuracy  float64
	Bearing   float64
	Speed     float64
	// RecordedAt is the device timestamp. Ordering decisions use this, not
	// arrival time; a zero value falls back to the server clock.
	RecordedAt time.Time
}

// IngestResult reports what happened to a submitted sample.
type IngestResult struct {
	Accepted bool
	Sample   *domain.LocationSample
}

// IngestSample validates and ingests one GPS sample. Samples older than
// the channel watermark are dropped without error: late packets are
// expected, not exceptional. Accepted samples are persisted, cached and
// fanned out, and may trigger a route recompute.
func (s *LocationService) IngestSample(ctx context.Context, params SampleParams) (*IngestResult, error) {
	if params.ServiceID == "" {
		return nil, ErrInvalidRequestID
	}
	if params.DriverID == "" {
		return nil, ErrInvalidDriverID
	}
	if !geo.ValidLatitude(params.Lat) || !geo.ValidLongitude(params.Lng) {
		return nil, ErrInvalidLocation
	}

	req, err := s.requestRepo.GetByID(ctx, params.ServiceID)
	if err != nil {
		return nil, err
	}
	if req.AssignedDriverID != params.DriverID {
		return nil, ErrNotAssignedDriver
	}
	if req.Status != domain.RequestStatusAssigned && req.Status != domain.RequestStatusInProgress {
		return nil, ErrRequestNotAssigned
	}

	recordedAt := params.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = s.now()
	}

	sample := &domain.LocationSample{
		ID:        uuid.New().String(),
		ServiceID: params.ServiceID,
		DriverID:  params.DriverID,
		Lat:       params.Lat,
		Lng:       params.Lng,
		Accuracy:  params.Accuracy,
		Bearing:   params.Bearing,
		Speed:     params.Speed,
		CreatedAt: recordedAt,
	}

	if !s.ingestor.Ingest(sample) {
		observability.SamplesDropped.Inc()
		return &IngestResult{Accepted: false, Sample: sample}, nil
	}
	observability.SamplesAccepted.Inc()

	if err := s.locationRepo.Append(ctx, sample); err != nil {
		return nil, err
	}
	if s.latest != nil {
		if err := s.latest.SetLatest(ctx, sample); err != nil {
			log.Printf("location: cache latest for service %s: %v", sample.ServiceID, err)
		}
	}
	if s.events != nil {
		s.events.LocationAccepted(ctx, sample)
	}
	if cam := s.cameraFor(sample.ServiceID); cam != nil {
		cam.Observe(sample.Lat, sample.Lng, sample.Bearing)
	}

	s.maybeReroute(ctx, req, sample)

	return &IngestResult{Accepted: true, Sample: sample}, nil
}

// maybeReroute asks the route engine whether this position warrants a
// recompute and runs it if so. Routing failures never fail the ingest.
func (s *LocationService) maybeReroute(ctx context.Context, req *domain.ServiceRequest, sample *domain.LocationSample) {
	if s.routes == nil {
		return
	}

	phase, target, ok := routeLeg(req)
	if !ok {
		return
	}

	current := geo.Point{Lat: sample.Lat, Lng: sample.Lng}
	needed, reason := s.routes.ShouldRecompute(req.ID, phase, current)
	if !needed {
		return
	}
	observability.RouteRecomputes.WithLabelValues(reason).Inc()

	started := s.now()
	if _, err := s.routes.Refresh(ctx, req.ID, phase, current, target); err != nil {
		// Already logged by the engine; the stale route stays in use.
		return
	}
	observability.RouteComputeSeconds.Observe(s.now().Sub(started).Seconds())
}

// routeLeg derives the active routing leg from the request's tracking
// step: toward the origin before pickup, toward the destination after.
func routeLeg(req *domain.ServiceRequest) (tracking.Phase, geo.Point, bool) {
	if req.TrackingStep.Index() >= domain.TrackingStepPickedUp.Index() {
		if !req.HasDestination() {
			// Stop-driven mandadito with no fixed destination: nothing to
			// route against on the trip leg.
			return tracking.PhaseTrip, geo.Point{}, false
		}
		return tracking.PhaseTrip, geo.Point{Lat: *req.DestinationLat, Lng: *req.DestinationLng}, true
	}
	return tracking.PhasePickup, geo.Point{Lat: req.OriginLat, Lng: req.OriginLng}, true
}

// TrackingView is the live-tracking snapshot for one service.
type TrackingView struct {
	Channel tracking.ChannelSnapshot
	Route   *tracking.RouteSnapshot
	// Camera is the suggested follow pose, nil until a sample was observed.
	Camera *tracking.Pose
}

// Tracking returns the current channel and route state for a service,
// subscribing the channel on first use so the last persisted position is
// available before any fresh sample arrives.
func (s *LocationService) Tracking(ctx context.Context, serviceID string) (*TrackingView, error) {
	if serviceID == "" {
		return nil, ErrInvalidRequestID
	}

	if err := s.ingestor.Subscribe(ctx, serviceID); err != nil {
		return nil, err
	}

	view := &TrackingView{Channel: s.ingestor.Snapshot(serviceID)}
	if s.routes != nil {
		view.Route = s.routes.Snapshot(serviceID)
	}
	if s.cameras != nil {
		s.cameraMu.Lock()
		cam := s.cameras[serviceID]
		s.cameraMu.Unlock()
		if cam != nil {
			pose := cam.Pose()
			view.Camera = &pose
		}
	}
	return view, nil
}

// Close tears down the in-memory tracking state for a finished service.
func (s *LocationService) Close(ctx context.Context, serviceID string) {
	s.ingestor.Drop(serviceID)
	if s.cameras != nil {
		s.cameraMu.Lock()
		delete(s.cameras, serviceID)
		s.cameraMu.Unlock()
	}
	if s.routes != nil {
		s.routes.Drop(serviceID)
	}
	if s.latest != nil {
		if err := s.latest.Remove(ctx, serviceID); err != nil {
			log.Printf("location: remove cached latest for service %s: %v", serviceID, err)
		}
	}
}
