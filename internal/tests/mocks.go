package tests

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"movix/internal/domain"
	"movix/internal/redis"
	"movix/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK REQUEST REPOSITORY
// ──────────────────────────────────────────────

// MockRequestRepository is a mock implementation of RequestRepository with
// real version-check semantics, so concurrency tests exercise the same
// conditional-write behavior as the SQL implementation.
type MockRequestRepository struct {
	mu       sync.RWMutex
	requests map[string]*domain.ServiceRequest

	// Counters for verification
	CreateCallCount int32
	UpdateCallCount int32

	// Error injection
	CreateError error
	UpdateError error
}

// NewMockRequestRepository creates a new mock request repository.
func NewMockRequestRepository() *MockRequestRepository {
	return &MockRequestRepository{
		requests: make(map[string]*domain.ServiceRequest),
	}
}

// AddRequest seeds a request into the mock repository.
func (m *MockRequestRepository) AddRequest(req *domain.ServiceRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if req.Version == 0 {
		req.Version = 1
	}
	copy := *req
	m.requests[req.ID] = &copy
}

func (m *MockRequestRepository) Create(ctx context.Context, req *domain.ServiceRequest) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *req
	m.requests[req.ID] = &copy
	return nil
}

func (m *MockRequestRepository) GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *req
	return &copy, nil
}

func (m *MockRequestRepository) UpdateIfVersion(ctx context.Context, req *domain.ServiceRequest, expectedVersion int64) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.requests[req.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return repository.ErrVersionConflict
	}

	copy := *req
	copy.Version = expectedVersion + 1
	m.requests[req.ID] = &copy
	req.Version = copy.Version
	return nil
}

func (m *MockRequestRepository) ListActiveByDriver(ctx context.Context, driverID string) ([]*domain.ServiceRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.ServiceRequest, 0)
	for _, r := range m.requests {
		if r.AssignedDriverID == driverID && !r.Terminal() {
			copy := *r
			result = append(result, &copy)
		}
	}
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK OFFER REPOSITORY
// ──────────────────────────────────────────────

// MockOfferRepository is a mock implementation of OfferRepository.
type MockOfferRepository struct {
	mu     sync.RWMutex
	offers map[string]*domain.Offer

	// Counters for verification
	CreateCallCount int32
	UpdateCallCount int32

	// Error injection
	CreateError error
	UpdateError error
}

// NewMockOfferRepository creates a new mock offer repository.
func NewMockOfferRepository() *MockOfferRepository {
	return &MockOfferRepository{
		offers: make(map[string]*domain.Offer),
	}
}

// AddOffer seeds an offer into the mock repository.
func (m *MockOfferRepository) AddOffer(offer *domain.Offer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *offer
	m.offers[offer.ID] = &copy
}

func (m *MockOfferRepository) Create(ctx context.Context, offer *domain.Offer) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *offer
	m.offers[offer.ID] = &copy
	return nil
}

func (m *MockOfferRepository) GetByID(ctx context.Context, id string) (*domain.Offer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	offer, ok := m.offers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *offer
	return &copy, nil
}

func (m *MockOfferRepository) ListByRequest(ctx context.Context, requestID string) ([]*domain.Offer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Offer, 0)
	for _, o := range m.offers {
		if o.RequestID == requestID {
			copy := *o
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockOfferRepository) Update(ctx context.Context, offer *domain.Offer) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.offers[offer.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *offer
	m.offers[offer.ID] = &copy
	return nil
}

func (m *MockOfferRepository) RejectOtherPending(ctx context.Context, requestID, acceptedOfferID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, o := range m.offers {
		if o.RequestID == requestID && o.ID != acceptedOfferID && o.Status == domain.OfferStatusPending {
			o.Status = domain.OfferStatusRejected
			n++
		}
	}
	return n, nil
}

// ──────────────────────────────────────────────
// MOCK STOP REPOSITORY
// ──────────────────────────────────────────────

// MockStopRepository is a mock implementation of StopRepository.
type MockStopRepository struct {
	mu    sync.RWMutex
	stops map[string]*domain.Stop
	items map[string]*domain.StopItem

	ItemsTotalError error
}

// NewMockStopRepository creates a new mock stop repository.
func NewMockStopRepository() *MockStopRepository {
	return &MockStopRepository{
		stops: make(map[string]*domain.Stop),
		items: make(map[string]*domain.StopItem),
	}
}

// AddStop seeds a stop into the mock repository.
func (m *MockStopRepository) AddStop(stop *domain.Stop) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *stop
	m.stops[stop.ID] = &copy
}

// AddItem seeds an item into the mock repository.
func (m *MockStopRepository) AddItem(item *domain.StopItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *item
	m.items[item.ID] = &copy
}

func (m *MockStopRepository) CreateStop(ctx context.Context, stop *domain.Stop) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *stop
	m.stops[stop.ID] = &copy
	return nil
}

func (m *MockStopRepository) GetStop(ctx context.Context, id string) (*domain.Stop, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stop, ok := m.stops[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *stop
	return &copy, nil
}

func (m *MockStopRepository) ListByRequest(ctx context.Context, requestID string) ([]*domain.Stop, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Stop, 0)
	for _, s := range m.stops {
		if s.RequestID == requestID {
			copy := *s
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockStopRepository) UpdateStopStatus(ctx context.Context, id string, status domain.StopStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stop, ok := m.stops[id]
	if !ok {
		return repository.ErrNotFound
	}
	stop.Status = status
	return nil
}

func (m *MockStopRepository) CreateItem(ctx context.Context, item *domain.StopItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *item
	m.items[item.ID] = &copy
	return nil
}

func (m *MockStopRepository) GetItem(ctx context.Context, id string) (*domain.StopItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *item
	return &copy, nil
}

func (m *MockStopRepository) ListItems(ctx context.Context, stopID string) ([]*domain.StopItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.StopItem, 0)
	for _, it := range m.items {
		if it.StopID == stopID {
			copy := *it
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockStopRepository) UpdateItem(ctx context.Context, item *domain.StopItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[item.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *item
	m.items[item.ID] = &copy
	return nil
}

func (m *MockStopRepository) CountUnpurchased(ctx context.Context, stopID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, it := range m.items {
		if it.StopID == stopID && !it.IsPurchased {
			n++
		}
	}
	return n, nil
}

func (m *MockStopRepository) AnyPurchasedForRequest(ctx context.Context, requestID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, it := range m.items {
		stop, ok := m.stops[it.StopID]
		if ok && stop.RequestID == requestID && it.IsPurchased {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockStopRepository) ItemsTotalForRequest(ctx context.Context, requestID string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ItemsTotalError != nil {
		return 0, m.ItemsTotalError
	}
	var total float64
	for _, it := range m.items {
		stop, ok := m.stops[it.StopID]
		if ok && stop.RequestID == requestID && it.IsPurchased {
			total += it.ActualCost
		}
	}
	return total, nil
}

// ──────────────────────────────────────────────
// MOCK LOCATION REPOSITORY
// ──────────────────────────────────────────────

// MockLocationRepository is a mock implementation of LocationRepository.
type MockLocationRepository struct {
	mu      sync.RWMutex
	samples map[string][]*domain.LocationSample

	AppendCallCount int32
	AppendError     error
}

// NewMockLocationRepository creates a new mock location repository.
func NewMockLocationRepository() *MockLocationRepository {
	return &MockLocationRepository{
		samples: make(map[string][]*domain.LocationSample),
	}
}

func (m *MockLocationRepository) Append(ctx context.Context, sample *domain.LocationSample) error {
	atomic.AddInt32(&m.AppendCallCount, 1)
	if m.AppendError != nil {
		return m.AppendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *sample
	m.samples[sample.ServiceID] = append(m.samples[sample.ServiceID], &copy)
	return nil
}

func (m *MockLocationRepository) Latest(ctx context.Context, serviceID string) (*domain.LocationSample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.samples[serviceID]
	if len(list) == 0 {
		return nil, repository.ErrNotFound
	}
	latest := list[0]
	for _, s := range list[1:] {
		if s.CreatedAt.After(latest.CreatedAt) {
			latest = s
		}
	}
	copy := *latest
	return &copy, nil
}

// ──────────────────────────────────────────────
// MOCK UNIT OF WORK
// ──────────────────────────────────────────────

// MockUnitOfWork runs the transactional function directly against the
// shared mocks. The request mock's version check reproduces the
// lost-update behavior a real transaction would surface.
type MockUnitOfWork struct {
	Requests *MockRequestRepository
	Offers   *MockOfferRepository

	WithinTxCallCount int32
}

// NewMockUnitOfWork creates a mock unit of work over the given mocks.
func NewMockUnitOfWork(requests *MockRequestRepository, offers *MockOfferRepository) *MockUnitOfWork {
	return &MockUnitOfWork{Requests: requests, Offers: offers}
}

func (m *MockUnitOfWork) WithinTx(ctx context.Context, fn func(repos repository.TxRepos) error) error {
	atomic.AddInt32(&m.WithinTxCallCount, 1)
	return fn(repository.TxRepos{Requests: m.Requests, Offers: m.Offers})
}

// ──────────────────────────────────────────────
// MOCK LOCATION STORE (Redis)
// ──────────────────────────────────────────────

// MockLocationStore is a mock implementation of LocationStoreInterface.
type MockLocationStore struct {
	mu     sync.RWMutex
	latest map[string]*domain.LocationSample
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{latest: make(map[string]*domain.LocationSample)}
}

func (m *MockLocationStore) SetLatest(ctx context.Context, sample *domain.LocationSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *sample
	m.latest[sample.ServiceID] = &copy
	return nil
}

func (m *MockLocationStore) GetLatest(ctx context.Context, serviceID string) (*domain.LocationSample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sample, ok := m.latest[serviceID]
	if !ok {
		return nil, nil
	}
	copy := *sample
	return &copy, nil
}

func (m *MockLocationStore) Remove(ctx context.Context, serviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.latest, serviceID)
	return nil
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE (Redis)
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStoreInterface.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]bool

	AcquireCallCount int32
	AcquireError     error
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{locks: make(map[string]bool)}
}

func (m *MockLockStore) AcquireAcceptLock(ctx context.Context, requestID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[requestID] {
		return false, nil
	}
	m.locks[requestID] = true
	return true, nil
}

func (m *MockLockStore) ReleaseAcceptLock(ctx context.Context, requestID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, requestID)
	return nil
}

// ──────────────────────────────────────────────
// MOCK SNAPSHOT STORE (Redis)
// ──────────────────────────────────────────────

// MockSnapshotStore is a mock implementation of SnapshotStoreInterface.
type MockSnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]*redis.RequestSnapshot

	InvalidateCallCount int32
}

// NewMockSnapshotStore creates a new mock snapshot store.
func NewMockSnapshotStore() *MockSnapshotStore {
	return &MockSnapshotStore{snapshots: make(map[string]*redis.RequestSnapshot)}
}

func (m *MockSnapshotStore) GetRequest(ctx context.Context, requestID string) (*redis.RequestSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snapshots[requestID]
	if !ok {
		return nil, nil
	}
	copy := *snap
	return &copy, nil
}

func (m *MockSnapshotStore) SetRequest(ctx context.Context, snap *redis.RequestSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *snap
	m.snapshots[snap.ID] = &copy
	return nil
}

func (m *MockSnapshotStore) InvalidateRequest(ctx context.Context, requestID string) error {
	atomic.AddInt32(&m.InvalidateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, requestID)
	return nil
}

// ──────────────────────────────────────────────
// MOCK TOPIC PUBLISHER
// ──────────────────────────────────────────────

// PublishedEvent records one publish call.
type PublishedEvent struct {
	Topic   string
	Payload any
}

// MockPublisher records every published event.
type MockPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent

	PublishError error
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, payload any) error {
	if m.PublishError != nil {
		return m.PublishError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, PublishedEvent{Topic: topic, Payload: payload})
	return nil
}

// Events returns a copy of the recorded events.
func (m *MockPublisher) Events() []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PublishedEvent, len(m.events))
	copy(out, m.events)
	return out
}
