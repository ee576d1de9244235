// Package tracking hosts the soft-realtime side of a live service: GPS
// ingestion, route maintenance, and the camera follow controller. Nothing
// here blocks the lifecycle state machine; late or dropped samples only
// degrade display smoothness.
package tracking

import (
	"context"
	"sync"
	"time"

	"movix/internal/domain"
)

// LatestSource primes a channel with the most recent persisted sample so a
// late-joining observer is never blank.
type LatestSource interface {
	GetLatest(ctx context.Context, serviceID string) (*domain.LocationSample, error)
}

// ChannelSnapshot is the observable state of one service's location channel.
type ChannelSnapshot struct {
	Latest    *domain.LocationSample
	Accepted  uint64
	Connected bool
	Stale     bool
}

// Ingestor maintains, per service, the most recent accepted GPS sample.
// A sample is accepted iff its timestamp is strictly greater than the last
// accepted one, which drops out-of-order delivery from unreliable transports.
type Ingestor struct {
	source     LatestSource
	staleAfter time.Duration
	now        func() time.Time

	mu       sync.RWMutex
	channels map[string]*channel
}

type channel struct {
	mu        sync.Mutex
	latest    *domain.LocationSample
	accepted  uint64
	connected bool
}

// NewIngestor creates an Ingestor. source may be nil when priming from
// persistence is not wanted (tests).
func NewIngestor(source LatestSource, staleAfter time.Duration) *Ingestor {
	if staleAfter <= 0 {
		staleAfter = 10 * time.Second
	}
	return &Ingestor{
		source:     source,
		staleAfter: staleAfter,
		now:        time.Now,
		channels:   make(map[string]*channel),
	}
}

// WithClock overrides the ingestor's clock. Intended for tests.
func (in *Ingestor) WithClock(now func() time.Time) *Ingestor {
	in.now = now
	return in
}

// Subscribe opens (or re-opens) the channel for a service, priming it with
// the most recent persisted sample before any live update is accepted.
func (in *Ingestor) Subscribe(ctx context.Context, serviceID string) error {
	ch := in.channel(serviceID)

	var primed *domain.LocationSample
	if in.source != nil {
		sample, err := in.source.GetLatest(ctx, serviceID)
		if err != nil {
			return err
		}
		primed = sample
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.connected = true
	if primed != nil && (ch.latest == nil || primed.CreatedAt.After(ch.latest.CreatedAt)) {
		ch.latest = primed
	}
	return nil
}

// Unsubscribe marks the channel disconnected. Accepted history is kept so a
// resubscribe does not regress the timestamp watermark.
func (in *Ingestor) Unsubscribe(serviceID string) {
	ch := in.channel(serviceID)
	ch.mu.Lock()
	ch.connected = false
	ch.mu.Unlock()
}

// Ingest offers a sample to the service's channel. Returns true when the
// sample was accepted, false when it was dropped as stale or out of order.
func (in *Ingestor) Ingest(sample *domain.LocationSample) bool {
	ch := in.channel(sample.ServiceID)

	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.latest != nil && !sample.CreatedAt.After(ch.latest.CreatedAt) {
		return false
	}

	ch.latest = sample
	ch.accepted++
	return true
}

// Snapshot returns the channel's observable state. Stale means no accepted
// sample within the configured threshold.
func (in *Ingestor) Snapshot(serviceID string) ChannelSnapshot {
	ch := in.channel(serviceID)

	ch.mu.Lock()
	defer ch.mu.Unlock()

	snap := ChannelSnapshot{
		Latest:    ch.latest,
		Accepted:  ch.accepted,
		Connected: ch.connected,
	}
	if ch.latest == nil || in.now().Sub(ch.latest.CreatedAt) > in.staleAfter {
		snap.Stale = true
	}
	return snap
}

// Drop discards the channel entirely, for use when a service reaches a
// terminal state.
func (in *Ingestor) Drop(serviceID string) {
	in.mu.Lock()
	delete(in.channels, serviceID)
	in.mu.Unlock()
}

func (in *Ingestor) channel(serviceID string) *channel {
	in.mu.RLock()
	ch, ok := in.channels[serviceID]
	in.mu.RUnlock()
	if ok {
		return ch
	}

	in.mu.Lock()
	defer in.mu.Unlock()
	if ch, ok = in.channels[serviceID]; ok {
		return ch
	}
	ch = &channel{}
	in.channels[serviceID] = ch
	return ch
}
