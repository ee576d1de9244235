package tracking

import (
	"context"
	"testing"
	"time"

	"movix/internal/domain"
)

func sampleAt(serviceID string, ts time.Time) *domain.LocationSample {
	return &domain.LocationSample{
		ServiceID: serviceID,
		DriverID:  "driver-1",
		Lat:       19.43,
		Lng:       -99.13,
		CreatedAt: ts,
	}
}

func TestIngest_OutOfOrderSampleDropped(t *testing.T) {
	t.Parallel()

	in := NewIngestor(nil, 10*time.Second)

	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	t1 := t0.Add(1 * time.Second)
	t2 := t0.Add(2 * time.Second)

	// Feed t0, t2, t1: t1 arrives late and must be dropped.
	if !in.Ingest(sampleAt("svc-1", t0)) {
		t.Fatal("t0 should be accepted")
	}
	if !in.Ingest(sampleAt("svc-1", t2)) {
		t.Fatal("t2 should be accepted")
	}
	if in.Ingest(sampleAt("svc-1", t1)) {
		t.Fatal("t1 arrived after t2 and should be dropped")
	}

	snap := in.Snapshot("svc-1")
	if snap.Accepted != 2 {
		t.Errorf("expected 2 accepted samples, got %d", snap.Accepted)
	}
	if !snap.Latest.CreatedAt.Equal(t2) {
		t.Errorf("latest should be t2, got %v", snap.Latest.CreatedAt)
	}
}

func TestIngest_EqualTimestampDropped(t *testing.T) {
	t.Parallel()

	in := NewIngestor(nil, 10*time.Second)
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if !in.Ingest(sampleAt("svc-1", ts)) {
		t.Fatal("first sample should be accepted")
	}
	// Strictly-greater rule: a duplicate timestamp is not an update.
	if in.Ingest(sampleAt("svc-1", ts)) {
		t.Fatal("equal timestamp should be dropped")
	}
}

func TestIngest_ChannelsAreIndependent(t *testing.T) {
	t.Parallel()

	in := NewIngestor(nil, 10*time.Second)
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	in.Ingest(sampleAt("svc-a", ts.Add(5*time.Second)))
	if !in.Ingest(sampleAt("svc-b", ts)) {
		t.Fatal("an earlier timestamp on a different service must be accepted")
	}
}

func TestSnapshot_StaleFlag(t *testing.T) {
	t.Parallel()

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	in := NewIngestor(nil, 10*time.Second).WithClock(func() time.Time { return current })

	in.Ingest(sampleAt("svc-1", current))
	if snap := in.Snapshot("svc-1"); snap.Stale {
		t.Error("fresh sample should not be stale")
	}

	current = current.Add(11 * time.Second)
	if snap := in.Snapshot("svc-1"); !snap.Stale {
		t.Error("sample older than threshold should be stale")
	}
}

func TestSnapshot_NoSamplesIsStale(t *testing.T) {
	t.Parallel()

	in := NewIngestor(nil, 10*time.Second)
	if snap := in.Snapshot("svc-unknown"); !snap.Stale {
		t.Error("channel with no samples should report stale")
	}
}

// staticSource returns a fixed sample for every service.
type staticSource struct {
	sample *domain.LocationSample
}

func (s *staticSource) GetLatest(ctx context.Context, serviceID string) (*domain.LocationSample, error) {
	return s.sample, nil
}

func TestSubscribe_PrimesFromPersistedSample(t *testing.T) {
	t.Parallel()

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	src := &staticSource{sample: sampleAt("svc-1", ts)}
	in := NewIngestor(src, 10*time.Second)

	if err := in.Subscribe(context.Background(), "svc-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := in.Snapshot("svc-1")
	if snap.Latest == nil {
		t.Fatal("late joiner should see the persisted sample")
	}
	if !snap.Connected {
		t.Error("subscribed channel should be connected")
	}

	// The primed sample is the watermark: older live samples are dropped.
	if in.Ingest(sampleAt("svc-1", ts.Add(-1*time.Second))) {
		t.Error("live sample older than the primed one should be dropped")
	}
	if !in.Ingest(sampleAt("svc-1", ts.Add(1*time.Second))) {
		t.Error("live sample newer than the primed one should be accepted")
	}
}

func TestUnsubscribe_KeepsWatermark(t *testing.T) {
	t.Parallel()

	in := NewIngestor(nil, 10*time.Second)
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	in.Ingest(sampleAt("svc-1", ts))
	in.Unsubscribe("svc-1")

	if snap := in.Snapshot("svc-1"); snap.Connected {
		t.Error("unsubscribed channel should not be connected")
	}

	// Resubscribing must not let an older sample through.
	if err := in.Subscribe(context.Background(), "svc-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.Ingest(sampleAt("svc-1", ts.Add(-time.Minute))) {
		t.Error("watermark should survive a reconnect")
	}
}
