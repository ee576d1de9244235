package tracking

import (
	"sync"
	"time"
)

// Pose is a camera pose over the map.
type Pose struct {
	CenterLat float64
	CenterLng float64
	Zoom      float64
	Bearing   float64
	Pitch     float64
}

// FollowConfig carries the camera controller tunables.
type FollowConfig struct {
	DefaultZoom  float64
	DefaultPitch float64
	EaseDuration time.Duration // how long one ease takes
	MinInterval  time.Duration // throttle between eases
}

// FollowController derives a camera pose from the tracked position. It
// keeps following the position unless the user has changed zoom manually,
// in which case the user's zoom wins until an explicit recenter.
// Eases are throttled so the controller never fights the renderer.
type FollowController struct {
	cfg FollowConfig
	now func() time.Time

	mu            sync.Mutex
	preferredZoom *float64 // user override, nil when following defaults
	lastEase      time.Time
	pose          Pose
}

// NewFollowController creates a FollowController.
func NewFollowController(cfg FollowConfig) *FollowController {
	if cfg.DefaultZoom <= 0 {
		cfg.DefaultZoom = 16
	}
	if cfg.EaseDuration <= 0 {
		cfg.EaseDuration = 600 * time.Millisecond
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 200 * time.Millisecond
	}
	return &FollowController{cfg: cfg, now: time.Now}
}

// WithClock overrides the controller's clock. Intended for tests.
func (f *FollowController) WithClock(now func() time.Time) *FollowController {
	f.now = now
	return f
}

// Ease describes one eased camera movement.
type Ease struct {
	Target   Pose
	Duration time.Duration
}

// Observe feeds a tracked position into the controller. It returns the
// ease to apply and true, or a zero Ease and false when the update was
// throttled.
func (f *FollowController) Observe(lat, lng, bearing float64) (Ease, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	if !f.lastEase.IsZero() && now.Sub(f.lastEase) < f.cfg.MinInterval {
		return Ease{}, false
	}

	zoom := f.cfg.DefaultZoom
	if f.preferredZoom != nil {
		zoom = *f.preferredZoom
	}

	f.pose = Pose{
		CenterLat: lat,
		CenterLng: lng,
		Zoom:      zoom,
		Bearing:   bearing,
		Pitch:     f.cfg.DefaultPitch,
	}
	f.lastEase = now

	return Ease{Target: f.pose, Duration: f.cfg.EaseDuration}, true
}

// SetZoomOverride records a user zoom gesture. The zoom is preserved
// across subsequent follows until Recenter.
func (f *FollowController) SetZoomOverride(zoom float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.preferredZoom = &zoom
}

// Recenter clears the zoom override and eases back to the default pose
// immediately, bypassing the throttle.
func (f *FollowController) Recenter(lat, lng, bearing float64) Ease {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.preferredZoom = nil
	f.pose = Pose{
		CenterLat: lat,
		CenterLng: lng,
		Zoom:      f.cfg.DefaultZoom,
		Bearing:   bearing,
		Pitch:     f.cfg.DefaultPitch,
	}
	f.lastEase = f.now()

	return Ease{Target: f.pose, Duration: f.cfg.EaseDuration}
}

// Pose returns the last derived camera pose.
func (f *FollowController) Pose() Pose {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pose
}

// Overridden reports whether a user zoom override is active.
func (f *FollowController) Overridden() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.preferredZoom != nil
}
