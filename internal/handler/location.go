package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"movix/internal/service"
)

// LocationHandler handles HTTP requests for GPS ingestion and live tracking.
type LocationHandler struct {
	locationService *service.LocationService
}

// NewLocationHandler creates a new LocationHandler.
func NewLocationHandler(locationService *service.LocationService) *LocationHandler {
	return &LocationHandler{locationService: locationService}
}

// SampleBody is the HTTP request body for submitting a GPS sample.
type SampleBody struct {
	DriverID   string  `json:"driver_id"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Accuracy   float64 `json:"accuracy,omitempty"`
	Bearing    float64 `json:"bearing,omitempty"`
	Speed      float64 `json:"speed,omitempty"`
	RecordedAt string  `json:"recorded_at,omitempty"` // RFC 3339 device time
}

// SampleResponse reports whether the sample was accepted.
type SampleResponse struct {
	Accepted bool   `json:"accepted"`
	SampleID string `json:"sample_id,omitempty"`
}

// SubmitSample handles POST /v1/services/:id/location
func (h *LocationHandler) SubmitSample(c *gin.Context) {
	var body SampleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	var recordedAt time.Time
	if body.RecordedAt != "" {
		t, err := time.Parse(time.RFC3339, body.RecordedAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid recorded_at"})
			return
		}
		recordedAt = t
	}

	result, err := h.locationService.IngestSample(c.Request.Context(), service.SampleParams{
		ServiceID:  c.Param("id"),
		DriverID:   body.DriverID,
		Lat:        body.Lat,
		Lng:        body.Lng,
		Accuracy:   body.Accuracy,
		Bearing:    body.Bearing,
		Speed:      body.Speed,
		RecordedAt: recordedAt,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := SampleResponse{Accepted: result.Accepted}
	if result.Accepted {
		resp.SampleID = result.Sample.ID
	}
	respondJSON(c, http.StatusOK, resp)
}

// TrackingPoint is one polyline vertex in a tracking response.
type TrackingPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// TrackingResponse is the live-tracking snapshot for one service.
type TrackingResponse struct {
	Connected bool `json:"connected"`
	Stale     bool `json:"stale"`

	Lat       *float64 `json:"lat,omitempty"`
	Lng       *float64 `json:"lng,omitempty"`
	Bearing   *float64 `json:"bearing,omitempty"`
	Speed     *float64 `json:"speed,omitempty"`
	Timestamp string   `json:"timestamp,omitempty"`

	RoutePhase           string          `json:"route_phase,omitempty"`
	RoutePoints          []TrackingPoint `json:"route_points,omitempty"`
	RouteDistanceMeters  float64         `json:"route_distance_meters,omitempty"`
	RouteDurationSeconds float64         `json:"route_duration_seconds,omitempty"`

	Camera *CameraPose `json:"camera,omitempty"`
}

// CameraPose is the suggested map camera for the follow view.
type CameraPose struct {
	CenterLat float64 `json:"center_lat"`
	CenterLng float64 `json:"center_lng"`
	Zoom      float64 `json:"zoom"`
	Bearing   float64 `json:"bearing"`
	Pitch     float64 `json:"pitch"`
}

// GetTracking handles GET /v1/services/:id/tracking
func (h *LocationHandler) GetTracking(c *gin.Context) {
	view, err := h.locationService.Tracking(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := TrackingResponse{
		Connected: view.Channel.Connected,
		Stale:     view.Channel.Stale,
	}
	if latest := view.Channel.Latest; latest != nil {
		resp.Lat = &latest.Lat
		resp.Lng = &latest.Lng
		resp.Bearing = &latest.Bearing
		resp.Speed = &latest.Speed
		resp.Timestamp = latest.CreatedAt.UTC().Format(time.RFC3339)
	}
	if route := view.Route; route != nil {
		resp.RoutePhase = string(route.Phase)
		resp.RouteDistanceMeters = route.DistanceMeters
		resp.RouteDurationSeconds = route.DurationSeconds
		resp.RoutePoints = make([]TrackingPoint, 0, len(route.Points))
		for _, p := range route.Points {
			resp.RoutePoints = append(resp.RoutePoints, TrackingPoint{Lat: p.Lat, Lng: p.Lng})
		}
	}
	if cam := view.Camera; cam != nil {
		resp.Camera = &CameraPose{
			CenterLat: cam.CenterLat,
			CenterLng: cam.CenterLng,
			Zoom:      cam.Zoom,
			Bearing:   cam.Bearing,
			Pitch:     cam.Pitch,
		}
	}
	respondJSON(c, http.StatusOK, resp)
}

// TimeResponse is the HTTP response for the server-time endpoint.
type TimeResponse struct {
	ServerTime string `json:"server_time"`
	UnixMillis int64  `json:"unix_millis"`
}

// ServerTime handles GET /v1/time. Clients anchor countdowns to this,
// never to their own clock.
func ServerTime(c *gin.Context) {
	now := time.Now().UTC()
	respondJSON(c, http.StatusOK, TimeResponse{
		ServerTime: now.Format(time.RFC3339Nano),
		UnixMillis: now.UnixMilli(),
	})
}
