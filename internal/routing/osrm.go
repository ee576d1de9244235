package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"movix/internal/geo"
)

// OSRMClient performs route lookups against an OSRM HTTP server.
type OSRMClient struct {
	endpoint string
	client   *http.Client
}

// NewOSRMClient creates an OSRM client for the given endpoint.
func NewOSRMClient(endpoint string, timeout time.Duration) *OSRMClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &OSRMClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// osrmResponse mirrors the subset of the OSRM /route response we consume.
type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"` // [lng, lat]
		} `json:"geometry"`
	} `json:"routes"`
}

// Route queries OSRM for a driving route with the full geometry.
func (o *OSRMClient) Route(ctx context.Context, from, to geo.Point) (*Route, error) {
	url := fmt.Sprintf(
		"%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson",
		o.endpoint, from.Lng, from.Lat, to.Lng, to.Lat,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("osrm: unexpected status %d", resp.StatusCode)
	}

	var out osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}

	if out.Code != "Ok" || len(out.Routes) == 0 {
		return nil, ErrNoRoute
	}

	best := out.Routes[0]
	points := make([]geo.Point, 0, len(best.Geometry.Coordinates))
	for _, c := range best.Geometry.Coordinates {
		if len(c) < 2 {
			continue
		}
		points = append(points, geo.Point{Lat: c[1], Lng: c[0]})
	}

	return &Route{
		Points:          points,
		DistanceMeters:  best.Distance,
		DurationSeconds: best.Duration,
	}, nil
}
