// Package routing abstracts the external route computation provider.
package routing

import (
	"context"
	"errors"

	"movix/internal/geo"
)

// Route is one computed route between two endpoints.
type Route struct {
	Points          []geo.Point
	DistanceMeters  float64
	DurationSeconds float64
}

// ErrNoRoute is returned when the provider cannot find a route between
// the endpoints.
var ErrNoRoute = errors.New("no route between endpoints")

// Provider computes routes. Implementations are expected to be slow
// (network calls) and must honor context cancellation.
type Provider interface {
	Route(ctx context.Context, from, to geo.Point) (*Route, error)
}
