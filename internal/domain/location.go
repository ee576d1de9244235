package domain

import "time"

// LocationSample is one GPS observation from a driver's device. Samples are
// append-only for the lifetime of the service they belong to.
type LocationSample struct {
	ID        string
	ServiceID string
	DriverID  string
	Lat       float64
	Lng       float64
	Accuracy  float64 // meters, 0 if unknown
	Bearing   float64 // degrees clockwise from north
	Speed     float64 // meters per second
	CreatedAt time.Time
}
