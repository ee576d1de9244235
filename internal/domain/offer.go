package domain

import "time"

// OfferType distinguishes who priced the offer last.
type OfferType string

const (
	OfferTypeInitial       OfferType = "initial"
	OfferTypeClientCounter OfferType = "client_counter"
	OfferTypeDriverCounter OfferType = "driver_counter"
)

// OfferStatus represents the state of a single bid.
type OfferStatus string

const (
	OfferStatusPending  OfferStatus = "pending"
	OfferStatusAccepted OfferStatus = "accepted"
	OfferStatusRejected OfferStatus = "rejected"
	OfferStatusExpired  OfferStatus = "expired"
)

// Offer is a priced bid by a driver against a service request. Multiple
// pending offers may coexist per request; at most one ever reaches accepted.
type Offer struct {
	ID           string
	RequestID    string
	DriverID     string
	OfferedPrice float64
	OfferType    OfferType
	Status       OfferStatus
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// IsExpired reports whether the offer has passed its deadline.
func (o *Offer) IsExpired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// Acceptable reports whether the offer can still be accepted at the
// given instant.
func (o *Offer) Acceptable(now time.Time) bool {
	return o.Status == OfferStatusPending && !o.IsExpired(now)
}
