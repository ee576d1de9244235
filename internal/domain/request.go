package domain

import "time"

// ServiceType classifies what kind of service a request asks for.
type ServiceType string

const (
	ServiceTypeTaxi      ServiceType = "taxi"
	ServiceTypeMandadito ServiceType = "mandadito"
	ServiceTypeMotoRide  ServiceType = "moto_ride"
)

// MandaditoType classifies the sub-kind of a mandadito request.
type MandaditoType string

const (
	MandaditoTypeShopping MandaditoType = "shopping"
	MandaditoTypeDelivery MandaditoType = "delivery"
	MandaditoTypePayment  MandaditoType = "payment"
)

// RequestStatus represents the coarse lifecycle state of a service request.
type RequestStatus string

const (
	RequestStatusPending     RequestStatus = "pending"
	RequestStatusNegotiating RequestStatus = "negotiating"
	RequestStatusAssigned    RequestStatus = "assigned"
	RequestStatusInProgress  RequestStatus = "in_progress"
	RequestStatusCompleted   RequestStatus = "completed"
	RequestStatusCancelled   RequestStatus = "cancelled"
)

// TrackingStep is the fine-grained physical progress of an assigned request.
// Steps advance monotonically through the order below.
type TrackingStep string

const (
	TrackingStepAccepted  TrackingStep = "accepted"
	TrackingStepOnTheWay  TrackingStep = "on_the_way"
	TrackingStepNearby    TrackingStep = "nearby"
	TrackingStepArrived   TrackingStep = "arrived"
	TrackingStepPickedUp  TrackingStep = "picked_up"
	TrackingStepInTransit TrackingStep = "in_transit"
	TrackingStepCompleted TrackingStep = "completed"
)

// trackingOrder defines the monotonic ordering of tracking steps.
var trackingOrder = map[TrackingStep]int{
	TrackingStepAccepted:  0,
	TrackingStepOnTheWay:  1,
	TrackingStepNearby:    2,
	TrackingStepArrived:   3,
	TrackingStepPickedUp:  4,
	TrackingStepInTransit: 5,
	TrackingStepCompleted: 6,
}

// Index returns the position of the step in the tracking order, or -1 if
// the step is unknown.
func (s TrackingStep) Index() int {
	idx, ok := trackingOrder[s]
	if !ok {
		return -1
	}
	return idx
}

// ServiceRequest is the aggregate root for one trip or delivery job.
type ServiceRequest struct {
	ID               string
	ClientID         string
	AssignedDriverID string // empty until an offer is accepted

	ServiceType   ServiceType
	MandaditoType MandaditoType // mandadito only

	OriginLat     float64
	OriginLng     float64
	OriginAddress string

	// Destination is unset for requests that start without one
	// (e.g. a shopping mandadito whose stops define the route).
	DestinationLat     *float64
	DestinationLng     *float64
	DestinationAddress string

	EstimatedPrice float64
	FinalPrice     float64 // set on assignment

	Status       RequestStatus
	TrackingStep TrackingStep // meaningful only once assigned

	CreatedAt        time.Time
	RequestExpiresAt time.Time // meaningful only while pending
	AssignedAt       time.Time
	StartedAt        time.Time
	CompletedAt      time.Time

	// BoardingPin is a short numeric secret generated at assignment and
	// required server-side before the request can complete.
	BoardingPin string

	CancellationReason string

	// Version is the optimistic-concurrency token. Every conditional
	// write bumps it; a stale version loses the write.
	Version int64
}

// Expired reports whether a pending request has passed its negotiation
// deadline at the given instant.
func (r *ServiceRequest) Expired(now time.Time) bool {
	return r.Status == RequestStatusPending && now.After(r.RequestExpiresAt)
}

// Terminal reports whether the request is in a final state.
func (r *ServiceRequest) Terminal() bool {
	return r.Status == RequestStatusCompleted || r.Status == RequestStatusCancelled
}

// OpenForOffers reports whether drivers may still bid on the request.
func (r *ServiceRequest) OpenForOffers(now time.Time) bool {
	if r.Status == RequestStatusNegotiating {
		return true
	}
	return r.Status == RequestStatusPending && !r.Expired(now)
}

// HasDestination reports whether the request carries destination coordinates.
func (r *ServiceRequest) HasDestination() bool {
	return r.DestinationLat != nil && r.DestinationLng != nil
}
