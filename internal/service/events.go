package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"movix/internal/domain"
)

// TopicPublisher delivers a payload to every subscriber of a push topic.
// The hub and the Redis pub/sub bridge both implement it.
type TopicPublisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// Push topic names. One topic per request for lifecycle and offer events,
// one per service for location inserts.
func requestTopic(requestID string) string {
	return "request:" + requestID
}

func serviceLocationTopic(serviceID string) string {
	return fmt.Sprintf("service:%s:location", serviceID)
}

// RequestEvent is a push notification about a request's state.
type RequestEvent struct {
	Type             string    `json:"type"`
	RequestID        string    `json:"request_id"`
	Status           string    `json:"status"`
	TrackingStep     string    `json:"tracking_step,omitempty"`
	AssignedDriverID string    `json:"assigned_driver_id,omitempty"`
	FinalPrice       float64   `json:"final_price,omitempty"`
	ServerTime       time.Time `json:"server_time"`
}

// OfferEvent is a push notification about an offer.
type OfferEvent struct {
	Type         string    `json:"type"`
	RequestID    string    `json:"request_id"`
	OfferID      string    `json:"offer_id"`
	DriverID     string    `json:"driver_id"`
	OfferedPrice float64   `json:"offered_price"`
	OfferType    string    `json:"offer_type"`
	Status       string    `json:"status"`
	ServerTime   time.Time `json:"server_time"`
}

// LocationEvent is a push notification about an accepted GPS sample.
type LocationEvent struct {
	Type      string    `json:"type"`
	ServiceID string    `json:"service_id"`
	DriverID  string    `json:"driver_id"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Bearing   float64   `json:"bearing,omitempty"`
	Speed     float64   `json:"speed,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventService publishes best-effort push events. Delivery failures are
// logged and swallowed: the poll path is the correctness net, push only
// lowers latency.
type EventService struct {
	publishers []TopicPublisher
	now        func() time.Time
}

// NewEventService creates an EventService fanning out to the given publishers.
func NewEventService(publishers ...TopicPublisher) *EventService {
	return &EventService{publishers: publishers, now: time.Now}
}

// RequestUpdated publishes a request lifecycle event.
func (s *EventService) RequestUpdated(ctx context.Context, eventType string, req *domain.ServiceRequest) {
	s.publish(ctx, requestTopic(req.ID), RequestEvent{
		Type:             eventType,
		RequestID:        req.ID,
		Status:           string(req.Status),
		TrackingStep:     string(req.TrackingStep),
		AssignedDriverID: req.AssignedDriverID,
		FinalPrice:       req.FinalPrice,
		ServerTime:       s.now(),
	})
}

// OfferUpdated publishes an offer event on the parent request's topic.
func (s *EventService) OfferUpdated(ctx context.Context, eventType string, offer *domain.Offer) {
	s.publish(ctx, requestTopic(offer.RequestID), OfferEvent{
		Type:         eventType,
		RequestID:    offer.RequestID,
		OfferID:      offer.ID,
		DriverID:     offer.DriverID,
		OfferedPrice: offer.OfferedPrice,
		OfferType:    string(offer.OfferType),
		Status:       string(offer.Status),
		ServerTime:   s.now(),
	})
}

// LocationAccepted publishes an accepted sample on the service's topic.
func (s *EventService) LocationAccepted(ctx context.Context, sample *domain.LocationSample) {
	s.publish(ctx, serviceLocationTopic(sample.ServiceID), LocationEvent{
		Type:      "location_sample",
		ServiceID: sample.ServiceID,
		DriverID:  sample.DriverID,
		Lat:       sample.Lat,
		Lng:       sample.Lng,
		Bearing:   sample.Bearing,
		Speed:     sample.Speed,
		Timestamp: sample.CreatedAt,
	})
}

func (s *EventService) publish(ctx context.Context, topic string, payload any) {
	for _, p := range s.publishers {
		if err := p.Publish(ctx, topic, payload); err != nil {
			log.Printf("events: publish to %s failed: %v", topic, err)
		}
	}
}
