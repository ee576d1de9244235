package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters and histograms for the matching and tracking hot paths. All are
// registered on the default registry and served on /metrics.
var (
	RequestsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "movix_requests_created_total",
		Help: "Service requests created, by service type.",
	}, []string{"service_type"})

	OffersSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "movix_offers_submitted_total",
		Help: "Driver offers and counter-offers submitted.",
	})

	AcceptConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "movix_offer_accept_conflicts_total",
		Help: "Offer acceptances lost to a concurrent accept.",
	})

	SamplesAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "movix_location_samples_accepted_total",
		Help: "GPS samples accepted by the ingestion watermark.",
	})

	SamplesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "movix_location_samples_dropped_total",
		Help: "GPS samples dropped as stale or out of order.",
	})

	RouteRecomputes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "movix_route_recomputes_total",
		Help: "Route recomputations, by trigger reason.",
	}, []string{"reason"})

	RouteComputeSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "movix_route_compute_seconds",
		Help:    "Latency of routing provider calls.",
		Buckets: prometheus.DefBuckets,
	})

	WebsocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "movix_websocket_clients",
		Help: "Currently connected websocket clients.",
	})
)
