package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"movix/internal/handler"
	"movix/internal/middleware"
	"movix/internal/ws"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RequestHandler  *handler.RequestHandler
	OfferHandler    *handler.OfferHandler
	StopHandler     *handler.StopHandler
	LocationHandler *handler.LocationHandler
	WSHandler       *ws.Handler
	RedisClient     *redis.Client
	NewRelicApp     *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.Idempotency(deps.RedisClient))

	// Health check and metrics.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		v1.GET("/time", handler.ServerTime)
		v1.GET("/ws", deps.WSHandler.Serve)

		// Request lifecycle routes.
		requests := v1.Group("/requests")
		{
			requests.POST("", deps.RequestHandler.CreateRequest)
			requests.GET("/:id", deps.RequestHandler.GetRequest)
			requests.GET("/:id/status", deps.RequestHandler.GetStatus)
			requests.POST("/:id/reissue", deps.RequestHandler.ReissueRequest)
			requests.POST("/:id/tracking-step", deps.RequestHandler.AdvanceTrackingStep)
			requests.POST("/:id/validate-pin", deps.RequestHandler.ValidatePin)
			requests.POST("/:id/cancel/client", deps.RequestHandler.CancelByClient)
			requests.POST("/:id/cancel/driver", deps.RequestHandler.CancelByDriver)

			// Negotiation routes.
			requests.POST("/:id/offers", deps.OfferHandler.SubmitOffer)
			requests.GET("/:id/offers", deps.OfferHandler.ListOffers)

			// Mandadito stop routes.
			requests.POST("/:id/stops", deps.StopHandler.AddStop)
			requests.GET("/:id/stops", deps.StopHandler.ListStops)
			requests.GET("/:id/total", deps.StopHandler.RequestTotal)
		}

		// Driver session recovery.
		v1.GET("/drivers/:id/requests", deps.RequestHandler.ListActiveForDriver)

		offers := v1.Group("/offers")
		{
			offers.POST("/:id/counter", deps.OfferHandler.CounterOffer)
			offers.POST("/:id/reject", deps.OfferHandler.RejectOffer)
			offers.POST("/:id/accept", deps.OfferHandler.AcceptOffer)
		}

		stops := v1.Group("/stops")
		{
			stops.GET("/:id/items", deps.StopHandler.ListItems)
			stops.POST("/:id/start", deps.StopHandler.StartStop)
			stops.POST("/:id/complete", deps.StopHandler.CompleteStop)
			stops.POST("/:id/skip", deps.StopHandler.SkipStop)
		}

		items := v1.Group("/items")
		{
			items.POST("/:id/purchase", deps.StopHandler.PurchaseItem)
		}

		// Live tracking routes.
		services := v1.Group("/services")
		{
			services.POST("/:id/location", deps.LocationHandler.SubmitSample)
			services.GET("/:id/tracking", deps.LocationHandler.GetTracking)
		}
	}

	return router
}
