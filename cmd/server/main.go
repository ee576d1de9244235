package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"movix/internal/app"
	"movix/internal/config"
	"movix/internal/handler"
	internalRedis "movix/internal/redis"
	"movix/internal/repository/postgres"
	"movix/internal/routing"
	"movix/internal/service"
	"movix/internal/tracking"
	"movix/internal/ws"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Wire dependencies. The bridge context outlives the startup timeout.
	runCtx, stopBridge := context.WithCancel(context.Background())
	defer stopBridge()
	server := wireServer(runCtx, db, redisClient, nrApp, cfg)

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(ctx context.Context, db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config) *http.Server {
	// Initialize Redis stores.
	locationStore := internalRedis.NewLocationStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	snapshotStore := internalRedis.NewSnapshotStore(redisClient)

	// Initialize repositories.
	requestRepo := postgres.NewRequestRepository(db)
	offerRepo := postgres.NewOfferRepository(db)
	stopRepo := postgres.NewStopRepository(db)
	locationRepo := postgres.NewLocationRepository(db)
	uow := postgres.NewUnitOfWork(db)

	// Push fan-out: local hub plus Redis pub/sub so every instance sees
	// every topic. The subscriber bridges remote publishes into the hub.
	hub := ws.NewHub()
	publisher := internalRedis.NewPublisher(redisClient)
	subscriber := internalRedis.NewSubscriber(redisClient, hub)
	go subscriber.Run(ctx)
	events := service.NewEventService(hub, publisher)

	// Initialize tracking engines.
	ingestor := tracking.NewIngestor(locationStore, cfg.Tracking.StaleAfter)
	osrm := routing.NewOSRMClient(cfg.Routing.OSRMEndpoint, cfg.Routing.Timeout)
	routeEngine := tracking.NewRouteEngine(osrm, tracking.EngineConfig{
		RerouteInterval:   cfg.Tracking.RerouteInterval,
		OffRouteThreshold: cfg.Tracking.OffRouteThresholdMeters,
		MaxLegMeters:      cfg.Tracking.MaxRouteLegMeters,
	})

	// Initialize services.
	requestService := service.NewRequestService(requestRepo, stopRepo, locationStore, snapshotStore, events, cfg.Matching, cfg.Commercial)
	offerService := service.NewOfferService(requestRepo, offerRepo, uow, lockStore, snapshotStore, events, cfg.Matching)
	stopService := service.NewStopService(requestRepo, stopRepo, events, cfg.Commercial)
	locationService := service.NewLocationService(requestRepo, locationRepo, locationStore, ingestor, routeEngine, events).
		WithCameras(tracking.FollowConfig{
			DefaultZoom:  cfg.Tracking.CameraDefaultZoom,
			EaseDuration: cfg.Tracking.CameraEaseDuration,
			MinInterval:  cfg.Tracking.CameraMinInterval,
		})

	// Initialize handlers.
	requestHandler := handler.NewRequestHandler(requestService)
	offerHandler := handler.NewOfferHandler(offerService)
	stopHandler := handler.NewStopHandler(stopService)
	locationHandler := handler.NewLocationHandler(locationService)
	wsHandler := ws.NewHandler(hub)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		RequestHandler:  requestHandler,
		OfferHandler:    offerHandler,
		StopHandler:     stopHandler,
		LocationHandler: locationHandler,
		WSHandler:       wsHandler,
		RedisClient:     redisClient,
		NewRelicApp:     nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
