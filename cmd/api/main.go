package main

import (
	"context"
	"log"
	"time"

	"shipment-tracker/internal/core/cache"
	"shipment-tracker/internal/core/config"
	"shipment-tracker/internal/core/logger"
	"shipment-tracker/internal/core/metrics"
	"shipment-tracker/internal/core/server"
	eventadapter "shipment-tracker/internal/features/events/adapters"
	eventdomain "shipment-tracker/internal/features/events/domain"
	eventports "shipment-tracker/internal/features/events/ports"
	eventservice "shipment-tracker/internal/features/events/service"
	locationadapter "shipment-tracker/internal/features/location/adapters"
	locationhandler "shipment-tracker/internal/features/location/handler"
	locationservice "shipment-tracker/internal/features/location/service"
	sagaadapter "shipment-tracker/internal/features/saga/adapters"
	sagaservice "shipment-tracker/internal/features/saga/service"
	shipmentadapter "shipment-tracker/internal/features/shipment/adapters"
	shipmenthandler "shipment-tracker/internal/features/shipment/handler"
	shipmentservice "shipment-tracker/internal/features/shipment/service"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// deferredPublisher breaks the construction cycle between the shipment
// service and the choreographer: the service publishes through it, and the
// choreographer is bound once both exist.
type deferredPublisher struct {
	delegate eventports.Publisher
}

func (p *deferredPublisher) Publish(ctx context.Context, event eventdomain.DomainEvent) {
	if p.delegate != nil {
		p.delegate.Publish(ctx, event)
	}
}

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
	)

	// One Redis client backs the cache, the stream transport and the
	// per-shipment event streams.
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		l.Fatal("Invalid Redis URL", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	redisCache := cache.NewRedisAdapterFromClient(redisClient)
	if err := redisCache.Ping(context.Background()); err != nil {
		l.Fatal("Redis health check failed", zap.Error(err))
	}
	l.Info("Redis connection verified")

	m := metrics.New("shipment_tracker")

	// Event context adapters.
	transport := eventadapter.NewRedisStreamTransportFromClient(redisClient)
	eventStream := eventadapter.NewRedisEventStreamFromClient(redisClient)
	notifier := eventadapter.NewLogNotifier()
	sessions := locationservice.NewSessionManager()

	// Shipment context.
	shipmentRepo := shipmentadapter.NewMemoryRepository()
	publisher := &deferredPublisher{}
	shipmentSvc := shipmentservice.NewService(shipmentRepo, publisher, m, cfg.Tracking.StopArrivalRadiusMeters)

	choreographer := eventservice.NewChoreographer(transport, sessions, notifier, eventStream, shipmentSvc, m)
	publisher.delegate = choreographer

	// Location context.
	cacheTTL := time.Duration(cfg.Redis.CacheTTLSeconds) * time.Second
	locationRepo := locationadapter.NewCachedLocationRepository(
		locationadapter.NewMemoryLocationRepository(), redisCache, cacheTTL)
	historyRepo := locationadapter.NewMemoryHistoryRepository()
	geofenceRepo := locationadapter.NewMemoryGeofenceRepository()

	dwellDefault := time.Duration(cfg.Tracking.DwellThresholdMinutes) * time.Minute
	engine := locationservice.NewGeofenceEngine(geofenceRepo, dwellDefault, m)
	geofenceSvc := locationservice.NewGeofenceService(geofenceRepo)
	tracker := locationservice.NewTracker(
		locationRepo, historyRepo, engine, choreographer, shipmentSvc, locationadapter.NewStaticGeocoder(), m,
		cfg.Tracking.HistoryMaxPoints, cfg.Tracking.StopArrivalRadiusMeters)

	// Cancellation saga.
	sagaLog := sagaadapter.NewMemorySagaLog()
	stepTimeout := time.Duration(cfg.Tracking.SagaStepTimeoutSeconds) * time.Second
	interpreter := sagaservice.NewInterpreter(sagaLog, m, stepTimeout)
	cancellation := sagaservice.NewCancellationSaga(
		interpreter, shipmentRepo, sessions, notifier, sagaadapter.NewLogPaymentGateway(), choreographer)

	shipmentHdl := shipmenthandler.NewShipmentHandler(shipmentSvc, cancellation)
	locationHdl := locationhandler.NewLocationHandler(tracker, geofenceSvc)

	srv := server.New(cfg)

	srv.App.Post("/shipments", shipmentHdl.Create)
	srv.App.Get("/shipments/number/:number", shipmentHdl.GetByNumber)
	srv.App.Get("/shipments/:id", shipmentHdl.Get)
	srv.App.Post("/shipments/:id/confirm", shipmentHdl.Confirm)
	srv.App.Post("/shipments/:id/dispatch", shipmentHdl.Dispatch)
	srv.App.Post("/shipments/:id/start-transit", shipmentHdl.StartTransit)
	srv.App.Post("/shipments/:id/deliver", shipmentHdl.Deliver)
	srv.App.Post("/shipments/:id/exception", shipmentHdl.MarkException)
	srv.App.Post("/shipments/:id/resume-transit", shipmentHdl.ResumeTransit)
	srv.App.Post("/shipments/:id/stops", shipmentHdl.AddStop)
	srv.App.Put("/shipments/:id/eta", shipmentHdl.UpdateETA)
	srv.App.Post("/shipments/:id/cancel", shipmentHdl.Cancel)

	srv.App.Post("/locations", locationHdl.Update)
	srv.App.Get("/locations/moving", locationHdl.Moving)
	srv.App.Post("/locations/:id/address", locationHdl.EnrichAddress)
	srv.App.Get("/shipments/:id/location", locationHdl.Latest)
	srv.App.Get("/shipments/:id/locations", locationHdl.Range)
	srv.App.Get("/shipments/:id/history/:date", locationHdl.DailyHistory)

	srv.App.Post("/geofences", locationHdl.CreateGeofence)
	srv.App.Get("/geofences", locationHdl.ListActiveGeofences)
	srv.App.Get("/geofences/:id", locationHdl.GetGeofence)
	srv.App.Post("/geofences/:id/activate", locationHdl.ActivateGeofence)
	srv.App.Post("/geofences/:id/deactivate", locationHdl.DeactivateGeofence)
	srv.App.Put("/geofences/:id/radius", locationHdl.UpdateGeofenceRadius)
	srv.App.Delete("/geofences/:id", locationHdl.DeleteGeofence)

	if err := srv.Run(); err != nil {
		l.Fatal("Server failed to start", zap.Error(err))
	}
}
