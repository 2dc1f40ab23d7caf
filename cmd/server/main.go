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

	"rideintel/internal/anomaly"
	"rideintel/internal/app"
	"rideintel/internal/config"
	"rideintel/internal/handler"
	internalRedis "rideintel/internal/redis"
	"rideintel/internal/repository/postgres"
	"rideintel/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	thresholds := anomaly.Thresholds{
		FarePerKmThreshold:     cfg.Anomaly.FarePerKmThreshold,
		GhostRideDistanceKm:    cfg.Anomaly.GhostRideDistanceKm,
		GhostRideFareThreshold: cfg.Anomaly.GhostRideFareThreshold,
		MinSpeedKmh:            cfg.Anomaly.MinSpeedKmh,
		MaxSpeedKmh:            cfg.Anomaly.MaxSpeedKmh,
	}
	if err := thresholds.Validate(); err != nil {
		log.Fatalf("invalid anomaly thresholds: %v", err)
	}

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
			log.Printf("New Relic enabled: app=%s", cfg.NewRelic.AppName)
		}
	}

	// Database connection and schema.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	publisher := app.NewAnomalyPublisher(cfg.Kafka)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Printf("failed to close anomaly publisher: %v", err)
		}
	}()

	server, seeder := wireServer(db, redisClient, nrApp, publisher, anomaly.NewDetector(thresholds), cfg)

	if cfg.Seed.Enabled {
		seedCtx, seedCancel := context.WithTimeout(context.Background(), 30*time.Second)
		if _, err := seeder.Seed(seedCtx, service.DefaultSeedRides()); err != nil {
			log.Printf("[SEED] failed to seed rides: %v", err)
		}
		seedCancel()
	}

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
		log.Printf("server forced to shutdown: %v", err)
	}

	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server and the seeder.
func wireServer(
	db *sql.DB,
	redisClient *redis.Client,
	nrApp *newrelic.Application,
	publisher service.EventPublisher,
	detector *anomaly.Detector,
	cfg *config.Config,
) (*http.Server, *service.Seeder) {
	// Initialize Redis stores.
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	// Initialize repositories.
	rideRepo := postgres.NewRideRepository(db)
	flagRepo := postgres.NewAnomalyFlagRepository(db)
	uow := postgres.NewUnitOfWork(db)

	// Initialize services.
	notificationService := service.NewNotificationService(publisher, nrApp)
	rideService := service.NewRideService(rideRepo, flagRepo, uow, detector, lockStore, cacheStore, notificationService)
	analyticsService := service.NewAnalyticsService(rideRepo, flagRepo, cacheStore)
	seeder := service.NewSeeder(rideRepo, rideService)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		RideHandler:      handler.NewRideHandler(rideService),
		AnalyticsHandler: handler.NewAnalyticsHandler(analyticsService),
		RedisClient:      redisClient,
		NewRelicApp:      nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, seeder
}
