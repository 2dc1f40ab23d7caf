package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"rideintel/internal/handler"
	"rideintel/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler      *handler.RideHandler
	AnalyticsHandler *handler.AnalyticsHandler
	RedisClient      *redis.Client
	NewRelicApp      *newrelic.Application
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

	if deps.RedisClient != nil {
		router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/api/v1")
	{
		// Ride routes.
		rides := v1.Group("/rides")
		{
			rides.POST("", deps.RideHandler.CreateRide)
			rides.GET("/:id", deps.RideHandler.GetRide)
			rides.PATCH("/:id/start", deps.RideHandler.StartRide)
			rides.PATCH("/:id/complete", deps.RideHandler.CompleteRide)
			rides.PATCH("/:id/cancel", deps.RideHandler.CancelRide)
			rides.GET("/captain/:captainId", deps.RideHandler.ListByCaptain)
			rides.GET("/customer/:customerId", deps.RideHandler.ListByCustomer)
		}

		// Analytics routes.
		analytics := v1.Group("/analytics")
		{
			analytics.GET("/cities", deps.AnalyticsHandler.CityAnalytics)
			analytics.GET("/captains/:captainId", deps.AnalyticsHandler.CaptainStats)
		}

		// Anomaly routes.
		anomalies := v1.Group("/anomalies")
		{
			anomalies.GET("", deps.AnalyticsHandler.ListAnomalies)
			anomalies.GET("/ride/:rideId", deps.AnalyticsHandler.GetRideAnomaly)
		}
	}

	return router
}
