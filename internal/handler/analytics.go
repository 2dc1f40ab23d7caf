package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rideintel/internal/service"
)

// AnalyticsHandler handles HTTP requests for ride analytics and anomalies.
type AnalyticsHandler struct {
	analyticsService *service.AnalyticsService
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analyticsService *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// CityAnalyticsResponse is the HTTP response for one city.
type CityAnalyticsResponse struct {
	City                   string  `json:"city"`
	TotalRides             int64   `json:"total_rides"`
	AverageFare            float64 `json:"average_fare"`
	AverageDistanceKm      float64 `json:"average_distance_km"`
	AverageDurationMinutes float64 `json:"average_duration_minutes"`
	AnomalyCount           int64   `json:"anomaly_count"`
	AnomalyRate            float64 `json:"anomaly_rate"`
}

// CaptainStatsResponse is the HTTP response for captain stats.
type CaptainStatsResponse struct {
	CaptainID         string  `json:"captain_id"`
	TotalRides        int64   `json:"total_rides"`
	CompletedRides    int64   `json:"completed_rides"`
	CancelledRides    int64   `json:"cancelled_rides"`
	TotalEarnings     float64 `json:"total_earnings"`
	AnomaliesDetected int64   `json:"anomalies_detected"`
}

// CityAnalytics handles GET /api/v1/analytics/cities
func (h *AnalyticsHandler) CityAnalytics(c *gin.Context) {
	analytics, err := h.analyticsService.CityAnalytics(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]CityAnalyticsResponse, 0, len(analytics))
	for _, a := range analytics {
		response = append(response, CityAnalyticsResponse{
			City:                   a.City,
			TotalRides:             a.TotalRides,
			AverageFare:            a.AverageFare,
			AverageDistanceKm:      a.AverageDistanceKm,
			AverageDurationMinutes: a.AverageDurationMinutes,
			AnomalyCount:           a.AnomalyCount,
			AnomalyRate:            a.AnomalyRate,
		})
	}

	respondJSON(c, http.StatusOK, response)
}

// CaptainStats handles GET /api/v1/analytics/captains/:captainId
func (h *AnalyticsHandler) CaptainStats(c *gin.Context) {
	stats, err := h.analyticsService.CaptainStats(c.Request.Context(), c.Param("captainId"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, CaptainStatsResponse{
		CaptainID:         stats.CaptainID,
		TotalRides:        stats.TotalRides,
		CompletedRides:    stats.CompletedRides,
		CancelledRides:    stats.CancelledRides,
		TotalEarnings:     stats.TotalEarnings,
		AnomaliesDetected: stats.AnomaliesDetected,
	})
}

// ListAnomalies handles GET /api/v1/anomalies?type=...|min_score=...
// Without a filter it returns every flag scoring at least 0.
func (h *AnalyticsHandler) ListAnomalies(c *gin.Context) {
	ctx := c.Request.Context()

	if anomalyType := c.Query("type"); anomalyType != "" {
		flags, err := h.analyticsService.AnomaliesByType(ctx, anomalyType)
		if err != nil {
			respondError(c, err)
			return
		}
		respondJSON(c, http.StatusOK, toAnomalyResponses(flags))
		return
	}

	minScore := 0.0
	if raw := c.Query("min_score"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondError(c, service.ErrInvalidMinScore)
			return
		}
		minScore = parsed
	}

	flags, err := h.analyticsService.HighScoreAnomalies(ctx, minScore)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, toAnomalyResponses(flags))
}

// GetRideAnomaly handles GET /api/v1/anomalies/ride/:rideId
func (h *AnalyticsHandler) GetRideAnomaly(c *gin.Context) {
	flag, err := h.analyticsService.AnomalyForRide(c.Request.Context(), c.Param("rideId"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toAnomalyResponse(flag))
}
