package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rideintel/internal/service"
)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	rideService *service.RideService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(rideService *service.RideService) *RideHandler {
	return &RideHandler{
		rideService: rideService,
	}
}

// CreateRideRequest is the HTTP request body for creating a ride.
type CreateRideRequest struct {
	CaptainID       string  `json:"captain_id"`
	CustomerID      string  `json:"customer_id"`
	PickupCity      string  `json:"pickup_city"`
	DropoffCity     string  `json:"dropoff_city"`
	DistanceKm      float64 `json:"distance_km"`
	FareAmount      float64 `json:"fare_amount"`
	DurationMinutes int     `json:"duration_minutes"`
	VehicleType     string  `json:"vehicle_type"` // ECONOMY, BUSINESS, CARPOOL
}

// RideResponse is the HTTP response for a ride.
type RideResponse struct {
	ID              string  `json:"id"`
	CaptainID       string  `json:"captain_id"`
	CustomerID      string  `json:"customer_id"`
	PickupCity      string  `json:"pickup_city"`
	DropoffCity     string  `json:"dropoff_city"`
	DistanceKm      float64 `json:"distance_km"`
	FareAmount      float64 `json:"fare_amount"`
	DurationMinutes int     `json:"duration_minutes"`
	Status          string  `json:"status"`
	VehicleType     string  `json:"vehicle_type"`
	CreatedAt       string  `json:"created_at"`
	CompletedAt     string  `json:"completed_at,omitempty"`
	AnomalyDetected bool    `json:"anomaly_detected"`
	AnomalyReason   string  `json:"anomaly_reason,omitempty"`
	AnomalyType     string  `json:"anomaly_type,omitempty"`
	AnomalyScore    float64 `json:"anomaly_score,omitempty"`
}

func toRideResponse(result *service.RideResult) RideResponse {
	ride := result.Ride
	response := RideResponse{
		ID:              ride.ID,
		CaptainID:       ride.CaptainID,
		CustomerID:      ride.CustomerID,
		PickupCity:      ride.PickupCity,
		DropoffCity:     ride.DropoffCity,
		DistanceKm:      ride.DistanceKm,
		FareAmount:      ride.FareAmount,
		DurationMinutes: ride.DurationMinutes,
		Status:          string(ride.Status),
		VehicleType:     string(ride.VehicleType),
		CreatedAt:       ride.CreatedAt.Format(time.RFC3339),
	}

	if !ride.CompletedAt.IsZero() {
		response.CompletedAt = ride.CompletedAt.Format(time.RFC3339)
	}

	if result.Flag != nil {
		response.AnomalyDetected = true
		response.AnomalyReason = result.Flag.Reason
		response.AnomalyType = string(result.Flag.Type)
		response.AnomalyScore = result.Flag.AnomalyScore
	}

	return response
}

func toRideResponses(results []*service.RideResult) []RideResponse {
	response := make([]RideResponse, 0, len(results))
	for _, r := range results {
		response = append(response, toRideResponse(r))
	}
	return response
}

// CreateRide handles POST /api/v1/rides
func (h *RideHandler) CreateRide(c *gin.Context) {
	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	ride, err := h.rideService.CreateRide(c.Request.Context(), service.CreateRideRequest{
		CaptainID:       req.CaptainID,
		CustomerID:      req.CustomerID,
		PickupCity:      req.PickupCity,
		DropoffCity:     req.DropoffCity,
		DistanceKm:      req.DistanceKm,
		FareAmount:      req.FareAmount,
		DurationMinutes: req.DurationMinutes,
		VehicleType:     req.VehicleType,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toRideResponse(&service.RideResult{Ride: ride}))
}

// GetRide handles GET /api/v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	result, err := h.rideService.GetRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(result))
}

// StartRide handles PATCH /api/v1/rides/:id/start
func (h *RideHandler) StartRide(c *gin.Context) {
	ride, err := h.rideService.StartRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(&service.RideResult{Ride: ride}))
}

// CompleteRide handles PATCH /api/v1/rides/:id/complete
// Completion triggers anomaly detection.
func (h *RideHandler) CompleteRide(c *gin.Context) {
	result, err := h.rideService.CompleteRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(result))
}

// CancelRide handles PATCH /api/v1/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	ride, err := h.rideService.CancelRide(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(&service.RideResult{Ride: ride}))
}

// ListByCaptain handles GET /api/v1/rides/captain/:captainId
func (h *RideHandler) ListByCaptain(c *gin.Context) {
	results, err := h.rideService.ListByCaptain(c.Request.Context(), c.Param("captainId"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponses(results))
}

// ListByCustomer handles GET /api/v1/rides/customer/:customerId
func (h *RideHandler) ListByCustomer(c *gin.Context) {
	results, err := h.rideService.ListByCustomer(c.Request.Context(), c.Param("customerId"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponses(results))
}
