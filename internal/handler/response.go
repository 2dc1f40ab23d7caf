package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rideintel/internal/domain"
	"rideintel/internal/repository"
	"rideintel/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AnomalyResponse is the HTTP representation of an anomaly flag.
type AnomalyResponse struct {
	ID           string  `json:"id"`
	RideID       string  `json:"ride_id"`
	Type         string  `json:"type"`
	AnomalyScore float64 `json:"anomaly_score"`
	Reason       string  `json:"reason"`
	FlaggedAt    string  `json:"flagged_at"`
}

func toAnomalyResponse(flag *domain.AnomalyFlag) AnomalyResponse {
	return AnomalyResponse{
		ID:           flag.ID,
		RideID:       flag.RideID,
		Type:         string(flag.Type),
		AnomalyScore: flag.AnomalyScore,
		Reason:       flag.Reason,
		FlaggedAt:    flag.FlaggedAt.Format(time.RFC3339),
	}
}

func toAnomalyResponses(flags []*domain.AnomalyFlag) []AnomalyResponse {
	response := make([]AnomalyResponse, 0, len(flags))
	for _, f := range flags {
		response = append(response, toAnomalyResponse(f))
	}
	return response
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidRideID),
		errors.Is(err, service.ErrInvalidCaptainID),
		errors.Is(err, service.ErrInvalidCustomerID),
		errors.Is(err, service.ErrInvalidPickupCity),
		errors.Is(err, service.ErrInvalidDropoffCity),
		errors.Is(err, service.ErrInvalidDistance),
		errors.Is(err, service.ErrInvalidFare),
		errors.Is(err, service.ErrInvalidDuration),
		errors.Is(err, service.ErrInvalidVehicleType),
		errors.Is(err, service.ErrInvalidAnomalyType),
		errors.Is(err, service.ErrInvalidMinScore):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrRideNotRequested),
		errors.Is(err, service.ErrRideAlreadyCompleted),
		errors.Is(err, service.ErrRideAlreadyCancelled),
		errors.Is(err, service.ErrRideLocked),
		errors.Is(err, repository.ErrAlreadyExists):
		return http.StatusConflict

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
