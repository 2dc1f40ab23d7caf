package repository

import (
	"context"

	"rideintel/internal/domain"
)

// AnomalyFlagRepository defines the persistence operations for anomaly flags.
type AnomalyFlagRepository interface {
	// Create persists a new flag.
	// Returns ErrAlreadyExists if the ride is already flagged.
	Create(ctx context.Context, flag *domain.AnomalyFlag) error

	// GetByRideID retrieves the flag of a ride.
	GetByRideID(ctx context.Context, rideID string) (*domain.AnomalyFlag, error)

	// ListByType retrieves all flags of the given type, newest first.
	ListByType(ctx context.Context, anomalyType domain.AnomalyType) ([]*domain.AnomalyFlag, error)

	// ListByMinScore retrieves flags scoring at least minScore, highest first.
	ListByMinScore(ctx context.Context, minScore float64) ([]*domain.AnomalyFlag, error)

	// CountByCaptain counts flags on rides driven by the captain.
	CountByCaptain(ctx context.Context, captainID string) (int64, error)

	// CountByCity counts flags on rides picked up in the city.
	CountByCity(ctx context.Context, city string) (int64, error)
}
