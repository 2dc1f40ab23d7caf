package repository

import (
	"context"

	"rideintel/internal/domain"
)

// CityAggregate holds completed-ride aggregates for one pickup city.
type CityAggregate struct {
	City                   string
	TotalRides             int64
	AverageFare            float64
	AverageDistanceKm      float64
	AverageDurationMinutes float64
}

// RideRepository defines the persistence operations for rides.
type RideRepository interface {
	// Create persists a new ride.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// GetByIDForUpdate retrieves a ride and locks its row until the
	// surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Ride, error)

	// Update updates an existing ride.
	Update(ctx context.Context, ride *domain.Ride) error

	// ListByCaptain retrieves all rides of a captain, newest first.
	ListByCaptain(ctx context.Context, captainID string) ([]*domain.Ride, error)

	// ListByCustomer retrieves all rides of a customer, newest first.
	ListByCustomer(ctx context.Context, customerID string) ([]*domain.Ride, error)

	// Count returns the total number of rides.
	Count(ctx context.Context) (int64, error)

	// CityAggregates groups completed rides by pickup city.
	CityAggregates(ctx context.Context) ([]CityAggregate, error)
}
