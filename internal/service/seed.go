package service

import (
	"context"
	"fmt"
	"log"

	"rideintel/internal/repository"
)

// DefaultSeedRides returns the reference rides loaded into an empty store.
// The last three are a ghost ride, a fare spike and an impossible speed.
func DefaultSeedRides() []CreateRideRequest {
	return []CreateRideRequest{
		seedRide("CAP-001", "CUST-101", "Karachi", "Karachi", 12.5, 375.0, 25, "ECONOMY"),
		seedRide("CAP-002", "CUST-102", "Lahore", "Lahore", 8.0, 280.0, 18, "ECONOMY"),
		seedRide("CAP-003", "CUST-103", "Karachi", "Karachi", 20.0, 600.0, 40, "BUSINESS"),
		seedRide("CAP-004", "CUST-104", "Islamabad", "Islamabad", 5.5, 200.0, 12, "ECONOMY"),
		seedRide("CAP-001", "CUST-105", "Karachi", "Karachi", 15.0, 450.0, 30, "ECONOMY"),
		seedRide("CAP-005", "CUST-106", "Lahore", "Lahore", 3.0, 120.0, 10, "CARPOOL"),
		seedRide("CAP-006", "CUST-201", "Karachi", "Karachi", 0.5, 800.0, 5, "ECONOMY"),
		seedRide("CAP-007", "CUST-202", "Lahore", "Lahore", 10.0, 2500.0, 20, "ECONOMY"),
		seedRide("CAP-008", "CUST-203", "Karachi", "Karachi", 50.0, 1500.0, 5, "ECONOMY"),
	}
}

func seedRide(captainID, customerID, from, to string, distanceKm, fare float64, durationMinutes int, vehicleType string) CreateRideRequest {
	return CreateRideRequest{
		CaptainID:       captainID,
		CustomerID:      customerID,
		PickupCity:      from,
		DropoffCity:     to,
		DistanceKm:      distanceKm,
		FareAmount:      fare,
		DurationMinutes: durationMinutes,
		VehicleType:     vehicleType,
	}
}

// Seeder loads reference rides into an empty store.
type Seeder struct {
	rideRepo    repository.RideRepository
	rideService *RideService
}

// NewSeeder creates a new Seeder.
func NewSeeder(rideRepo repository.RideRepository, rideService *RideService) *Seeder {
	return &Seeder{
		rideRepo:    rideRepo,
		rideService: rideService,
	}
}

// Seed creates and completes the given rides if the store holds no rides yet,
// so every seeded ride goes through anomaly detection. Returns the number of
// rides seeded.
func (s *Seeder) Seed(ctx context.Context, rides []CreateRideRequest) (int, error) {
	count, err := s.rideRepo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count rides: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	flagged := 0
	for i, req := range rides {
		ride, err := s.rideService.CreateRide(ctx, req)
		if err != nil {
			return i, fmt.Errorf("seed ride %d: %w", i, err)
		}

		result, err := s.rideService.CompleteRide(ctx, ride.ID)
		if err != nil {
			return i, fmt.Errorf("complete seed ride %s: %w", ride.ID, err)
		}
		if result.Flag != nil {
			flagged++
		}
	}

	log.Printf("[SEED] Seeded %d rides, %d flagged", len(rides), flagged)
	return len(rides), nil
}
