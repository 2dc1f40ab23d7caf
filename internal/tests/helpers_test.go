package tests

import (
	"context"
	"testing"

	"rideintel/internal/anomaly"
	"rideintel/internal/domain"
	"rideintel/internal/service"
)

// fixture wires the ride and analytics services over in-memory mocks and
// the default anomaly detector.
type fixture struct {
	rides     *MockRideRepository
	flags     *MockAnomalyFlagRepository
	uow       *MockUnitOfWork
	locks     *MockLockStore
	cache     *MockCacheStore
	publisher *MockPublisher

	rideService      *service.RideService
	analyticsService *service.AnalyticsService
}

func newFixture() *fixture {
	f := &fixture{
		rides:     NewMockRideRepository(),
		locks:     NewMockLockStore(),
		cache:     NewMockCacheStore(),
		publisher: NewMockPublisher(),
	}
	f.flags = NewMockAnomalyFlagRepository(f.rides)
	f.uow = NewMockUnitOfWork(f.rides, f.flags)

	notifications := service.NewNotificationService(f.publisher, nil)
	detector := anomaly.NewDetector(anomaly.DefaultThresholds())
	f.rideService = service.NewRideService(f.rides, f.flags, f.uow, detector, f.locks, f.cache, notifications)
	f.analyticsService = service.NewAnalyticsService(f.rides, f.flags, f.cache)
	return f
}

func validRideRequest() service.CreateRideRequest {
	return service.CreateRideRequest{
		CaptainID:       "CAP-001",
		CustomerID:      "CUST-101",
		PickupCity:      "Karachi",
		DropoffCity:     "Karachi",
		DistanceKm:      12.5,
		FareAmount:      375.0,
		DurationMinutes: 25,
		VehicleType:     "ECONOMY",
	}
}

// createRide creates a ride through the service and fails the test on error.
func (f *fixture) createRide(t *testing.T, req service.CreateRideRequest) *domain.Ride {
	t.Helper()
	ride, err := f.rideService.CreateRide(context.Background(), req)
	if err != nil {
		t.Fatalf("failed to create ride: %v", err)
	}
	return ride
}

// completeRide creates and completes a ride, failing the test on error.
func (f *fixture) completeRide(t *testing.T, req service.CreateRideRequest) *service.RideResult {
	t.Helper()
	ride := f.createRide(t, req)
	result, err := f.rideService.CompleteRide(context.Background(), ride.ID)
	if err != nil {
		t.Fatalf("failed to complete ride: %v", err)
	}
	return result
}
