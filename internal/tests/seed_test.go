package tests

import (
	"context"
	"errors"
	"testing"

	"rideintel/internal/domain"
	"rideintel/internal/service"
)

func TestSeed_LoadsAndEvaluatesReferenceRides(t *testing.T) {
	f := newFixture()
	seeder := service.NewSeeder(f.rides, f.rideService)

	seeded, err := seeder.Seed(context.Background(), service.DefaultSeedRides())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if seeded != 9 {
		t.Errorf("expected 9 seeded rides, got %d", seeded)
	}
	if f.rides.CountRides() != 9 {
		t.Errorf("expected 9 stored rides, got %d", f.rides.CountRides())
	}
	if f.flags.CountFlags() != 3 {
		t.Errorf("expected 3 flags, got %d", f.flags.CountFlags())
	}

	for _, r := range f.rides.GetRideList() {
		if r.Status != domain.RideStatusCompleted {
			t.Errorf("expected seeded ride %s to be COMPLETED, got %s", r.ID, r.Status)
		}
	}
}

func TestSeed_SkipsNonEmptyStore(t *testing.T) {
	f := newFixture()
	f.createRide(t, validRideRequest())
	seeder := service.NewSeeder(f.rides, f.rideService)

	seeded, err := seeder.Seed(context.Background(), service.DefaultSeedRides())

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seeded != 0 {
		t.Errorf("expected nothing seeded, got %d", seeded)
	}
	if f.rides.CountRides() != 1 {
		t.Errorf("expected store untouched, got %d rides", f.rides.CountRides())
	}
}

func TestSeed_CountFailure(t *testing.T) {
	f := newFixture()
	f.rides.CountError = ErrMockTimeout
	seeder := service.NewSeeder(f.rides, f.rideService)

	_, err := seeder.Seed(context.Background(), service.DefaultSeedRides())

	if !errors.Is(err, ErrMockTimeout) {
		t.Errorf("expected wrapped ErrMockTimeout, got %v", err)
	}
}

func TestSeed_InvalidRideStops(t *testing.T) {
	f := newFixture()
	seeder := service.NewSeeder(f.rides, f.rideService)

	rides := service.DefaultSeedRides()[:2]
	rides[1].VehicleType = "HOVERCRAFT"

	seeded, err := seeder.Seed(context.Background(), rides)

	if !errors.Is(err, service.ErrInvalidVehicleType) {
		t.Errorf("expected ErrInvalidVehicleType, got %v", err)
	}
	if seeded != 1 {
		t.Errorf("expected 1 ride seeded before the failure, got %d", seeded)
	}
}
