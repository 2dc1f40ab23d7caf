package tests

import (
	"context"
	"errors"
	"math"
	"testing"

	"rideintel/internal/domain"
	"rideintel/internal/repository"
	"rideintel/internal/service"
)

// seedFixture loads the reference rides: six clean rides, a ghost ride and a
// fare spike (Karachi, Lahore) and an impossible speed (Karachi).
func seedFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture()
	seeder := service.NewSeeder(f.rides, f.rideService)
	if _, err := seeder.Seed(context.Background(), service.DefaultSeedRides()); err != nil {
		t.Fatalf("failed to seed: %v", err)
	}
	return f
}

func TestCityAnalytics(t *testing.T) {
	f := seedFixture(t)

	analytics, err := f.analyticsService.CityAnalytics(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byCity := make(map[string]domain.CityAnalytics)
	for _, a := range analytics {
		byCity[a.City] = a
	}

	testCases := []struct {
		city      string
		total     int64
		anomalies int64
		rate      float64
	}{
		{"Karachi", 5, 2, 0.4},
		{"Lahore", 3, 1, 1.0 / 3.0},
		{"Islamabad", 1, 0, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.city, func(t *testing.T) {
			a, ok := byCity[tc.city]
			if !ok {
				t.Fatalf("expected analytics for %s", tc.city)
			}
			if a.TotalRides != tc.total {
				t.Errorf("expected %d rides, got %d", tc.total, a.TotalRides)
			}
			if a.AnomalyCount != tc.anomalies {
				t.Errorf("expected %d anomalies, got %d", tc.anomalies, a.AnomalyCount)
			}
			if math.Abs(a.AnomalyRate-tc.rate) > 1e-9 {
				t.Errorf("expected rate %.4f, got %.4f", tc.rate, a.AnomalyRate)
			}
		})
	}

	if islamabad := byCity["Islamabad"]; islamabad.AverageFare != 200.0 || islamabad.AverageDistanceKm != 5.5 {
		t.Errorf("unexpected Islamabad averages: %+v", islamabad)
	}
}

func TestCityAnalytics_IgnoresUncompletedRides(t *testing.T) {
	f := newFixture()
	f.createRide(t, validRideRequest())

	analytics, err := f.analyticsService.CityAnalytics(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(analytics) != 0 {
		t.Errorf("expected no analytics for requested rides, got %+v", analytics)
	}
}

func TestCityAnalytics_CachedUntilRideCompletes(t *testing.T) {
	f := newFixture()
	f.completeRide(t, validRideRequest())

	if _, err := f.analyticsService.CityAnalytics(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.cache.HasCityAnalytics() {
		t.Fatal("expected city analytics to be cached")
	}

	f.completeRide(t, validRideRequest())
	if f.cache.HasCityAnalytics() {
		t.Fatal("expected completion to invalidate city analytics")
	}

	analytics, err := f.analyticsService.CityAnalytics(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(analytics) != 1 || analytics[0].TotalRides != 2 {
		t.Errorf("expected fresh analytics with 2 rides, got %+v", analytics)
	}
}

func TestCityAnalytics_CacheFailureFallsThrough(t *testing.T) {
	f := newFixture()
	f.completeRide(t, validRideRequest())
	f.cache.GetError = ErrMockTimeout

	analytics, err := f.analyticsService.CityAnalytics(context.Background())

	if err != nil {
		t.Fatalf("expected cache failure to be ignored, got %v", err)
	}
	if len(analytics) != 1 {
		t.Errorf("expected 1 city, got %d", len(analytics))
	}
}

func TestCaptainStats(t *testing.T) {
	f := seedFixture(t)

	cancelled := f.createRide(t, validRideRequest())
	if _, err := f.rideService.CancelRide(context.Background(), cancelled.ID); err != nil {
		t.Fatalf("failed to cancel ride: %v", err)
	}

	stats, err := f.analyticsService.CaptainStats(context.Background(), "CAP-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.TotalRides != 3 {
		t.Errorf("expected 3 rides, got %d", stats.TotalRides)
	}
	if stats.CompletedRides != 2 {
		t.Errorf("expected 2 completed rides, got %d", stats.CompletedRides)
	}
	if stats.CancelledRides != 1 {
		t.Errorf("expected 1 cancelled ride, got %d", stats.CancelledRides)
	}
	if stats.TotalEarnings != 825.0 {
		t.Errorf("expected earnings 825.0, got %.1f", stats.TotalEarnings)
	}
	if stats.AnomaliesDetected != 0 {
		t.Errorf("expected no anomalies, got %d", stats.AnomaliesDetected)
	}

	flaggedCaptain, err := f.analyticsService.CaptainStats(context.Background(), "CAP-007")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if flaggedCaptain.AnomaliesDetected != 1 {
		t.Errorf("expected 1 anomaly for CAP-007, got %d", flaggedCaptain.AnomaliesDetected)
	}

	_, err = f.analyticsService.CaptainStats(context.Background(), "")
	if !errors.Is(err, service.ErrInvalidCaptainID) {
		t.Errorf("expected ErrInvalidCaptainID, got %v", err)
	}
}

func TestAnomaliesByType(t *testing.T) {
	f := seedFixture(t)

	testCases := []struct {
		input string
		want  int
	}{
		{"FARE_SPIKE", 2},
		{" fare_spike ", 2},
		{"DURATION_MISMATCH", 1},
		{"GHOST_RIDE", 0},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			flags, err := f.analyticsService.AnomaliesByType(context.Background(), tc.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(flags) != tc.want {
				t.Errorf("expected %d flags, got %d", tc.want, len(flags))
			}
		})
	}

	_, err := f.analyticsService.AnomaliesByType(context.Background(), "ROUTE_DEVIATION")
	if !errors.Is(err, service.ErrInvalidAnomalyType) {
		t.Errorf("expected ErrInvalidAnomalyType, got %v", err)
	}
}

func TestHighScoreAnomalies(t *testing.T) {
	f := seedFixture(t)

	flags, err := f.analyticsService.HighScoreAnomalies(context.Background(), 0.95)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(flags) != 1 {
		t.Fatalf("expected 1 flag scoring >= 0.95, got %d", len(flags))
	}
	if flags[0].Type != domain.AnomalyTypeDurationMismatch || flags[0].AnomalyScore != 1.0 {
		t.Errorf("expected the impossible-speed flag, got %+v", flags[0])
	}

	all, err := f.analyticsService.HighScoreAnomalies(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 flags, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].AnomalyScore > all[i-1].AnomalyScore {
			t.Errorf("expected flags ordered by score desc, got %.3f before %.3f", all[i-1].AnomalyScore, all[i].AnomalyScore)
		}
	}

	for _, bad := range []float64{-0.1, 1.1, math.NaN(), math.Inf(1)} {
		if _, err := f.analyticsService.HighScoreAnomalies(context.Background(), bad); !errors.Is(err, service.ErrInvalidMinScore) {
			t.Errorf("expected ErrInvalidMinScore for %v, got %v", bad, err)
		}
	}
}

func TestAnomalyForRide(t *testing.T) {
	f := newFixture()
	req := validRideRequest()
	req.FareAmount = 5000.0
	flagged := f.completeRide(t, req)
	clean := f.completeRide(t, validRideRequest())

	flag, err := f.analyticsService.AnomalyForRide(context.Background(), flagged.Ride.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if flag.ID != flagged.Flag.ID {
		t.Errorf("expected flag %s, got %s", flagged.Flag.ID, flag.ID)
	}

	_, err = f.analyticsService.AnomalyForRide(context.Background(), clean.Ride.ID)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound for clean ride, got %v", err)
	}

	_, err = f.analyticsService.AnomalyForRide(context.Background(), "")
	if !errors.Is(err, service.ErrInvalidRideID) {
		t.Errorf("expected ErrInvalidRideID, got %v", err)
	}
}
