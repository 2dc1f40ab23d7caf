package service

import (
	"context"
	"log"
	"math"
	"strings"

	"rideintel/internal/domain"
	"rideintel/internal/redis"
	"rideintel/internal/repository"
)

// AnalyticsService serves aggregate reads over rides and anomaly flags.
type AnalyticsService struct {
	rideRepo   repository.RideRepository
	flagRepo   repository.AnomalyFlagRepository
	cacheStore redis.CacheStoreInterface
}

// NewAnalyticsService creates a new AnalyticsService. cacheStore may be nil.
func NewAnalyticsService(
	rideRepo repository.RideRepository,
	flagRepo repository.AnomalyFlagRepository,
	cacheStore redis.CacheStoreInterface,
) *AnalyticsService {
	return &AnalyticsService{
		rideRepo:   rideRepo,
		flagRepo:   flagRepo,
		cacheStore: cacheStore,
	}
}

// CityAnalytics returns completed-ride aggregates and anomaly rates per pickup city.
func (s *AnalyticsService) CityAnalytics(ctx context.Context) ([]domain.CityAnalytics, error) {
	if s.cacheStore != nil {
		cached, ok, err := s.cacheStore.GetCityAnalytics(ctx)
		if err != nil {
			log.Printf("city analytics cache read failed: %v", err)
		} else if ok {
			return cached, nil
		}
	}

	aggregates, err := s.rideRepo.CityAggregates(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]domain.CityAnalytics, 0, len(aggregates))
	for _, a := range aggregates {
		anomalyCount, err := s.flagRepo.CountByCity(ctx, a.City)
		if err != nil {
			return nil, err
		}

		result = append(result, domain.CityAnalytics{
			City:                   a.City,
			TotalRides:             a.TotalRides,
			AverageFare:            a.AverageFare,
			AverageDistanceKm:      a.AverageDistanceKm,
			AverageDurationMinutes: a.AverageDurationMinutes,
			AnomalyCount:           anomalyCount,
			AnomalyRate:            anomalyRate(anomalyCount, a.TotalRides),
		})
	}

	if s.cacheStore != nil {
		if err := s.cacheStore.SetCityAnalytics(ctx, result); err != nil {
			log.Printf("city analytics cache write failed: %v", err)
		}
	}

	return result, nil
}

func anomalyRate(anomalies, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(anomalies) / float64(total)
}

// CaptainStats returns ride and anomaly totals for a captain.
func (s *AnalyticsService) CaptainStats(ctx context.Context, captainID string) (*domain.CaptainStats, error) {
	if isBlank(captainID) {
		return nil, ErrInvalidCaptainID
	}

	if s.cacheStore != nil {
		cached, err := s.cacheStore.GetCaptainStats(ctx, captainID)
		if err != nil {
			log.Printf("stats cache read failed for captain %s: %v", captainID, err)
		} else if cached != nil {
			return cached, nil
		}
	}

	rides, err := s.rideRepo.ListByCaptain(ctx, captainID)
	if err != nil {
		return nil, err
	}

	stats := &domain.CaptainStats{
		CaptainID:  captainID,
		TotalRides: int64(len(rides)),
	}
	for _, r := range rides {
		switch r.Status {
		case domain.RideStatusCompleted:
			stats.CompletedRides++
			stats.TotalEarnings += r.FareAmount
		case domain.RideStatusCancelled:
			stats.CancelledRides++
		}
	}

	stats.AnomaliesDetected, err = s.flagRepo.CountByCaptain(ctx, captainID)
	if err != nil {
		return nil, err
	}

	if s.cacheStore != nil {
		if err := s.cacheStore.SetCaptainStats(ctx, stats); err != nil {
			log.Printf("stats cache write failed for captain %s: %v", captainID, err)
		}
	}

	return stats, nil
}

// AnomaliesByType lists flags of one anomaly type.
func (s *AnalyticsService) AnomaliesByType(ctx context.Context, anomalyType string) ([]*domain.AnomalyFlag, error) {
	t, ok := domain.ParseAnomalyType(strings.ToUpper(strings.TrimSpace(anomalyType)))
	if !ok {
		return nil, ErrInvalidAnomalyType
	}
	return s.flagRepo.ListByType(ctx, t)
}

// HighScoreAnomalies lists flags scoring at least minScore, highest first.
// minScore must lie in [0, 1].
func (s *AnalyticsService) HighScoreAnomalies(ctx context.Context, minScore float64) ([]*domain.AnomalyFlag, error) {
	if math.IsNaN(minScore) || minScore < 0 || minScore > 1 {
		return nil, ErrInvalidMinScore
	}
	return s.flagRepo.ListByMinScore(ctx, minScore)
}

// AnomalyForRide returns the flag of a ride.
// Returns repository.ErrNotFound if the ride does not exist or is not flagged.
func (s *AnalyticsService) AnomalyForRide(ctx context.Context, rideID string) (*domain.AnomalyFlag, error) {
	if err := validateRideID(rideID); err != nil {
		return nil, err
	}

	return s.flagRepo.GetByRideID(ctx, rideID)
}
