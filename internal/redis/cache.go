package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"rideintel/internal/domain"
)

// CacheStore handles analytics caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// Cache TTL constants
const (
	CityAnalyticsCacheTTL = 60 * time.Second
	CaptainStatsCacheTTL  = 30 * time.Second
)

// Keys
const (
	cityAnalyticsKey   = "cache:analytics:cities"
	captainStatsPrefix = "cache:analytics:captain:"
)

// CachedCityAnalytics represents a cached city analytics row.
type CachedCityAnalytics struct {
	City                   string  `json:"city"`
	TotalRides             int64   `json:"total_rides"`
	AverageFare            float64 `json:"average_fare"`
	AverageDistanceKm      float64 `json:"average_distance_km"`
	AverageDurationMinutes float64 `json:"average_duration_minutes"`
	AnomalyCount           int64   `json:"anomaly_count"`
	AnomalyRate            float64 `json:"anomaly_rate"`
}

// CachedCaptainStats represents cached captain stats.
type CachedCaptainStats struct {
	CaptainID         string  `json:"captain_id"`
	TotalRides        int64   `json:"total_rides"`
	CompletedRides    int64   `json:"completed_rides"`
	CancelledRides    int64   `json:"cancelled_rides"`
	TotalEarnings     float64 `json:"total_earnings"`
	AnomaliesDetected int64   `json:"anomalies_detected"`
}

// GetCityAnalytics retrieves city analytics from cache.
// The boolean is false on a cache miss.
func (s *CacheStore) GetCityAnalytics(ctx context.Context) ([]domain.CityAnalytics, bool, error) {
	data, err := s.client.Get(ctx, cityAnalyticsKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}

	var cached []CachedCityAnalytics
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, false, err
	}

	result := make([]domain.CityAnalytics, 0, len(cached))
	for _, c := range cached {
		result = append(result, domain.CityAnalytics{
			City:                   c.City,
			TotalRides:             c.TotalRides,
			AverageFare:            c.AverageFare,
			AverageDistanceKm:      c.AverageDistanceKm,
			AverageDurationMinutes: c.AverageDurationMinutes,
			AnomalyCount:           c.AnomalyCount,
			AnomalyRate:            c.AnomalyRate,
		})
	}
	return result, true, nil
}

// SetCityAnalytics stores city analytics in cache.
func (s *CacheStore) SetCityAnalytics(ctx context.Context, analytics []domain.CityAnalytics) error {
	cached := make([]CachedCityAnalytics, 0, len(analytics))
	for _, a := range analytics {
		cached = append(cached, CachedCityAnalytics{
			City:                   a.City,
			TotalRides:             a.TotalRides,
			AverageFare:            a.AverageFare,
			AverageDistanceKm:      a.AverageDistanceKm,
			AverageDurationMinutes: a.AverageDurationMinutes,
			AnomalyCount:           a.AnomalyCount,
			AnomalyRate:            a.AnomalyRate,
		})
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, cityAnalyticsKey, data, CityAnalyticsCacheTTL).Err()
}

// InvalidateCityAnalytics removes city analytics from cache.
func (s *CacheStore) InvalidateCityAnalytics(ctx context.Context) error {
	return s.client.Del(ctx, cityAnalyticsKey).Err()
}

// GetCaptainStats retrieves captain stats from cache.
func (s *CacheStore) GetCaptainStats(ctx context.Context, captainID string) (*domain.CaptainStats, error) {
	key := captainStatsPrefix + captainID
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var cached CachedCaptainStats
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	return &domain.CaptainStats{
		CaptainID:         cached.CaptainID,
		TotalRides:        cached.TotalRides,
		CompletedRides:    cached.CompletedRides,
		CancelledRides:    cached.CancelledRides,
		TotalEarnings:     cached.TotalEarnings,
		AnomaliesDetected: cached.AnomaliesDetected,
	}, nil
}

// SetCaptainStats stores captain stats in cache.
func (s *CacheStore) SetCaptainStats(ctx context.Context, stats *domain.CaptainStats) error {
	key := captainStatsPrefix + stats.CaptainID
	data, err := json.Marshal(CachedCaptainStats{
		CaptainID:         stats.CaptainID,
		TotalRides:        stats.TotalRides,
		CompletedRides:    stats.CompletedRides,
		CancelledRides:    stats.CancelledRides,
		TotalEarnings:     stats.TotalEarnings,
		AnomaliesDetected: stats.AnomaliesDetected,
	})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, CaptainStatsCacheTTL).Err()
}

// InvalidateCaptainStats removes a captain's stats from cache.
func (s *CacheStore) InvalidateCaptainStats(ctx context.Context, captainID string) error {
	return s.client.Del(ctx, captainStatsPrefix+captainID).Err()
}
