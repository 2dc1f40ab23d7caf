package redis

import (
	"context"
	"time"

	"rideintel/internal/domain"
)

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireRideLock(ctx context.Context, rideID string, ttl time.Duration) (bool, error)
	ReleaseRideLock(ctx context.Context, rideID string) error
}

// CacheStoreInterface defines the interface for analytics caching.
type CacheStoreInterface interface {
	GetCityAnalytics(ctx context.Context) ([]domain.CityAnalytics, bool, error)
	SetCityAnalytics(ctx context.Context, analytics []domain.CityAnalytics) error
	InvalidateCityAnalytics(ctx context.Context) error
	GetCaptainStats(ctx context.Context, captainID string) (*domain.CaptainStats, error)
	SetCaptainStats(ctx context.Context, stats *domain.CaptainStats) error
	InvalidateCaptainStats(ctx context.Context, captainID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface  = (*LockStore)(nil)
	_ CacheStoreInterface = (*CacheStore)(nil)
)
