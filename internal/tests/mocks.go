package tests

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"rideintel/internal/domain"
	"rideintel/internal/events"
	"rideintel/internal/redis"
	"rideintel/internal/repository"
	"rideintel/internal/service"
)

// Compile-time interface checks.
var (
	_ repository.RideRepository        = (*MockRideRepository)(nil)
	_ repository.AnomalyFlagRepository = (*MockAnomalyFlagRepository)(nil)
	_ repository.UnitOfWork            = (*MockUnitOfWork)(nil)
	_ redis.LockStoreInterface         = (*MockLockStore)(nil)
	_ redis.CacheStoreInterface        = (*MockCacheStore)(nil)
	_ service.EventPublisher           = (*MockPublisher)(nil)
)

// ──────────────────────────────────────────────
// MOCK RIDE REPOSITORY
// ──────────────────────────────────────────────

// MockRideRepository is a mock implementation of RideRepository.
type MockRideRepository struct {
	mu    sync.RWMutex
	rides map[string]*domain.Ride

	// Counters for verification
	CreateCallCount       int32
	UpdateCallCount       int32
	GetForUpdateCallCount int32

	// Error injection
	CreateError error
	UpdateError error
	CountError  error
}

// NewMockRideRepository creates a new mock ride repository.
func NewMockRideRepository() *MockRideRepository {
	return &MockRideRepository{
		rides: make(map[string]*domain.Ride),
	}
}

// AddRide adds a ride to the mock repository.
func (m *MockRideRepository) AddRide(ride *domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *ride
	m.rides[ride.ID] = &copy
}

func (m *MockRideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rides[ride.ID]; ok {
		return repository.ErrAlreadyExists
	}
	copy := *ride
	m.rides[ride.ID] = &copy
	return nil
}

func (m *MockRideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ride, ok := m.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *ride
	return &copy, nil
}

// GetByIDForUpdate behaves like GetByID; MockUnitOfWork already serializes
// transactions.
func (m *MockRideRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ride, error) {
	atomic.AddInt32(&m.GetForUpdateCallCount, 1)
	return m.GetByID(ctx, id)
}

func (m *MockRideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.UpdateCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rides[ride.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *ride
	m.rides[ride.ID] = &copy
	return nil
}

func (m *MockRideRepository) ListByCaptain(ctx context.Context, captainID string) ([]*domain.Ride, error) {
	return m.filter(func(r *domain.Ride) bool { return r.CaptainID == captainID }), nil
}

func (m *MockRideRepository) ListByCustomer(ctx context.Context, customerID string) ([]*domain.Ride, error) {
	return m.filter(func(r *domain.Ride) bool { return r.CustomerID == customerID }), nil
}

// filter returns copies of matching rides, newest first.
func (m *MockRideRepository) filter(match func(*domain.Ride) bool) []*domain.Ride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Ride, 0)
	for _, r := range m.rides {
		if match(r) {
			copy := *r
			result = append(result, &copy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (m *MockRideRepository) Count(ctx context.Context) (int64, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.rides)), nil
}

func (m *MockRideRepository) CityAggregates(ctx context.Context) ([]repository.CityAggregate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byCity := make(map[string]*repository.CityAggregate)
	for _, r := range m.rides {
		if r.Status != domain.RideStatusCompleted {
			continue
		}
		agg, ok := byCity[r.PickupCity]
		if !ok {
			agg = &repository.CityAggregate{City: r.PickupCity}
			byCity[r.PickupCity] = agg
		}
		agg.TotalRides++
		agg.AverageFare += r.FareAmount
		agg.AverageDistanceKm += r.DistanceKm
		agg.AverageDurationMinutes += float64(r.DurationMinutes)
	}

	result := make([]repository.CityAggregate, 0, len(byCity))
	for _, agg := range byCity {
		n := float64(agg.TotalRides)
		agg.AverageFare /= n
		agg.AverageDistanceKm /= n
		agg.AverageDurationMinutes /= n
		result = append(result, *agg)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].City < result[j].City })
	return result, nil
}

// GetRide returns the ride by ID (for test assertions).
func (m *MockRideRepository) GetRide(id string) *domain.Ride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rides[id]
}

// GetRideList returns all rides for assertions.
func (m *MockRideRepository) GetRideList() []*domain.Ride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Ride, 0, len(m.rides))
	for _, r := range m.rides {
		result = append(result, r)
	}
	return result
}

// CountRides returns the number of rides.
func (m *MockRideRepository) CountRides() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rides)
}

func (m *MockRideRepository) snapshot() map[string]domain.Ride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := make(map[string]domain.Ride, len(m.rides))
	for id, r := range m.rides {
		snap[id] = *r
	}
	return snap
}

func (m *MockRideRepository) restore(snap map[string]domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides = make(map[string]*domain.Ride, len(snap))
	for id, r := range snap {
		copy := r
		m.rides[id] = &copy
	}
}

// ──────────────────────────────────────────────
// MOCK ANOMALY FLAG REPOSITORY
// ──────────────────────────────────────────────

// MockAnomalyFlagRepository is a mock implementation of AnomalyFlagRepository.
// Rides are looked up in the ride repository for captain and city counts.
type MockAnomalyFlagRepository struct {
	mu    sync.RWMutex
	flags map[string]*domain.AnomalyFlag // keyed by ride ID
	rides *MockRideRepository

	// Counters
	CreateCallCount int32

	// Error injection
	CreateError      error
	GetByRideIDError error
}

// NewMockAnomalyFlagRepository creates a new mock flag repository.
func NewMockAnomalyFlagRepository(rides *MockRideRepository) *MockAnomalyFlagRepository {
	return &MockAnomalyFlagRepository{
		flags: make(map[string]*domain.AnomalyFlag),
		rides: rides,
	}
}

// AddFlag adds a flag to the mock repository.
func (m *MockAnomalyFlagRepository) AddFlag(flag *domain.AnomalyFlag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *flag
	m.flags[flag.RideID] = &copy
}

func (m *MockAnomalyFlagRepository) Create(ctx context.Context, flag *domain.AnomalyFlag) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// UNIQUE(ride_id)
	if _, ok := m.flags[flag.RideID]; ok {
		return repository.ErrAlreadyExists
	}
	copy := *flag
	m.flags[flag.RideID] = &copy
	return nil
}

func (m *MockAnomalyFlagRepository) GetByRideID(ctx context.Context, rideID string) (*domain.AnomalyFlag, error) {
	if m.GetByRideIDError != nil {
		return nil, m.GetByRideIDError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	flag, ok := m.flags[rideID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *flag
	return &copy, nil
}

func (m *MockAnomalyFlagRepository) ListByType(ctx context.Context, anomalyType domain.AnomalyType) ([]*domain.AnomalyFlag, error) {
	result := m.filter(func(f *domain.AnomalyFlag) bool { return f.Type == anomalyType })
	sort.Slice(result, func(i, j int) bool { return result[i].FlaggedAt.After(result[j].FlaggedAt) })
	return result, nil
}

func (m *MockAnomalyFlagRepository) ListByMinScore(ctx context.Context, minScore float64) ([]*domain.AnomalyFlag, error) {
	result := m.filter(func(f *domain.AnomalyFlag) bool { return f.AnomalyScore >= minScore })
	sort.Slice(result, func(i, j int) bool { return result[i].AnomalyScore > result[j].AnomalyScore })
	return result, nil
}

func (m *MockAnomalyFlagRepository) CountByCaptain(ctx context.Context, captainID string) (int64, error) {
	return m.countRides(func(r *domain.Ride) bool { return r.CaptainID == captainID }), nil
}

func (m *MockAnomalyFlagRepository) CountByCity(ctx context.Context, city string) (int64, error) {
	return m.countRides(func(r *domain.Ride) bool { return r.PickupCity == city }), nil
}

func (m *MockAnomalyFlagRepository) filter(match func(*domain.AnomalyFlag) bool) []*domain.AnomalyFlag {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.AnomalyFlag, 0)
	for _, f := range m.flags {
		if match(f) {
			copy := *f
			result = append(result, &copy)
		}
	}
	return result
}

func (m *MockAnomalyFlagRepository) countRides(match func(*domain.Ride) bool) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	for rideID := range m.flags {
		if ride := m.rides.GetRide(rideID); ride != nil && match(ride) {
			count++
		}
	}
	return count
}

// CountFlags returns the number of flags.
func (m *MockAnomalyFlagRepository) CountFlags() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.flags)
}

func (m *MockAnomalyFlagRepository) snapshot() map[string]domain.AnomalyFlag {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := make(map[string]domain.AnomalyFlag, len(m.flags))
	for id, f := range m.flags {
		snap[id] = *f
	}
	return snap
}

func (m *MockAnomalyFlagRepository) restore(snap map[string]domain.AnomalyFlag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flags = make(map[string]*domain.AnomalyFlag, len(snap))
	for id, f := range snap {
		copy := f
		m.flags[id] = &copy
	}
}

// ──────────────────────────────────────────────
// MOCK UNIT OF WORK
// ──────────────────────────────────────────────

// MockUnitOfWork runs fn against the mock repositories and restores their
// contents if fn fails. Transactions are serialized.
type MockUnitOfWork struct {
	mu    sync.Mutex
	rides *MockRideRepository
	flags *MockAnomalyFlagRepository

	// Counters
	CommitCount   int32
	RollbackCount int32
}

// NewMockUnitOfWork creates a unit of work over the given mocks.
func NewMockUnitOfWork(rides *MockRideRepository, flags *MockAnomalyFlagRepository) *MockUnitOfWork {
	return &MockUnitOfWork{rides: rides, flags: flags}
}

func (u *MockUnitOfWork) WithinTx(ctx context.Context, fn func(rides repository.RideRepository, flags repository.AnomalyFlagRepository) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	rideSnap := u.rides.snapshot()
	flagSnap := u.flags.snapshot()

	if err := fn(u.rides, u.flags); err != nil {
		u.rides.restore(rideSnap)
		u.flags.restore(flagSnap)
		atomic.AddInt32(&u.RollbackCount, 1)
		return err
	}

	atomic.AddInt32(&u.CommitCount, 1)
	return nil
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStore.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]time.Time),
	}
}

func (m *MockLockStore) AcquireRideLock(ctx context.Context, rideID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := "lock:ride:" + rideID
	if expiry, exists := m.locks[key]; exists && time.Now().Before(expiry) {
		return false, nil // Lock still held.
	}

	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) ReleaseRideLock(ctx context.Context, rideID string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, "lock:ride:"+rideID)
	return nil
}

// IsLocked checks if a ride is locked (for test assertions).
func (m *MockLockStore) IsLocked(rideID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.locks["lock:ride:"+rideID]
	return exists && time.Now().Before(expiry)
}

// ──────────────────────────────────────────────
// MOCK CACHE STORE
// ──────────────────────────────────────────────

// MockCacheStore is an in-memory analytics cache.
type MockCacheStore struct {
	mu       sync.Mutex
	cities   []domain.CityAnalytics
	hasCity  bool
	captains map[string]domain.CaptainStats

	// Counters
	CityInvalidations    int32
	CaptainInvalidations int32

	// Error injection
	GetError error
}

// NewMockCacheStore creates a new mock cache store.
func NewMockCacheStore() *MockCacheStore {
	return &MockCacheStore{
		captains: make(map[string]domain.CaptainStats),
	}
}

func (m *MockCacheStore) GetCityAnalytics(ctx context.Context) ([]domain.CityAnalytics, bool, error) {
	if m.GetError != nil {
		return nil, false, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasCity {
		return nil, false, nil
	}
	result := make([]domain.CityAnalytics, len(m.cities))
	copy(result, m.cities)
	return result, true, nil
}

func (m *MockCacheStore) SetCityAnalytics(ctx context.Context, analytics []domain.CityAnalytics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cities = make([]domain.CityAnalytics, len(analytics))
	copy(m.cities, analytics)
	m.hasCity = true
	return nil
}

func (m *MockCacheStore) InvalidateCityAnalytics(ctx context.Context) error {
	atomic.AddInt32(&m.CityInvalidations, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cities = nil
	m.hasCity = false
	return nil
}

func (m *MockCacheStore) GetCaptainStats(ctx context.Context, captainID string) (*domain.CaptainStats, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stats, ok := m.captains[captainID]
	if !ok {
		return nil, nil
	}
	return &stats, nil
}

func (m *MockCacheStore) SetCaptainStats(ctx context.Context, stats *domain.CaptainStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captains[stats.CaptainID] = *stats
	return nil
}

func (m *MockCacheStore) InvalidateCaptainStats(ctx context.Context, captainID string) error {
	atomic.AddInt32(&m.CaptainInvalidations, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.captains, captainID)
	return nil
}

// HasCityAnalytics reports whether city analytics are cached.
func (m *MockCacheStore) HasCityAnalytics() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasCity
}

// ──────────────────────────────────────────────
// MOCK EVENT PUBLISHER
// ──────────────────────────────────────────────

// MockPublisher records published anomaly events.
type MockPublisher struct {
	mu     sync.Mutex
	events []events.AnomalyEvent

	// Error injection
	PublishError error
}

// NewMockPublisher creates a new mock publisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishAnomaly(ctx context.Context, event events.AnomalyEvent) error {
	if m.PublishError != nil {
		return m.PublishError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns the published events.
func (m *MockPublisher) Events() []events.AnomalyEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]events.AnomalyEvent, len(m.events))
	copy(result, m.events)
	return result
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBConstraint = errors.New("mock: unique constraint violation")
	ErrMockTimeout      = errors.New("mock: operation timeout")
)
