package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"rideintel/internal/domain"
	"rideintel/internal/redis"
	"rideintel/internal/repository"
)

const (
	// rideLockTTL bounds how long a crashed request can block a ride.
	rideLockTTL = 10 * time.Second

	minDistanceKm = 0.1
)

// AnomalyDetector evaluates a completed ride.
// This interface allows for testing with mock implementations.
type AnomalyDetector interface {
	Evaluate(ride *domain.Ride) *domain.AnomalyFlag
}

// RideService handles the ride lifecycle.
type RideService struct {
	rideRepo            repository.RideRepository
	flagRepo            repository.AnomalyFlagRepository
	uow                 repository.UnitOfWork
	detector            AnomalyDetector
	lockStore           redis.LockStoreInterface
	cacheStore          redis.CacheStoreInterface
	notificationService *NotificationService
	now                 func() time.Time
}

// NewRideService creates a new RideService.
// lockStore, cacheStore and notificationService may be nil.
func NewRideService(
	rideRepo repository.RideRepository,
	flagRepo repository.AnomalyFlagRepository,
	uow repository.UnitOfWork,
	detector AnomalyDetector,
	lockStore redis.LockStoreInterface,
	cacheStore redis.CacheStoreInterface,
	notificationService *NotificationService,
) *RideService {
	return &RideService{
		rideRepo:            rideRepo,
		flagRepo:            flagRepo,
		uow:                 uow,
		detector:            detector,
		lockStore:           lockStore,
		cacheStore:          cacheStore,
		notificationService: notificationService,
		now:                 time.Now,
	}
}

// RideResult is a ride together with its anomaly flag, if any.
type RideResult struct {
	Ride *domain.Ride
	Flag *domain.AnomalyFlag
}

// CreateRideRequest contains the parameters for creating a ride.
type CreateRideRequest struct {
	CaptainID       string
	CustomerID      string
	PickupCity      string
	DropoffCity     string
	DistanceKm      float64
	FareAmount      float64
	DurationMinutes int
	VehicleType     string
}

// CreateRide creates a new ride in REQUESTED state.
func (s *RideService) CreateRide(ctx context.Context, req CreateRideRequest) (*domain.Ride, error) {
	vehicleType, err := s.validateCreateRequest(req)
	if err != nil {
		return nil, err
	}

	ride := &domain.Ride{
		ID:              uuid.New().String(),
		CaptainID:       strings.TrimSpace(req.CaptainID),
		CustomerID:      strings.TrimSpace(req.CustomerID),
		PickupCity:      strings.TrimSpace(req.PickupCity),
		DropoffCity:     strings.TrimSpace(req.DropoffCity),
		DistanceKm:      req.DistanceKm,
		FareAmount:      req.FareAmount,
		DurationMinutes: req.DurationMinutes,
		Status:          domain.RideStatusRequested,
		VehicleType:     vehicleType,
		CreatedAt:       s.now(),
	}

	if err := s.rideRepo.Create(ctx, ride); err != nil {
		return nil, err
	}

	s.invalidateCaptainStats(ctx, ride.CaptainID)

	return ride, nil
}

// validateCreateRequest validates the create ride request.
func (s *RideService) validateCreateRequest(req CreateRideRequest) (domain.VehicleType, error) {
	if isBlank(req.CaptainID) {
		return "", ErrInvalidCaptainID
	}

	if isBlank(req.CustomerID) {
		return "", ErrInvalidCustomerID
	}

	if isBlank(req.PickupCity) {
		return "", ErrInvalidPickupCity
	}

	if isBlank(req.DropoffCity) {
		return "", ErrInvalidDropoffCity
	}

	if req.DistanceKm < minDistanceKm {
		return "", ErrInvalidDistance
	}

	if req.FareAmount < 0 {
		return "", ErrInvalidFare
	}

	if req.DurationMinutes <= 0 {
		return "", ErrInvalidDuration
	}

	return ValidateVehicleType(req.VehicleType)
}

// validateRideID rejects a blank ride ID and reports a malformed one as not
// found, since ride IDs are always UUIDs.
func validateRideID(rideID string) error {
	if isBlank(rideID) {
		return ErrInvalidRideID
	}
	if _, err := uuid.Parse(rideID); err != nil {
		return repository.ErrNotFound
	}
	return nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ValidateVehicleType validates a vehicle type string, case-insensitively.
func ValidateVehicleType(vehicleType string) (domain.VehicleType, error) {
	switch v := domain.VehicleType(strings.ToUpper(strings.TrimSpace(vehicleType))); v {
	case domain.VehicleTypeEconomy, domain.VehicleTypeBusiness, domain.VehicleTypeCarpool:
		return v, nil
	default:
		return "", ErrInvalidVehicleType
	}
}

// StartRide moves a REQUESTED ride to IN_PROGRESS.
func (s *RideService) StartRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	if err := validateRideID(rideID); err != nil {
		return nil, err
	}

	release, err := s.lockRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	defer release()

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	if ride.Status != domain.RideStatusRequested {
		return nil, ErrRideNotRequested
	}

	ride.Status = domain.RideStatusInProgress
	if err := s.rideRepo.Update(ctx, ride); err != nil {
		return nil, err
	}

	return ride, nil
}

// CompleteRide marks a ride COMPLETED and runs anomaly detection on it.
// The status change and the flag are written in one transaction, so a ride
// is evaluated exactly once.
func (s *RideService) CompleteRide(ctx context.Context, rideID string) (*RideResult, error) {
	if err := validateRideID(rideID); err != nil {
		return nil, err
	}

	release, err := s.lockRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	defer release()

	var result RideResult
	err = s.uow.WithinTx(ctx, func(rides repository.RideRepository, flags repository.AnomalyFlagRepository) error {
		// Row lock: a second completion waits here even if the Redis lock failed open.
		ride, err := rides.GetByIDForUpdate(ctx, rideID)
		if err != nil {
			return err
		}

		switch ride.Status {
		case domain.RideStatusCompleted:
			return ErrRideAlreadyCompleted
		case domain.RideStatusCancelled:
			return ErrRideAlreadyCancelled
		}

		ride.Status = domain.RideStatusCompleted
		ride.CompletedAt = s.now()
		if err := rides.Update(ctx, ride); err != nil {
			return err
		}

		flag := s.detector.Evaluate(ride)
		if flag != nil {
			flag.ID = uuid.New().String()
			if err := flags.Create(ctx, flag); err != nil {
				// Another completion already flagged this ride.
				if errors.Is(err, repository.ErrAlreadyExists) {
					return ErrRideAlreadyCompleted
				}
				return err
			}
		}

		result = RideResult{Ride: ride, Flag: flag}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateCityAnalytics(ctx)
	s.invalidateCaptainStats(ctx, result.Ride.CaptainID)

	if s.notificationService != nil {
		_ = s.notificationService.NotifyRideCompleted(ctx, result.Ride)
		if result.Flag != nil {
			_ = s.notificationService.NotifyAnomalyFlagged(ctx, result.Ride, result.Flag)
		}
	}

	return &result, nil
}

// CancelRide cancels a ride that has not completed.
func (s *RideService) CancelRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	if err := validateRideID(rideID); err != nil {
		return nil, err
	}

	release, err := s.lockRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	defer release()

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	switch ride.Status {
	case domain.RideStatusCancelled:
		return nil, ErrRideAlreadyCancelled
	case domain.RideStatusCompleted:
		return nil, ErrRideAlreadyCompleted
	}

	ride.Status = domain.RideStatusCancelled
	if err := s.rideRepo.Update(ctx, ride); err != nil {
		return nil, err
	}

	s.invalidateCaptainStats(ctx, ride.CaptainID)

	if s.notificationService != nil {
		_ = s.notificationService.NotifyRideCancelled(ctx, ride)
	}

	return ride, nil
}

// GetRide retrieves a ride and its anomaly flag.
func (s *RideService) GetRide(ctx context.Context, rideID string) (*RideResult, error) {
	if err := validateRideID(rideID); err != nil {
		return nil, err
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}

	flag, err := s.flagFor(ctx, ride)
	if err != nil {
		return nil, err
	}

	return &RideResult{Ride: ride, Flag: flag}, nil
}

// ListByCaptain retrieves all rides of a captain with their flags.
func (s *RideService) ListByCaptain(ctx context.Context, captainID string) ([]*RideResult, error) {
	if isBlank(captainID) {
		return nil, ErrInvalidCaptainID
	}

	rides, err := s.rideRepo.ListByCaptain(ctx, captainID)
	if err != nil {
		return nil, err
	}
	return s.withFlags(ctx, rides)
}

// ListByCustomer retrieves all rides of a customer with their flags.
func (s *RideService) ListByCustomer(ctx context.Context, customerID string) ([]*RideResult, error) {
	if isBlank(customerID) {
		return nil, ErrInvalidCustomerID
	}

	rides, err := s.rideRepo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return s.withFlags(ctx, rides)
}

func (s *RideService) withFlags(ctx context.Context, rides []*domain.Ride) ([]*RideResult, error) {
	results := make([]*RideResult, 0, len(rides))
	for _, ride := range rides {
		flag, err := s.flagFor(ctx, ride)
		if err != nil {
			return nil, err
		}
		results = append(results, &RideResult{Ride: ride, Flag: flag})
	}
	return results, nil
}

// flagFor returns the ride's flag, or nil if it has none.
// Only completed rides are ever flagged.
func (s *RideService) flagFor(ctx context.Context, ride *domain.Ride) (*domain.AnomalyFlag, error) {
	if !ride.IsCompleted() {
		return nil, nil
	}

	flag, err := s.flagRepo.GetByRideID(ctx, ride.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return flag, nil
}

// lockRide takes the per-ride lock and returns its release func.
// If Redis is unreachable the request proceeds; the UNIQUE(ride_id)
// constraint still guarantees one flag per ride.
func (s *RideService) lockRide(ctx context.Context, rideID string) (func(), error) {
	noop := func() {}
	if s.lockStore == nil {
		return noop, nil
	}

	acquired, err := s.lockStore.AcquireRideLock(ctx, rideID, rideLockTTL)
	if err != nil {
		log.Printf("failed to acquire lock for ride %s: %v", rideID, err)
		return noop, nil
	}
	if !acquired {
		return nil, ErrRideLocked
	}

	return func() {
		if err := s.lockStore.ReleaseRideLock(ctx, rideID); err != nil {
			log.Printf("failed to release lock for ride %s: %v", rideID, err)
		}
	}, nil
}

func (s *RideService) invalidateCityAnalytics(ctx context.Context) {
	if s.cacheStore == nil {
		return
	}
	if err := s.cacheStore.InvalidateCityAnalytics(ctx); err != nil {
		log.Printf("failed to invalidate city analytics cache: %v", err)
	}
}

func (s *RideService) invalidateCaptainStats(ctx context.Context, captainID string) {
	if s.cacheStore == nil {
		return
	}
	if err := s.cacheStore.InvalidateCaptainStats(ctx, captainID); err != nil {
		log.Printf("failed to invalidate stats cache for captain %s: %v", captainID, err)
	}
}
