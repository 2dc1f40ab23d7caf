package service

import "errors"

var (
	// ErrInvalidRideID is returned when ride ID is empty.
	ErrInvalidRideID = errors.New("invalid ride id")

	// ErrInvalidCaptainID is returned when captain ID is empty.
	ErrInvalidCaptainID = errors.New("invalid captain id")

	// ErrInvalidCustomerID is returned when customer ID is empty.
	ErrInvalidCustomerID = errors.New("invalid customer id")

	// ErrInvalidPickupCity is returned when pickup city is empty.
	ErrInvalidPickupCity = errors.New("invalid pickup city")

	// ErrInvalidDropoffCity is returned when dropoff city is empty.
	ErrInvalidDropoffCity = errors.New("invalid dropoff city")

	// ErrInvalidDistance is returned when distance is below the minimum.
	ErrInvalidDistance = errors.New("distance must be at least 0.1 km")

	// ErrInvalidFare is returned when fare is negative.
	ErrInvalidFare = errors.New("fare cannot be negative")

	// ErrInvalidDuration is returned when duration is not positive.
	ErrInvalidDuration = errors.New("duration must be positive")

	// ErrInvalidVehicleType is returned when vehicle type is unknown.
	ErrInvalidVehicleType = errors.New("invalid vehicle type")

	// ErrInvalidAnomalyType is returned when an anomaly type filter is unknown.
	ErrInvalidAnomalyType = errors.New("invalid anomaly type")

	// ErrInvalidMinScore is returned when a score filter is outside [0, 1].
	ErrInvalidMinScore = errors.New("min score must be between 0 and 1")

	// ErrRideNotRequested is returned when starting a ride not in REQUESTED state.
	ErrRideNotRequested = errors.New("ride not in requested state")

	// ErrRideAlreadyCompleted is returned when changing a completed ride.
	ErrRideAlreadyCompleted = errors.New("ride already completed")

	// ErrRideAlreadyCancelled is returned when changing a cancelled ride.
	ErrRideAlreadyCancelled = errors.New("ride already cancelled")

	// ErrRideLocked is returned when another request is changing the same ride.
	ErrRideLocked = errors.New("ride is being updated by another request")
)
