package domain

import "time"

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusRequested  RideStatus = "REQUESTED"
	RideStatusInProgress RideStatus = "IN_PROGRESS"
	RideStatusCompleted  RideStatus = "COMPLETED"
	RideStatusCancelled  RideStatus = "CANCELLED"
)

// VehicleType represents the product a ride was booked under.
type VehicleType string

const (
	VehicleTypeEconomy  VehicleType = "ECONOMY"
	VehicleTypeBusiness VehicleType = "BUSINESS"
	VehicleTypeCarpool  VehicleType = "CARPOOL"
)

// Ride represents a single trip taken by a customer with a captain.
type Ride struct {
	ID              string
	CaptainID       string
	CustomerID      string
	PickupCity      string
	DropoffCity     string
	DistanceKm      float64
	FareAmount      float64 // PKR
	DurationMinutes int
	Status          RideStatus
	VehicleType     VehicleType
	CreatedAt       time.Time
	CompletedAt     time.Time
}

// IsCompleted reports whether the ride reached the COMPLETED state.
func (r *Ride) IsCompleted() bool {
	return r.Status == RideStatusCompleted
}
