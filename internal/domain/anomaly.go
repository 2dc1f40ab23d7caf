package domain

import "time"

// AnomalyType classifies why a ride was flagged.
type AnomalyType string

const (
	AnomalyTypeFareSpike        AnomalyType = "FARE_SPIKE"        // fare disproportionate to distance
	AnomalyTypeGhostRide        AnomalyType = "GHOST_RIDE"        // very short ride with high fare
	AnomalyTypeDurationMismatch AnomalyType = "DURATION_MISMATCH" // duration doesn't match distance
)

// ParseAnomalyType returns the AnomalyType for s, or false if s names no known type.
func ParseAnomalyType(s string) (AnomalyType, bool) {
	switch t := AnomalyType(s); t {
	case AnomalyTypeFareSpike, AnomalyTypeGhostRide, AnomalyTypeDurationMismatch:
		return t, true
	}
	return "", false
}

// AnomalyFlag marks a completed ride as suspicious.
// At most one flag exists per ride.
type AnomalyFlag struct {
	ID           string
	RideID       string
	Reason       string
	AnomalyScore float64 // 0.0 to 1.0
	Type         AnomalyType
	FlaggedAt    time.Time
}
