package anomaly

import (
	"errors"
	"math"
)

// ErrInvalidThresholds is returned by Thresholds.Validate.
var ErrInvalidThresholds = errors.New("invalid anomaly thresholds")

// Thresholds contains the tunable limits used by the rule checks.
type Thresholds struct {
	FarePerKmThreshold     float64 // PKR/km, above this is suspicious
	GhostRideDistanceKm    float64 // rides shorter than this are ghost candidates
	GhostRideFareThreshold float64 // PKR, ghost candidates charged more than this fire
	MinSpeedKmh            float64 // below = driver barely moved
	MaxSpeedKmh            float64 // above = data error or manipulation
}

// DefaultThresholds returns the default detection thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		FarePerKmThreshold:     150.0,
		GhostRideDistanceKm:    1.0,
		GhostRideFareThreshold: 500.0,
		MinSpeedKmh:            5.0,
		MaxSpeedKmh:            200.0,
	}
}

// Validate checks that every threshold is a finite positive number and the
// speed band is non-empty. It is meant for config loading; the detector itself
// never fails on thresholds.
func (t Thresholds) Validate() error {
	for _, v := range []float64{
		t.FarePerKmThreshold,
		t.GhostRideDistanceKm,
		t.GhostRideFareThreshold,
		t.MinSpeedKmh,
		t.MaxSpeedKmh,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrInvalidThresholds
		}
	}
	if t.FarePerKmThreshold <= 0 ||
		t.GhostRideDistanceKm <= 0 ||
		t.GhostRideFareThreshold <= 0 ||
		t.MinSpeedKmh <= 0 ||
		t.MaxSpeedKmh <= 0 {
		return ErrInvalidThresholds
	}
	if t.MinSpeedKmh >= t.MaxSpeedKmh {
		return ErrInvalidThresholds
	}
	return nil
}
