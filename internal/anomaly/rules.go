package anomaly

import (
	"fmt"
	"math"

	"rideintel/internal/domain"
)

// RuleResult is the outcome of one rule that fired.
type RuleResult struct {
	Type   domain.AnomalyType
	Score  float64 // 0.0 to 1.0
	Reason string
}

// checkFunc inspects a ride and reports a result if the rule fires.
type checkFunc func(t Thresholds, ride *domain.Ride) (RuleResult, bool)

// rule is a named check. Names only show up in logs.
type rule struct {
	name  string
	check checkFunc
}

// defaultRules is the evaluation order. Ties on score and the order of
// reasons in a flag both follow it.
var defaultRules = []rule{
	{name: "fare_spike", check: checkFareSpike},
	{name: "ghost_ride", check: checkGhostRide},
	{name: "duration_mismatch", check: checkDurationMismatch},
}

// checkFareSpike fires when the fare per km exceeds the threshold.
// Score scales with how far above threshold: 1.0 at double the threshold.
func checkFareSpike(t Thresholds, ride *domain.Ride) (RuleResult, bool) {
	if ride.DistanceKm <= 0 {
		return RuleResult{
			Type:  domain.AnomalyTypeFareSpike,
			Score: 1.0,
			Reason: fmt.Sprintf("Fare of %.1f PKR charged for zero distance (threshold %.1f PKR/km)",
				ride.FareAmount, t.FarePerKmThreshold),
		}, true
	}

	farePerKm := ride.FareAmount / ride.DistanceKm
	if farePerKm <= t.FarePerKmThreshold {
		return RuleResult{}, false
	}

	return RuleResult{
		Type:  domain.AnomalyTypeFareSpike,
		Score: math.Min(1.0, (farePerKm-t.FarePerKmThreshold)/t.FarePerKmThreshold),
		Reason: fmt.Sprintf("Fare/km ratio %.1f PKR/km exceeds threshold of %.1f PKR/km",
			farePerKm, t.FarePerKmThreshold),
	}, true
}

// checkGhostRide fires for a very short ride carrying a high fare.
func checkGhostRide(t Thresholds, ride *domain.Ride) (RuleResult, bool) {
	if ride.DistanceKm >= t.GhostRideDistanceKm || ride.FareAmount <= t.GhostRideFareThreshold {
		return RuleResult{}, false
	}

	return RuleResult{
		Type:  domain.AnomalyTypeGhostRide,
		Score: math.Min(1.0, ride.FareAmount/(t.GhostRideFareThreshold*2)),
		Reason: fmt.Sprintf("Ghost ride suspected: %.2f km traveled but fare charged %.1f PKR",
			ride.DistanceKm, ride.FareAmount),
	}, true
}

// checkDurationMismatch fires when the implied speed is outside [MinSpeedKmh, MaxSpeedKmh].
// At most one of the two branches fires.
func checkDurationMismatch(t Thresholds, ride *domain.Ride) (RuleResult, bool) {
	if ride.DurationMinutes <= 0 {
		return RuleResult{
			Type:  domain.AnomalyTypeDurationMismatch,
			Score: 1.0,
			Reason: fmt.Sprintf("Implied speed is unbounded: zero duration for %.2f km (max: %.1f km/h)",
				ride.DistanceKm, t.MaxSpeedKmh),
		}, true
	}

	durationHours := float64(ride.DurationMinutes) / 60.0
	impliedSpeedKmh := ride.DistanceKm / durationHours

	switch {
	case impliedSpeedKmh < t.MinSpeedKmh:
		return RuleResult{
			Type:  domain.AnomalyTypeDurationMismatch,
			Score: math.Min(1.0, (t.MinSpeedKmh-impliedSpeedKmh)/t.MinSpeedKmh),
			Reason: fmt.Sprintf("Implied speed %.1f km/h is suspiciously low (min: %.1f km/h)",
				impliedSpeedKmh, t.MinSpeedKmh),
		}, true
	case impliedSpeedKmh > t.MaxSpeedKmh:
		return RuleResult{
			Type:  domain.AnomalyTypeDurationMismatch,
			Score: math.Min(1.0, (impliedSpeedKmh-t.MaxSpeedKmh)/t.MaxSpeedKmh),
			Reason: fmt.Sprintf("Implied speed %.1f km/h is impossibly high (max: %.1f km/h)",
				impliedSpeedKmh, t.MaxSpeedKmh),
		}, true
	default:
		return RuleResult{}, false
	}
}
