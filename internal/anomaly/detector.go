// Package anomaly flags suspicious completed rides.
//
// A Detector runs a fixed, ordered set of independent rule checks against a
// ride and folds the rules that fired into a single domain.AnomalyFlag:
// the primary type is the highest-scoring rule (first one wins a tie), the
// score is the mean of the fired scores and the reason joins every fired
// rule's text with "; ".
package anomaly

import (
	"log"
	"math"
	"strings"
	"time"

	"rideintel/internal/domain"
)

const reasonSeparator = "; "

// Detector evaluates rides against the detection rules.
// It holds no per-ride state and is safe for concurrent use.
type Detector struct {
	thresholds Thresholds
	rules      []rule
	now        func() time.Time
}

// NewDetector creates a Detector using the given thresholds.
func NewDetector(thresholds Thresholds) *Detector {
	return &Detector{
		thresholds: thresholds,
		rules:      defaultRules,
		now:        time.Now,
	}
}

// Thresholds returns the thresholds the detector was built with.
func (d *Detector) Thresholds() Thresholds {
	return d.thresholds
}

// Check runs every rule against the ride and returns the ones that fired,
// in evaluation order.
func (d *Detector) Check(ride *domain.Ride) []RuleResult {
	if ride == nil {
		return nil
	}

	var fired []RuleResult
	for _, r := range d.rules {
		if result, ok := d.run(r, ride); ok {
			fired = append(fired, result)
		}
	}
	return fired
}

// Evaluate returns the anomaly flag for the ride, or nil if no rule fired.
// The returned flag has no ID; persisting it is the caller's job.
func (d *Detector) Evaluate(ride *domain.Ride) *domain.AnomalyFlag {
	fired := d.Check(ride)
	if len(fired) == 0 {
		return nil
	}

	primary, score, reason := combine(fired)

	return &domain.AnomalyFlag{
		RideID:       ride.ID,
		Reason:       reason,
		AnomalyScore: score,
		Type:         primary,
		FlaggedAt:    d.now(),
	}
}

// run executes one rule. A panicking rule is logged and treated as not fired
// so the remaining rules still run.
func (d *Detector) run(r rule, ride *domain.Ride) (result RuleResult, fired bool) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("[ANOMALY] rule %s failed for ride %s: %v", r.name, ride.ID, p)
			result, fired = RuleResult{}, false
		}
	}()
	return r.check(d.thresholds, ride)
}

// combine reduces the fired results to the primary type, the composite score
// and the joined reason. results must be non-empty.
func combine(results []RuleResult) (domain.AnomalyType, float64, string) {
	primary := results[0]
	var sum float64
	reasons := make([]string, 0, len(results))

	for _, r := range results {
		// Strictly greater keeps the earlier rule on an exact tie.
		if r.Score > primary.Score {
			primary = r
		}
		sum += r.Score
		reasons = append(reasons, r.Reason)
	}

	composite := math.Min(1.0, sum/float64(len(results)))

	return primary.Type, composite, strings.Join(reasons, reasonSeparator)
}
