// Package adjudication implements the go/no-go decision for a macro step.
// Adjudicate is a pure function: identical inputs always produce an
// identical score and verdict, so it needs no locking and may be evaluated
// concurrently for any number of steps.
package adjudication

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/arbiterhq/arbiter/internal/domain/estimate"
	"github.com/arbiterhq/arbiter/internal/domain/weights"
)

// Verdict is the outcome of adjudicating a macro step.
type Verdict string

const (
	VerdictProceed     Verdict = "proceed"
	VerdictInvestigate Verdict = "investigate"
	VerdictReject      Verdict = "reject"
)

// Thresholds holds the tunable verdict boundaries. Boundary values resolve
// to the higher-scrutiny bucket: a score of exactly ProceedBelow is
// Investigate and a score of exactly RejectAt is Reject.
type Thresholds struct {
	ProceedBelow    float64 // scores below this proceed
	RejectAt        float64 // scores at or above this are rejected
	ConfidenceFloor float64 // estimates below this never auto-approve
}

// DefaultThresholds returns the documented default verdict boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{ProceedBelow: 0.4, RejectAt: 0.7, ConfidenceFloor: 0.5}
}

// BudgetContext carries the externally supplied normalization denominators.
// How these are computed is the project-tracking collaborator's concern.
type BudgetContext struct {
	BudgetRemainingUSD float64 `json:"budget_remaining_usd"`
	ScheduleSlackHours float64 `json:"schedule_slack_hours"`
}

// Contribution records each factor's share of the weighted score
// (weight_i * badness_i) so a human can audit which factor drove the
// outcome.
type Contribution struct {
	Cost     float64 `json:"cost"`
	Timeline float64 `json:"timeline"`
	Risk     float64 `json:"risk"`
}

// Decision is the immutable output record of one adjudication run.
// A re-run creates a new record; history is never overwritten.
type Decision struct {
	ID               string       `json:"id"`
	ProjectID        string       `json:"project_id"`
	StepID           string       `json:"step_id"`
	Verdict          Verdict      `json:"verdict"`
	WeightedScore    float64      `json:"weighted_score"`
	Contribution     Contribution `json:"contribution"`
	Rationale        string       `json:"rationale"`
	Incomplete       bool         `json:"incomplete"`
	ConfidenceCapped bool         `json:"confidence_capped"`
	DecidedAt        time.Time    `json:"decided_at"`
}

// Adjudicate scores a macro step estimate against a weight profile and
// returns the decision. The caller assigns ID and ProjectID.
//
// Each dimension is normalized to a 0-1 badness, combined into
// weightedScore = sum(w_i*b_i)/sum(w_i), and bucketed by the thresholds.
// Two hard rules override the score:
//   - any estimate confidence below the floor caps the verdict at
//     Investigate (low-confidence estimates never auto-approve);
//   - a missing dimension forces Investigate with an incomplete flag
//     (an incomplete estimate is information to surface, not a crash).
func Adjudicate(est *estimate.MacroStepEstimate, prof weights.Profile, budget BudgetContext, th Thresholds, now time.Time) Decision {
	wc, wt, wr := prof.Normalized()

	// Weights for absent dimensions are excluded and the remainder
	// renormalized, so partial estimates still yield an auditable score.
	var contrib Contribution
	var score, wsum float64
	if est.Cost != nil {
		contrib.Cost = wc * costBadness(est.Cost, budget)
		score += contrib.Cost
		wsum += wc
	}
	if est.Timeline != nil {
		contrib.Timeline = wt * timelineBadness(est.Timeline, budget)
		score += contrib.Timeline
		wsum += wt
	}
	if est.Risk != nil {
		contrib.Risk = wr * clamp(est.Risk.Score, 0, 1)
		score += contrib.Risk
		wsum += wr
	}
	if wsum > 0 {
		score /= wsum
	}

	d := Decision{
		StepID:        est.StepID,
		WeightedScore: score,
		Contribution:  contrib,
		DecidedAt:     now.UTC(),
	}

	switch {
	case score >= th.RejectAt:
		d.Verdict = VerdictReject
	case score >= th.ProceedBelow:
		d.Verdict = VerdictInvestigate
	default:
		d.Verdict = VerdictProceed
	}

	if est.MinConfidence() < th.ConfidenceFloor && d.Verdict == VerdictProceed {
		d.Verdict = VerdictInvestigate
		d.ConfidenceCapped = true
	}

	if missing := est.MissingDimensions(); len(missing) > 0 {
		d.Incomplete = true
		if d.Verdict == VerdictProceed {
			d.Verdict = VerdictInvestigate
		}
		d.Rationale = rationale(d, missing)
		return d
	}

	d.Rationale = rationale(d, nil)
	return d
}

// rationale builds the human-readable audit line for a decision.
func rationale(d Decision, missing []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "weighted score %.3f: cost %.3f, timeline %.3f, risk %.3f (dominant: %s)",
		d.WeightedScore, d.Contribution.Cost, d.Contribution.Timeline, d.Contribution.Risk,
		dominantFactor(d.Contribution))
	if d.ConfidenceCapped {
		b.WriteString("; verdict capped at investigate: estimate confidence below floor")
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		fmt.Fprintf(&b, "; incomplete estimate, missing: %s", strings.Join(missing, ", "))
	}
	return b.String()
}

// dominantFactor names the factor with the largest contribution.
// Ties resolve in the fixed order cost, timeline, risk so rationale
// text stays deterministic.
func dominantFactor(c Contribution) string {
	name, max := estimate.DimensionCost, c.Cost
	if c.Timeline > max {
		name, max = estimate.DimensionTimeline, c.Timeline
	}
	if c.Risk > max {
		name = estimate.DimensionRisk
	}
	return name
}

// costBadness normalizes spend against remaining budget. A depleted or
// unknown budget counts as fully bad.
func costBadness(c *estimate.Cost, budget BudgetContext) float64 {
	if budget.BudgetRemainingUSD <= 0 {
		return 1
	}
	return clamp(c.USD/budget.BudgetRemainingUSD, 0, 1)
}

// timelineBadness normalizes estimated hours against remaining schedule
// slack. Exhausted slack counts as fully bad.
func timelineBadness(t *estimate.Timeline, budget BudgetContext) float64 {
	if budget.ScheduleSlackHours <= 0 {
		return 1
	}
	return clamp(t.Hours/budget.ScheduleSlackHours, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
