// Package scopechange classifies reported scope creep as locally
// absorbable or requiring full re-planning. Classification is write-once
// and Escalate is a one-way transition: no code path reclassifies an
// escalated record as local handling.
package scopechange

import (
	"fmt"
	"time"
)

// Classification is the outcome of classifying a scope change.
type Classification string

const (
	ClassificationLocal    Classification = "local_handling"
	ClassificationEscalate Classification = "escalate"
)

// Change is a scope change reported by an execution collaborator that
// detected work not covered by the original estimate.
type Change struct {
	ID                        string  `json:"id"`
	ProjectID                 string  `json:"project_id"`
	ReportedStepID            string  `json:"reported_step_id"`
	EffortDeltaPct            float64 `json:"effort_delta_pct"`
	TouchesOtherMacroSteps    bool    `json:"touches_other_macro_steps"`
	NewDependenciesIntroduced bool    `json:"new_dependencies_introduced"`
}

// Record is a classified scope change. Immutable once classified.
type Record struct {
	Change
	Classification Classification `json:"classification"`
	Reasons        []string       `json:"reasons,omitempty"`
	ClassifiedAt   time.Time      `json:"classified_at"`
}

// Ledger accumulates total creep percentage per project across all
// records, used as a trend safeguard against death by a thousand cuts.
type Ledger struct {
	ProjectID     string    `json:"project_id"`
	TotalCreepPct float64   `json:"total_creep_pct"`
	Records       int       `json:"records"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Rule holds the tunable classification boundaries.
type Rule struct {
	// LocalDeltaMaxPct is the largest single-change effort delta that
	// may be absorbed locally.
	LocalDeltaMaxPct float64

	// TolerancePct is the project's budget-variance tolerance: the
	// ledger total plus the new change must stay under it.
	TolerancePct float64
}

// DefaultRule returns the documented default boundaries.
func DefaultRule() Rule {
	return Rule{LocalDeltaMaxPct: 25, TolerancePct: 50}
}

// Classify applies the decision rule: every condition must hold for local
// handling, and any failing condition forces escalation. The returned
// record carries the reasons for escalation so the outcome is auditable.
func (r Rule) Classify(ch Change, ledger Ledger, now time.Time) Record {
	var reasons []string
	if ch.EffortDeltaPct >= r.LocalDeltaMaxPct {
		reasons = append(reasons, fmt.Sprintf("effort delta %.1f%% at or above local limit %.1f%%", ch.EffortDeltaPct, r.LocalDeltaMaxPct))
	}
	if ch.TouchesOtherMacroSteps {
		reasons = append(reasons, "change touches other macro steps")
	}
	if ch.NewDependenciesIntroduced {
		reasons = append(reasons, "change introduces new dependencies")
	}
	if total := ledger.TotalCreepPct + ch.EffortDeltaPct; total >= r.TolerancePct {
		reasons = append(reasons, fmt.Sprintf("cumulative creep %.1f%% at or above tolerance %.1f%%", total, r.TolerancePct))
	}

	rec := Record{
		Change:         ch,
		Classification: ClassificationLocal,
		ClassifiedAt:   now.UTC(),
	}
	if len(reasons) > 0 {
		rec.Classification = ClassificationEscalate
		rec.Reasons = reasons
	}
	return rec
}
