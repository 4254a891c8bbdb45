// Package supervision implements the tiered supervision model: a weighted
// event accumulator per project that triggers supervisor activation when
// the accumulated weight crosses the tier's threshold.
package supervision

// Tier is the budget-linked supervision intensity level for a project.
type Tier string

const (
	TierBudget   Tier = "budget"
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// Mode describes how aggressively a tier's supervisor intervenes.
type Mode string

const (
	// ModeEmergencyOnly activates only on threshold crossings from
	// accumulated critical events.
	ModeEmergencyOnly Mode = "emergency_only"

	// ModePeriodic activates on threshold crossings plus scheduled
	// periodic checks driven by an external timer collaborator.
	ModePeriodic Mode = "periodic"

	// ModeContinuous runs a supervisory pass on every event, not just
	// threshold crossings.
	ModeContinuous Mode = "continuous"
)

// ActivationThreshold returns the accumulated weight at which the tier's
// supervisor activates. The Budget threshold equals the weight of a single
// dependency deadlock, so no lower-weight event can breach it on its own.
func (t Tier) ActivationThreshold() float64 {
	switch t {
	case TierPremium:
		return 5
	case TierStandard:
		return 15
	default:
		return 25
	}
}

// Mode returns the activation semantics for the tier.
func (t Tier) Mode() Mode {
	switch t {
	case TierPremium:
		return ModeContinuous
	case TierStandard:
		return ModePeriodic
	default:
		return ModeEmergencyOnly
	}
}

// ParseTier maps a stored tier name to a Tier. Unknown names resolve to
// Budget, the safest default for an unconfigured project.
func ParseTier(s string) Tier {
	switch Tier(s) {
	case TierStandard:
		return TierStandard
	case TierPremium:
		return TierPremium
	default:
		return TierBudget
	}
}
