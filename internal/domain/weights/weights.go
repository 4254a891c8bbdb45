// Package weights defines the decision weight profile: how much a project
// cares about cost, timeline, and risk when adjudicating a macro step.
// Weights are owned by the user/project and read-only to the engine.
package weights

// Preset names a built-in weight profile.
type Preset string

const (
	PresetSpeedFocused  Preset = "speed-focused"
	PresetCostConscious Preset = "cost-conscious"
	PresetRiskAverse    Preset = "risk-averse"
	PresetCustom        Preset = "custom"
)

// Profile holds the raw decision weights for a project. Weights are
// non-negative and need not sum to 1; normalization happens at
// evaluation time.
type Profile struct {
	Preset         Preset  `json:"preset"`
	CostWeight     float64 `json:"cost_weight"`
	TimelineWeight float64 `json:"timeline_weight"`
	RiskWeight     float64 `json:"risk_weight"`
}

// Default returns the equal-weight profile used when a project has no
// stored preference record.
func Default() Profile {
	return Profile{Preset: PresetCustom, CostWeight: 1, TimelineWeight: 1, RiskWeight: 1}
}

// SpeedFocused weights timeline over cost and risk.
func SpeedFocused() Profile {
	return Profile{Preset: PresetSpeedFocused, CostWeight: 1, TimelineWeight: 3, RiskWeight: 1}
}

// CostConscious weights cost over timeline and risk.
func CostConscious() Profile {
	return Profile{Preset: PresetCostConscious, CostWeight: 3, TimelineWeight: 1, RiskWeight: 1}
}

// RiskAverse weights risk over cost and timeline.
func RiskAverse() Profile {
	return Profile{Preset: PresetRiskAverse, CostWeight: 1, TimelineWeight: 1, RiskWeight: 3}
}

// ByPreset returns a built-in profile by name, or false if the name is
// not a built-in preset.
func ByPreset(name string) (Profile, bool) {
	switch Preset(name) {
	case PresetSpeedFocused:
		return SpeedFocused(), true
	case PresetCostConscious:
		return CostConscious(), true
	case PresetRiskAverse:
		return RiskAverse(), true
	default:
		return Profile{}, false
	}
}

// Sanitized returns a copy with negative weights clamped to zero.
// Negative weights are a configuration error, not a reason to fail a
// decision.
func (p Profile) Sanitized() Profile {
	if p.CostWeight < 0 {
		p.CostWeight = 0
	}
	if p.TimelineWeight < 0 {
		p.TimelineWeight = 0
	}
	if p.RiskWeight < 0 {
		p.RiskWeight = 0
	}
	return p
}

// Normalized returns the cost, timeline, and risk weights divided by
// their sum. A zero sum falls back to equal weighting (1/3 each).
func (p Profile) Normalized() (cost, timeline, risk float64) {
	p = p.Sanitized()
	sum := p.CostWeight + p.TimelineWeight + p.RiskWeight
	if sum == 0 {
		third := 1.0 / 3.0
		return third, third, third
	}
	return p.CostWeight / sum, p.TimelineWeight / sum, p.RiskWeight / sum
}
