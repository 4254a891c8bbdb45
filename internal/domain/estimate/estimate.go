// Package estimate defines the immutable per-macro-step estimate snapshot
// consumed by the adjudication engine. Estimates are produced externally,
// one record per dimension per step, and are superseded (never mutated) by
// re-estimation after scope changes.
package estimate

// Dimension names used in completeness reporting and rationale text.
const (
	DimensionCost     = "cost"
	DimensionTimeline = "timeline"
	DimensionRisk     = "risk"
)

// Cost is the cost dimension of a macro step estimate.
type Cost struct {
	Tokens     int64   `json:"tokens"`
	USD        float64 `json:"usd"`
	Confidence float64 `json:"confidence"`
}

// Timeline is the timeline dimension of a macro step estimate.
type Timeline struct {
	Hours      float64 `json:"hours"`
	Confidence float64 `json:"confidence"`
}

// Risk is the risk dimension of a macro step estimate.
// Score is already normalized to [0,1] by the producing estimator.
type Risk struct {
	Score      float64  `json:"score"`
	Factors    []string `json:"factors,omitempty"`
	Confidence float64  `json:"confidence"`
}

// MacroStepEstimate is one estimation round for a macro step.
// Nil dimensions mean the corresponding estimator has not reported.
type MacroStepEstimate struct {
	StepID   string    `json:"step_id"`
	Cost     *Cost     `json:"cost,omitempty"`
	Timeline *Timeline `json:"timeline,omitempty"`
	Risk     *Risk     `json:"risk,omitempty"`
}

// MissingDimensions returns the names of absent estimate dimensions.
func (e *MacroStepEstimate) MissingDimensions() []string {
	var missing []string
	if e.Cost == nil {
		missing = append(missing, DimensionCost)
	}
	if e.Timeline == nil {
		missing = append(missing, DimensionTimeline)
	}
	if e.Risk == nil {
		missing = append(missing, DimensionRisk)
	}
	return missing
}

// Complete reports whether all three dimensions are present.
func (e *MacroStepEstimate) Complete() bool {
	return e.Cost != nil && e.Timeline != nil && e.Risk != nil
}

// MinConfidence returns the lowest confidence across all present
// dimensions. Returns 1 when none are present.
func (e *MacroStepEstimate) MinConfidence() float64 {
	c := 1.0
	if e.Cost != nil && e.Cost.Confidence < c {
		c = e.Cost.Confidence
	}
	if e.Timeline != nil && e.Timeline.Confidence < c {
		c = e.Timeline.Confidence
	}
	if e.Risk != nil && e.Risk.Confidence < c {
		c = e.Risk.Confidence
	}
	return c
}
