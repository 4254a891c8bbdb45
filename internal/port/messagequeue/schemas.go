package messagequeue

import "time"

// ProjectEventPayload is the schema for projects.events messages.
type ProjectEventPayload struct {
	EventID   string    `json:"event_id"`
	ProjectID string    `json:"project_id"`
	Kind      string    `json:"kind"`
	Magnitude float64   `json:"magnitude,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ProjectLifecyclePayload is the schema for projects.completed and
// projects.cancelled messages.
type ProjectLifecyclePayload struct {
	ProjectID string `json:"project_id"`
}

// EstimateReadyPayload is the schema for estimates.ready messages. The
// three dimensions are correlated by step ID upstream; a missing dimension
// arrives as null and is surfaced as an incomplete decision.
type EstimateReadyPayload struct {
	ProjectID string                `json:"project_id"`
	StepID    string                `json:"step_id"`
	Cost      *CostEstimateItem     `json:"cost,omitempty"`
	Timeline  *TimelineEstimateItem `json:"timeline,omitempty"`
	Risk      *RiskEstimateItem     `json:"risk,omitempty"`
}

// CostEstimateItem is the cost dimension of an estimates.ready message.
type CostEstimateItem struct {
	Tokens     int64   `json:"tokens"`
	USD        float64 `json:"usd"`
	Confidence float64 `json:"confidence"`
}

// TimelineEstimateItem is the timeline dimension of an estimates.ready message.
type TimelineEstimateItem struct {
	Hours      float64 `json:"hours"`
	Confidence float64 `json:"confidence"`
}

// RiskEstimateItem is the risk dimension of an estimates.ready message.
type RiskEstimateItem struct {
	Score      float64  `json:"score"`
	Factors    []string `json:"factors,omitempty"`
	Confidence float64  `json:"confidence"`
}

// ScopeChangePayload is the schema for scope.reported messages.
type ScopeChangePayload struct {
	ChangeID                  string  `json:"change_id"`
	ProjectID                 string  `json:"project_id"`
	ReportedStepID            string  `json:"reported_step_id"`
	EffortDeltaPct            float64 `json:"effort_delta_pct"`
	TouchesOtherMacroSteps    bool    `json:"touches_other_macro_steps"`
	NewDependenciesIntroduced bool    `json:"new_dependencies_introduced"`
}

// DecisionPayload is the schema for decisions.adjudicated messages.
type DecisionPayload struct {
	DecisionID    string    `json:"decision_id"`
	ProjectID     string    `json:"project_id"`
	StepID        string    `json:"step_id"`
	Verdict       string    `json:"verdict"`
	WeightedScore float64   `json:"weighted_score"`
	Rationale     string    `json:"rationale"`
	DecidedAt     time.Time `json:"decided_at"`
}

// ActivationPayload is the schema for supervision.activated messages.
type ActivationPayload struct {
	ActivationID      string    `json:"activation_id"`
	ProjectID         string    `json:"project_id"`
	Tier              string    `json:"tier"`
	TriggerKind       string    `json:"trigger_kind"`
	AccumulatedWeight float64   `json:"accumulated_weight"`
	Continuous        bool      `json:"continuous"`
	TriggeredAt       time.Time `json:"triggered_at"`
}

// ReplanPayload is the schema for planning.replan messages.
type ReplanPayload struct {
	ProjectID      string    `json:"project_id"`
	ChangeID       string    `json:"change_id"`
	ReportedStepID string    `json:"reported_step_id"`
	Reasons        []string  `json:"reasons"`
	RequestedAt    time.Time `json:"requested_at"`
}

// SuspendPayload is the schema for steps.suspend messages.
type SuspendPayload struct {
	ProjectID string `json:"project_id"`
	StepID    string `json:"step_id"`
	Reason    string `json:"reason"`
}

// NotificationPayload is the schema for notifications.events messages.
type NotificationPayload struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Level   string `json:"level"`
	Source  string `json:"source"`
}

// DegradedModePayload is the schema for supervision.degraded messages.
type DegradedModePayload struct {
	ProjectID string    `json:"project_id"`
	Reason    string    `json:"reason"`
	RaisedAt  time.Time `json:"raised_at"`
}
