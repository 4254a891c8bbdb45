package supervision

import "time"

// Event is one project event delivered to the accumulator.
type Event struct {
	EventID   string    `json:"event_id"`
	ProjectID string    `json:"project_id"`
	Kind      EventKind `json:"kind"`
	Magnitude float64   `json:"magnitude,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// State is the per-project accumulator counter. One instance exists per
// active project; it is created on project start and destroyed on project
// completion or cancellation. AccumulatedWeight never goes negative and is
// reset atomically with the activation side effect.
type State struct {
	ProjectID         string    `json:"project_id"`
	AccumulatedWeight float64   `json:"accumulated_weight"`
	WindowStart       time.Time `json:"window_start"`
	LastEventAt       time.Time `json:"last_event_at"`
}

// NewState returns the initial accumulator state for a project.
func NewState(projectID string, now time.Time) State {
	return State{ProjectID: projectID, WindowStart: now.UTC()}
}

// Activation is emitted when a project's supervisor is triggered. Once
// emitted it is not retractable; a subsequent evaluation starts a new
// window.
type Activation struct {
	ID                         string    `json:"id"`
	ProjectID                  string    `json:"project_id"`
	Tier                       Tier      `json:"tier"`
	TriggerKind                EventKind `json:"trigger_kind"`
	AccumulatedWeightAtTrigger float64   `json:"accumulated_weight_at_trigger"`
	Continuous                 bool      `json:"continuous"`
	CatalogVersion             string    `json:"catalog_version"`
	TriggeredAt                time.Time `json:"triggered_at"`
}

// Apply folds one event into the state and returns the next state plus an
// activation if the supervisor should be triggered. It is a pure function:
// the caller commits the returned state only after the activation's side
// effects have been persisted, keeping reset-and-activate atomic.
//
// Semantics per tier:
//   - threshold crossing (any tier): activation fires, weight resets to 0
//     and a new window starts immediately; there is no cooldown state.
//   - Premium (continuous): every event below the threshold still yields
//     a supervisory pass, marked Continuous, without resetting the window.
//   - periodicCheck carries weight 0 and simply forces the evaluation.
func (c *Catalog) Apply(st State, tier Tier, kind EventKind, now time.Time) (State, *Activation) {
	w, _ := c.Weight(kind)
	st.AccumulatedWeight += w
	st.LastEventAt = now.UTC()

	if st.AccumulatedWeight >= tier.ActivationThreshold() {
		act := &Activation{
			ProjectID:                  st.ProjectID,
			Tier:                       tier,
			TriggerKind:                kind,
			AccumulatedWeightAtTrigger: st.AccumulatedWeight,
			CatalogVersion:             c.Version,
			TriggeredAt:                now.UTC(),
		}
		st.AccumulatedWeight = 0
		st.WindowStart = now.UTC()
		return st, act
	}

	if tier.Mode() == ModeContinuous {
		return st, &Activation{
			ProjectID:                  st.ProjectID,
			Tier:                       tier,
			TriggerKind:                kind,
			AccumulatedWeightAtTrigger: st.AccumulatedWeight,
			Continuous:                 true,
			CatalogVersion:             c.Version,
			TriggeredAt:                now.UTC(),
		}
	}

	return st, nil
}
