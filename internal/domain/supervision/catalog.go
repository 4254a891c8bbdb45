package supervision

// EventKind identifies a kind of project event that feeds the accumulator.
type EventKind string

const (
	EventMicroStepFailure   EventKind = "microStepFailure"
	EventTimelineOverrun    EventKind = "timelineOverrun"    // >50% over estimate
	EventCostOverrun        EventKind = "costOverrun"        // >25% over estimate
	EventQualityGateFailure EventKind = "qualityGateFailure"
	EventDependencyDeadlock EventKind = "dependencyDeadlock"
	EventStalledProgress    EventKind = "stalledProgress"

	// EventPeriodicCheck is injected by the timer collaborator for
	// Standard-tier projects. It carries no weight; it forces a
	// threshold evaluation.
	EventPeriodicCheck EventKind = "periodicCheck"
)

// Catalog maps event kinds to accumulation weights. The catalog is static
// configuration and versioned so activation records can be traced back to
// the weights in force when they fired.
type Catalog struct {
	Version string
	weights map[EventKind]float64
}

// DefaultCatalog returns the v1 event weight catalog.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Version: "v1",
		weights: map[EventKind]float64{
			EventMicroStepFailure:   10,
			EventTimelineOverrun:    15,
			EventCostOverrun:        20,
			EventQualityGateFailure: 12,
			EventDependencyDeadlock: 25,
			EventStalledProgress:    8,
			EventPeriodicCheck:      0,
		},
	}
}

// Weight returns the accumulation weight for the kind and whether the
// kind is known. Unknown kinds weigh 0 and must never block processing.
func (c *Catalog) Weight(kind EventKind) (float64, bool) {
	w, ok := c.weights[kind]
	return w, ok
}
