package supervision

import (
	"testing"
	"time"
)

var testTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func TestApplyThresholdCrossingFiresOnceAndResets(t *testing.T) {
	c := DefaultCatalog()
	st := NewState("p1", testTime)

	// Budget tier threshold is 25; three microStepFailures sum to 30.
	var act *Activation
	for i := 0; i < 3; i++ {
		st, act = c.Apply(st, TierBudget, EventMicroStepFailure, testTime)
		if i < 2 {
			if act != nil {
				t.Fatalf("activation fired early at event %d (weight %v)", i+1, st.AccumulatedWeight)
			}
			if st.AccumulatedWeight != float64(10*(i+1)) {
				t.Fatalf("weight after event %d = %v, want %v", i+1, st.AccumulatedWeight, 10*(i+1))
			}
		}
	}

	if act == nil {
		t.Fatal("activation did not fire after crossing threshold")
	}
	if act.AccumulatedWeightAtTrigger != 30 {
		t.Fatalf("AccumulatedWeightAtTrigger = %v, want 30", act.AccumulatedWeightAtTrigger)
	}
	if act.TriggerKind != EventMicroStepFailure {
		t.Fatalf("TriggerKind = %q", act.TriggerKind)
	}
	if act.Continuous {
		t.Fatal("threshold crossing must not be marked continuous")
	}
	if st.AccumulatedWeight != 0 {
		t.Fatalf("weight after activation = %v, want 0 (atomic reset)", st.AccumulatedWeight)
	}
	if !st.WindowStart.Equal(testTime) {
		t.Fatalf("window did not restart: %v", st.WindowStart)
	}

	// The next event starts counting from zero again.
	st, act = c.Apply(st, TierBudget, EventMicroStepFailure, testTime)
	if act != nil {
		t.Fatal("activation re-fired without re-crossing threshold")
	}
	if st.AccumulatedWeight != 10 {
		t.Fatalf("weight after reset = %v, want 10", st.AccumulatedWeight)
	}
}

func TestApplyExactThresholdFires(t *testing.T) {
	c := DefaultCatalog()
	st := NewState("p1", testTime)

	// Standard tier threshold is 15; one timelineOverrun lands exactly on it.
	st, act := c.Apply(st, TierStandard, EventTimelineOverrun, testTime)
	if act == nil {
		t.Fatal("exact threshold must fire")
	}
	if act.Tier != TierStandard || act.AccumulatedWeightAtTrigger != 15 {
		t.Fatalf("unexpected activation: %+v", act)
	}
	if st.AccumulatedWeight != 0 {
		t.Fatalf("weight = %v, want 0", st.AccumulatedWeight)
	}
}

func TestApplyPremiumContinuousBelowThreshold(t *testing.T) {
	c := DefaultCatalog()
	st := NewState("p1", testTime)

	// Premium threshold is 5, so almost everything crosses it. periodicCheck
	// carries weight 0 and stays below, exercising the continuous path.
	st, act := c.Apply(st, TierPremium, EventPeriodicCheck, testTime)
	if act == nil {
		t.Fatal("premium tier must evaluate every event")
	}
	if !act.Continuous {
		t.Fatal("below-threshold premium activation must be marked continuous")
	}
	if st.AccumulatedWeight != 0 {
		t.Fatalf("continuous pass must not reset or grow weight, got %v", st.AccumulatedWeight)
	}

	// A weighted event crosses and resets like any other tier.
	st, act = c.Apply(st, TierPremium, EventStalledProgress, testTime)
	if act == nil || act.Continuous {
		t.Fatalf("crossing on premium must be a real activation: %+v", act)
	}
	if st.AccumulatedWeight != 0 {
		t.Fatalf("weight = %v, want 0 after crossing", st.AccumulatedWeight)
	}
}

func TestApplyPeriodicCheckCarriesNoWeight(t *testing.T) {
	c := DefaultCatalog()
	st := NewState("p1", testTime)

	st, _ = c.Apply(st, TierStandard, EventMicroStepFailure, testTime)
	before := st.AccumulatedWeight

	st, act := c.Apply(st, TierStandard, EventPeriodicCheck, testTime)
	if act != nil {
		t.Fatalf("periodic check below threshold must not activate: %+v", act)
	}
	if st.AccumulatedWeight != before {
		t.Fatalf("periodic check changed weight: %v -> %v", before, st.AccumulatedWeight)
	}
}

func TestApplyUnknownKindWeighsZero(t *testing.T) {
	c := DefaultCatalog()
	st := NewState("p1", testTime)

	st, act := c.Apply(st, TierStandard, EventKind("solarFlare"), testTime)
	if act != nil || st.AccumulatedWeight != 0 {
		t.Fatalf("unknown kind must be a no-op, got weight %v, act %+v", st.AccumulatedWeight, act)
	}
}

func TestCatalogWeights(t *testing.T) {
	c := DefaultCatalog()
	tests := []struct {
		kind EventKind
		want float64
	}{
		{EventMicroStepFailure, 10},
		{EventTimelineOverrun, 15},
		{EventCostOverrun, 20},
		{EventQualityGateFailure, 12},
		{EventDependencyDeadlock, 25},
		{EventStalledProgress, 8},
		{EventPeriodicCheck, 0},
	}
	for _, tt := range tests {
		w, ok := c.Weight(tt.kind)
		if !ok {
			t.Fatalf("%q not in catalog", tt.kind)
		}
		if w != tt.want {
			t.Fatalf("Weight(%q) = %v, want %v", tt.kind, w, tt.want)
		}
	}

	if _, ok := c.Weight("bogus"); ok {
		t.Fatal("unknown kind reported as known")
	}
}

func TestTierThresholdsAndModes(t *testing.T) {
	tests := []struct {
		tier      Tier
		threshold float64
		mode      Mode
	}{
		{TierBudget, 25, ModeEmergencyOnly},
		{TierStandard, 15, ModePeriodic},
		{TierPremium, 5, ModeContinuous},
	}
	for _, tt := range tests {
		if got := tt.tier.ActivationThreshold(); got != tt.threshold {
			t.Fatalf("%s threshold = %v, want %v", tt.tier, got, tt.threshold)
		}
		if got := tt.tier.Mode(); got != tt.mode {
			t.Fatalf("%s mode = %q, want %q", tt.tier, got, tt.mode)
		}
	}
}

func TestParseTierUnknownDefaultsToBudget(t *testing.T) {
	if got := ParseTier("platinum"); got != TierBudget {
		t.Fatalf("ParseTier fallback = %q, want budget", got)
	}
	if got := ParseTier("premium"); got != TierPremium {
		t.Fatalf("ParseTier(premium) = %q", got)
	}
}

func TestApplySingleDeadlockFiresBudgetTier(t *testing.T) {
	c := DefaultCatalog()
	st := NewState("p1", testTime)

	// A dependency deadlock alone carries the full Budget-tier threshold.
	_, act := c.Apply(st, TierBudget, EventDependencyDeadlock, testTime)
	if act == nil {
		t.Fatal("single deadlock must activate budget-tier supervision")
	}
	if act.AccumulatedWeightAtTrigger < 25 {
		t.Fatalf("activation weight = %v, want the full threshold from one event", act.AccumulatedWeightAtTrigger)
	}
}
