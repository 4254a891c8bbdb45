package scopechange

import (
	"strings"
	"testing"
	"time"
)

var testTime = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func TestClassifyLocalHandling(t *testing.T) {
	rec := DefaultRule().Classify(Change{
		ID:             "c1",
		ProjectID:      "p1",
		EffortDeltaPct: 15,
	}, Ledger{ProjectID: "p1", TotalCreepPct: 10}, testTime)

	if rec.Classification != ClassificationLocal {
		t.Fatalf("Classification = %q, want local_handling (reasons: %v)", rec.Classification, rec.Reasons)
	}
	if len(rec.Reasons) != 0 {
		t.Fatalf("local handling should carry no reasons: %v", rec.Reasons)
	}
}

func TestClassifyEscalations(t *testing.T) {
	tests := []struct {
		name       string
		change     Change
		ledger     Ledger
		wantReason string
	}{
		{
			name:       "large delta escalates regardless of other fields",
			change:     Change{EffortDeltaPct: 30},
			wantReason: "effort delta",
		},
		{
			name:       "delta exactly at limit escalates",
			change:     Change{EffortDeltaPct: 25},
			wantReason: "effort delta",
		},
		{
			name:       "touching other macro steps escalates",
			change:     Change{EffortDeltaPct: 5, TouchesOtherMacroSteps: true},
			wantReason: "touches other macro steps",
		},
		{
			name:       "new dependencies escalate",
			change:     Change{EffortDeltaPct: 5, NewDependenciesIntroduced: true},
			wantReason: "new dependencies",
		},
		{
			name:       "cumulative creep over tolerance escalates",
			change:     Change{EffortDeltaPct: 10},
			ledger:     Ledger{TotalCreepPct: 45},
			wantReason: "cumulative creep",
		},
		{
			name:       "cumulative creep exactly at tolerance escalates",
			change:     Change{EffortDeltaPct: 10},
			ledger:     Ledger{TotalCreepPct: 40},
			wantReason: "cumulative creep",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := DefaultRule().Classify(tt.change, tt.ledger, testTime)
			if rec.Classification != ClassificationEscalate {
				t.Fatalf("Classification = %q, want escalate", rec.Classification)
			}
			found := false
			for _, r := range rec.Reasons {
				if strings.Contains(r, tt.wantReason) {
					found = true
				}
			}
			if !found {
				t.Fatalf("reasons %v missing %q", rec.Reasons, tt.wantReason)
			}
		})
	}
}

func TestClassifyCollectsAllFailingConditions(t *testing.T) {
	rec := DefaultRule().Classify(Change{
		EffortDeltaPct:            30,
		TouchesOtherMacroSteps:    true,
		NewDependenciesIntroduced: true,
	}, Ledger{TotalCreepPct: 40}, testTime)

	if len(rec.Reasons) != 4 {
		t.Fatalf("expected all 4 failing conditions recorded, got %v", rec.Reasons)
	}
}

func TestClassifyCustomTolerance(t *testing.T) {
	rule := Rule{LocalDeltaMaxPct: 25, TolerancePct: 20}
	rec := rule.Classify(Change{EffortDeltaPct: 15}, Ledger{TotalCreepPct: 10}, testTime)

	if rec.Classification != ClassificationEscalate {
		t.Fatalf("tighter tolerance should escalate, got %q", rec.Classification)
	}
}
