package estimate

import (
	"reflect"
	"testing"
)

func TestMissingDimensions(t *testing.T) {
	tests := []struct {
		name string
		est  MacroStepEstimate
		want []string
	}{
		{
			name: "complete",
			est: MacroStepEstimate{
				Cost:     &Cost{USD: 10, Confidence: 0.9},
				Timeline: &Timeline{Hours: 4, Confidence: 0.9},
				Risk:     &Risk{Score: 0.2},
			},
			want: nil,
		},
		{
			name: "missing risk",
			est: MacroStepEstimate{
				Cost:     &Cost{},
				Timeline: &Timeline{},
			},
			want: []string{DimensionRisk},
		},
		{
			name: "all missing",
			est:  MacroStepEstimate{},
			want: []string{DimensionCost, DimensionTimeline, DimensionRisk},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.est.MissingDimensions()
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("MissingDimensions() = %v, want %v", got, tt.want)
			}
			if tt.est.Complete() != (len(tt.want) == 0) {
				t.Fatalf("Complete() disagrees with MissingDimensions()")
			}
		})
	}
}

func TestMinConfidence(t *testing.T) {
	est := MacroStepEstimate{
		Cost:     &Cost{Confidence: 0.8},
		Timeline: &Timeline{Confidence: 0.3},
		Risk:     &Risk{Score: 0.99, Confidence: 0.9},
	}
	if got := est.MinConfidence(); got != 0.3 {
		t.Fatalf("MinConfidence() = %v, want 0.3", got)
	}
}

func TestMinConfidenceNoDimensions(t *testing.T) {
	est := MacroStepEstimate{}
	if got := est.MinConfidence(); got != 1.0 {
		t.Fatalf("MinConfidence() with no dimensions = %v, want 1.0", got)
	}
}
