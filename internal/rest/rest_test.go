package rest

import (
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/claude/livereps/internal/models"
)

func ptr[T any](v T) *T { return &v }

func history(n int, rpe int, weight float64) []models.HistoricalSet {
	out := make([]models.HistoricalSet, n)
	for i := range out {
		out[i] = models.HistoricalSet{ExerciseID: "squat", SetNumber: i + 1, Reps: 5, RPE: ptr(rpe), WeightKg: ptr(weight)}
	}
	return out
}

// TestCalculateHeavySet verifies that a hard late set gets more rest than
// the catalog base and never falls below the heavy floor.
func TestCalculateHeavySet(t *testing.T) {
	c := NewCalculator(nil)
	got := c.Calculate(Input{ExerciseID: "squat", SetNumber: 3, TargetSets: 4, Reps: 5, RPE: ptr(9), BaseSeconds: 120})

	// 120 + 60 (rpe 9) + 15 (set 3)
	if got.RecommendedRestSeconds != 195 {
		t.Errorf("rest = %d, want 195", got.RecommendedRestSeconds)
	}
	if !strings.Contains(got.Reasoning, "RPE 9") || !strings.Contains(got.Reasoning, "Set 3 of 4") {
		t.Errorf("reasoning %q should mention RPE and set position", got.Reasoning)
	}
}

// TestCalculateEasyEarlySet verifies low RPE on the first set shortens rest.
func TestCalculateEasyEarlySet(t *testing.T) {
	c := NewCalculator(nil)
	got := c.Calculate(Input{SetNumber: 1, Reps: 12, RPE: ptr(4), BaseSeconds: 60})
	if got.RecommendedRestSeconds != MinSeconds {
		t.Errorf("rest = %d, want floor %d", got.RecommendedRestSeconds, MinSeconds)
	}

	got = c.Calculate(Input{SetNumber: 2, Reps: 12, RPE: ptr(5), BaseSeconds: 90})
	if got.RecommendedRestSeconds != 60 {
		t.Errorf("rest = %d, want 60", got.RecommendedRestSeconds)
	}
}

// TestCalculateBounds verifies clamping to [30, 240] and the 60s heavy floor.
func TestCalculateBounds(t *testing.T) {
	c := NewCalculator(nil)
	tests := []struct {
		name string
		in   Input
		want int
	}{
		{"ceiling", Input{SetNumber: 6, RPE: ptr(10), BaseSeconds: 300}, MaxSeconds},
		{"heavy floor via rpe", Input{SetNumber: 1, RPE: ptr(8), BaseSeconds: 5}, HeavyFloorSeconds},
		{"heavy floor via set number", Input{SetNumber: 3, RPE: ptr(3), BaseSeconds: 10}, HeavyFloorSeconds},
		{"default base", Input{SetNumber: 1}, DefaultBaseSeconds},
		{"negative base", Input{SetNumber: 1, BaseSeconds: -50}, DefaultBaseSeconds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Calculate(tt.in).RecommendedRestSeconds; got != tt.want {
				t.Errorf("rest = %d, want %d", got, tt.want)
			}
		})
	}
}

// TestCalculateHistoryAdjustments verifies that beating historical RPE or
// weight adds rest.
func TestCalculateHistoryAdjustments(t *testing.T) {
	c := NewCalculator(nil)
	base := Input{SetNumber: 1, Reps: 5, RPE: ptr(7), WeightKg: ptr(100.0), BaseSeconds: 90}

	plain := c.Calculate(base)

	harder := base
	harder.History = history(5, 5, 120)
	if got := c.Calculate(harder); got.RecommendedRestSeconds != plain.RecommendedRestSeconds+20 {
		t.Errorf("harder than usual: %d, want %d", got.RecommendedRestSeconds, plain.RecommendedRestSeconds+20)
	}

	heavier := base
	heavier.History = history(5, 7, 90)
	if got := c.Calculate(heavier); got.RecommendedRestSeconds != plain.RecommendedRestSeconds+15 {
		t.Errorf("new top weight: %d, want %d", got.RecommendedRestSeconds, plain.RecommendedRestSeconds+15)
	}
}

// TestConfidence verifies the cap with fewer than three prior sets and that
// confidence never drops as history grows.
func TestConfidence(t *testing.T) {
	c := NewCalculator(nil)
	prev := -1.0
	for n := 0; n <= 20; n++ {
		got := c.Calculate(Input{SetNumber: 1, RPE: ptr(7), History: history(n, 7, 100)})
		if n < 3 && got.Confidence > 0.5 {
			t.Errorf("n=%d confidence %v exceeds 0.5", n, got.Confidence)
		}
		if got.Confidence < prev {
			t.Errorf("n=%d confidence %v dropped from %v", n, got.Confidence, prev)
		}
		if got.Confidence < 0 || got.Confidence > 1 {
			t.Errorf("n=%d confidence %v out of [0,1]", n, got.Confidence)
		}
		prev = got.Confidence
	}
}

type wildPolicy struct{ out Calculation }

func (p wildPolicy) Recommend(Input) Calculation { return p.out }

// TestCalculatorEnforcesContract verifies any Policy output is clamped.
func TestCalculatorEnforcesContract(t *testing.T) {
	c := NewCalculator(wildPolicy{Calculation{RecommendedRestSeconds: -10, Confidence: 7}})
	got := c.Calculate(Input{SetNumber: 1, History: history(1, 5, 50)})
	if got.RecommendedRestSeconds != MinSeconds {
		t.Errorf("rest = %d, want %d", got.RecommendedRestSeconds, MinSeconds)
	}
	if got.Confidence != 0.5 {
		t.Errorf("confidence = %v, want capped 0.5", got.Confidence)
	}

	c = NewCalculator(wildPolicy{Calculation{RecommendedRestSeconds: 10_000, Confidence: -1}})
	got = c.Calculate(Input{SetNumber: 1, History: history(5, 5, 50)})
	if got.RecommendedRestSeconds != MaxSeconds || got.Confidence != 0 {
		t.Errorf("got %+v, want %d/0", got, MaxSeconds)
	}
}

// TestCalculateAlwaysPositive fuzzes inputs and checks the recommendation
// is always within bounds.
func TestCalculateAlwaysPositive(t *testing.T) {
	f := gofakeit.New(3)
	c := NewCalculator(nil)
	for i := 0; i < 1000; i++ {
		in := Input{
			SetNumber:   f.IntRange(1, 12),
			TargetSets:  f.IntRange(0, 6),
			Reps:        f.IntRange(1, 30),
			BaseSeconds: f.IntRange(-100, 400),
			History:     history(f.IntRange(0, 10), f.IntRange(1, 10), f.Float64Range(0, 250)),
		}
		if f.Bool() {
			in.RPE = ptr(f.IntRange(1, 10))
		}
		if f.Bool() {
			in.WeightKg = ptr(f.Float64Range(0, 300))
		}
		got := c.Calculate(in)
		if got.RecommendedRestSeconds < MinSeconds || got.RecommendedRestSeconds > MaxSeconds {
			t.Fatalf("rest %d out of range for %+v", got.RecommendedRestSeconds, in)
		}
		if got.Confidence < 0 || got.Confidence > 1 {
			t.Fatalf("confidence %v out of range", got.Confidence)
		}
		if got.Reasoning == "" {
			t.Fatal("empty reasoning")
		}
	}
}
