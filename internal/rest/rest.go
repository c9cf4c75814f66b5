// Package rest recommends rest durations between sets.
package rest

import (
	"math"

	"github.com/claude/livereps/internal/models"
)

const (
	// MinSeconds is the absolute floor for any recommendation.
	MinSeconds = 30

	// MaxSeconds is the absolute ceiling for any recommendation.
	MaxSeconds = 240

	// HeavyFloorSeconds is the floor once a set is hard or late in the exercise.
	HeavyFloorSeconds = 60

	// DefaultBaseSeconds is used when the catalog has no rest for an exercise.
	DefaultBaseSeconds = 90

	// Below minHistoryForConfidence prior sets, confidence is capped.
	minHistoryForConfidence = 3
	lowHistoryConfidenceCap = 0.5
)

// Input is the performance context for the set that was just completed.
type Input struct {
	ExerciseID  string
	SetNumber   int
	TargetSets  int
	Reps        int
	WeightKg    *float64
	RPE         *int
	BaseSeconds int
	History     []models.HistoricalSet
}

// Calculation is a rest recommendation.
type Calculation struct {
	RecommendedRestSeconds int     `json:"recommended_rest_seconds"`
	Reasoning              string  `json:"reasoning"`
	Confidence             float64 `json:"confidence"`
}

// Policy produces raw recommendations. Calculator enforces the bounds.
type Policy interface {
	Recommend(in Input) Calculation
}

// Calculator wraps a Policy and clamps its output to the documented
// contract: seconds within [MinSeconds, MaxSeconds], confidence within
// [0, 1] and capped while history is short.
type Calculator struct {
	policy Policy
}

// NewCalculator returns a Calculator backed by p, or by HeuristicPolicy when p is nil.
func NewCalculator(p Policy) *Calculator {
	if p == nil {
		p = HeuristicPolicy{}
	}
	return &Calculator{policy: p}
}

// Calculate returns a bounded recommendation for in.
func (c *Calculator) Calculate(in Input) Calculation {
	out := c.policy.Recommend(in)

	floor := MinSeconds
	if isHeavy(in) {
		floor = HeavyFloorSeconds
	}
	out.RecommendedRestSeconds = clamp(out.RecommendedRestSeconds, floor, MaxSeconds)

	conf := out.Confidence
	if math.IsNaN(conf) {
		conf = 0
	}
	conf = math.Max(0, math.Min(conf, 1))
	if len(in.History) < minHistoryForConfidence {
		conf = math.Min(conf, lowHistoryConfidenceCap)
	}
	out.Confidence = conf
	return out
}

// isHeavy reports whether the set calls for at least HeavyFloorSeconds of rest.
func isHeavy(in Input) bool {
	if in.RPE != nil && *in.RPE >= 8 {
		return true
	}
	return in.SetNumber >= 3
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
