// Package achievements evaluates a fixed table of achievement rules against
// a snapshot of session and lifetime metrics.
package achievements

import (
	"time"

	"github.com/claude/livereps/internal/models"
)

// Metrics is the input snapshot for rule evaluation. Lifetime fields
// include the session being evaluated.
type Metrics struct {
	SetsCompleted      int
	ExercisesCompleted int
	ExercisesSkipped   int
	TotalExercises     int
	AverageRPE         float64
	RestPeriodsSkipped int

	// PerfectForm is true when at least one set was rated and every rated
	// set has form quality 5.
	PerfectForm bool

	DurationSeconds          int
	EstimatedDurationSeconds int
	SessionVolumeKg          float64
	StartedAt                time.Time

	LifetimeWorkouts  int
	LifetimeSets      int
	LifetimeVolumeKg  float64
	CurrentStreakDays int
}

// Rule pairs a predicate with the achievement it unlocks.
type Rule struct {
	Descriptor models.AchievementDescriptor
	Predicate  func(Metrics) bool
}

// Engine evaluates rules in table order.
type Engine struct {
	rules []Rule
}

// NewEngine returns an Engine over rules, or over DefaultRules when rules is nil.
func NewEngine(rules []Rule) *Engine {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Engine{rules: rules}
}

// Evaluate returns every descriptor whose predicate holds for m, in table
// order. It does not know what the user has already unlocked.
func (e *Engine) Evaluate(m Metrics) []models.AchievementDescriptor {
	var out []models.AchievementDescriptor
	for _, r := range e.rules {
		if r.Predicate(m) {
			out = append(out, r.Descriptor)
		}
	}
	return out
}

// Catalog lists the descriptors of all rules.
func (e *Engine) Catalog() []models.AchievementDescriptor {
	out := make([]models.AchievementDescriptor, len(e.rules))
	for i, r := range e.rules {
		out[i] = r.Descriptor
	}
	return out
}

// PerfectForm reports whether logs contain at least one form rating and
// every rating is 5.
func PerfectForm(logs []models.ExerciseLog) bool {
	rated := false
	for _, l := range logs {
		if l.Skipped {
			continue
		}
		for _, s := range l.Sets {
			if s.FormQuality == nil {
				continue
			}
			if *s.FormQuality < 5 {
				return false
			}
			rated = true
		}
	}
	return rated
}
