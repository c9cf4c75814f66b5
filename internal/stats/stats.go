// Package stats derives live session aggregates from exercise logs.
// All functions are pure and safe to call on every mutation.
package stats

import (
	"math"
	"time"

	"github.com/claude/livereps/internal/models"
)

// CaloriesPerMinute is the flat burn estimate applied to active time.
const CaloriesPerMinute = 5.0

// Input is everything Compute needs. Active excludes paused time, so the
// wall-clock start of the session is not needed here.
type Input struct {
	Exercises        []models.ExerciseLog
	TotalExercises   int
	Active           time.Duration
	PreviousVolumeKg *float64
}

// Compute returns the LiveStats for the given logs.
func Compute(in Input) models.LiveStats {
	st := models.LiveStats{TotalExercises: in.TotalExercises}

	var rpeSum, rpeCount int
	for i := range in.Exercises {
		e := &in.Exercises[i]
		// RPE covers every logged set, including those of skipped exercises.
		for _, s := range e.Sets {
			if s.RPE != nil {
				rpeSum += *s.RPE
				rpeCount++
			}
		}
		if e.Skipped {
			st.ExercisesSkipped++
			continue
		}
		if e.Done() {
			st.ExercisesCompleted++
		}
		for _, s := range e.Sets {
			st.SetsCompleted++
			st.RepsCompleted += s.RepsCompleted
			st.TotalVolumeKg += s.Volume()
		}
	}
	if rpeCount > 0 {
		st.AverageRPE = float64(rpeSum) / float64(rpeCount)
	}

	active := in.Active
	if active < 0 {
		active = 0
	}
	st.DurationSeconds = int(active / time.Second)
	st.CaloriesBurned = int(math.Floor(float64(st.DurationSeconds) / 60 * CaloriesPerMinute))
	st.CompletionPercentage = completion(st.ExercisesCompleted, st.ExercisesSkipped, in.TotalExercises)
	st.PerformanceScore = PerformanceScore(st.AverageRPE, st.ExercisesCompleted, st.ExercisesSkipped)
	st.VsPreviousVolumePct = vsPrevious(st.TotalVolumeKg, in.PreviousVolumeKg)
	return st
}

func completion(done, skipped, total int) int {
	if total <= 0 {
		return 0
	}
	pct := 100 * (done + skipped) / total
	return clampInt(pct, 0, 100)
}

// PerformanceScore blends intensity (average RPE) and consistency
// (completed vs skipped exercises) into a 0–100 score. It never decreases
// when either input improves.
func PerformanceScore(avgRPE float64, done, skipped int) int {
	intensity := math.Max(0, math.Min(avgRPE/10, 1))
	consistency := 0.0
	if done+skipped > 0 {
		consistency = float64(done) / float64(done+skipped)
	}
	score := math.Floor(100 * (0.6*intensity + 0.4*consistency))
	return clampInt(int(score), 0, 100)
}

func vsPrevious(volume float64, previous *float64) float64 {
	if previous == nil || *previous <= 0 {
		return 0
	}
	pct := (volume - *previous) / *previous * 100
	return math.Round(pct*10) / 10
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
