package stats

import (
	"math"
	"time"
)

// Streak counts consecutive calendar days (in loc) with at least one
// completion, ending today or yesterday. A day without a workout today does
// not break a streak that ran through yesterday.
func Streak(completions []time.Time, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	days := make(map[string]struct{}, len(completions))
	for _, c := range completions {
		days[c.In(loc).Format(time.DateOnly)] = struct{}{}
	}

	day := now.In(loc)
	if _, ok := days[day.Format(time.DateOnly)]; !ok {
		day = day.AddDate(0, 0, -1)
	}
	streak := 0
	for {
		if _, ok := days[day.Format(time.DateOnly)]; !ok {
			return streak
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
}

// ReadinessInput describes recent training load.
type ReadinessInput struct {
	LastCompletedAt    *time.Time
	LastAverageRPE     float64
	CompletedLast7Days int
	WeeklyTarget       int
	Now                time.Time
}

// Readiness is a scheduling hint for the next session.
type Readiness struct {
	RecoveryScore  int     `json:"recovery_score"`
	MissedWorkouts int     `json:"missed_workouts"`
	HoursSinceLast float64 `json:"hours_since_last"`
	Recommendation string  `json:"recommendation"`
}

// Recommendation values.
const (
	RecommendTrain = "train"
	RecommendLight = "light"
	RecommendRest  = "rest"
)

// ComputeReadiness derives a recovery score and missed-workout count.
//
// Full recovery takes between 24h (easy last session) and 48h (RPE 10). The
// score grows linearly with hours since the last session up to 100 and
// shrinks as the last session's average RPE rises. Missed workouts are the
// weekly target minus sessions completed in the trailing 7 days.
func ComputeReadiness(in ReadinessInput) Readiness {
	r := Readiness{RecoveryScore: 100}

	if in.LastCompletedAt != nil {
		hours := in.Now.Sub(*in.LastCompletedAt).Hours()
		if hours < 0 {
			hours = 0
		}
		r.HoursSinceLast = math.Round(hours*10) / 10

		fatigue := 0.0
		if in.LastAverageRPE > 0 {
			fatigue = math.Max(0, math.Min((in.LastAverageRPE-5)/5, 1))
		}
		fullRecovery := 24 + 24*fatigue
		r.RecoveryScore = clampInt(int(math.Floor(100*math.Min(hours/fullRecovery, 1))), 0, 100)
	}

	if in.WeeklyTarget > in.CompletedLast7Days {
		r.MissedWorkouts = in.WeeklyTarget - in.CompletedLast7Days
	}

	switch {
	case r.RecoveryScore >= 80:
		r.Recommendation = RecommendTrain
	case r.RecoveryScore >= 50:
		r.Recommendation = RecommendLight
	default:
		r.Recommendation = RecommendRest
	}
	return r
}
