package session

import (
	"context"
	"time"

	"github.com/claude/livereps/internal/achievements"
	"github.com/claude/livereps/internal/models"
	"github.com/claude/livereps/internal/stats"
)

// streakLookback bounds how far back completion times are loaded for
// streak evaluation.
const streakLookback = 40 * 24 * time.Hour

// previousVolume loads the volume of the user's last completed session of
// the same workout. Lookup failures degrade to no comparison.
func (m *Machine) previousVolume(ctx context.Context, h *Handle) *float64 {
	v, err := m.store.GetPreviousSessionVolume(ctx, h.session.UserID, h.session.WorkoutID, h.session.ID)
	if err != nil {
		m.log.Warn("loading previous session volume", "session_id", h.session.ID, "error", err)
		return nil
	}
	return v
}

// exerciseHistory returns past sets for exerciseID, cached on the handle
// for the session's lifetime.
func (m *Machine) exerciseHistory(ctx context.Context, h *Handle, exerciseID string) []models.HistoricalSet {
	if hist, ok := h.history[exerciseID]; ok {
		return hist
	}
	hist, err := m.store.GetExerciseHistory(ctx, h.session.UserID, exerciseID, h.session.ID, m.cfg.HistoryLimit)
	if err != nil {
		m.log.Warn("loading exercise history", "exercise_id", exerciseID, "error", err)
		return nil
	}
	h.history[exerciseID] = hist
	return hist
}

// achievementMetrics builds the evaluation snapshot for a just-finalized
// session. Lifetime lookups that fail are logged and count as zero.
func (m *Machine) achievementMetrics(ctx context.Context, h *Handle, now time.Time) achievements.Metrics {
	s := h.session
	am := achievements.Metrics{
		SetsCompleted:            h.stats.SetsCompleted,
		ExercisesCompleted:       h.stats.ExercisesCompleted,
		ExercisesSkipped:         h.stats.ExercisesSkipped,
		TotalExercises:           h.stats.TotalExercises,
		AverageRPE:               h.stats.AverageRPE,
		RestPeriodsSkipped:       s.RestPeriodsSkipped,
		PerfectForm:              achievements.PerfectForm(s.Exercises),
		DurationSeconds:          h.stats.DurationSeconds,
		EstimatedDurationSeconds: h.estimatedSeconds,
		SessionVolumeKg:          h.stats.TotalVolumeKg,
	}
	if s.StartedAt != nil {
		am.StartedAt = s.StartedAt.In(m.cfg.Location)
	}

	totals, err := m.store.GetLifetimeTotals(ctx, s.UserID)
	if err != nil {
		m.log.Warn("loading lifetime totals", "user_id", s.UserID, "error", err)
	}
	am.LifetimeWorkouts = totals.Workouts
	am.LifetimeSets = totals.Sets
	am.LifetimeVolumeKg = totals.VolumeKg

	completions, err := m.store.GetCompletionTimes(ctx, s.UserID, now.Add(-streakLookback))
	if err != nil {
		m.log.Warn("loading completion times", "user_id", s.UserID, "error", err)
	}
	am.CurrentStreakDays = stats.Streak(completions, now, m.cfg.Location)
	return am
}
