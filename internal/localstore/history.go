package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/claude/livereps/internal/models"
	"github.com/google/uuid"
)

// GetPreviousSessionVolume returns the total volume of the user's most
// recent completed session of workoutID, or nil if there is none.
func (s *Store) GetPreviousSessionVolume(ctx context.Context, userID int, workoutID string, exclude uuid.UUID) (*float64, error) {
	var v float64
	err := s.db.QueryRowContext(ctx,
		`SELECT total_volume_kg FROM workout_sessions
		 WHERE user_id = ? AND workout_id = ? AND status = 'completed' AND id <> ?
		 ORDER BY completed_at DESC
		 LIMIT 1`,
		userID, workoutID, exclude).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying previous volume: %w", err)
	}
	return &v, nil
}

// GetExerciseHistory returns the most recent sets of exerciseID from the
// user's completed sessions, newest first.
func (s *Store) GetExerciseHistory(ctx context.Context, userID int, exerciseID string, exclude uuid.UUID, limit int) ([]models.HistoricalSet, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT sl.session_id, el.exercise_id, sl.set_number, sl.reps_completed, sl.weight_kg, sl.rpe, sl.completed_at
		 FROM set_logs sl
		 JOIN exercise_logs el ON el.session_id = sl.session_id AND el.exercise_index = sl.exercise_index
		 JOIN workout_sessions ws ON ws.id = sl.session_id
		 WHERE ws.user_id = ? AND el.exercise_id = ? AND ws.id <> ?
		   AND ws.status = 'completed' AND el.skipped = 0
		 ORDER BY sl.completed_at DESC
		 LIMIT ?`,
		userID, exerciseID, exclude, limit)
	if err != nil {
		return nil, fmt.Errorf("querying exercise history: %w", err)
	}
	defer rows.Close()

	var result []models.HistoricalSet
	for rows.Next() {
		var h models.HistoricalSet
		var at int64
		if err := rows.Scan(&h.SessionID, &h.ExerciseID, &h.SetNumber, &h.Reps, &h.WeightKg, &h.RPE, &at); err != nil {
			return nil, fmt.Errorf("scanning historical set: %w", err)
		}
		h.CompletedAt = time.UnixMilli(at).UTC()
		result = append(result, h)
	}
	return result, rows.Err()
}

// GetLifetimeTotals aggregates all completed sessions of the user.
func (s *Store) GetLifetimeTotals(ctx context.Context, userID int) (models.LifetimeTotals, error) {
	var t models.LifetimeTotals
	err := s.db.QueryRowContext(ctx,
		`SELECT
			(SELECT COUNT(*) FROM workout_sessions WHERE user_id = ?1 AND status = 'completed'),
			(SELECT COUNT(*)
			 FROM set_logs sl
			 JOIN exercise_logs el ON el.session_id = sl.session_id AND el.exercise_index = sl.exercise_index
			 JOIN workout_sessions ws ON ws.id = sl.session_id
			 WHERE ws.user_id = ?1 AND ws.status = 'completed' AND el.skipped = 0),
			(SELECT COALESCE(SUM(total_volume_kg), 0.0) FROM workout_sessions WHERE user_id = ?1 AND status = 'completed')`,
		userID).Scan(&t.Workouts, &t.Sets, &t.VolumeKg)
	if err != nil {
		return t, fmt.Errorf("querying lifetime totals: %w", err)
	}
	return t, nil
}

// GetCompletionTimes returns completed_at of every session completed since.
func (s *Store) GetCompletionTimes(ctx context.Context, userID int, since time.Time) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT completed_at FROM workout_sessions
		 WHERE user_id = ? AND status = 'completed' AND completed_at >= ?
		 ORDER BY completed_at`,
		userID, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("querying completion times: %w", err)
	}
	defer rows.Close()

	var result []time.Time
	for rows.Next() {
		var ms int64
		if err := rows.Scan(&ms); err != nil {
			return nil, fmt.Errorf("scanning completion time: %w", err)
		}
		result = append(result, time.UnixMilli(ms).UTC())
	}
	return result, rows.Err()
}

// GetTrainingLoad returns the last completed session and the number of
// sessions completed since the given time.
func (s *Store) GetTrainingLoad(ctx context.Context, userID int, since time.Time) (models.TrainingLoad, error) {
	var load models.TrainingLoad
	var last sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT completed_at, average_rpe FROM workout_sessions
		 WHERE user_id = ? AND status = 'completed'
		 ORDER BY completed_at DESC
		 LIMIT 1`,
		userID).Scan(&last, &load.LastAverageRPE)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return load, fmt.Errorf("querying last completed session: %w", err)
	}
	load.LastCompletedAt = fromMillis(last)

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM workout_sessions
		 WHERE user_id = ? AND status = 'completed' AND completed_at >= ?`,
		userID, since.UnixMilli()).Scan(&load.CompletedSince)
	if err != nil {
		return load, fmt.Errorf("counting recent sessions: %w", err)
	}
	return load, nil
}

// ListSessions returns session summaries of the user, newest first.
func (s *Store) ListSessions(ctx context.Context, userID, limit int) ([]models.SessionSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, workout_id, status, started_at, completed_at, duration_seconds,
		 calories_burned, total_volume_kg, completion_percentage, average_rpe
		 FROM workout_sessions
		 WHERE user_id = ?
		 ORDER BY started_at IS NULL, started_at DESC
		 LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var result []models.SessionSummary
	for rows.Next() {
		var sum models.SessionSummary
		var status string
		var started, completed sql.NullInt64
		if err := rows.Scan(&sum.ID, &sum.WorkoutID, &status, &started, &completed, &sum.DurationSeconds,
			&sum.CaloriesBurned, &sum.TotalVolumeKg, &sum.CompletionPercentage, &sum.AverageRPE); err != nil {
			return nil, fmt.Errorf("scanning session summary: %w", err)
		}
		sum.Status = models.SessionStatus(status)
		sum.StartedAt = fromMillis(started)
		sum.CompletedAt = fromMillis(completed)
		result = append(result, sum)
	}
	return result, rows.Err()
}
