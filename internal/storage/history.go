package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/claude/livereps/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GetPreviousSessionVolume returns the total volume of the user's most
// recent completed session of workoutID, or nil if there is none.
func (db *DB) GetPreviousSessionVolume(ctx context.Context, userID int, workoutID string, exclude uuid.UUID) (*float64, error) {
	var v float64
	err := db.Pool.QueryRow(ctx,
		`SELECT total_volume_kg FROM workout_sessions
		 WHERE user_id = $1 AND workout_id = $2 AND status = 'completed' AND id <> $3
		 ORDER BY completed_at DESC
		 LIMIT 1`,
		userID, workoutID, exclude).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying previous volume: %w", err)
	}
	return &v, nil
}

// GetExerciseHistory returns the most recent sets of exerciseID from the
// user's completed sessions, newest first.
func (db *DB) GetExerciseHistory(ctx context.Context, userID int, exerciseID string, exclude uuid.UUID, limit int) ([]models.HistoricalSet, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT sl.session_id, el.exercise_id, sl.set_number, sl.reps_completed, sl.weight_kg, sl.rpe, sl.completed_at
		 FROM set_logs sl
		 JOIN exercise_logs el ON el.session_id = sl.session_id AND el.exercise_index = sl.exercise_index
		 JOIN workout_sessions ws ON ws.id = sl.session_id
		 WHERE ws.user_id = $1 AND el.exercise_id = $2 AND ws.id <> $3
		   AND ws.status = 'completed' AND NOT el.skipped
		 ORDER BY sl.completed_at DESC
		 LIMIT $4`,
		userID, exerciseID, exclude, limit)
	if err != nil {
		return nil, fmt.Errorf("querying exercise history: %w", err)
	}
	defer rows.Close()

	var result []models.HistoricalSet
	for rows.Next() {
		var h models.HistoricalSet
		if err := rows.Scan(&h.SessionID, &h.ExerciseID, &h.SetNumber, &h.Reps, &h.WeightKg, &h.RPE, &h.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning historical set: %w", err)
		}
		result = append(result, h)
	}
	return result, rows.Err()
}

// GetLifetimeTotals aggregates all completed sessions of the user.
func (db *DB) GetLifetimeTotals(ctx context.Context, userID int) (models.LifetimeTotals, error) {
	var t models.LifetimeTotals
	err := db.Pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM workout_sessions WHERE user_id = $1 AND status = 'completed')::int,
			(SELECT COUNT(*)
			 FROM set_logs sl
			 JOIN exercise_logs el ON el.session_id = sl.session_id AND el.exercise_index = sl.exercise_index
			 JOIN workout_sessions ws ON ws.id = sl.session_id
			 WHERE ws.user_id = $1 AND ws.status = 'completed' AND NOT el.skipped)::int,
			(SELECT COALESCE(SUM(total_volume_kg), 0) FROM workout_sessions WHERE user_id = $1 AND status = 'completed')`,
		userID).Scan(&t.Workouts, &t.Sets, &t.VolumeKg)
	if err != nil {
		return t, fmt.Errorf("querying lifetime totals: %w", err)
	}
	return t, nil
}

// GetCompletionTimes returns completed_at of every session completed since.
func (db *DB) GetCompletionTimes(ctx context.Context, userID int, since time.Time) ([]time.Time, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT completed_at FROM workout_sessions
		 WHERE user_id = $1 AND status = 'completed' AND completed_at >= $2
		 ORDER BY completed_at`,
		userID, since)
	if err != nil {
		return nil, fmt.Errorf("querying completion times: %w", err)
	}
	defer rows.Close()

	var result []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scanning completion time: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// GetTrainingLoad returns the last completed session and the number of
// sessions completed since the given time.
func (db *DB) GetTrainingLoad(ctx context.Context, userID int, since time.Time) (models.TrainingLoad, error) {
	var load models.TrainingLoad
	err := db.Pool.QueryRow(ctx,
		`SELECT completed_at, average_rpe FROM workout_sessions
		 WHERE user_id = $1 AND status = 'completed'
		 ORDER BY completed_at DESC
		 LIMIT 1`,
		userID).Scan(&load.LastCompletedAt, &load.LastAverageRPE)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return load, fmt.Errorf("querying last completed session: %w", err)
	}

	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*)::int FROM workout_sessions
		 WHERE user_id = $1 AND status = 'completed' AND completed_at >= $2`,
		userID, since).Scan(&load.CompletedSince)
	if err != nil {
		return load, fmt.Errorf("counting recent sessions: %w", err)
	}
	return load, nil
}

// ListSessions returns session summaries of the user, newest first.
func (db *DB) ListSessions(ctx context.Context, userID, limit int) ([]models.SessionSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, workout_id, status, started_at, completed_at, duration_seconds,
		 calories_burned, total_volume_kg, completion_percentage, average_rpe
		 FROM workout_sessions
		 WHERE user_id = $1
		 ORDER BY started_at DESC NULLS LAST
		 LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var result []models.SessionSummary
	for rows.Next() {
		var s models.SessionSummary
		var status string
		if err := rows.Scan(&s.ID, &s.WorkoutID, &status, &s.StartedAt, &s.CompletedAt, &s.DurationSeconds,
			&s.CaloriesBurned, &s.TotalVolumeKg, &s.CompletionPercentage, &s.AverageRPE); err != nil {
			return nil, fmt.Errorf("scanning session summary: %w", err)
		}
		s.Status = models.SessionStatus(status)
		result = append(result, s)
	}
	return result, rows.Err()
}
