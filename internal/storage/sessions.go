package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/livereps/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const sessionColumns = `id, user_id, workout_id, status, started_at, completed_at, last_checkpoint_at,
	active_ms, active_since, rest_ends_at, current_exercise_index, current_set_number,
	total_exercises, rest_periods_skipped, duration_seconds, calories_burned,
	total_volume_kg, completion_percentage, average_rpe`

var (
	activeStatuses    = []string{string(models.StatusInProgress), string(models.StatusPaused)}
	finalizeStatuses  = []string{string(models.StatusInProgress), string(models.StatusPaused), string(models.StatusCompleted)}
	cancelledStatuses = []string{string(models.StatusInProgress), string(models.StatusPaused), string(models.StatusCancelled)}
)

// uniqueViolation is the Postgres SQLSTATE for unique constraint violations.
const uniqueViolation = "23505"

// CreateSession inserts a new live session. It returns
// models.ErrActiveSessionExists when the user already has one.
func (db *DB) CreateSession(ctx context.Context, s *models.Session) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO workout_sessions (`+sessionColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		sessionArgs(s)...)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return models.ErrActiveSessionExists
	}
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// GetActiveSession returns the user's in_progress or paused session with
// all its logs, or nil when there is none.
func (db *DB) GetActiveSession(ctx context.Context, userID int) (*models.Session, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM workout_sessions
		 WHERE user_id = $1 AND status = ANY($2)`,
		userID, activeStatuses)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying active session: %w", err)
	}
	if s.Exercises, err = db.loadExercises(ctx, s.ID); err != nil {
		return nil, err
	}
	return s, nil
}

// GetSession returns one session of the user with all its logs.
func (db *DB) GetSession(ctx context.Context, userID int, id uuid.UUID) (*models.Session, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM workout_sessions WHERE id = $1 AND user_id = $2`,
		id, userID)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session %s: %w", id, err)
	}
	if s.Exercises, err = db.loadExercises(ctx, s.ID); err != nil {
		return nil, err
	}
	return s, nil
}

// CheckpointSession upserts the full snapshot. Set logs already stored
// are left untouched, so replaying a snapshot is harmless. A session that
// has already reached a terminal status is never overwritten.
func (db *DB) CheckpointSession(ctx context.Context, s *models.Session) error {
	ok, err := db.saveSession(ctx, s, activeStatuses)
	if err != nil {
		return fmt.Errorf("checkpointing session %s: %w", s.ID, err)
	}
	if !ok {
		return fmt.Errorf("checkpointing session %s: session is no longer active", s.ID)
	}
	return nil
}

// FinalizeSession writes the completed session with its final stats.
func (db *DB) FinalizeSession(ctx context.Context, s *models.Session) error {
	ok, err := db.saveSession(ctx, s, finalizeStatuses)
	if err != nil {
		return fmt.Errorf("finalizing session %s: %w", s.ID, err)
	}
	if !ok {
		return fmt.Errorf("finalizing session %s: %w", s.ID, models.ErrSessionNotFound)
	}
	return nil
}

// CancelSession writes the cancelled session.
func (db *DB) CancelSession(ctx context.Context, s *models.Session) error {
	ok, err := db.saveSession(ctx, s, cancelledStatuses)
	if err != nil {
		return fmt.Errorf("cancelling session %s: %w", s.ID, err)
	}
	if !ok {
		return fmt.Errorf("cancelling session %s: %w", s.ID, models.ErrSessionNotFound)
	}
	return nil
}

// saveSession upserts the session row, then its exercise and set logs, in
// one transaction. The row is only updated while its stored status is one
// of allowed; otherwise nothing is written and false is returned.
func (db *DB) saveSession(ctx context.Context, s *models.Session, allowed []string) (bool, error) {
	saved := false
	err := pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		args := append(sessionArgs(s), allowed)
		tag, err := tx.Exec(ctx,
			`INSERT INTO workout_sessions (`+sessionColumns+`)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
			 ON CONFLICT (id) DO UPDATE SET
				status = EXCLUDED.status,
				completed_at = EXCLUDED.completed_at,
				last_checkpoint_at = EXCLUDED.last_checkpoint_at,
				active_ms = EXCLUDED.active_ms,
				active_since = EXCLUDED.active_since,
				rest_ends_at = EXCLUDED.rest_ends_at,
				current_exercise_index = EXCLUDED.current_exercise_index,
				current_set_number = EXCLUDED.current_set_number,
				total_exercises = EXCLUDED.total_exercises,
				rest_periods_skipped = EXCLUDED.rest_periods_skipped,
				duration_seconds = EXCLUDED.duration_seconds,
				calories_burned = EXCLUDED.calories_burned,
				total_volume_kg = EXCLUDED.total_volume_kg,
				completion_percentage = EXCLUDED.completion_percentage,
				average_rpe = EXCLUDED.average_rpe
			 WHERE workout_sessions.status = ANY($20)`,
			args...)
		if err != nil {
			return fmt.Errorf("upserting session row: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		saved = true
		return writeLogs(ctx, tx, s)
	})
	return saved, err
}

// writeLogs upserts exercise logs and inserts new set logs as one batch.
func writeLogs(ctx context.Context, tx pgx.Tx, s *models.Session) error {
	if len(s.Exercises) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, l := range s.Exercises {
		batch.Queue(
			`INSERT INTO exercise_logs (session_id, exercise_index, exercise_id, target_sets, target_reps, skipped, skip_reason)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)
			 ON CONFLICT (session_id, exercise_index) DO UPDATE SET
				skipped = EXCLUDED.skipped,
				skip_reason = EXCLUDED.skip_reason`,
			s.ID, l.ExerciseIndex, l.ExerciseID, l.TargetSets, l.TargetReps, l.Skipped, l.SkipReason)
		for _, set := range l.Sets {
			batch.Queue(
				`INSERT INTO set_logs (session_id, exercise_index, set_number, reps_completed,
				 weight_kg, rpe, form_quality, notes, completed_at)
				 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
				 ON CONFLICT DO NOTHING`,
				s.ID, l.ExerciseIndex, set.SetNumber, set.RepsCompleted,
				set.WeightKg, set.RPE, set.FormQuality, set.Notes, set.CompletedAt)
		}
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("writing exercise logs: %w", err)
	}
	return nil
}

// loadExercises reads the exercise logs of a session with their sets, in
// exercise and set order.
func (db *DB) loadExercises(ctx context.Context, sessionID uuid.UUID) ([]models.ExerciseLog, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT exercise_index, exercise_id, target_sets, target_reps, skipped, skip_reason
		 FROM exercise_logs
		 WHERE session_id = $1
		 ORDER BY exercise_index`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying exercise logs: %w", err)
	}
	defer rows.Close()

	var logs []models.ExerciseLog
	byIndex := make(map[int]int)
	for rows.Next() {
		var l models.ExerciseLog
		if err := rows.Scan(&l.ExerciseIndex, &l.ExerciseID, &l.TargetSets, &l.TargetReps, &l.Skipped, &l.SkipReason); err != nil {
			return nil, fmt.Errorf("scanning exercise log: %w", err)
		}
		byIndex[l.ExerciseIndex] = len(logs)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	setRows, err := db.Pool.Query(ctx,
		`SELECT exercise_index, set_number, reps_completed, weight_kg, rpe, form_quality, notes, completed_at
		 FROM set_logs
		 WHERE session_id = $1
		 ORDER BY exercise_index, set_number`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying set logs: %w", err)
	}
	defer setRows.Close()

	for setRows.Next() {
		var idx int
		var set models.SetLog
		if err := setRows.Scan(&idx, &set.SetNumber, &set.RepsCompleted, &set.WeightKg,
			&set.RPE, &set.FormQuality, &set.Notes, &set.CompletedAt); err != nil {
			return nil, fmt.Errorf("scanning set log: %w", err)
		}
		if i, ok := byIndex[idx]; ok {
			logs[i].Sets = append(logs[i].Sets, set)
		}
	}
	return logs, setRows.Err()
}

func sessionArgs(s *models.Session) []any {
	return []any{
		s.ID, s.UserID, s.WorkoutID, string(s.Status), s.StartedAt, s.CompletedAt, s.LastCheckpointAt,
		s.ActiveMillis, s.ActiveSince, s.RestEndsAt, s.CurrentExerciseIndex, s.CurrentSetNumber,
		s.TotalExercises, s.RestPeriodsSkipped, s.DurationSeconds, s.CaloriesBurned,
		s.TotalVolumeKg, s.CompletionPercentage, s.AverageRPE,
	}
}

func scanSession(row pgx.Row) (*models.Session, error) {
	var s models.Session
	var status string
	err := row.Scan(&s.ID, &s.UserID, &s.WorkoutID, &status, &s.StartedAt, &s.CompletedAt, &s.LastCheckpointAt,
		&s.ActiveMillis, &s.ActiveSince, &s.RestEndsAt, &s.CurrentExerciseIndex, &s.CurrentSetNumber,
		&s.TotalExercises, &s.RestPeriodsSkipped, &s.DurationSeconds, &s.CaloriesBurned,
		&s.TotalVolumeKg, &s.CompletionPercentage, &s.AverageRPE)
	if err != nil {
		return nil, err
	}
	s.Status = models.SessionStatus(status)
	return &s, nil
}
