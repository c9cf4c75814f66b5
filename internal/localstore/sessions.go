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

const sessionColumns = `id, user_id, workout_id, status, started_at, completed_at, last_checkpoint_at,
	active_ms, active_since, rest_ends_at, current_exercise_index, current_set_number,
	total_exercises, rest_periods_skipped, duration_seconds, calories_burned,
	total_volume_kg, completion_percentage, average_rpe`

const sessionColumnCount = 19

var (
	activeStatuses    = []any{string(models.StatusInProgress), string(models.StatusPaused)}
	finalizeStatuses  = []any{string(models.StatusInProgress), string(models.StatusPaused), string(models.StatusCompleted)}
	cancelledStatuses = []any{string(models.StatusInProgress), string(models.StatusPaused), string(models.StatusCancelled)}
)

// CreateSession inserts a new live session. It returns
// models.ErrActiveSessionExists when the user already has one.
func (s *Store) CreateSession(ctx context.Context, sess *models.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workout_sessions (`+sessionColumns+`) VALUES (`+placeholders(sessionColumnCount)+`)`,
		sessionArgs(sess)...)
	if isUniqueViolation(err) {
		return models.ErrActiveSessionExists
	}
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// GetActiveSession returns the user's in_progress or paused session with
// all its logs, or nil when there is none.
func (s *Store) GetActiveSession(ctx context.Context, userID int) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM workout_sessions
		 WHERE user_id = ? AND status IN (?, ?)`,
		userID, activeStatuses[0], activeStatuses[1])
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying active session: %w", err)
	}
	if sess.Exercises, err = s.loadExercises(ctx, sess.ID); err != nil {
		return nil, err
	}
	return sess, nil
}

// GetSession returns one session of the user with all its logs.
func (s *Store) GetSession(ctx context.Context, userID int, id uuid.UUID) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM workout_sessions WHERE id = ? AND user_id = ?`,
		id, userID)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session %s: %w", id, err)
	}
	if sess.Exercises, err = s.loadExercises(ctx, sess.ID); err != nil {
		return nil, err
	}
	return sess, nil
}

// CheckpointSession upserts the full snapshot without overwriting stored
// set logs or terminal sessions.
func (s *Store) CheckpointSession(ctx context.Context, sess *models.Session) error {
	ok, err := s.saveSession(ctx, sess, activeStatuses)
	if err != nil {
		return fmt.Errorf("checkpointing session %s: %w", sess.ID, err)
	}
	if !ok {
		return fmt.Errorf("checkpointing session %s: session is no longer active", sess.ID)
	}
	return nil
}

// FinalizeSession writes the completed session with its final stats.
func (s *Store) FinalizeSession(ctx context.Context, sess *models.Session) error {
	ok, err := s.saveSession(ctx, sess, finalizeStatuses)
	if err != nil {
		return fmt.Errorf("finalizing session %s: %w", sess.ID, err)
	}
	if !ok {
		return fmt.Errorf("finalizing session %s: %w", sess.ID, models.ErrSessionNotFound)
	}
	return nil
}

// CancelSession writes the cancelled session.
func (s *Store) CancelSession(ctx context.Context, sess *models.Session) error {
	ok, err := s.saveSession(ctx, sess, cancelledStatuses)
	if err != nil {
		return fmt.Errorf("cancelling session %s: %w", sess.ID, err)
	}
	if !ok {
		return fmt.Errorf("cancelling session %s: %w", sess.ID, models.ErrSessionNotFound)
	}
	return nil
}

func (s *Store) saveSession(ctx context.Context, sess *models.Session, allowed []any) (bool, error) {
	saved := false
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		args := append(sessionArgs(sess), allowed...)
		res, err := tx.ExecContext(ctx,
			`INSERT INTO workout_sessions (`+sessionColumns+`) VALUES (`+placeholders(sessionColumnCount)+`)
			 ON CONFLICT (id) DO UPDATE SET
				status = excluded.status,
				completed_at = excluded.completed_at,
				last_checkpoint_at = excluded.last_checkpoint_at,
				active_ms = excluded.active_ms,
				active_since = excluded.active_since,
				rest_ends_at = excluded.rest_ends_at,
				current_exercise_index = excluded.current_exercise_index,
				current_set_number = excluded.current_set_number,
				total_exercises = excluded.total_exercises,
				rest_periods_skipped = excluded.rest_periods_skipped,
				duration_seconds = excluded.duration_seconds,
				calories_burned = excluded.calories_burned,
				total_volume_kg = excluded.total_volume_kg,
				completion_percentage = excluded.completion_percentage,
				average_rpe = excluded.average_rpe
			 WHERE workout_sessions.status IN (`+placeholders(len(allowed))+`)`,
			args...)
		if err != nil {
			return fmt.Errorf("upserting session row: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		saved = true
		return writeLogs(ctx, tx, sess)
	})
	return saved, err
}

func writeLogs(ctx context.Context, tx *sql.Tx, sess *models.Session) error {
	for _, l := range sess.Exercises {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO exercise_logs (session_id, exercise_index, exercise_id, target_sets, target_reps, skipped, skip_reason)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (session_id, exercise_index) DO UPDATE SET
				skipped = excluded.skipped,
				skip_reason = excluded.skip_reason`,
			sess.ID, l.ExerciseIndex, l.ExerciseID, l.TargetSets, l.TargetReps, l.Skipped, l.SkipReason)
		if err != nil {
			return fmt.Errorf("upserting exercise log %d: %w", l.ExerciseIndex, err)
		}
		for _, set := range l.Sets {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO set_logs (session_id, exercise_index, set_number, reps_completed,
				 weight_kg, rpe, form_quality, notes, completed_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
				 ON CONFLICT DO NOTHING`,
				sess.ID, l.ExerciseIndex, set.SetNumber, set.RepsCompleted,
				set.WeightKg, set.RPE, set.FormQuality, set.Notes, set.CompletedAt.UnixMilli())
			if err != nil {
				return fmt.Errorf("inserting set %d of exercise %d: %w", set.SetNumber, l.ExerciseIndex, err)
			}
		}
	}
	return nil
}

func (s *Store) loadExercises(ctx context.Context, sessionID uuid.UUID) ([]models.ExerciseLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT exercise_index, exercise_id, target_sets, target_reps, skipped, skip_reason
		 FROM exercise_logs WHERE session_id = ? ORDER BY exercise_index`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying exercise logs: %w", err)
	}
	var logs []models.ExerciseLog
	byIndex := make(map[int]int)
	for rows.Next() {
		var l models.ExerciseLog
		if err := rows.Scan(&l.ExerciseIndex, &l.ExerciseID, &l.TargetSets, &l.TargetReps, &l.Skipped, &l.SkipReason); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning exercise log: %w", err)
		}
		byIndex[l.ExerciseIndex] = len(logs)
		logs = append(logs, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	setRows, err := s.db.QueryContext(ctx,
		`SELECT exercise_index, set_number, reps_completed, weight_kg, rpe, form_quality, notes, completed_at
		 FROM set_logs WHERE session_id = ? ORDER BY exercise_index, set_number`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying set logs: %w", err)
	}
	defer setRows.Close()

	for setRows.Next() {
		var idx int
		var at int64
		var set models.SetLog
		if err := setRows.Scan(&idx, &set.SetNumber, &set.RepsCompleted, &set.WeightKg,
			&set.RPE, &set.FormQuality, &set.Notes, &at); err != nil {
			return nil, fmt.Errorf("scanning set log: %w", err)
		}
		set.CompletedAt = time.UnixMilli(at).UTC()
		if i, ok := byIndex[idx]; ok {
			logs[i].Sets = append(logs[i].Sets, set)
		}
	}
	return logs, setRows.Err()
}

func sessionArgs(sess *models.Session) []any {
	return []any{
		sess.ID, sess.UserID, sess.WorkoutID, string(sess.Status),
		millis(sess.StartedAt), millis(sess.CompletedAt), millis(sess.LastCheckpointAt),
		sess.ActiveMillis, millis(sess.ActiveSince), millis(sess.RestEndsAt),
		sess.CurrentExerciseIndex, sess.CurrentSetNumber,
		sess.TotalExercises, sess.RestPeriodsSkipped, sess.DurationSeconds, sess.CaloriesBurned,
		sess.TotalVolumeKg, sess.CompletionPercentage, sess.AverageRPE,
	}
}

func scanSession(row *sql.Row) (*models.Session, error) {
	var sess models.Session
	var status string
	var started, completed, checkpoint, activeSince, restEnds sql.NullInt64
	err := row.Scan(&sess.ID, &sess.UserID, &sess.WorkoutID, &status, &started, &completed, &checkpoint,
		&sess.ActiveMillis, &activeSince, &restEnds, &sess.CurrentExerciseIndex, &sess.CurrentSetNumber,
		&sess.TotalExercises, &sess.RestPeriodsSkipped, &sess.DurationSeconds, &sess.CaloriesBurned,
		&sess.TotalVolumeKg, &sess.CompletionPercentage, &sess.AverageRPE)
	if err != nil {
		return nil, err
	}
	sess.Status = models.SessionStatus(status)
	sess.StartedAt = fromMillis(started)
	sess.CompletedAt = fromMillis(completed)
	sess.LastCheckpointAt = fromMillis(checkpoint)
	sess.ActiveSince = fromMillis(activeSince)
	sess.RestEndsAt = fromMillis(restEnds)
	return &sess, nil
}
