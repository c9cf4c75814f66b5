package localstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/claude/livereps/internal/models"
)

// GetWorkoutExerciseDefinitions returns the exercises of workoutID in
// position order, or models.ErrWorkoutNotFound.
func (s *Store) GetWorkoutExerciseDefinitions(ctx context.Context, workoutID string) ([]models.ExerciseDefinition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT exercise_id, name, position, target_sets, target_reps, rest_seconds, equipment
		 FROM workout_exercises
		 WHERE workout_id = ?
		 ORDER BY position`,
		workoutID)
	if err != nil {
		return nil, fmt.Errorf("querying workout %q: %w", workoutID, err)
	}
	defer rows.Close()

	var defs []models.ExerciseDefinition
	for rows.Next() {
		var d models.ExerciseDefinition
		if err := rows.Scan(&d.ExerciseID, &d.Name, &d.Position, &d.TargetSets, &d.TargetReps, &d.RestSeconds, &d.Equipment); err != nil {
			return nil, fmt.Errorf("scanning exercise definition: %w", err)
		}
		defs = append(defs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrWorkoutNotFound, workoutID)
	}
	return defs, nil
}

// ReplaceWorkout stores defs as the full definition of workoutID.
func (s *Store) ReplaceWorkout(ctx context.Context, workoutID string, defs []models.ExerciseDefinition) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM workout_exercises WHERE workout_id = ?`, workoutID); err != nil {
			return fmt.Errorf("clearing workout %q: %w", workoutID, err)
		}
		for i, d := range defs {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO workout_exercises (workout_id, position, exercise_id, name, target_sets, target_reps, rest_seconds, equipment)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				workoutID, i, d.ExerciseID, d.Name, d.TargetSets, d.TargetReps, d.RestSeconds, d.Equipment)
			if err != nil {
				return fmt.Errorf("inserting exercise %s of workout %q: %w", d.ExerciseID, workoutID, err)
			}
		}
		return nil
	})
}

// ListWorkouts returns all workout ids in the catalog.
func (s *Store) ListWorkouts(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT workout_id FROM workout_exercises ORDER BY workout_id`)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning workout id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
