// Package catalog provides read-only workout definitions to the session
// runtime: from a YAML file, from the database, or through a cache.
package catalog

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/claude/livereps/internal/models"
	"gopkg.in/yaml.v3"
)

// Source returns the ordered exercises of a workout. Unknown workouts
// return an error wrapping models.ErrWorkoutNotFound.
type Source interface {
	GetWorkoutExerciseDefinitions(ctx context.Context, workoutID string) ([]models.ExerciseDefinition, error)
}

type fileFormat struct {
	Workouts map[string][]models.ExerciseDefinition `yaml:"workouts"`
}

// File is a catalog loaded from a YAML document of the form
//
//	workouts:
//	  push-a:
//	    - exercise_id: bench
//	      name: Bench Press
//	      target_sets: 3
//	      target_reps: 10
//	      rest_seconds: 120
type File struct {
	workouts map[string][]models.ExerciseDefinition
}

// LoadFile reads and validates the catalog at path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog. Positions are assigned from list order.
func Parse(data []byte) (*File, error) {
	var ff fileFormat
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if len(ff.Workouts) == 0 {
		return nil, fmt.Errorf("catalog defines no workouts")
	}
	for id, defs := range ff.Workouts {
		if len(defs) == 0 {
			return nil, fmt.Errorf("workout %q has no exercises", id)
		}
		for i := range defs {
			d := &defs[i]
			d.Position = i
			if d.ExerciseID == "" {
				return nil, fmt.Errorf("workout %q: exercise %d has no exercise_id", id, i)
			}
			if d.TargetSets < 1 {
				return nil, fmt.Errorf("workout %q: exercise %s: target_sets must be >= 1", id, d.ExerciseID)
			}
			if d.TargetReps != nil && *d.TargetReps < 1 {
				return nil, fmt.Errorf("workout %q: exercise %s: target_reps must be >= 1", id, d.ExerciseID)
			}
			if d.RestSeconds < 0 {
				return nil, fmt.Errorf("workout %q: exercise %s: rest_seconds must be >= 0", id, d.ExerciseID)
			}
		}
	}
	return &File{workouts: ff.Workouts}, nil
}

// GetWorkoutExerciseDefinitions returns a copy of the workout's exercises.
func (f *File) GetWorkoutExerciseDefinitions(_ context.Context, workoutID string) ([]models.ExerciseDefinition, error) {
	defs, ok := f.workouts[workoutID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrWorkoutNotFound, workoutID)
	}
	out := make([]models.ExerciseDefinition, len(defs))
	copy(out, defs)
	return out, nil
}

// WorkoutIDs returns the ids of all workouts in sorted order.
func (f *File) WorkoutIDs() []string {
	ids := make([]string, 0, len(f.workouts))
	for id := range f.workouts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Writer stores a workout definition, replacing any previous one.
type Writer interface {
	ReplaceWorkout(ctx context.Context, workoutID string, defs []models.ExerciseDefinition) error
}

// Seed copies every workout of f into w and returns how many were written.
func Seed(ctx context.Context, f *File, w Writer) (int, error) {
	n := 0
	for _, id := range f.WorkoutIDs() {
		if err := w.ReplaceWorkout(ctx, id, f.workouts[id]); err != nil {
			return n, fmt.Errorf("seeding workout %q: %w", id, err)
		}
		n++
	}
	return n, nil
}
