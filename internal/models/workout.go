package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrActiveSessionExists is returned by stores when a user already has
	// an in_progress or paused session.
	ErrActiveSessionExists = errors.New("user already has an active session")

	// ErrWorkoutNotFound is returned by catalogs for unknown workout ids.
	ErrWorkoutNotFound = errors.New("workout not found")

	// ErrSessionNotFound is returned when a session id does not exist for the user.
	ErrSessionNotFound = errors.New("session not found")
)

// ExerciseDefinition is one entry of a workout in the catalog.
type ExerciseDefinition struct {
	ExerciseID  string `json:"exercise_id" yaml:"exercise_id"`
	Name        string `json:"name" yaml:"name"`
	Position    int    `json:"position" yaml:"-"`
	TargetSets  int    `json:"target_sets" yaml:"target_sets"`
	TargetReps  *int   `json:"target_reps,omitempty" yaml:"target_reps"`
	RestSeconds int    `json:"rest_seconds" yaml:"rest_seconds"`
	Equipment   string `json:"equipment,omitempty" yaml:"equipment"`
}

// LiveStats are the aggregates derived from a session's exercise logs.
type LiveStats struct {
	DurationSeconds      int     `json:"duration_seconds"`
	ExercisesCompleted   int     `json:"exercises_completed"`
	ExercisesSkipped     int     `json:"exercises_skipped"`
	TotalExercises       int     `json:"total_exercises"`
	SetsCompleted        int     `json:"sets_completed"`
	RepsCompleted        int     `json:"reps_completed"`
	TotalVolumeKg        float64 `json:"total_volume_kg"`
	CaloriesBurned       int     `json:"calories_burned"`
	AverageRPE           float64 `json:"average_rpe"`
	CompletionPercentage int     `json:"completion_percentage"`
	PerformanceScore     int     `json:"performance_score"`
	VsPreviousVolumePct  float64 `json:"vs_previous_volume_pct"`
}

// SessionSummary is a finished or in-flight session without its set logs.
type SessionSummary struct {
	ID                   uuid.UUID     `json:"id"`
	WorkoutID            string        `json:"workout_id"`
	Status               SessionStatus `json:"status"`
	StartedAt            *time.Time    `json:"started_at,omitempty"`
	CompletedAt          *time.Time    `json:"completed_at,omitempty"`
	DurationSeconds      int           `json:"duration_seconds"`
	CaloriesBurned       int           `json:"calories_burned"`
	TotalVolumeKg        float64       `json:"total_volume_kg"`
	CompletionPercentage int           `json:"completion_percentage"`
	AverageRPE           float64       `json:"average_rpe"`
}

// HistoricalSet is a set from a past session, used as a baseline.
type HistoricalSet struct {
	SessionID   uuid.UUID `json:"session_id"`
	ExerciseID  string    `json:"exercise_id"`
	SetNumber   int       `json:"set_number"`
	Reps        int       `json:"reps"`
	WeightKg    *float64  `json:"weight_kg,omitempty"`
	RPE         *int      `json:"rpe,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// LifetimeTotals aggregates all completed sessions of a user.
type LifetimeTotals struct {
	Workouts int     `json:"workouts"`
	Sets     int     `json:"sets"`
	VolumeKg float64 `json:"volume_kg"`
}

// TrainingLoad summarizes recent completed sessions for readiness scoring.
type TrainingLoad struct {
	LastCompletedAt *time.Time `json:"last_completed_at,omitempty"`
	LastAverageRPE  float64    `json:"last_average_rpe"`
	CompletedSince  int        `json:"completed_since"`
}
