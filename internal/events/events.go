// Package events publishes session state changes to the UI layer.
package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/claude/livereps/internal/models"
	"github.com/google/uuid"
)

type Type string

const (
	SessionStarted       Type = "session_started"
	SessionRecovered     Type = "session_recovered"
	SessionPaused        Type = "session_paused"
	SessionResumed       Type = "session_resumed"
	SetCompleted         Type = "set_completed"
	RestStarted          Type = "rest_started"
	RestExtended         Type = "rest_extended"
	RestSkipped          Type = "rest_skipped"
	RestFinished         Type = "rest_finished"
	ExerciseSkipped      Type = "exercise_skipped"
	ExerciseChanged      Type = "exercise_changed"
	SessionCompleted     Type = "session_completed"
	SessionCancelled     Type = "session_cancelled"
	AchievementsUnlocked Type = "achievements_unlocked"
)

// Event is a single state change of a live session.
type Event struct {
	Type                 Type                 `json:"type"`
	SessionID            uuid.UUID            `json:"session_id"`
	UserID               int                  `json:"user_id"`
	WorkoutID            string               `json:"workout_id"`
	Phase                string               `json:"phase"`
	At                   time.Time            `json:"at"`
	CurrentExerciseIndex int                  `json:"current_exercise_index"`
	CurrentSetNumber     int                  `json:"current_set_number"`
	RestEndsAt           *time.Time           `json:"rest_ends_at,omitempty"`
	Stats                models.LiveStats     `json:"stats"`
	Set                  *models.SetLog       `json:"set,omitempty"`
	Achievements         []models.Achievement `json:"achievements,omitempty"`
}

// Sink receives session events.
type Sink interface {
	Publish(ctx context.Context, ev Event) error
}

// Discard drops all events.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }

// LogSink writes events to a structured logger at debug level.
type LogSink struct {
	log *slog.Logger
}

func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Publish(ctx context.Context, ev Event) error {
	s.log.DebugContext(ctx, "session event",
		"type", ev.Type,
		"session_id", ev.SessionID,
		"user_id", ev.UserID,
		"phase", ev.Phase,
		"exercise_index", ev.CurrentExerciseIndex,
		"set_number", ev.CurrentSetNumber,
	)
	return nil
}

// Fanout publishes to every sink and joins their errors.
type Fanout []Sink

func (f Fanout) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range f {
		if err := s.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
