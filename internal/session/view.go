package session

import (
	"context"
	"time"

	"github.com/claude/livereps/internal/models"
	"github.com/claude/livereps/internal/rest"
	"github.com/google/uuid"
)

// View is a read-only snapshot of a live session for display.
type View struct {
	SessionID            uuid.UUID                   `json:"session_id"`
	UserID               int                         `json:"user_id"`
	WorkoutID            string                      `json:"workout_id"`
	Phase                Phase                       `json:"phase"`
	Status               models.SessionStatus        `json:"status"`
	StartedAt            *time.Time                  `json:"started_at,omitempty"`
	CompletedAt          *time.Time                  `json:"completed_at,omitempty"`
	CurrentExerciseIndex int                         `json:"current_exercise_index"`
	CurrentSetNumber     int                         `json:"current_set_number"`
	CurrentExercise      *models.ExerciseDefinition  `json:"current_exercise,omitempty"`
	ExerciseDone         bool                        `json:"exercise_done"`
	CanGoPrevious        bool                        `json:"can_go_previous"`
	CanGoNext            bool                        `json:"can_go_next"`
	ActiveSeconds        int                         `json:"active_seconds"`
	RestEndsAt           *time.Time                  `json:"rest_ends_at,omitempty"`
	RestRemainingSeconds int                         `json:"rest_remaining_seconds"`
	LastRest             *rest.Calculation           `json:"last_rest,omitempty"`
	Stats                models.LiveStats            `json:"stats"`
	Exercises            []models.ExerciseLog        `json:"exercises"`
	Workout              []models.ExerciseDefinition `json:"workout"`
}

// View returns the current state of h. An expired rest countdown is
// applied first, so the returned phase is never a stale resting.
func (m *Machine) View(ctx context.Context, h *Handle) View {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := m.now()
	if !h.phase.Terminal() {
		m.expireRest(ctx, h, now)
		h.refreshStats(now)
	}

	s := h.session.Clone()
	v := View{
		SessionID:            s.ID,
		UserID:               s.UserID,
		WorkoutID:            s.WorkoutID,
		Phase:                h.phase,
		Status:               s.Status,
		StartedAt:            s.StartedAt,
		CompletedAt:          s.CompletedAt,
		CurrentExerciseIndex: s.CurrentExerciseIndex,
		CurrentSetNumber:     s.CurrentSetNumber,
		ActiveSeconds:        int(s.ActiveElapsed(now) / time.Second),
		RestEndsAt:           s.RestEndsAt,
		Stats:                h.stats,
		Exercises:            s.Exercises,
		Workout:              append([]models.ExerciseDefinition(nil), h.defs...),
	}
	if h.phase == PhaseInProgress {
		v.CanGoPrevious = s.CurrentExerciseIndex > 0
		v.CanGoNext = s.CurrentExerciseIndex < len(h.defs)-1
	}
	if s.CurrentExerciseIndex >= 0 && s.CurrentExerciseIndex < len(h.defs) {
		def := h.defs[s.CurrentExerciseIndex]
		v.CurrentExercise = &def
	}
	if l := s.ExerciseLog(s.CurrentExerciseIndex); l != nil {
		v.ExerciseDone = l.Done()
	}
	if s.RestEndsAt != nil {
		v.RestRemainingSeconds = max(0, int(s.RestEndsAt.Sub(now).Round(time.Second)/time.Second))
	}
	if h.lastRest != nil {
		lr := *h.lastRest
		v.LastRest = &lr
	}
	return v
}
