package models

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the persisted lifecycle status of a workout session.
type SessionStatus string

const (
	StatusScheduled  SessionStatus = "scheduled"
	StatusInProgress SessionStatus = "in_progress"
	StatusPaused     SessionStatus = "paused"
	StatusCompleted  SessionStatus = "completed"
	StatusCancelled  SessionStatus = "cancelled"
)

// IsActive reports whether the status counts toward the one-active-session limit.
func (s SessionStatus) IsActive() bool {
	return s == StatusInProgress || s == StatusPaused
}

// IsTerminal reports whether no further transitions are possible.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusPaused, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// SkipReason explains why an exercise was skipped.
type SkipReason string

const (
	SkipEquipment  SkipReason = "equipment"
	SkipInjury     SkipReason = "injury"
	SkipFatigue    SkipReason = "fatigue"
	SkipDifficulty SkipReason = "difficulty"
	SkipOther      SkipReason = "other"
)

// ParseSkipReason converts a raw string into a SkipReason.
func ParseSkipReason(s string) (SkipReason, error) {
	switch r := SkipReason(s); r {
	case SkipEquipment, SkipInjury, SkipFatigue, SkipDifficulty, SkipOther:
		return r, nil
	}
	return "", fmt.Errorf("unknown skip reason %q", s)
}

// SetInput is the user-supplied data for a completed set.
type SetInput struct {
	Reps        int      `json:"reps_completed"`
	WeightKg    *float64 `json:"weight_kg,omitempty"`
	RPE         *int     `json:"rpe,omitempty"`
	FormQuality *int     `json:"form_quality,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
}

// Validate checks the field ranges of a set.
func (in SetInput) Validate() error {
	var errs []error
	if in.Reps <= 0 {
		errs = append(errs, fmt.Errorf("reps_completed must be > 0, got %d", in.Reps))
	}
	if in.WeightKg != nil && *in.WeightKg < 0 {
		errs = append(errs, fmt.Errorf("weight_kg must be >= 0, got %g", *in.WeightKg))
	}
	if in.RPE != nil && (*in.RPE < 1 || *in.RPE > 10) {
		errs = append(errs, fmt.Errorf("rpe must be in 1..10, got %d", *in.RPE))
	}
	if in.FormQuality != nil && (*in.FormQuality < 1 || *in.FormQuality > 5) {
		errs = append(errs, fmt.Errorf("form_quality must be in 1..5, got %d", *in.FormQuality))
	}
	return errors.Join(errs...)
}

// SetLog is one completed set inside an exercise log.
type SetLog struct {
	SetNumber     int       `json:"set_number"`
	RepsCompleted int       `json:"reps_completed"`
	WeightKg      *float64  `json:"weight_kg,omitempty"`
	RPE           *int      `json:"rpe,omitempty"`
	FormQuality   *int      `json:"form_quality,omitempty"`
	Notes         *string   `json:"notes,omitempty"`
	CompletedAt   time.Time `json:"completed_at"`
}

// Volume is reps × weight, or 0 when no weight was recorded.
func (s SetLog) Volume() float64 {
	if s.WeightKg == nil {
		return 0
	}
	return float64(s.RepsCompleted) * *s.WeightKg
}

// ExerciseLog tracks progress for one exercise of the workout.
// ExerciseIndex is the exercise's position in the workout definition.
type ExerciseLog struct {
	ExerciseIndex int         `json:"exercise_index"`
	ExerciseID    string      `json:"exercise_id"`
	TargetSets    int         `json:"target_sets"`
	TargetReps    *int        `json:"target_reps,omitempty"`
	Skipped       bool        `json:"skipped"`
	SkipReason    *SkipReason `json:"skip_reason,omitempty"`
	Sets          []SetLog    `json:"sets"`
}

// NextSetNumber returns the number the next appended set will carry.
func (e *ExerciseLog) NextSetNumber() int {
	if len(e.Sets) == 0 {
		return 1
	}
	return e.Sets[len(e.Sets)-1].SetNumber + 1
}

// AppendSet validates in and appends it as the next set.
func (e *ExerciseLog) AppendSet(in SetInput, at time.Time) (SetLog, error) {
	if e.Skipped {
		return SetLog{}, fmt.Errorf("exercise %s was skipped", e.ExerciseID)
	}
	if err := in.Validate(); err != nil {
		return SetLog{}, err
	}
	set := SetLog{
		SetNumber:     e.NextSetNumber(),
		RepsCompleted: in.Reps,
		WeightKg:      in.WeightKg,
		RPE:           in.RPE,
		FormQuality:   in.FormQuality,
		Notes:         in.Notes,
		CompletedAt:   at,
	}
	e.Sets = append(e.Sets, set)
	return set, nil
}

// MarkSkipped flags the exercise as skipped with the given reason.
func (e *ExerciseLog) MarkSkipped(reason SkipReason) {
	e.Skipped = true
	e.SkipReason = &reason
}

// Done reports whether all target sets have been logged.
func (e *ExerciseLog) Done() bool {
	if e.Skipped {
		return false
	}
	target := e.TargetSets
	if target < 1 {
		target = 1
	}
	return len(e.Sets) >= target
}

// Session is a live or historical workout session.
//
// Active time is ActiveMillis (closed intervals) plus now − ActiveSince
// when an interval is open. ActiveSince is nil while paused and after
// completion. RestEndsAt is set only while a rest countdown runs.
type Session struct {
	ID                   uuid.UUID     `json:"id"`
	UserID               int           `json:"user_id"`
	WorkoutID            string        `json:"workout_id"`
	Status               SessionStatus `json:"status"`
	StartedAt            *time.Time    `json:"started_at,omitempty"`
	CompletedAt          *time.Time    `json:"completed_at,omitempty"`
	LastCheckpointAt     *time.Time    `json:"last_checkpoint_at,omitempty"`
	ActiveMillis         int64         `json:"active_ms"`
	ActiveSince          *time.Time    `json:"active_since,omitempty"`
	RestEndsAt           *time.Time    `json:"rest_ends_at,omitempty"`
	CurrentExerciseIndex int           `json:"current_exercise_index"`
	CurrentSetNumber     int           `json:"current_set_number"`
	TotalExercises       int           `json:"total_exercises"`
	RestPeriodsSkipped   int           `json:"rest_periods_skipped"`

	DurationSeconds      int     `json:"duration_seconds"`
	CaloriesBurned       int     `json:"calories_burned"`
	TotalVolumeKg        float64 `json:"total_volume_kg"`
	CompletionPercentage int     `json:"completion_percentage"`
	AverageRPE           float64 `json:"average_rpe"`

	Exercises []ExerciseLog `json:"exercises"`
}

// ActiveElapsed returns the accumulated non-paused time as of now.
func (s *Session) ActiveElapsed(now time.Time) time.Duration {
	d := time.Duration(s.ActiveMillis) * time.Millisecond
	if s.ActiveSince != nil && now.After(*s.ActiveSince) {
		d += now.Sub(*s.ActiveSince)
	}
	return d
}

// OpenActiveInterval starts accruing active time at now.
func (s *Session) OpenActiveInterval(now time.Time) {
	if s.ActiveSince != nil {
		return
	}
	t := now
	s.ActiveSince = &t
}

// CloseActiveInterval folds the open interval, if any, into ActiveMillis at now.
func (s *Session) CloseActiveInterval(now time.Time) {
	if s.ActiveSince == nil {
		return
	}
	if now.After(*s.ActiveSince) {
		s.ActiveMillis += now.Sub(*s.ActiveSince).Milliseconds()
	}
	s.ActiveSince = nil
}

// ExerciseLog returns the log at the given workout position, or nil.
func (s *Session) ExerciseLog(index int) *ExerciseLog {
	for i := range s.Exercises {
		if s.Exercises[i].ExerciseIndex == index {
			return &s.Exercises[i]
		}
	}
	return nil
}

// EnsureExerciseLog returns the log for def at index, creating it if needed.
// Logs stay ordered by ExerciseIndex.
func (s *Session) EnsureExerciseLog(index int, def ExerciseDefinition) *ExerciseLog {
	if l := s.ExerciseLog(index); l != nil {
		return l
	}
	s.Exercises = append(s.Exercises, ExerciseLog{
		ExerciseIndex: index,
		ExerciseID:    def.ExerciseID,
		TargetSets:    def.TargetSets,
		TargetReps:    def.TargetReps,
	})
	sort.Slice(s.Exercises, func(i, j int) bool {
		return s.Exercises[i].ExerciseIndex < s.Exercises[j].ExerciseIndex
	})
	return s.ExerciseLog(index)
}

// ApplyStats copies the denormalized aggregates from st onto the session.
func (s *Session) ApplyStats(st LiveStats) {
	s.DurationSeconds = st.DurationSeconds
	s.CaloriesBurned = st.CaloriesBurned
	s.TotalVolumeKg = st.TotalVolumeKg
	s.CompletionPercentage = st.CompletionPercentage
	s.AverageRPE = st.AverageRPE
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s *Session) Clone() *Session {
	c := *s
	c.StartedAt = cloneTime(s.StartedAt)
	c.CompletedAt = cloneTime(s.CompletedAt)
	c.LastCheckpointAt = cloneTime(s.LastCheckpointAt)
	c.ActiveSince = cloneTime(s.ActiveSince)
	c.RestEndsAt = cloneTime(s.RestEndsAt)
	if s.Exercises != nil {
		c.Exercises = make([]ExerciseLog, len(s.Exercises))
		for i, e := range s.Exercises {
			ce := e
			if e.Sets != nil {
				ce.Sets = make([]SetLog, len(e.Sets))
				copy(ce.Sets, e.Sets)
			}
			if e.SkipReason != nil {
				r := *e.SkipReason
				ce.SkipReason = &r
			}
			c.Exercises[i] = ce
		}
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
