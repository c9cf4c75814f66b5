package models

import (
	"testing"
	"time"
)

func ptr[T any](v T) *T { return &v }

// TestSetInputValidate verifies field range checks for user-entered sets.
func TestSetInputValidate(t *testing.T) {
	tests := []struct {
		name    string
		in      SetInput
		wantErr bool
	}{
		{"minimal", SetInput{Reps: 1}, false},
		{"full", SetInput{Reps: 10, WeightKg: ptr(50.0), RPE: ptr(8), FormQuality: ptr(4), Notes: ptr("ok")}, false},
		{"bodyweight zero kg", SetInput{Reps: 12, WeightKg: ptr(0.0)}, false},
		{"zero reps", SetInput{Reps: 0}, true},
		{"negative reps", SetInput{Reps: -3}, true},
		{"negative weight", SetInput{Reps: 5, WeightKg: ptr(-1.0)}, true},
		{"rpe too low", SetInput{Reps: 5, RPE: ptr(0)}, true},
		{"rpe too high", SetInput{Reps: 5, RPE: ptr(11)}, true},
		{"form too high", SetInput{Reps: 5, FormQuality: ptr(6)}, true},
		{"form too low", SetInput{Reps: 5, FormQuality: ptr(0)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestSetVolume verifies volume is reps × weight and zero without weight.
func TestSetVolume(t *testing.T) {
	if v := (SetLog{RepsCompleted: 10, WeightKg: ptr(50.0)}).Volume(); v != 500 {
		t.Errorf("volume = %v, want 500", v)
	}
	if v := (SetLog{RepsCompleted: 10}).Volume(); v != 0 {
		t.Errorf("volume without weight = %v, want 0", v)
	}
}

// TestAppendSetNumbering verifies set numbers increase strictly and are
// never reused, even when the first recorded number is not 1.
func TestAppendSetNumbering(t *testing.T) {
	log := &ExerciseLog{ExerciseID: "squat", TargetSets: 3}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 1; i <= 3; i++ {
		set, err := log.AppendSet(SetInput{Reps: 5}, now)
		if err != nil {
			t.Fatalf("AppendSet: %v", err)
		}
		if set.SetNumber != i {
			t.Errorf("set %d numbered %d", i, set.SetNumber)
		}
	}
	if !log.Done() {
		t.Error("Done() = false after target sets logged")
	}

	// Rejected input must not consume a number.
	if _, err := log.AppendSet(SetInput{Reps: 0}, now); err == nil {
		t.Fatal("expected validation error")
	}
	if got := log.NextSetNumber(); got != 4 {
		t.Errorf("NextSetNumber = %d, want 4", got)
	}

	recovered := &ExerciseLog{Sets: []SetLog{{SetNumber: 2}, {SetNumber: 5}}}
	if got := recovered.NextSetNumber(); got != 6 {
		t.Errorf("NextSetNumber after gap = %d, want 6", got)
	}
}

// TestAppendSetSkipped verifies sets cannot be added to a skipped exercise.
func TestAppendSetSkipped(t *testing.T) {
	log := &ExerciseLog{ExerciseID: "row", TargetSets: 3}
	log.MarkSkipped(SkipInjury)
	if _, err := log.AppendSet(SetInput{Reps: 5}, time.Now()); err == nil {
		t.Fatal("expected error appending to skipped exercise")
	}
	if log.Done() {
		t.Error("skipped exercise reported Done")
	}
	if log.SkipReason == nil || *log.SkipReason != SkipInjury {
		t.Errorf("skip reason = %v, want injury", log.SkipReason)
	}
}

// TestParseSkipReason verifies known reasons parse and unknown ones fail.
func TestParseSkipReason(t *testing.T) {
	for _, s := range []string{"equipment", "injury", "fatigue", "difficulty", "other"} {
		if _, err := ParseSkipReason(s); err != nil {
			t.Errorf("ParseSkipReason(%q): %v", s, err)
		}
	}
	if _, err := ParseSkipReason("bored"); err == nil {
		t.Error("expected error for unknown reason")
	}
}

// TestActiveIntervals verifies that paused time is excluded from active time.
func TestActiveIntervals(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := &Session{}
	s.OpenActiveInterval(t0)
	s.OpenActiveInterval(t0.Add(time.Minute)) // no-op while open

	if got := s.ActiveElapsed(t0.Add(90 * time.Second)); got != 90*time.Second {
		t.Errorf("elapsed while open = %v, want 90s", got)
	}

	s.CloseActiveInterval(t0.Add(2 * time.Minute))
	if got := s.ActiveElapsed(t0.Add(10 * time.Minute)); got != 2*time.Minute {
		t.Errorf("elapsed while paused = %v, want 2m", got)
	}

	s.OpenActiveInterval(t0.Add(10 * time.Minute))
	if got := s.ActiveElapsed(t0.Add(11 * time.Minute)); got != 3*time.Minute {
		t.Errorf("elapsed after resume = %v, want 3m", got)
	}
}

// TestEnsureExerciseLogOrdering verifies lazily created logs stay sorted
// by workout position.
func TestEnsureExerciseLogOrdering(t *testing.T) {
	s := &Session{}
	s.EnsureExerciseLog(2, ExerciseDefinition{ExerciseID: "c", TargetSets: 3})
	s.EnsureExerciseLog(0, ExerciseDefinition{ExerciseID: "a", TargetSets: 3})
	l := s.EnsureExerciseLog(2, ExerciseDefinition{ExerciseID: "ignored"})

	if l.ExerciseID != "c" {
		t.Errorf("existing log replaced: got %q", l.ExerciseID)
	}
	if len(s.Exercises) != 2 || s.Exercises[0].ExerciseIndex != 0 || s.Exercises[1].ExerciseIndex != 2 {
		t.Errorf("logs not ordered: %+v", s.Exercises)
	}
}

// TestCloneIsDeep verifies mutations on a clone never reach the original.
func TestCloneIsDeep(t *testing.T) {
	now := time.Now()
	s := &Session{StartedAt: &now, Exercises: []ExerciseLog{{ExerciseID: "a", Sets: []SetLog{{SetNumber: 1}}}}}
	c := s.Clone()

	c.Exercises[0].Sets = append(c.Exercises[0].Sets, SetLog{SetNumber: 2})
	c.Exercises[0].Sets[0].RepsCompleted = 99
	c.Exercises[0].MarkSkipped(SkipOther)
	*c.StartedAt = now.Add(time.Hour)

	if len(s.Exercises[0].Sets) != 1 || s.Exercises[0].Sets[0].RepsCompleted != 0 {
		t.Error("clone shares set slice with original")
	}
	if s.Exercises[0].Skipped {
		t.Error("clone shares exercise log with original")
	}
	if !s.StartedAt.Equal(now) {
		t.Error("clone shares started_at pointer")
	}
}

// TestStatusPredicates verifies active/terminal classification.
func TestStatusPredicates(t *testing.T) {
	if !StatusInProgress.IsActive() || !StatusPaused.IsActive() {
		t.Error("in_progress and paused must be active")
	}
	if StatusCompleted.IsActive() || StatusScheduled.IsActive() {
		t.Error("completed/scheduled must not be active")
	}
	if !StatusCompleted.IsTerminal() || !StatusCancelled.IsTerminal() {
		t.Error("completed and cancelled must be terminal")
	}
	if SessionStatus("bogus").Valid() {
		t.Error("unknown status reported valid")
	}
}
