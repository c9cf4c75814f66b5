package session

import (
	"testing"

	"github.com/claude/livereps/internal/models"
	"github.com/google/uuid"
)

// TestTransitionFor checks representative allowed and rejected edges.
func TestTransitionFor(t *testing.T) {
	tests := []struct {
		from   Phase
		intent Intent
		want   Phase
		ok     bool
	}{
		{PhaseIdle, IntentStart, PhaseInProgress, true},
		{PhaseInProgress, IntentPause, PhasePaused, true},
		{PhasePaused, IntentPause, "", false},
		{PhasePaused, IntentCompleteSet, "", false},
		{PhaseInProgress, IntentCompleteSet, PhaseResting, true},
		{PhaseResting, IntentCompleteSet, "", false},
		{PhaseResting, IntentSkipRest, PhaseInProgress, true},
		{PhaseInProgress, IntentSkipRest, "", false},
		{PhaseResting, IntentAddRestTime, PhaseResting, true},
		{PhaseResting, IntentPause, "", false},
		{PhaseResting, IntentNavigate, "", false},
		{PhasePaused, IntentComplete, PhaseCompleted, true},
		{PhaseResting, IntentCancel, PhaseCancelled, true},
	}
	for _, tt := range tests {
		tr, ok := TransitionFor(tt.from, tt.intent)
		if ok != tt.ok || tr.To != tt.want {
			t.Errorf("TransitionFor(%s, %s) = %s, %v; want %s, %v", tt.from, tt.intent, tr.To, ok, tt.want, tt.ok)
		}
	}
}

// TestTerminalPhasesHaveNoExits verifies nothing leaves completed or cancelled.
func TestTerminalPhasesHaveNoExits(t *testing.T) {
	for _, tr := range transitionsTable {
		if tr.From.Terminal() {
			t.Errorf("terminal phase %s has exit via %s", tr.From, tr.Intent)
		}
	}
}

// TestPhaseStatus verifies resting is persisted as in_progress.
func TestPhaseStatus(t *testing.T) {
	if got := PhaseResting.Status(); got != models.StatusInProgress {
		t.Errorf("resting status = %s, want in_progress", got)
	}
	if got := PhasePaused.Status(); got != models.StatusPaused {
		t.Errorf("paused status = %s, want paused", got)
	}
}

// TestRegistry verifies Remove only drops the matching session.
func TestRegistry(t *testing.T) {
	r := NewRegistry()
	h := newHandle(&models.Session{ID: uuid.New(), UserID: 3}, nil, PhaseInProgress)
	r.Put(h)

	if got, ok := r.Get(3); !ok || got != h {
		t.Fatal("handle not registered")
	}
	r.Remove(3, uuid.New())
	if r.Len() != 1 {
		t.Fatal("Remove with a stale session id dropped the handle")
	}
	r.Remove(3, h.SessionID())
	if r.Len() != 0 || len(r.Snapshot()) != 0 {
		t.Error("handle still registered after Remove")
	}
}
