package session

import "github.com/claude/livereps/internal/models"

// Phase is the in-memory state of a session. Resting is persisted as
// in_progress with a rest deadline.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseInProgress Phase = "in_progress"
	PhasePaused     Phase = "paused"
	PhaseResting    Phase = "resting"
	PhaseCompleted  Phase = "completed"
	PhaseCancelled  Phase = "cancelled"
)

// Status maps the phase onto the persisted session status.
func (p Phase) Status() models.SessionStatus {
	switch p {
	case PhaseInProgress, PhaseResting:
		return models.StatusInProgress
	case PhasePaused:
		return models.StatusPaused
	case PhaseCompleted:
		return models.StatusCompleted
	case PhaseCancelled:
		return models.StatusCancelled
	}
	return models.StatusScheduled
}

// Terminal reports whether no intent can leave the phase.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseCancelled
}

// accruing reports whether active time runs in this phase.
func (p Phase) accruing() bool {
	return p == PhaseInProgress || p == PhaseResting
}

// Intent is a user or timer action applied to a session.
type Intent string

const (
	IntentStart        Intent = "start"
	IntentPause        Intent = "pause"
	IntentResume       Intent = "resume"
	IntentCompleteSet  Intent = "complete_set"
	IntentSkipRest     Intent = "skip_rest"
	IntentAddRestTime  Intent = "add_rest_time"
	IntentRestExpired  Intent = "rest_expired"
	IntentSkipExercise Intent = "skip_exercise"
	IntentNavigate     Intent = "navigate"
	IntentComplete     Intent = "complete"
	IntentCancel       Intent = "cancel"
)

// Transition is a single allowed edge of the session state machine.
type Transition struct {
	From   Phase
	Intent Intent
	To     Phase
}

var transitionsTable = []Transition{
	{From: PhaseIdle, Intent: IntentStart, To: PhaseInProgress},

	{From: PhaseInProgress, Intent: IntentPause, To: PhasePaused},
	{From: PhasePaused, Intent: IntentResume, To: PhaseInProgress},

	// Rest cycle
	{From: PhaseInProgress, Intent: IntentCompleteSet, To: PhaseResting},
	{From: PhaseResting, Intent: IntentSkipRest, To: PhaseInProgress},
	{From: PhaseResting, Intent: IntentRestExpired, To: PhaseInProgress},
	{From: PhaseResting, Intent: IntentAddRestTime, To: PhaseResting},

	// Exercise navigation
	{From: PhaseInProgress, Intent: IntentSkipExercise, To: PhaseInProgress},
	{From: PhaseResting, Intent: IntentSkipExercise, To: PhaseInProgress},
	{From: PhaseInProgress, Intent: IntentNavigate, To: PhaseInProgress},

	// Terminal
	{From: PhaseInProgress, Intent: IntentComplete, To: PhaseCompleted},
	{From: PhasePaused, Intent: IntentComplete, To: PhaseCompleted},
	{From: PhaseResting, Intent: IntentComplete, To: PhaseCompleted},
	{From: PhaseInProgress, Intent: IntentCancel, To: PhaseCancelled},
	{From: PhasePaused, Intent: IntentCancel, To: PhaseCancelled},
	{From: PhaseResting, Intent: IntentCancel, To: PhaseCancelled},
}

// TransitionFor returns the allowed transition for a phase and intent.
func TransitionFor(from Phase, in Intent) (Transition, bool) {
	for _, tr := range transitionsTable {
		if tr.From == from && tr.Intent == in {
			return tr, true
		}
	}
	return Transition{}, false
}
