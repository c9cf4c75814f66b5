package session

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/claude/livereps/internal/models"
	"github.com/claude/livereps/internal/rest"
	"github.com/claude/livereps/internal/stats"
	"github.com/google/uuid"
)

// estimatedSetSeconds is the assumed working time of one set when
// estimating total workout duration.
const estimatedSetSeconds = 45

// Handle is a caller-owned live session. All Machine operations on the
// same handle are serialized by its mutex.
type Handle struct {
	mu sync.Mutex

	session *models.Session
	phase   Phase
	defs    []models.ExerciseDefinition
	stats   models.LiveStats

	previousVolume   *float64
	estimatedSeconds int
	history          map[string][]models.HistoricalSet
	lastRest         *rest.Calculation

	// version counts committed mutations; saved is the highest version the
	// store has acknowledged. saved is written by the checkpoint worker.
	version         uint64
	saved           atomic.Uint64
	activeAtSave    time.Duration
	lastSaveAttempt time.Time

	// pendingUnlock holds evaluated achievements whose write failed.
	pendingUnlock []models.AchievementDescriptor
}

func newHandle(s *models.Session, defs []models.ExerciseDefinition, phase Phase) *Handle {
	h := &Handle{
		session: s,
		phase:   phase,
		defs:    defs,
		history: make(map[string][]models.HistoricalSet),
	}
	for _, d := range defs {
		restSecs := d.RestSeconds
		if restSecs <= 0 {
			restSecs = rest.DefaultBaseSeconds
		}
		h.estimatedSeconds += d.TargetSets * (estimatedSetSeconds + restSecs)
	}
	return h
}

// SessionID is immutable for the lifetime of the handle.
func (h *Handle) SessionID() uuid.UUID { return h.session.ID }

// UserID is immutable for the lifetime of the handle.
func (h *Handle) UserID() int { return h.session.UserID }

// Phase returns the current phase.
func (h *Handle) Phase() Phase {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.phase
}

// Settled reports whether the handle needs no further work: it is cancelled,
// or completed with no achievement write left to retry.
func (h *Handle) Settled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch h.phase {
	case PhaseCancelled:
		return true
	case PhaseCompleted:
		return len(h.pendingUnlock) == 0
	}
	return false
}

// transition looks up the edge for intent without applying it.
func (h *Handle) transition(in Intent) (Transition, error) {
	tr, ok := TransitionFor(h.phase, in)
	if !ok {
		return Transition{}, fmt.Errorf("%w: cannot %s while %s", ErrInvalidState, in, h.phase)
	}
	return tr, nil
}

func (h *Handle) enter(tr Transition) {
	h.phase = tr.To
	h.session.Status = tr.To.Status()
}

func (h *Handle) currentDef() models.ExerciseDefinition {
	return h.defs[h.session.CurrentExerciseIndex]
}

// syncSetNumber points current_set_number at the next set of the current
// exercise. A skipped exercise takes no more sets and reads as set 1.
func (h *Handle) syncSetNumber() {
	h.session.CurrentSetNumber = 1
	if l := h.session.ExerciseLog(h.session.CurrentExerciseIndex); l != nil && !l.Skipped {
		h.session.CurrentSetNumber = l.NextSetNumber()
	}
}

func (h *Handle) refreshStats(now time.Time) {
	h.stats = stats.Compute(stats.Input{
		Exercises:        h.session.Exercises,
		TotalExercises:   h.session.TotalExercises,
		Active:           h.session.ActiveElapsed(now),
		PreviousVolumeKg: h.previousVolume,
	})
	h.session.ApplyStats(h.stats)
}

func (h *Handle) markSaved(v uint64) {
	for {
		cur := h.saved.Load()
		if v <= cur || h.saved.CompareAndSwap(cur, v) {
			return
		}
	}
}

func (h *Handle) dirty() bool {
	return h.saved.Load() < h.version
}
