package session

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/claude/livereps/internal/events"
	"github.com/claude/livereps/internal/models"
	"github.com/google/uuid"
)

var errStoreDown = errors.New("store unavailable")

// memStore is an in-memory Store with per-method failure injection.
type memStore struct {
	mu sync.Mutex

	sessions    map[uuid.UUID]*models.Session
	history     map[string][]models.HistoricalSet
	prevVolume  *float64
	baseTotals  models.LifetimeTotals
	completions []time.Time
	unlocked    map[int]map[string]bool

	failCreate     error
	failCheckpoint error
	failFinalize   error
	failCancel     error
	failUnlock     error

	checkpoints  int
	historyCalls int
}

func newMemStore() *memStore {
	return &memStore{
		sessions: make(map[uuid.UUID]*models.Session),
		history:  make(map[string][]models.HistoricalSet),
		unlocked: make(map[int]map[string]bool),
	}
}

func (m *memStore) CreateSession(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return m.failCreate
	}
	for _, existing := range m.sessions {
		if existing.UserID == s.UserID && existing.Status.IsActive() {
			return models.ErrActiveSessionExists
		}
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *memStore) GetActiveSession(_ context.Context, userID int) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.UserID == userID && s.Status.IsActive() {
			return s.Clone(), nil
		}
	}
	return nil, nil
}

func (m *memStore) CheckpointSession(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCheckpoint != nil {
		return m.failCheckpoint
	}
	if existing, ok := m.sessions[s.ID]; ok && existing.Status.IsTerminal() {
		return nil
	}
	m.sessions[s.ID] = s.Clone()
	m.checkpoints++
	return nil
}

func (m *memStore) FinalizeSession(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFinalize != nil {
		return m.failFinalize
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *memStore) CancelSession(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCancel != nil {
		return m.failCancel
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *memStore) GetPreviousSessionVolume(_ context.Context, _ int, _ string, _ uuid.UUID) (*float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prevVolume, nil
}

func (m *memStore) GetExerciseHistory(_ context.Context, _ int, exerciseID string, _ uuid.UUID, limit int) ([]models.HistoricalSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.historyCalls++
	h := m.history[exerciseID]
	if len(h) > limit {
		h = h[:limit]
	}
	return h, nil
}

func (m *memStore) GetLifetimeTotals(_ context.Context, userID int) (models.LifetimeTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.baseTotals
	for _, s := range m.sessions {
		if s.UserID != userID || s.Status != models.StatusCompleted {
			continue
		}
		t.Workouts++
		t.VolumeKg += s.TotalVolumeKg
		for _, l := range s.Exercises {
			if !l.Skipped {
				t.Sets += len(l.Sets)
			}
		}
	}
	return t, nil
}

func (m *memStore) GetCompletionTimes(_ context.Context, userID int, since time.Time) ([]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := slices.Clone(m.completions)
	for _, s := range m.sessions {
		if s.UserID == userID && s.Status == models.StatusCompleted && s.CompletedAt != nil && !s.CompletedAt.Before(since) {
			out = append(out, *s.CompletedAt)
		}
	}
	return out, nil
}

func (m *memStore) UnlockAchievements(_ context.Context, userID int, sessionID uuid.UUID, workoutID string, at time.Time, ds []models.AchievementDescriptor) ([]models.Achievement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUnlock != nil {
		return nil, m.failUnlock
	}
	if m.unlocked[userID] == nil {
		m.unlocked[userID] = make(map[string]bool)
	}
	var out []models.Achievement
	for _, d := range ds {
		if m.unlocked[userID][d.ID] {
			continue
		}
		m.unlocked[userID][d.ID] = true
		out = append(out, models.Achievement{
			AchievementDescriptor: d,
			UserID:                userID,
			UnlockedAt:            at,
			SessionID:             sessionID,
			WorkoutID:             workoutID,
		})
	}
	return out, nil
}

func (m *memStore) session(id uuid.UUID) *models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s.Clone()
	}
	return nil
}

func (m *memStore) checkpointCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkpoints
}

func (m *memStore) fail(f func(*memStore)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f(m)
}

type memCatalog map[string][]models.ExerciseDefinition

func (c memCatalog) GetWorkoutExerciseDefinitions(_ context.Context, workoutID string) ([]models.ExerciseDefinition, error) {
	defs, ok := c[workoutID]
	if !ok {
		return nil, models.ErrWorkoutNotFound
	}
	return defs, nil
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingSink struct {
	mu  sync.Mutex
	got []events.Event
}

func (r *recordingSink) Publish(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, ev)
	return nil
}

func (r *recordingSink) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, len(r.got))
	for i, ev := range r.got {
		out[i] = ev.Type
	}
	return out
}
