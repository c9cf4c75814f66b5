// Package session implements the live workout session state machine.
//
// A Machine holds no per-session state. Start and Recover return a *Handle
// which the caller passes to every subsequent operation. The one-active-
// session-per-user rule is enforced through the store, never through
// in-memory bookkeeping.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/livereps/internal/achievements"
	"github.com/claude/livereps/internal/events"
	"github.com/claude/livereps/internal/metrics"
	"github.com/claude/livereps/internal/models"
	"github.com/claude/livereps/internal/rest"
	"github.com/claude/livereps/internal/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// SessionStore persists session state.
type SessionStore interface {
	CreateSession(ctx context.Context, s *models.Session) error
	// GetActiveSession returns nil, nil when the user has no active session.
	GetActiveSession(ctx context.Context, userID int) (*models.Session, error)
	CheckpointSession(ctx context.Context, s *models.Session) error
	FinalizeSession(ctx context.Context, s *models.Session) error
	CancelSession(ctx context.Context, s *models.Session) error
}

// HistoryStore answers questions about past sessions.
type HistoryStore interface {
	GetPreviousSessionVolume(ctx context.Context, userID int, workoutID string, exclude uuid.UUID) (*float64, error)
	GetExerciseHistory(ctx context.Context, userID int, exerciseID string, exclude uuid.UUID, limit int) ([]models.HistoricalSet, error)
	GetLifetimeTotals(ctx context.Context, userID int) (models.LifetimeTotals, error)
	GetCompletionTimes(ctx context.Context, userID int, since time.Time) ([]time.Time, error)
}

// AchievementStore records unlocked achievements. It returns only the
// records that were newly inserted.
type AchievementStore interface {
	UnlockAchievements(ctx context.Context, userID int, sessionID uuid.UUID, workoutID string, at time.Time, ds []models.AchievementDescriptor) ([]models.Achievement, error)
}

// Store is everything the Machine needs from persistence.
type Store interface {
	SessionStore
	HistoryStore
	AchievementStore
}

// Catalog provides workout definitions.
type Catalog interface {
	GetWorkoutExerciseDefinitions(ctx context.Context, workoutID string) ([]models.ExerciseDefinition, error)
}

type Config struct {
	AutosaveInterval  time.Duration
	CheckpointTimeout time.Duration
	AsyncCheckpoints  bool
	HistoryLimit      int
	// Location is used for calendar-day streaks.
	Location *time.Location
}

func (c *Config) setDefaults() {
	if c.AutosaveInterval <= 0 {
		c.AutosaveInterval = 30 * time.Second
	}
	if c.CheckpointTimeout <= 0 {
		c.CheckpointTimeout = 5 * time.Second
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 50
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
}

// Machine applies intents to session handles.
type Machine struct {
	store   Store
	catalog Catalog
	sink    events.Sink
	metrics *metrics.Manager
	log     *slog.Logger
	cfg     Config

	rest   *rest.Calculator
	engine *achievements.Engine
	now    func() time.Time
	cp     *checkpointer
}

type Option func(*Machine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

func WithRestCalculator(c *rest.Calculator) Option {
	return func(m *Machine) { m.rest = c }
}

func WithAchievementEngine(e *achievements.Engine) Option {
	return func(m *Machine) { m.engine = e }
}

// NewMachine creates a Machine. Close must be called to stop the
// checkpoint worker when AsyncCheckpoints is set.
func NewMachine(store Store, catalog Catalog, sink events.Sink, mm *metrics.Manager, log *slog.Logger, cfg Config, opts ...Option) *Machine {
	cfg.setDefaults()
	if sink == nil {
		sink = events.Discard{}
	}
	if mm == nil {
		mm = metrics.NewTestManager()
	}
	m := &Machine{
		store:   store,
		catalog: catalog,
		sink:    sink,
		metrics: mm,
		log:     log,
		cfg:     cfg,
		rest:    rest.NewCalculator(nil),
		engine:  achievements.NewEngine(nil),
		now:     time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	m.cp = newCheckpointer(store, log, mm, cfg.CheckpointTimeout, cfg.AsyncCheckpoints)
	return m
}

// Close flushes pending checkpoints.
func (m *Machine) Close() {
	m.cp.close()
}

// Start begins a new session for userID on workoutID.
func (m *Machine) Start(ctx context.Context, userID int, workoutID string) (h *Handle, err error) {
	ctx, span := telemetry.Tracer.Start(ctx, "session.start")
	defer func() {
		telemetry.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user_id", userID), attribute.String("workout_id", workoutID))

	if workoutID == "" {
		return nil, fmt.Errorf("%w: workout_id is required", ErrValidation)
	}

	existing, err := m.store.GetActiveSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: checking active session: %w", ErrPersistence, err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: session %s is still %s", ErrConflict, existing.ID, existing.Status)
	}

	defs, err := m.catalog.GetWorkoutExerciseDefinitions(ctx, workoutID)
	if errors.Is(err, models.ErrWorkoutNotFound) {
		return nil, fmt.Errorf("%w: unknown workout %q", ErrValidation, workoutID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: loading workout %q: %w", ErrPersistence, workoutID, err)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: workout %q has no exercises", ErrValidation, workoutID)
	}

	now := m.now()
	s := &models.Session{
		ID:               uuid.New(),
		UserID:           userID,
		WorkoutID:        workoutID,
		Status:           models.StatusInProgress,
		StartedAt:        &now,
		LastCheckpointAt: &now,
		CurrentSetNumber: 1,
		TotalExercises:   len(defs),
	}
	s.OpenActiveInterval(now)

	if err := m.store.CreateSession(ctx, s.Clone()); err != nil {
		if errors.Is(err, models.ErrActiveSessionExists) {
			return nil, fmt.Errorf("%w: %w", ErrConflict, err)
		}
		return nil, fmt.Errorf("%w: creating session: %w", ErrPersistence, err)
	}

	h = newHandle(s, defs, PhaseIdle)
	h.mu.Lock()
	defer h.mu.Unlock()

	tr, _ := TransitionFor(PhaseIdle, IntentStart)
	h.enter(tr)
	h.previousVolume = m.previousVolume(ctx, h)
	h.refreshStats(now)
	h.lastSaveAttempt = now

	m.metrics.CounterSessions.WithLabelValues("started").Inc()
	m.log.Info("session started", "session_id", s.ID, "user_id", userID, "workout_id", workoutID, "exercises", len(defs))
	m.emit(ctx, h, now, events.SessionStarted, nil)
	return h, nil
}

// Recover rehydrates the user's active session from the store.
//
// Time between the last checkpoint and now is treated as downtime and
// does not count as active time. A rest deadline that is still in the
// future resumes the resting phase.
func (m *Machine) Recover(ctx context.Context, userID int) (h *Handle, err error) {
	ctx, span := telemetry.Tracer.Start(ctx, "session.recover")
	defer func() {
		telemetry.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user_id", userID))

	s, err := m.store.GetActiveSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: loading active session: %w", ErrPersistence, err)
	}
	if s == nil {
		return nil, ErrNoActiveSession
	}

	defs, err := m.catalog.GetWorkoutExerciseDefinitions(ctx, s.WorkoutID)
	if err != nil {
		return nil, fmt.Errorf("%w: loading workout %q: %w", ErrPersistence, s.WorkoutID, err)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: workout %q has no exercises", ErrPersistence, s.WorkoutID)
	}

	now := m.now()
	if s.ActiveSince != nil {
		end := now
		if s.LastCheckpointAt != nil && s.LastCheckpointAt.Before(now) {
			end = *s.LastCheckpointAt
		}
		s.CloseActiveInterval(end)
	}

	phase := PhaseInProgress
	switch {
	case s.Status == models.StatusPaused:
		phase = PhasePaused
		s.RestEndsAt = nil
	case s.RestEndsAt != nil && s.RestEndsAt.After(now):
		phase = PhaseResting
	default:
		s.RestEndsAt = nil
	}
	if phase.accruing() {
		s.OpenActiveInterval(now)
	}

	s.TotalExercises = len(defs)
	if s.CurrentExerciseIndex < 0 || s.CurrentExerciseIndex >= len(defs) {
		s.CurrentExerciseIndex = min(max(s.CurrentExerciseIndex, 0), len(defs)-1)
	}
	if l := s.ExerciseLog(s.CurrentExerciseIndex); l != nil && !l.Skipped && l.NextSetNumber() > s.CurrentSetNumber {
		s.CurrentSetNumber = l.NextSetNumber()
	}
	if s.CurrentSetNumber < 1 {
		s.CurrentSetNumber = 1
	}

	h = newHandle(s, defs, phase)
	h.mu.Lock()
	defer h.mu.Unlock()

	h.previousVolume = m.previousVolume(ctx, h)
	m.commit(h, now)

	m.metrics.CounterSessions.WithLabelValues("recovered").Inc()
	m.log.Info("session recovered",
		"session_id", s.ID,
		"user_id", userID,
		"phase", phase,
		"exercise_index", s.CurrentExerciseIndex,
		"set_number", s.CurrentSetNumber,
	)
	m.emit(ctx, h, now, events.SessionRecovered, nil)
	return h, nil
}

// Finished wraps a stored completed session in a read-only handle. Complete
// on the returned handle is a no-op.
func (m *Machine) Finished(ctx context.Context, s *models.Session) (*Handle, error) {
	if s == nil || s.Status != models.StatusCompleted {
		return nil, ErrNoActiveSession
	}
	defs, err := m.catalog.GetWorkoutExerciseDefinitions(ctx, s.WorkoutID)
	if err != nil {
		return nil, fmt.Errorf("%w: loading workout %q: %w", ErrPersistence, s.WorkoutID, err)
	}
	s.TotalExercises = len(defs)
	if s.CurrentExerciseIndex >= len(defs) {
		s.CurrentExerciseIndex = max(len(defs)-1, 0)
	}

	h := newHandle(s, defs, PhaseCompleted)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.previousVolume = m.previousVolume(ctx, h)
	h.refreshStats(m.now())
	return h, nil
}

// Pause stops active time accrual.
func (m *Machine) Pause(ctx context.Context, h *Handle) error {
	return m.simple(ctx, h, "session.pause", IntentPause, events.SessionPaused, func(now time.Time) {
		h.session.CloseActiveInterval(now)
	})
}

// Resume restarts active time accrual.
func (m *Machine) Resume(ctx context.Context, h *Handle) error {
	return m.simple(ctx, h, "session.resume", IntentResume, events.SessionResumed, func(now time.Time) {
		h.session.OpenActiveInterval(now)
	})
}

// SkipRest ends the rest countdown immediately.
func (m *Machine) SkipRest(ctx context.Context, h *Handle) error {
	return m.simple(ctx, h, "session.skip_rest", IntentSkipRest, events.RestSkipped, func(time.Time) {
		h.session.RestEndsAt = nil
		h.session.RestPeriodsSkipped++
		m.metrics.CounterRestSkipped.Inc()
	})
}

// simple applies an intent that carries no payload.
func (m *Machine) simple(ctx context.Context, h *Handle, op string, in Intent, ev events.Type, apply func(now time.Time)) (err error) {
	ctx, span := telemetry.Tracer.Start(ctx, op)
	defer func() {
		telemetry.EndSpanWithErrCheck(span, err)
	}()

	h.mu.Lock()
	defer h.mu.Unlock()

	now := m.now()
	m.expireRest(ctx, h, now)

	tr, err := h.transition(in)
	if err != nil {
		return err
	}
	apply(now)
	h.enter(tr)
	m.commit(h, now)
	m.emit(ctx, h, now, ev, nil)
	return nil
}

// AddRestTime extends the running rest countdown by seconds.
func (m *Machine) AddRestTime(ctx context.Context, h *Handle, seconds int) (err error) {
	ctx, span := telemetry.Tracer.Start(ctx, "session.add_rest_time")
	defer func() {
		telemetry.EndSpanWithErrCheck(span, err)
	}()

	h.mu.Lock()
	defer h.mu.Unlock()

	now := m.now()
	m.expireRest(ctx, h, now)

	tr, err := h.transition(IntentAddRestTime)
	if err != nil {
		return err
	}
	if seconds <= 0 {
		return fmt.Errorf("%w: seconds must be > 0, got %d", ErrValidation, seconds)
	}

	ends := h.session.RestEndsAt.Add(time.Duration(seconds) * time.Second)
	h.session.RestEndsAt = &ends
	h.enter(tr)
	m.commit(h, now)
	m.emit(ctx, h, now, events.RestExtended, nil)
	return nil
}

// SetResult describes a completed set and the rest that follows it.
type SetResult struct {
	Set        models.SetLog    `json:"set"`
	Rest       rest.Calculation `json:"rest"`
	RestEndsAt time.Time        `json:"rest_ends_at"`
	Stats      models.LiveStats `json:"stats"`
}

// CompleteSet logs a set on the current exercise and starts an adaptive
// rest countdown. Invalid input leaves the session untouched.
func (m *Machine) CompleteSet(ctx context.Context, h *Handle, in models.SetInput) (res *SetResult, err error) {
	ctx, span := telemetry.Tracer.Start(ctx, "session.complete_set")
	defer func() {
		telemetry.EndSpanWithErrCheck(span, err)
	}()

	h.mu.Lock()
	defer h.mu.Unlock()

	now := m.now()
	m.expireRest(ctx, h, now)

	tr, err := h.transition(IntentCompleteSet)
	if err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	idx := h.session.CurrentExerciseIndex
	def := h.currentDef()
	if l := h.session.ExerciseLog(idx); l != nil && l.Skipped {
		return nil, fmt.Errorf("%w: exercise %s was skipped", ErrInvalidState, def.ExerciseID)
	}

	log := h.session.EnsureExerciseLog(idx, def)
	set, err := log.AppendSet(in, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	h.session.CurrentSetNumber = log.NextSetNumber()

	calc := m.rest.Calculate(rest.Input{
		ExerciseID:  def.ExerciseID,
		SetNumber:   set.SetNumber,
		TargetSets:  def.TargetSets,
		Reps:        set.RepsCompleted,
		WeightKg:    set.WeightKg,
		RPE:         set.RPE,
		BaseSeconds: def.RestSeconds,
		History:     m.exerciseHistory(ctx, h, def.ExerciseID),
	})
	ends := now.Add(time.Duration(calc.RecommendedRestSeconds) * time.Second)
	h.session.RestEndsAt = &ends
	h.lastRest = &calc
	h.enter(tr)
	m.commit(h, now)

	m.metrics.CounterSets.Inc()
	m.metrics.HistRecommendedRest.Observe(float64(calc.RecommendedRestSeconds))
	m.emit(ctx, h, now, events.SetCompleted, func(ev *events.Event) { ev.Set = &set })
	m.emit(ctx, h, now, events.RestStarted, nil)

	return &SetResult{Set: set, Rest: calc, RestEndsAt: ends, Stats: h.stats}, nil
}

// SkipExercise marks the current exercise skipped and advances to the
// next one. On the last exercise the index stays put. Either way the set
// number resets to 1.
func (m *Machine) SkipExercise(ctx context.Context, h *Handle, reason models.SkipReason) (err error) {
	ctx, span := telemetry.Tracer.Start(ctx, "session.skip_exercise")
	defer func() {
		telemetry.EndSpanWithErrCheck(span, err)
	}()

	h.mu.Lock()
	defer h.mu.Unlock()

	now := m.now()
	m.expireRest(ctx, h, now)

	tr, err := h.transition(IntentSkipExercise)
	if err != nil {
		return err
	}
	if _, err := models.ParseSkipReason(string(reason)); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	idx := h.session.CurrentExerciseIndex
	log := h.session.EnsureExerciseLog(idx, h.currentDef())
	if log.Skipped {
		return fmt.Errorf("%w: exercise %s already skipped", ErrInvalidState, log.ExerciseID)
	}
	log.MarkSkipped(reason)

	h.session.RestEndsAt = nil
	if idx < len(h.defs)-1 {
		h.session.CurrentExerciseIndex = idx + 1
	}
	h.syncSetNumber()
	h.enter(tr)
	m.commit(h, now)
	m.emit(ctx, h, now, events.ExerciseSkipped, nil)
	return nil
}

// PreviousExercise moves to the preceding exercise.
func (m *Machine) PreviousExercise(ctx context.Context, h *Handle) error {
	return m.navigate(ctx, h, -1)
}

// NextExercise moves to the following exercise.
func (m *Machine) NextExercise(ctx context.Context, h *Handle) error {
	return m.navigate(ctx, h, 1)
}

func (m *Machine) navigate(ctx context.Context, h *Handle, delta int) (err error) {
	ctx, span := telemetry.Tracer.Start(ctx, "session.navigate")
	defer func() {
		telemetry.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("delta", delta))

	h.mu.Lock()
	defer h.mu.Unlock()

	now := m.now()
	m.expireRest(ctx, h, now)

	tr, err := h.transition(IntentNavigate)
	if err != nil {
		return err
	}
	next := h.session.CurrentExerciseIndex + delta
	if next < 0 || next >= len(h.defs) {
		return fmt.Errorf("%w: exercise index %d outside 0..%d", ErrBoundary, next, len(h.defs)-1)
	}

	h.session.CurrentExerciseIndex = next
	h.syncSetNumber()
	h.enter(tr)
	m.commit(h, now)
	m.emit(ctx, h, now, events.ExerciseChanged, nil)
	return nil
}

// Complete finalizes the session and returns newly unlocked achievements.
// Calling it again on a completed session returns no achievements, unless
// the earlier achievement write failed, in which case it is retried.
func (m *Machine) Complete(ctx context.Context, h *Handle) (unlocked []models.Achievement, err error) {
	ctx, span := telemetry.Tracer.Start(ctx, "session.complete")
	defer func() {
		telemetry.EndSpanWithErrCheck(span, err)
	}()

	h.mu.Lock()
	defer h.mu.Unlock()

	now := m.now()
	if h.phase == PhaseCompleted {
		if len(h.pendingUnlock) == 0 {
			return nil, nil
		}
		return m.unlock(ctx, h, now), nil
	}

	tr, err := h.transition(IntentComplete)
	if err != nil {
		return nil, err
	}

	prev, prevPhase := h.session.Clone(), h.phase
	h.session.CloseActiveInterval(now)
	h.session.RestEndsAt = nil
	h.session.CompletedAt = &now
	h.enter(tr)
	h.refreshStats(now)

	snap := h.session.Clone()
	snap.LastCheckpointAt = &now
	if err := m.store.FinalizeSession(ctx, snap); err != nil {
		h.session, h.phase = prev, prevPhase
		h.refreshStats(now)
		return nil, fmt.Errorf("%w: finalizing session: %w", ErrPersistence, err)
	}
	h.version++
	h.markSaved(h.version)

	m.metrics.CounterSessions.WithLabelValues("completed").Inc()
	m.log.Info("session completed",
		"session_id", h.session.ID,
		"user_id", h.session.UserID,
		"duration_seconds", h.stats.DurationSeconds,
		"volume_kg", h.stats.TotalVolumeKg,
		"completion_pct", h.stats.CompletionPercentage,
	)
	m.emit(ctx, h, now, events.SessionCompleted, nil)

	h.pendingUnlock = m.engine.Evaluate(m.achievementMetrics(ctx, h, now))
	if len(h.pendingUnlock) == 0 {
		return nil, nil
	}
	return m.unlock(ctx, h, now), nil
}

// unlock persists pending achievements. A failed write is logged and kept
// pending for the next Complete call.
func (m *Machine) unlock(ctx context.Context, h *Handle, now time.Time) []models.Achievement {
	got, err := m.store.UnlockAchievements(ctx, h.session.UserID, h.session.ID, h.session.WorkoutID, now, h.pendingUnlock)
	if err != nil {
		m.log.Error("unlocking achievements", "session_id", h.session.ID, "pending", len(h.pendingUnlock), "error", err)
		return nil
	}
	h.pendingUnlock = nil
	for _, a := range got {
		m.metrics.CounterAchievements.WithLabelValues(string(a.Rarity)).Inc()
	}
	if len(got) > 0 {
		m.emit(ctx, h, now, events.AchievementsUnlocked, func(ev *events.Event) { ev.Achievements = got })
	}
	return got
}

// Cancel abandons the session. No stats are finalized and no achievements
// are evaluated.
func (m *Machine) Cancel(ctx context.Context, h *Handle) (err error) {
	ctx, span := telemetry.Tracer.Start(ctx, "session.cancel")
	defer func() {
		telemetry.EndSpanWithErrCheck(span, err)
	}()

	h.mu.Lock()
	defer h.mu.Unlock()

	now := m.now()
	tr, err := h.transition(IntentCancel)
	if err != nil {
		return err
	}

	snap := h.session.Clone()
	snap.CloseActiveInterval(now)
	snap.RestEndsAt = nil
	snap.CompletedAt = &now
	snap.Status = tr.To.Status()
	snap.LastCheckpointAt = &now
	if err := m.store.CancelSession(ctx, snap); err != nil {
		return fmt.Errorf("%w: cancelling session: %w", ErrPersistence, err)
	}

	h.session = snap
	h.enter(tr)
	h.version++
	h.markSaved(h.version)

	m.metrics.CounterSessions.WithLabelValues("cancelled").Inc()
	m.log.Info("session cancelled", "session_id", h.session.ID, "user_id", h.session.UserID)
	m.emit(ctx, h, now, events.SessionCancelled, nil)
	return nil
}

// Tick applies time-driven transitions: rest expiry and autosave. It is
// called periodically by the scheduler for every live handle.
func (m *Machine) Tick(ctx context.Context, h *Handle) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.phase.Terminal() {
		return
	}
	now := m.now()
	if m.expireRest(ctx, h, now) {
		return
	}

	active := h.session.ActiveElapsed(now)
	switch {
	case h.phase.accruing() && active-h.activeAtSave >= m.cfg.AutosaveInterval:
		m.commit(h, now)
	case h.dirty() && now.Sub(h.lastSaveAttempt) >= m.cfg.AutosaveInterval:
		m.log.Debug("retrying checkpoint", "session_id", h.session.ID, "version", h.version)
		m.checkpoint(h, now)
	}
}

// expireRest moves a resting handle whose deadline has passed back to
// in_progress. It reports whether a transition happened.
func (m *Machine) expireRest(ctx context.Context, h *Handle, now time.Time) bool {
	if h.phase != PhaseResting || h.session.RestEndsAt == nil || now.Before(*h.session.RestEndsAt) {
		return false
	}
	tr, err := h.transition(IntentRestExpired)
	if err != nil {
		return false
	}
	h.session.RestEndsAt = nil
	h.enter(tr)
	m.commit(h, now)
	m.emit(ctx, h, now, events.RestFinished, nil)
	return true
}

// commit records a mutation and checkpoints it.
func (m *Machine) commit(h *Handle, now time.Time) {
	h.version++
	m.checkpoint(h, now)
}

func (m *Machine) checkpoint(h *Handle, now time.Time) {
	h.refreshStats(now)
	snap := h.session.Clone()
	snap.LastCheckpointAt = &now
	h.session.LastCheckpointAt = snap.LastCheckpointAt
	h.activeAtSave = h.session.ActiveElapsed(now)
	h.lastSaveAttempt = now
	m.cp.submit(checkpointJob{h: h, snap: snap, version: h.version})
}

func (m *Machine) emit(ctx context.Context, h *Handle, now time.Time, typ events.Type, decorate func(*events.Event)) {
	ev := events.Event{
		Type:                 typ,
		SessionID:            h.session.ID,
		UserID:               h.session.UserID,
		WorkoutID:            h.session.WorkoutID,
		Phase:                string(h.phase),
		At:                   now,
		CurrentExerciseIndex: h.session.CurrentExerciseIndex,
		CurrentSetNumber:     h.session.CurrentSetNumber,
		RestEndsAt:           h.session.RestEndsAt,
		Stats:                h.stats,
	}
	if decorate != nil {
		decorate(&ev)
	}
	if err := m.sink.Publish(ctx, ev); err != nil {
		m.log.Warn("publishing session event", "type", typ, "session_id", h.session.ID, "error", err)
	}
}
