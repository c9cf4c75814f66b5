package service

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/claude/livereps/internal/localstore"
	"github.com/claude/livereps/internal/metrics"
	"github.com/claude/livereps/internal/models"
	"github.com/claude/livereps/internal/scheduler"
	"github.com/claude/livereps/internal/session"
)

func ptr[T any](v T) *T { return &v }

type fixture struct {
	svc      *Service
	machine  *session.Machine
	registry *session.Registry
	store    *localstore.Store
	now      *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store, err := localstore.Open(ctx, filepath.Join(t.TempDir(), "livereps.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	defs := []models.ExerciseDefinition{
		{ExerciseID: "bench", TargetSets: 1, RestSeconds: 90},
		{ExerciseID: "row", TargetSets: 1, RestSeconds: 90},
	}
	if err := store.ReplaceWorkout(ctx, "push-a", defs); err != nil {
		t.Fatalf("ReplaceWorkout: %v", err)
	}

	now := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	m := session.NewMachine(store, store, nil, nil, slog.Default(), session.Config{}, session.WithClock(clock))
	t.Cleanup(m.Close)

	reg := session.NewRegistry()
	svc := New(m, reg, store, nil, 3, slog.Default())
	svc.now = clock
	return &fixture{svc: svc, machine: m, registry: reg, store: store, now: &now}
}

// TestActiveSessionNone verifies that a user without a session gets no
// view and no error.
func TestActiveSessionNone(t *testing.T) {
	f := newFixture(t)
	v, err := f.svc.ActiveSession(context.Background(), 1)
	if err != nil {
		t.Fatalf("ActiveSession: %v", err)
	}
	if v != nil {
		t.Errorf("view = %+v, want nil", v)
	}
}

// TestStartCompleteAndReadiness runs a session end to end through the
// facade and checks the read side afterwards.
func TestStartCompleteAndReadiness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	h, err := f.svc.Start(ctx, 1, "push-a")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got, ok := f.registry.Get(1); !ok || got != h {
		t.Fatal("handle not registered after Start")
	}

	v, err := f.svc.ActiveSession(ctx, 1)
	if err != nil || v == nil {
		t.Fatalf("ActiveSession = %v, %v", v, err)
	}
	if v.WorkoutID != "push-a" || v.Phase != session.PhaseInProgress {
		t.Errorf("view = %s/%s", v.WorkoutID, v.Phase)
	}

	for i := 0; i < 2; i++ {
		*f.now = f.now.Add(time.Minute)
		if _, err := f.machine.CompleteSet(ctx, h, models.SetInput{Reps: 10, WeightKg: ptr(40.0), RPE: ptr(8)}); err != nil {
			t.Fatalf("CompleteSet: %v", err)
		}
		if err := f.machine.SkipRest(ctx, h); err != nil {
			t.Fatalf("SkipRest: %v", err)
		}
		if i == 0 {
			if err := f.machine.NextExercise(ctx, h); err != nil {
				t.Fatalf("NextExercise: %v", err)
			}
		}
	}

	*f.now = f.now.Add(time.Minute)
	_, unlocked, err := f.svc.Complete(ctx, 1)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(unlocked) == 0 {
		t.Error("expected achievements on the first completed workout")
	}

	v, err = f.svc.ActiveSession(ctx, 1)
	if err != nil || v != nil {
		t.Errorf("ActiveSession after complete = %v, %v; want nil, nil", v, err)
	}

	sums, err := f.svc.ListSessions(ctx, 1, 10)
	if err != nil || len(sums) != 1 {
		t.Fatalf("ListSessions = %v, %v", sums, err)
	}
	detail, err := f.svc.GetSession(ctx, 1, sums[0].ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if detail.Status != models.StatusCompleted || len(detail.Exercises) != 2 {
		t.Errorf("detail = %s with %d exercises", detail.Status, len(detail.Exercises))
	}

	hist, err := f.svc.GetExerciseHistory(ctx, 1, "bench", 10)
	if err != nil || len(hist) != 1 {
		t.Errorf("bench history = %v, %v", hist, err)
	}

	ach, err := f.svc.ListAchievements(ctx, 1)
	if err != nil || len(ach) != len(unlocked) {
		t.Errorf("achievements = %d, %v; want %d", len(ach), err, len(unlocked))
	}

	*f.now = f.now.Add(2 * time.Hour)
	rd, err := f.svc.Readiness(ctx, 1)
	if err != nil {
		t.Fatalf("Readiness: %v", err)
	}
	if rd.HoursSinceLast < 1.9 || rd.HoursSinceLast > 2.1 {
		t.Errorf("HoursSinceLast = %v, want ~2", rd.HoursSinceLast)
	}
	if rd.MissedWorkouts != 2 {
		t.Errorf("MissedWorkouts = %d, want 2 of a weekly target of 3", rd.MissedWorkouts)
	}
}

// TestCancelDropsHandle verifies that a cancelled session leaves the
// registry and cannot be acted on again.
func TestCancelDropsHandle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Start(ctx, 1, "push-a"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h, err := f.svc.Cancel(ctx, 1)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if h.Phase() != session.PhaseCancelled {
		t.Errorf("phase = %s, want cancelled", h.Phase())
	}
	if f.registry.Len() != 0 {
		t.Errorf("registry len = %d, want 0", f.registry.Len())
	}
	if _, err := f.svc.Cancel(ctx, 1); !errors.Is(err, session.ErrNoActiveSession) {
		t.Errorf("second Cancel err = %v, want ErrNoActiveSession", err)
	}
}

// TestHandleRecoversFromStore verifies that a process without a live
// handle picks the session up from the store.
func TestHandleRecoversFromStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	h, err := f.svc.Start(ctx, 1, "push-a")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.registry.Remove(1, h.SessionID())

	got, err := f.svc.Handle(ctx, 1)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if got.SessionID() != h.SessionID() {
		t.Errorf("recovered %s, want %s", got.SessionID(), h.SessionID())
	}
	if _, ok := f.registry.Get(1); !ok {
		t.Error("recovered handle not registered")
	}
}

// TestAchievementCatalog verifies the catalog lists the built-in rules.
func TestAchievementCatalog(t *testing.T) {
	f := newFixture(t)
	cat, err := f.svc.AchievementCatalog(context.Background())
	if err != nil {
		t.Fatalf("AchievementCatalog: %v", err)
	}
	if len(cat) == 0 {
		t.Error("empty achievement catalog")
	}
}

// TestCompleteAgainAfterSchedulerPrune verifies that completing twice stays
// a no-op after the scheduler has dropped the finished handle.
func TestCompleteAgainAfterSchedulerPrune(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	h, err := f.svc.Start(ctx, 1, "push-a")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	*f.now = f.now.Add(time.Minute)
	if _, err := f.machine.CompleteSet(ctx, h, models.SetInput{Reps: 8, WeightKg: ptr(60.0)}); err != nil {
		t.Fatalf("CompleteSet: %v", err)
	}
	*f.now = f.now.Add(time.Minute)
	first, _, err := f.svc.Complete(ctx, 1)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	scheduler.New(f.machine, f.registry, metrics.NewTestManager(), slog.Default(), time.Second).RunOnce()
	if f.registry.Len() != 0 {
		t.Fatalf("registry len = %d after tick, want 0", f.registry.Len())
	}

	*f.now = f.now.Add(time.Minute)
	again, unlocked, err := f.svc.Complete(ctx, 1)
	if err != nil {
		t.Fatalf("second Complete: %v", err)
	}
	if len(unlocked) != 0 {
		t.Errorf("second Complete unlocked %d achievements, want 0", len(unlocked))
	}
	if again == nil || again.SessionID() != first.SessionID() {
		t.Fatalf("second Complete returned a different session")
	}
	v := f.machine.View(ctx, again)
	if v.Phase != session.PhaseCompleted || v.Stats.TotalVolumeKg != 480 {
		t.Errorf("view = %s with volume %v, want completed with 480", v.Phase, v.Stats.TotalVolumeKg)
	}
}

// TestCompleteWithoutSession verifies a user who never trained gets
// ErrNoActiveSession.
func TestCompleteWithoutSession(t *testing.T) {
	f := newFixture(t)
	if _, _, err := f.svc.Complete(context.Background(), 1); !errors.Is(err, session.ErrNoActiveSession) {
		t.Errorf("err = %v, want ErrNoActiveSession", err)
	}
}
