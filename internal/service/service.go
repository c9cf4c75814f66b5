// Package service binds the session machine to the per-process handle
// registry and the read-side queries used by the HTTP API and MCP server.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/livereps/internal/achievements"
	"github.com/claude/livereps/internal/models"
	"github.com/claude/livereps/internal/session"
	"github.com/claude/livereps/internal/stats"
	"github.com/google/uuid"
)

// ReadStore answers history and profile queries.
type ReadStore interface {
	ListSessions(ctx context.Context, userID, limit int) ([]models.SessionSummary, error)
	GetSession(ctx context.Context, userID int, id uuid.UUID) (*models.Session, error)
	GetExerciseHistory(ctx context.Context, userID int, exerciseID string, exclude uuid.UUID, limit int) ([]models.HistoricalSet, error)
	ListAchievements(ctx context.Context, userID int) ([]models.Achievement, error)
	GetTrainingLoad(ctx context.Context, userID int, since time.Time) (models.TrainingLoad, error)
}

type Service struct {
	machine      *session.Machine
	registry     *session.Registry
	store        ReadStore
	engine       *achievements.Engine
	log          *slog.Logger
	weeklyTarget int
	now          func() time.Time
}

func New(machine *session.Machine, registry *session.Registry, store ReadStore, engine *achievements.Engine, weeklyTarget int, log *slog.Logger) *Service {
	if engine == nil {
		engine = achievements.NewEngine(nil)
	}
	return &Service{
		machine:      machine,
		registry:     registry,
		store:        store,
		engine:       engine,
		log:          log,
		weeklyTarget: weeklyTarget,
		now:          time.Now,
	}
}

func (s *Service) Machine() *session.Machine { return s.machine }

// Start begins a session and registers its handle.
func (s *Service) Start(ctx context.Context, userID int, workoutID string) (*session.Handle, error) {
	h, err := s.machine.Start(ctx, userID, workoutID)
	if err != nil {
		return nil, err
	}
	s.registry.Put(h)
	return h, nil
}

// Handle returns the user's live handle, recovering it from the store when
// this process does not hold one. Terminal handles are dropped first.
func (s *Service) Handle(ctx context.Context, userID int) (*session.Handle, error) {
	if h, ok := s.registry.Get(userID); ok {
		if !h.Phase().Terminal() {
			return h, nil
		}
		s.registry.Remove(userID, h.SessionID())
	}
	h, err := s.machine.Recover(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.registry.Put(h)
	return h, nil
}

// Complete finalizes the user's session. A handle that is already
// completed is passed through so a failed achievement write is retried.
// Once the handle is gone, completing again returns the user's latest
// session when it is completed, with no achievements.
func (s *Service) Complete(ctx context.Context, userID int) (*session.Handle, []models.Achievement, error) {
	h, ok := s.registry.Get(userID)
	if !ok || h.Phase() == session.PhaseCancelled {
		var err error
		h, err = s.Handle(ctx, userID)
		if errors.Is(err, session.ErrNoActiveSession) {
			return s.lastCompleted(ctx, userID)
		}
		if err != nil {
			return nil, nil, err
		}
	}
	unlocked, err := s.machine.Complete(ctx, h)
	if err != nil {
		return h, nil, err
	}
	return h, unlocked, nil
}

func (s *Service) lastCompleted(ctx context.Context, userID int) (*session.Handle, []models.Achievement, error) {
	recent, err := s.store.ListSessions(ctx, userID, 1)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: listing sessions: %w", session.ErrPersistence, err)
	}
	if len(recent) == 0 || recent[0].Status != models.StatusCompleted {
		return nil, nil, session.ErrNoActiveSession
	}
	stored, err := s.store.GetSession(ctx, userID, recent[0].ID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: loading session %s: %w", session.ErrPersistence, recent[0].ID, err)
	}
	h, err := s.machine.Finished(ctx, stored)
	if err != nil {
		return nil, nil, err
	}
	return h, nil, nil
}

// Cancel abandons the user's session and drops its handle.
func (s *Service) Cancel(ctx context.Context, userID int) (*session.Handle, error) {
	h, err := s.Handle(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.machine.Cancel(ctx, h); err != nil {
		return h, err
	}
	s.registry.Remove(userID, h.SessionID())
	return h, nil
}

// ActiveSession returns the view of the user's live session, or nil when
// there is none.
func (s *Service) ActiveSession(ctx context.Context, userID int) (*session.View, error) {
	h, err := s.Handle(ctx, userID)
	if errors.Is(err, session.ErrNoActiveSession) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	v := s.machine.View(ctx, h)
	return &v, nil
}

func (s *Service) ListSessions(ctx context.Context, userID, limit int) ([]models.SessionSummary, error) {
	return s.store.ListSessions(ctx, userID, limit)
}

func (s *Service) GetSession(ctx context.Context, userID int, id uuid.UUID) (*models.Session, error) {
	return s.store.GetSession(ctx, userID, id)
}

func (s *Service) GetExerciseHistory(ctx context.Context, userID int, exerciseID string, limit int) ([]models.HistoricalSet, error) {
	return s.store.GetExerciseHistory(ctx, userID, exerciseID, uuid.Nil, limit)
}

func (s *Service) ListAchievements(ctx context.Context, userID int) ([]models.Achievement, error) {
	return s.store.ListAchievements(ctx, userID)
}

// AchievementCatalog lists every achievement that can be unlocked.
func (s *Service) AchievementCatalog(context.Context) ([]models.AchievementDescriptor, error) {
	return s.engine.Catalog(), nil
}

// Readiness scores recovery from the user's last completed session and
// the number of sessions in the trailing seven days.
func (s *Service) Readiness(ctx context.Context, userID int) (stats.Readiness, error) {
	now := s.now()
	load, err := s.store.GetTrainingLoad(ctx, userID, now.AddDate(0, 0, -7))
	if err != nil {
		return stats.Readiness{}, err
	}
	return stats.ComputeReadiness(stats.ReadinessInput{
		LastCompletedAt:    load.LastCompletedAt,
		LastAverageRPE:     load.LastAverageRPE,
		CompletedLast7Days: load.CompletedSince,
		WeeklyTarget:       s.weeklyTarget,
		Now:                now,
	}), nil
}
