// Package scheduler drives time-based session transitions: rest deadlines
// and autosave checkpoints.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/livereps/internal/metrics"
	"github.com/claude/livereps/internal/session"
	"github.com/go-co-op/gocron"
)

// Ticker applies time-driven transitions to one handle.
type Ticker interface {
	Tick(ctx context.Context, h *session.Handle)
}

// Scheduler ticks every live handle in the registry on a fixed interval.
type Scheduler struct {
	scheduler *gocron.Scheduler
	ticker    Ticker
	registry  *session.Registry
	metrics   *metrics.Manager
	log       *slog.Logger
	interval  time.Duration
}

func New(ticker Ticker, registry *session.Registry, mm *metrics.Manager, log *slog.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		ticker:    ticker,
		registry:  registry,
		metrics:   mm,
		log:       log,
		interval:  interval,
	}
}

// Start schedules the tick job and runs the scheduler in the background.
func (s *Scheduler) Start() error {
	s.scheduler.SingletonModeAll()
	if _, err := s.scheduler.Every(s.interval).Do(s.RunOnce); err != nil {
		return fmt.Errorf("scheduling session tick: %w", err)
	}
	s.scheduler.StartAsync()
	s.log.Info("session scheduler started", "interval", s.interval)
	return nil
}

// Stop terminates the scheduler and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// RunOnce ticks every registered handle and drops the settled ones. A
// completed handle with an achievement write still pending stays registered
// so a later Complete can retry it.
func (s *Scheduler) RunOnce() {
	ctx := context.Background()
	for _, h := range s.registry.Snapshot() {
		s.ticker.Tick(ctx, h)
		if h.Settled() {
			s.registry.Remove(h.UserID(), h.SessionID())
		}
	}
	s.metrics.GaugeLiveSessions.Set(float64(s.registry.Len()))
}
