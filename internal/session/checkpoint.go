package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/livereps/internal/metrics"
	"github.com/claude/livereps/internal/models"
)

const checkpointQueueSize = 64

type checkpointJob struct {
	h       *Handle
	snap    *models.Session
	version uint64
}

// checkpointer writes session snapshots to the store. In async mode a
// single worker drains the queue in order; otherwise writes happen inline.
// Failures are logged and leave the handle dirty for the next tick.
type checkpointer struct {
	store   SessionStore
	log     *slog.Logger
	metrics *metrics.Manager
	timeout time.Duration
	async   bool

	mu     sync.RWMutex
	closed bool
	jobs   chan checkpointJob
	wg     sync.WaitGroup
}

func newCheckpointer(store SessionStore, log *slog.Logger, m *metrics.Manager, timeout time.Duration, async bool) *checkpointer {
	c := &checkpointer{store: store, log: log, metrics: m, timeout: timeout, async: async}
	if async {
		c.jobs = make(chan checkpointJob, checkpointQueueSize)
		c.wg.Add(1)
		go c.run()
	}
	return c
}

func (c *checkpointer) submit(job checkpointJob) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.async || c.closed {
		c.write(job)
		return
	}
	select {
	case c.jobs <- job:
	default:
		c.metrics.CounterCheckpoints.WithLabelValues("dropped").Inc()
		c.log.Warn("checkpoint queue full, snapshot dropped", "session_id", job.snap.ID)
	}
}

func (c *checkpointer) run() {
	defer c.wg.Done()
	for job := range c.jobs {
		c.write(job)
	}
}

func (c *checkpointer) write(job checkpointJob) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	start := time.Now()
	err := c.store.CheckpointSession(ctx, job.snap)
	c.metrics.HistCheckpointDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.CounterCheckpoints.WithLabelValues("error").Inc()
		c.log.Warn("checkpoint failed",
			"session_id", job.snap.ID,
			"version", job.version,
			"error", err,
		)
		return
	}
	c.metrics.CounterCheckpoints.WithLabelValues("ok").Inc()
	job.h.markSaved(job.version)
}

// close drains queued snapshots and stops the worker.
func (c *checkpointer) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.async {
		close(c.jobs)
	}
	c.mu.Unlock()
	c.wg.Wait()
}
