package alpha

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/claude/livereps/internal/ingest"
	"github.com/claude/livereps/internal/models"
)

// Importer stores completed historical sessions. Both session stores
// implement it.
type Importer interface {
	ImportHistoricalSession(ctx context.Context, s *models.Session) (bool, error)
}

// Provider processes Alpha Progression CSV exports.
type Provider struct {
	store Importer
	loc   *time.Location
	log   *slog.Logger
}

// NewProvider creates a provider that reads export timestamps in loc.
func NewProvider(store Importer, loc *time.Location, log *slog.Logger) *Provider {
	if loc == nil {
		loc = time.UTC
	}
	return &Provider{store: store, loc: loc, log: log}
}

// Ingest parses an export and stores every workout as a completed session.
// Workouts that were imported before are skipped.
func (p *Provider) Ingest(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error) {
	workouts, err := ParseIn(r, p.loc)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}

	result := &ingest.Result{SessionsReceived: len(workouts)}
	for _, w := range workouts {
		sets := w.WorkingSets()
		result.SetsReceived += sets
		for _, e := range w.Exercises {
			result.WarmupsIgnored += len(e.Warmups)
		}

		s := w.Session(userID)
		inserted, err := p.store.ImportHistoricalSession(ctx, s)
		if err != nil {
			return result, fmt.Errorf("importing %q of %s: %w", w.Name, w.StartedAt.Format(time.DateOnly), err)
		}
		if !inserted {
			result.SessionsSkipped++
			continue
		}
		result.SessionsInserted++
		result.SetsInserted += sets
	}

	p.log.Info("alpha import finished",
		"user_id", userID,
		"sessions", result.SessionsReceived,
		"inserted", result.SessionsInserted,
		"skipped", result.SessionsSkipped,
	)
	return result, nil
}
