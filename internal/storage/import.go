package storage

import (
	"context"
	"fmt"

	"github.com/claude/livereps/internal/models"
	"github.com/jackc/pgx/v5"
)

// ImportHistoricalSession stores a completed session from an external
// export. A session with the same user, workout and start time is only
// stored once; the return value reports whether s was new.
func (db *DB) ImportHistoricalSession(ctx context.Context, s *models.Session) (bool, error) {
	inserted := false
	err := pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		args := append(sessionArgs(s), "alpha")
		tag, err := tx.Exec(ctx,
			`INSERT INTO workout_sessions (`+sessionColumns+`, source)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
			 ON CONFLICT (user_id, workout_id, started_at) WHERE source = 'alpha' DO NOTHING`,
			args...)
		if err != nil {
			return fmt.Errorf("inserting imported session: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		inserted = true
		return writeLogs(ctx, tx, s)
	})
	if err != nil {
		return false, fmt.Errorf("importing session %s: %w", s.WorkoutID, err)
	}
	return inserted, nil
}
