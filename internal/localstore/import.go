package localstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/claude/livereps/internal/models"
)

// ImportHistoricalSession stores a completed session from an external
// export. A session with the same user, workout and start time is only
// stored once; the return value reports whether s was new.
func (s *Store) ImportHistoricalSession(ctx context.Context, sess *models.Session) (bool, error) {
	inserted := false
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		args := append(sessionArgs(sess), "alpha")
		res, err := tx.ExecContext(ctx,
			`INSERT INTO workout_sessions (`+sessionColumns+`, source)
			 VALUES (`+placeholders(sessionColumnCount+1)+`)
			 ON CONFLICT (user_id, workout_id, started_at) WHERE source = 'alpha' DO NOTHING`,
			args...)
		if err != nil {
			return fmt.Errorf("inserting imported session: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		inserted = true
		return writeLogs(ctx, tx, sess)
	})
	if err != nil {
		return false, fmt.Errorf("importing session %s: %w", sess.WorkoutID, err)
	}
	return inserted, nil
}
