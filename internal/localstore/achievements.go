package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/claude/livereps/internal/models"
	"github.com/google/uuid"
)

// UnlockAchievements records ds for the user and returns only the ones
// that were not unlocked before.
func (s *Store) UnlockAchievements(ctx context.Context, userID int, sessionID uuid.UUID, workoutID string, at time.Time, ds []models.AchievementDescriptor) ([]models.Achievement, error) {
	if len(ds) == 0 {
		return nil, nil
	}
	var unlocked []models.Achievement
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, d := range ds {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO achievements (user_id, achievement_id, title, description, icon, rarity, points,
				 unlocked_at, session_id, workout_id)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				 ON CONFLICT (user_id, achievement_id) DO NOTHING`,
				userID, d.ID, d.Title, d.Description, d.Icon, string(d.Rarity), d.Points,
				at.UnixMilli(), sessionID, workoutID)
			if err != nil {
				return fmt.Errorf("inserting achievement %s: %w", d.ID, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				unlocked = append(unlocked, models.Achievement{
					AchievementDescriptor: d,
					UserID:                userID,
					UnlockedAt:            at,
					SessionID:             sessionID,
					WorkoutID:             workoutID,
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return unlocked, nil
}

// ListAchievements returns the user's unlocked achievements, newest first.
func (s *Store) ListAchievements(ctx context.Context, userID int) ([]models.Achievement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT achievement_id, title, description, icon, rarity, points, unlocked_at, session_id, workout_id
		 FROM achievements
		 WHERE user_id = ?
		 ORDER BY unlocked_at DESC, achievement_id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("querying achievements: %w", err)
	}
	defer rows.Close()

	var result []models.Achievement
	for rows.Next() {
		a := models.Achievement{UserID: userID}
		var rarity string
		var at int64
		var sessionID uuid.NullUUID
		if err := rows.Scan(&a.ID, &a.Title, &a.Description, &a.Icon, &rarity, &a.Points,
			&at, &sessionID, &a.WorkoutID); err != nil {
			return nil, fmt.Errorf("scanning achievement: %w", err)
		}
		a.Rarity = models.Rarity(rarity)
		a.UnlockedAt = time.UnixMilli(at).UTC()
		if sessionID.Valid {
			a.SessionID = sessionID.UUID
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
