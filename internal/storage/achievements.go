package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/claude/livereps/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UnlockAchievements records ds for the user and returns only the ones
// that were not unlocked before.
func (db *DB) UnlockAchievements(ctx context.Context, userID int, sessionID uuid.UUID, workoutID string, at time.Time, ds []models.AchievementDescriptor) ([]models.Achievement, error) {
	if len(ds) == 0 {
		return nil, nil
	}
	var unlocked []models.Achievement
	err := pgx.BeginFunc(ctx, db.Pool, func(tx pgx.Tx) error {
		for _, d := range ds {
			tag, err := tx.Exec(ctx,
				`INSERT INTO achievements (user_id, achievement_id, title, description, icon, rarity, points,
				 unlocked_at, session_id, workout_id)
				 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
				 ON CONFLICT (user_id, achievement_id) DO NOTHING`,
				userID, d.ID, d.Title, d.Description, d.Icon, string(d.Rarity), d.Points,
				at, sessionID, workoutID)
			if err != nil {
				return fmt.Errorf("inserting achievement %s: %w", d.ID, err)
			}
			if tag.RowsAffected() > 0 {
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
func (db *DB) ListAchievements(ctx context.Context, userID int) ([]models.Achievement, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT achievement_id, title, description, icon, rarity, points, unlocked_at, session_id, workout_id
		 FROM achievements
		 WHERE user_id = $1
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
		var sessionID *uuid.UUID
		if err := rows.Scan(&a.ID, &a.Title, &a.Description, &a.Icon, &rarity, &a.Points,
			&a.UnlockedAt, &sessionID, &a.WorkoutID); err != nil {
			return nil, fmt.Errorf("scanning achievement: %w", err)
		}
		a.Rarity = models.Rarity(rarity)
		if sessionID != nil {
			a.SessionID = *sessionID
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
