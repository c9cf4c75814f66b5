package models

import (
	"time"

	"github.com/google/uuid"
)

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// AchievementDescriptor is the static description of an unlockable achievement.
type AchievementDescriptor struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Rarity      Rarity `json:"rarity"`
	Points      int    `json:"points"`
}

// Achievement is an unlocked achievement record.
type Achievement struct {
	AchievementDescriptor
	UserID     int       `json:"user_id"`
	UnlockedAt time.Time `json:"unlocked_at"`
	SessionID  uuid.UUID `json:"session_id"`
	WorkoutID  string    `json:"workout_id"`
}
