package achievements

import "github.com/claude/livereps/internal/models"

func descriptor(id, title, desc, icon string, rarity models.Rarity, points int) models.AchievementDescriptor {
	return models.AchievementDescriptor{ID: id, Title: title, Description: desc, Icon: icon, Rarity: rarity, Points: points}
}

// DefaultRules is the built-in rule table.
func DefaultRules() []Rule {
	return []Rule{
		{
			Descriptor: descriptor("first_workout", "First Steps", "Complete your first workout", "footprints", models.RarityCommon, 10),
			Predicate:  func(m Metrics) bool { return m.LifetimeWorkouts == 1 },
		},
		{
			Descriptor: descriptor("completionist", "Completionist", "Finish every exercise of a workout without skipping", "check-circle", models.RarityCommon, 20),
			Predicate: func(m Metrics) bool {
				return m.TotalExercises > 0 && m.ExercisesSkipped == 0 && m.ExercisesCompleted == m.TotalExercises
			},
		},
		{
			Descriptor: descriptor("iron_discipline", "Iron Discipline", "Take every rest period in a workout of 10+ sets", "timer", models.RarityRare, 30),
			Predicate:  func(m Metrics) bool { return m.SetsCompleted >= 10 && m.RestPeriodsSkipped == 0 },
		},
		{
			Descriptor: descriptor("perfect_form", "Perfect Form", "Rate every set of a workout with perfect form", "star", models.RarityEpic, 50),
			Predicate:  func(m Metrics) bool { return m.PerfectForm && m.SetsCompleted >= 5 },
		},
		{
			Descriptor: descriptor("beast_mode", "Beast Mode", "Average RPE of 9 or higher across a workout", "flame", models.RarityEpic, 50),
			Predicate:  func(m Metrics) bool { return m.AverageRPE >= 9 && m.SetsCompleted >= 5 },
		},
		{
			Descriptor: descriptor("speed_demon", "Speed Demon", "Finish a full workout in under 80% of its estimated time", "zap", models.RarityRare, 30),
			Predicate: func(m Metrics) bool {
				return m.EstimatedDurationSeconds > 0 &&
					m.TotalExercises > 0 && m.ExercisesCompleted == m.TotalExercises &&
					m.DurationSeconds*5 < m.EstimatedDurationSeconds*4
			},
		},
		{
			Descriptor: descriptor("early_bird", "Early Bird", "Start a workout before 7am", "sunrise", models.RarityCommon, 10),
			Predicate:  func(m Metrics) bool { return !m.StartedAt.IsZero() && m.StartedAt.Hour() < 7 },
		},
		{
			Descriptor: descriptor("night_owl", "Night Owl", "Start a workout at 9pm or later", "moon", models.RarityCommon, 10),
			Predicate:  func(m Metrics) bool { return !m.StartedAt.IsZero() && m.StartedAt.Hour() >= 21 },
		},
		{
			Descriptor: descriptor("ton_lifter", "Ton Lifter", "Move 10,000 kg in a single workout", "weight", models.RarityRare, 40),
			Predicate:  func(m Metrics) bool { return m.SessionVolumeKg >= 10_000 },
		},
		{
			Descriptor: descriptor("workouts_10", "Getting Serious", "Complete 10 workouts", "medal", models.RarityRare, 30),
			Predicate:  func(m Metrics) bool { return m.LifetimeWorkouts >= 10 },
		},
		{
			Descriptor: descriptor("workouts_50", "Dedicated", "Complete 50 workouts", "trophy", models.RarityEpic, 75),
			Predicate:  func(m Metrics) bool { return m.LifetimeWorkouts >= 50 },
		},
		{
			Descriptor: descriptor("workouts_100", "Centurion", "Complete 100 workouts", "crown", models.RarityLegendary, 150),
			Predicate:  func(m Metrics) bool { return m.LifetimeWorkouts >= 100 },
		},
		{
			Descriptor: descriptor("lifetime_100t", "Hundred Tonnes", "Lift 100,000 kg in total", "mountain", models.RarityLegendary, 150),
			Predicate:  func(m Metrics) bool { return m.LifetimeVolumeKg >= 100_000 },
		},
		{
			Descriptor: descriptor("streak_7", "On Fire", "Work out 7 days in a row", "calendar", models.RarityRare, 40),
			Predicate:  func(m Metrics) bool { return m.CurrentStreakDays >= 7 },
		},
		{
			Descriptor: descriptor("streak_30", "Unstoppable", "Work out 30 days in a row", "rocket", models.RarityLegendary, 200),
			Predicate:  func(m Metrics) bool { return m.CurrentStreakDays >= 30 },
		},
	}
}
