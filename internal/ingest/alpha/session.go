package alpha

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/claude/livereps/internal/models"
	"github.com/claude/livereps/internal/stats"
	"github.com/google/uuid"
)

// secondsPerSet is the assumed duration of a set when the export has no
// session duration.
const secondsPerSet = 150

var (
	nonSlugRe  = regexp.MustCompile(`[^a-z0-9]+`)
	weekPartRe = regexp.MustCompile(`(?i)^week\s+\d+$`)
)

// Slug lowercases s and joins its alphanumeric runs with dashes.
func Slug(s string) string {
	return strings.Trim(nonSlugRe.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// WorkoutID derives a stable workout id from an export session name. The
// "Week N" segment is dropped so a program's weeks share one workout.
func WorkoutID(name string) string {
	var parts []string
	for _, p := range strings.Split(name, "·") {
		p = strings.TrimSpace(p)
		if p == "" || weekPartRe.MatchString(p) {
			continue
		}
		parts = append(parts, p)
	}
	return Slug(strings.Join(parts, " "))
}

// RPE converts reps in reserve to an RPE in 1..10. Unrated sets have no RPE.
func RPE(rir float64) *int {
	if rir < 0 {
		return nil
	}
	v := int(math.Round(10 - rir))
	v = max(1, min(10, v))
	return &v
}

// WorkingSets counts the non-warmup sets of the workout.
func (w Workout) WorkingSets() int {
	n := 0
	for _, e := range w.Exercises {
		n += len(e.Sets)
	}
	return n
}

// Session converts w into a completed session owned by userID. Set
// timestamps are spread evenly across the workout. Exercises without
// working sets are stored as skipped.
func (w Workout) Session(userID int) *models.Session {
	total := w.WorkingSets()
	dur := w.Duration
	if dur <= 0 {
		dur = time.Duration(total*secondsPerSet) * time.Second
	}
	start := w.StartedAt.UTC()
	end := start.Add(dur)

	s := &models.Session{
		ID:               uuid.New(),
		UserID:           userID,
		WorkoutID:        WorkoutID(w.Name),
		Status:           models.StatusCompleted,
		StartedAt:        &start,
		CompletedAt:      &end,
		LastCheckpointAt: &end,
		ActiveMillis:     dur.Milliseconds(),
		CurrentSetNumber: 1,
		TotalExercises:   len(w.Exercises),
	}

	n := 0
	for i, e := range w.Exercises {
		l := models.ExerciseLog{
			ExerciseIndex: i,
			ExerciseID:    Slug(e.Name),
			TargetSets:    len(e.Sets),
		}
		if e.TargetReps > 0 {
			reps := e.TargetReps
			l.TargetReps = &reps
		}
		if len(e.Sets) == 0 {
			l.MarkSkipped(models.SkipOther)
		}
		for _, set := range e.Sets {
			n++
			l.Sets = append(l.Sets, models.SetLog{
				SetNumber:     len(l.Sets) + 1,
				RepsCompleted: set.Reps,
				WeightKg:      set.weight(),
				RPE:           RPE(set.RIR),
				CompletedAt:   start.Add(dur * time.Duration(n) / time.Duration(total+1)),
			})
		}
		s.Exercises = append(s.Exercises, l)
	}
	if len(w.Exercises) > 0 {
		s.CurrentExerciseIndex = len(w.Exercises) - 1
	}

	s.ApplyStats(stats.Compute(stats.Input{
		Exercises:      s.Exercises,
		TotalExercises: s.TotalExercises,
		Active:         dur,
	}))
	return s
}

// weight is nil for unloaded bodyweight sets so they carry no volume.
func (s Set) weight() *float64 {
	if s.BodyweightPlus && s.WeightKg == 0 {
		return nil
	}
	w := s.WeightKg
	return &w
}
