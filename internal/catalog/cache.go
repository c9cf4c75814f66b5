package catalog

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/claude/livereps/internal/models"
	"github.com/coocood/freecache"
)

const cacheExpireSeconds = 10 * 60

// Cached memoizes a Source in a freecache. Misses and decode failures fall
// through to the wrapped source.
type Cached struct {
	src   Source
	cache *freecache.Cache
	log   *slog.Logger
}

// NewCached wraps src with a cache of sizeMB megabytes.
func NewCached(src Source, sizeMB int, log *slog.Logger) *Cached {
	if sizeMB <= 0 {
		sizeMB = 1
	}
	return &Cached{
		src:   src,
		cache: freecache.NewCache(sizeMB * 1024 * 1024),
		log:   log,
	}
}

func (c *Cached) GetWorkoutExerciseDefinitions(ctx context.Context, workoutID string) ([]models.ExerciseDefinition, error) {
	key := []byte("workout::" + workoutID)
	if raw, err := c.cache.Get(key); err == nil {
		var defs []models.ExerciseDefinition
		err := json.Unmarshal(raw, &defs)
		if err == nil {
			return defs, nil
		}
		c.log.Warn("decoding cached workout", "workout_id", workoutID, "error", err)
	}

	defs, err := c.src.GetWorkoutExerciseDefinitions(ctx, workoutID)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(defs)
	if err != nil {
		return defs, nil
	}
	if err := c.cache.Set(key, raw, cacheExpireSeconds); err != nil {
		c.log.Warn("caching workout", "workout_id", workoutID, "error", err)
	}
	return defs, nil
}

// Invalidate drops the cached definition of workoutID.
func (c *Cached) Invalidate(workoutID string) {
	c.cache.Del([]byte("workout::" + workoutID))
}
