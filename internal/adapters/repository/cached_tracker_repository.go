package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/comitanigiacomo/kanso-tracker/internal/adapters/cache"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
)

var _ domain.TrackerRepository = (*CachedTrackerRepository)(nil)

const listCacheTTL = 30 * time.Minute

var (
	habitsCacheKey = cache.Key("habits")
	tasksCacheKey  = cache.Key("tasks")
)

// CachedTrackerRepository keeps the habit and task lists in Redis. Both are
// read on every day load, while everything else is keyed by date and read
// straight from the database. Redis failures only cost a cache miss.
type CachedTrackerRepository struct {
	domain.TrackerRepository
	cache *redis.Client
}

func NewCachedTrackerRepository(next domain.TrackerRepository, cache *redis.Client) *CachedTrackerRepository {
	return &CachedTrackerRepository{
		TrackerRepository: next,
		cache:             cache,
	}
}

func (r *CachedTrackerRepository) invalidate(ctx context.Context, key string) {
	if err := r.cache.Del(ctx, key).Err(); err != nil {
		log.Printf("[CACHE] Failed to invalidate %s: %v", key, err)
	}
}

func cachedList[T any](ctx context.Context, rdb *redis.Client, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	val, err := rdb.Get(ctx, key).Result()
	if err == nil {
		var items []T
		if err := json.Unmarshal([]byte(val), &items); err == nil {
			return items, nil
		}

		log.Printf("[CACHE] Corrupted data in %s, cleaning up key", key)
		rdb.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		log.Printf("[CACHE] Redis read error: %v", err)
	}

	items, err := load(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(items); err == nil {
		if setErr := rdb.Set(ctx, key, data, listCacheTTL).Err(); setErr != nil {
			log.Printf("[CACHE] Redis set error: %v", setErr)
		}
	}

	return items, nil
}

func (r *CachedTrackerRepository) SelectAllHabits(ctx context.Context) ([]domain.Habit, error) {
	return cachedList(ctx, r.cache, habitsCacheKey, r.TrackerRepository.SelectAllHabits)
}

func (r *CachedTrackerRepository) SelectAllTasks(ctx context.Context) ([]domain.Task, error) {
	return cachedList(ctx, r.cache, tasksCacheKey, r.TrackerRepository.SelectAllTasks)
}

func (r *CachedTrackerRepository) InsertHabit(ctx context.Context, name string) (*domain.Habit, error) {
	habit, err := r.TrackerRepository.InsertHabit(ctx, name)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, habitsCacheKey)
	return habit, nil
}

func (r *CachedTrackerRepository) afterHabitWrite(ctx context.Context, err error) error {
	if err != nil {
		return err
	}
	r.invalidate(ctx, habitsCacheKey)
	return nil
}

func (r *CachedTrackerRepository) UpdateHabitName(ctx context.Context, id int64, name string) error {
	return r.afterHabitWrite(ctx, r.TrackerRepository.UpdateHabitName(ctx, id, name))
}

func (r *CachedTrackerRepository) UpdateHabitIsTracked(ctx context.Context, id int64, isTracked bool) error {
	return r.afterHabitWrite(ctx, r.TrackerRepository.UpdateHabitIsTracked(ctx, id, isTracked))
}

func (r *CachedTrackerRepository) UpdateHabitIsBuilding(ctx context.Context, id int64, isBuilding bool) error {
	return r.afterHabitWrite(ctx, r.TrackerRepository.UpdateHabitIsBuilding(ctx, id, isBuilding))
}

func (r *CachedTrackerRepository) DeleteHabit(ctx context.Context, id int64) error {
	return r.afterHabitWrite(ctx, r.TrackerRepository.DeleteHabit(ctx, id))
}

func (r *CachedTrackerRepository) InsertTask(ctx context.Context, task domain.NewTask) (*domain.Task, error) {
	stored, err := r.TrackerRepository.InsertTask(ctx, task)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, tasksCacheKey)
	return stored, nil
}

func (r *CachedTrackerRepository) UpdateTask(ctx context.Context, task domain.Task) error {
	if err := r.TrackerRepository.UpdateTask(ctx, task); err != nil {
		return err
	}
	r.invalidate(ctx, tasksCacheKey)
	return nil
}

func (r *CachedTrackerRepository) DeleteTask(ctx context.Context, id int64) error {
	if err := r.TrackerRepository.DeleteTask(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, tasksCacheKey)
	return nil
}
