package syncclient

import (
	"context"
	"encoding/json"
	"time"

	"trivia-board-service/internal/domain"
)

// Cache stores client snapshots. Implemented by memory.SnapshotCache and redis.SnapshotCache.
type Cache interface {
	Get(ctx context.Context, key string) (domain.Snapshot, bool, error)
	Set(ctx context.Context, key string, snap domain.Snapshot) error
	Invalidate(ctx context.Context, key string) error
}

const categoriesKey = "categories"

func gameKey(gameID string) string {
	return "game:" + gameID
}

// CachedCategories returns the last categories snapshot, if any.
func CachedCategories(ctx context.Context, cache Cache) ([]domain.CategoryWithQuestions, time.Time, bool, error) {
	var categories []domain.CategoryWithQuestions
	storedAt, ok, err := load(ctx, cache, categoriesKey, &categories)
	return categories, storedAt, ok, err
}

// CachedGame returns the last snapshot of a game, if any.
func CachedGame(ctx context.Context, cache Cache, gameID string) (domain.Game, time.Time, bool, error) {
	var game domain.Game
	storedAt, ok, err := load(ctx, cache, gameKey(gameID), &game)
	return game, storedAt, ok, err
}

func load(ctx context.Context, cache Cache, key string, v any) (time.Time, bool, error) {
	snap, ok, err := cache.Get(ctx, key)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	if err := json.Unmarshal(snap.Data, v); err != nil {
		// A snapshot that no longer decodes is dropped like a version mismatch.
		_ = cache.Invalidate(ctx, key)
		return time.Time{}, false, nil
	}
	return snap.StoredAt, true, nil
}

func store(ctx context.Context, cache Cache, key string, v any, now time.Time) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return cache.Set(ctx, key, domain.Snapshot{Data: data, StoredAt: now})
}
