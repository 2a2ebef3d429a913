package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"trivia-board-service/internal/domain"
)

// CategoryLoader fetches the populated category listing from the backing store.
type CategoryLoader interface {
	LoadCategories(ctx context.Context) ([]domain.CategoryWithQuestions, error)
}

// CategoryCatalog caches the category listing in Redis and falls back to a loader on cache miss.
// The listing is stored as JSON under trivia:categories. trivia:categories:gen is bumped on every
// invalidation so that a load racing with it never writes a stale listing back.
type CategoryCatalog struct {
	client *redis.Client
	loader CategoryLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewCategoryCatalog(client *redis.Client, loader CategoryLoader, ttl time.Duration) *CategoryCatalog {
	return &CategoryCatalog{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CategoryCatalog) GetCategories(ctx context.Context) ([]domain.CategoryWithQuestions, error) {
	if c.ttl <= 0 {
		return c.loader.LoadCategories(ctx)
	}
	if categories, ok := c.cached(ctx); ok {
		return categories, nil
	}

	result, err, _ := c.sf.Do(c.dataKey(), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if categories, ok := c.cached(ctx); ok {
			return categories, nil
		}

		generation, err := c.generation(ctx, c.client)
		if err != nil {
			return c.loader.LoadCategories(ctx)
		}
		categories, err := c.loader.LoadCategories(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.store(ctx, generation, categories); err != nil {
			slog.Warn("cache category listing", "error", err)
		}
		return categories, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.CategoryWithQuestions), nil
}

// Invalidate drops the cached listing for every instance sharing the Redis database.
func (c *CategoryCatalog) Invalidate(ctx context.Context) {
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, c.generationKey())
	pipe.Del(ctx, c.dataKey())
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("invalidate category listing", "error", err)
	}
	c.sf.Forget(c.dataKey())
}

func (c *CategoryCatalog) cached(ctx context.Context) ([]domain.CategoryWithQuestions, bool) {
	raw, err := c.client.Get(ctx, c.dataKey()).Bytes()
	if err != nil {
		return nil, false
	}
	var categories []domain.CategoryWithQuestions
	if err := json.Unmarshal(raw, &categories); err != nil {
		return nil, false
	}
	return categories, true
}

func (c *CategoryCatalog) store(ctx context.Context, generation int64, categories []domain.CategoryWithQuestions) error {
	data, err := json.Marshal(categories)
	if err != nil {
		return err
	}
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := c.generation(ctx, tx)
		if err != nil {
			return err
		}
		if current != generation {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.dataKey(), data, c.ttlWithJitter())
			return nil
		})
		return err
	}, c.generationKey())
	if errors.Is(err, redis.TxFailedErr) {
		// Invalidated while writing.
		return nil
	}
	return err
}

func (c *CategoryCatalog) generation(ctx context.Context, cmd redis.Cmdable) (int64, error) {
	generation, err := cmd.Get(ctx, c.generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return generation, err
}

func (c *CategoryCatalog) dataKey() string {
	return "trivia:categories"
}

func (c *CategoryCatalog) generationKey() string {
	return "trivia:categories:gen"
}

func (c *CategoryCatalog) ttlWithJitter() time.Duration {
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
