package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"trivia-board-service/internal/domain"
)

// CategoryLoader fetches the populated category listing from the backing store.
type CategoryLoader interface {
	LoadCategories(ctx context.Context) ([]domain.CategoryWithQuestions, error)
}

const catalogKey = "categories"

// CategoryCatalog caches the category listing with a TTL to avoid rebuilding it on every board render.
type CategoryCatalog struct {
	loader CategoryLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu         sync.RWMutex
	entry      *cachedCatalog
	generation uint64
}

type cachedCatalog struct {
	categories []domain.CategoryWithQuestions
	expiresAt  time.Time
}

func NewCategoryCatalog(loader CategoryLoader, ttl time.Duration) *CategoryCatalog {
	return &CategoryCatalog{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CategoryCatalog) GetCategories(ctx context.Context) ([]domain.CategoryWithQuestions, error) {
	if categories, ok := c.cached(c.clock()); ok {
		return categories, nil
	}

	result, err, _ := c.sf.Do(catalogKey, func() (interface{}, error) {
		now := c.clock()
		if categories, ok := c.cached(now); ok {
			return categories, nil
		}

		c.mu.RLock()
		generation := c.generation
		c.mu.RUnlock()

		categories, err := c.loader.LoadCategories(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		// An invalidation during the load means the result may already be stale.
		if c.generation == generation && c.ttl > 0 {
			c.entry = &cachedCatalog{
				categories: categories,
				expiresAt:  now.Add(c.ttlWithJitter()),
			}
		}
		c.mu.Unlock()
		return categories, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.CategoryWithQuestions), nil
}

// Invalidate drops the cached listing; the next read reloads it.
func (c *CategoryCatalog) Invalidate(context.Context) {
	c.mu.Lock()
	c.entry = nil
	c.generation++
	c.mu.Unlock()
	c.sf.Forget(catalogKey)
}

func (c *CategoryCatalog) cached(now time.Time) ([]domain.CategoryWithQuestions, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry != nil && c.entry.expiresAt.After(now) {
		return c.entry.categories, true
	}
	return nil, false
}

func (c *CategoryCatalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
