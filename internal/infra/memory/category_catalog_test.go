package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"trivia-board-service/internal/domain"
)

func TestCategoryCatalogCaches(t *testing.T) {
	loader := &countingLoader{categories: sampleCategories()}
	catalog := NewCategoryCatalog(loader, time.Minute)

	if _, err := catalog.GetCategories(context.Background()); err != nil {
		t.Fatalf("get categories: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls.Load())
	}

	if _, err := catalog.GetCategories(context.Background()); err != nil {
		t.Fatalf("get categories 2: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls.Load())
	}
}

func TestCategoryCatalogInvalidateAndExpiry(t *testing.T) {
	loader := &countingLoader{categories: sampleCategories()}
	catalog := NewCategoryCatalog(loader, time.Minute)
	now := time.Date(2024, 11, 22, 12, 0, 0, 0, time.UTC)
	catalog.clock = func() time.Time { return now }

	ctx := context.Background()
	_, _ = catalog.GetCategories(ctx)
	catalog.Invalidate(ctx)
	_, _ = catalog.GetCategories(ctx)
	if loader.calls.Load() != 2 {
		t.Fatalf("expected reload after invalidate, got %d calls", loader.calls.Load())
	}

	// TTL plus the maximum jitter has passed.
	now = now.Add(67 * time.Second)
	_, _ = catalog.GetCategories(ctx)
	if loader.calls.Load() != 3 {
		t.Fatalf("expected reload after expiry, got %d calls", loader.calls.Load())
	}
}

func TestCategoryCatalogCollapsesConcurrentLoads(t *testing.T) {
	release := make(chan struct{})
	loader := &countingLoader{categories: sampleCategories(), gate: release}
	catalog := NewCategoryCatalog(loader, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := catalog.GetCategories(context.Background()); err != nil {
				t.Errorf("get categories: %v", err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls := loader.calls.Load(); calls != 1 {
		t.Fatalf("expected a single load, got %d", calls)
	}
}

type countingLoader struct {
	categories []domain.CategoryWithQuestions
	gate       chan struct{}
	calls      atomic.Int32
}

func (l *countingLoader) LoadCategories(context.Context) ([]domain.CategoryWithQuestions, error) {
	l.calls.Add(1)
	if l.gate != nil {
		<-l.gate
	}
	return l.categories, nil
}

func sampleCategories() []domain.CategoryWithQuestions {
	return []domain.CategoryWithQuestions{
		{
			Category: domain.Category{ID: "c1", Name: "Science", Slug: "science", Color: domain.ColorGreen},
			Questions: []domain.Question{
				{ID: "q1", CategoryID: "c1", Points: 5, Text: "What is 2 + 2?", Answer: "4"},
			},
		},
	}
}
