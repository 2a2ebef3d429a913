package memory

import (
	"context"
	"sort"
	"sync"

	"trivia-board-service/internal/domain"
)

// CategoryStore is an in-memory implementation of app.CategoryRepository.
type CategoryStore struct {
	mu         sync.RWMutex
	categories map[string]domain.Category
	slugs      map[string]string
}

func NewCategoryStore() *CategoryStore {
	return &CategoryStore{
		categories: make(map[string]domain.Category),
		slugs:      make(map[string]string),
	}
}

func (s *CategoryStore) CreateCategory(_ context.Context, c domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.slugs[c.Slug]; taken {
		return domain.ErrDuplicateCategory
	}
	s.categories[c.ID] = c
	s.slugs[c.Slug] = c.ID
	return nil
}

func (s *CategoryStore) GetCategory(_ context.Context, id string) (domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return domain.Category{}, domain.ErrCategoryNotFound
	}
	return c, nil
}

func (s *CategoryStore) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *CategoryStore) UpdateCategory(_ context.Context, c domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.categories[c.ID]
	if !ok {
		return domain.ErrCategoryNotFound
	}
	if owner, taken := s.slugs[c.Slug]; taken && owner != c.ID {
		return domain.ErrDuplicateCategory
	}
	delete(s.slugs, current.Slug)
	s.categories[c.ID] = c
	s.slugs[c.Slug] = c.ID
	return nil
}

func (s *CategoryStore) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return domain.ErrCategoryNotFound
	}
	delete(s.slugs, c.Slug)
	delete(s.categories, id)
	return nil
}
