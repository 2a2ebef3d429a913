package app

import (
	"context"
	"fmt"

	"trivia-board-service/internal/domain"
)

// CatalogLoader builds the populated category listing straight from the repositories.
// Caches sit in front of it.
type CatalogLoader struct {
	categories CategoryRepository
	questions  QuestionRepository
}

func NewCatalogLoader(categories CategoryRepository, questions QuestionRepository) *CatalogLoader {
	return &CatalogLoader{categories: categories, questions: questions}
}

func (l *CatalogLoader) LoadCategories(ctx context.Context) ([]domain.CategoryWithQuestions, error) {
	categories, err := l.categories.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	questions, err := l.questions.ListQuestions(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	byCategory := make(map[string][]domain.Question, len(categories))
	for _, q := range questions {
		byCategory[q.CategoryID] = append(byCategory[q.CategoryID], q)
	}
	out := make([]domain.CategoryWithQuestions, 0, len(categories))
	for _, c := range categories {
		qs := byCategory[c.ID]
		if qs == nil {
			qs = []domain.Question{}
		}
		out = append(out, domain.CategoryWithQuestions{Category: c, Questions: qs})
	}
	return out, nil
}

// GetCategories lets the loader serve as an uncached catalog.
func (l *CatalogLoader) GetCategories(ctx context.Context) ([]domain.CategoryWithQuestions, error) {
	return l.LoadCategories(ctx)
}

func (l *CatalogLoader) Invalidate(context.Context) {}
