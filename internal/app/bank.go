package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/gosimple/slug"

	"trivia-board-service/internal/domain"
)

// CreateCategory adds a category; names are unique after slug normalization.
func (s *BoardService) CreateCategory(ctx context.Context, name string, color domain.Color) (domain.Category, error) {
	if err := domain.RequireNonEmpty("name", name); err != nil {
		return domain.Category{}, err
	}
	if err := domain.ValidateColor(color); err != nil {
		return domain.Category{}, err
	}
	key := slug.Make(name)
	if key == "" {
		return domain.Category{}, fmt.Errorf("%w: name %q has no usable characters", domain.ErrInvalidInput, name)
	}

	now := s.now()
	category := domain.Category{
		ID:        s.newID(),
		Name:      strings.TrimSpace(name),
		Slug:      key,
		Color:     color,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.categories.CreateCategory(ctx, category); err != nil {
		return domain.Category{}, err
	}
	s.catalog.Invalidate(ctx)
	return category, nil
}

// GetCategory returns one category with its questions.
func (s *BoardService) GetCategory(ctx context.Context, id string) (domain.CategoryWithQuestions, error) {
	category, err := s.categories.GetCategory(ctx, id)
	if err != nil {
		return domain.CategoryWithQuestions{}, err
	}
	questions, err := s.questions.ListQuestions(ctx, id)
	if err != nil {
		return domain.CategoryWithQuestions{}, err
	}
	return domain.CategoryWithQuestions{Category: category, Questions: questions}, nil
}

// UpdateCategory renames or recolors a category.
func (s *BoardService) UpdateCategory(ctx context.Context, id string, name *string, color *domain.Color) (domain.Category, error) {
	category, err := s.categories.GetCategory(ctx, id)
	if err != nil {
		return domain.Category{}, err
	}
	if name != nil {
		key := slug.Make(*name)
		if strings.TrimSpace(*name) == "" || key == "" {
			return domain.Category{}, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
		}
		category.Name = strings.TrimSpace(*name)
		category.Slug = key
	}
	if color != nil {
		if err := domain.ValidateColor(*color); err != nil {
			return domain.Category{}, err
		}
		category.Color = *color
	}
	category.UpdatedAt = s.now()
	if err := s.categories.UpdateCategory(ctx, category); err != nil {
		return domain.Category{}, err
	}
	s.catalog.Invalidate(ctx)
	return category, nil
}

// DeleteCategory removes a category and the questions that belong to it.
func (s *BoardService) DeleteCategory(ctx context.Context, id string) error {
	if _, err := s.categories.GetCategory(ctx, id); err != nil {
		return err
	}
	removed, err := s.questions.DeleteQuestionsByCategory(ctx, id)
	if err != nil {
		return err
	}
	if err := s.categories.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.logger().Info("category deleted", "category_id", id, "questions_removed", removed)
	s.catalog.Invalidate(ctx)
	return nil
}

// CreateQuestion adds a question to an existing category.
func (s *BoardService) CreateQuestion(ctx context.Context, categoryID string, points int, text, answer string) (domain.Question, error) {
	now := s.now()
	q := domain.Question{
		ID:         s.newID(),
		CategoryID: categoryID,
		Points:     points,
		Text:       strings.TrimSpace(text),
		Answer:     strings.TrimSpace(answer),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := domain.ValidateQuestion(q); err != nil {
		return domain.Question{}, err
	}
	if _, err := s.categories.GetCategory(ctx, categoryID); err != nil {
		return domain.Question{}, err
	}
	if err := s.questions.CreateQuestion(ctx, q); err != nil {
		return domain.Question{}, err
	}
	s.catalog.Invalidate(ctx)
	return q, nil
}

// GetQuestion returns a single question.
func (s *BoardService) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	return s.questions.GetQuestion(ctx, id)
}

// ListQuestions returns the bank, optionally restricted to one category.
func (s *BoardService) ListQuestions(ctx context.Context, categoryID string) ([]domain.Question, error) {
	return s.questions.ListQuestions(ctx, categoryID)
}

// QuestionPatch carries the optional fields of a question edit.
type QuestionPatch struct {
	CategoryID *string `json:"categoryId,omitempty"`
	Points     *int    `json:"points,omitempty"`
	Text       *string `json:"question,omitempty"`
	Answer     *string `json:"answer,omitempty"`
	Answered   *bool   `json:"isAnswered,omitempty"`
}

// UpdateQuestion edits a question. Moving it to another category only rewrites its categoryId.
func (s *BoardService) UpdateQuestion(ctx context.Context, id string, patch QuestionPatch) (domain.Question, error) {
	q, err := s.questions.GetQuestion(ctx, id)
	if err != nil {
		return domain.Question{}, err
	}
	if patch.CategoryID != nil && *patch.CategoryID != q.CategoryID {
		if _, err := s.categories.GetCategory(ctx, *patch.CategoryID); err != nil {
			return domain.Question{}, err
		}
		q.CategoryID = *patch.CategoryID
	}
	if patch.Points != nil {
		q.Points = *patch.Points
	}
	if patch.Text != nil {
		q.Text = strings.TrimSpace(*patch.Text)
	}
	if patch.Answer != nil {
		q.Answer = strings.TrimSpace(*patch.Answer)
	}
	if patch.Answered != nil {
		q.Answered = *patch.Answered
	}
	if err := domain.ValidateQuestion(q); err != nil {
		return domain.Question{}, err
	}
	q.UpdatedAt = s.now()
	if err := s.questions.UpdateQuestion(ctx, q); err != nil {
		return domain.Question{}, err
	}
	s.catalog.Invalidate(ctx)
	return q, nil
}

// DeleteQuestion removes a question from the bank.
func (s *BoardService) DeleteQuestion(ctx context.Context, id string) error {
	if err := s.questions.DeleteQuestion(ctx, id); err != nil {
		return err
	}
	s.catalog.Invalidate(ctx)
	return nil
}

// Bank is an importable question bank document.
type Bank struct {
	Categories []BankCategory `yaml:"categories" json:"categories"`
}

type BankCategory struct {
	Name      string         `yaml:"name" json:"name"`
	Color     domain.Color   `yaml:"color" json:"color"`
	Questions []BankQuestion `yaml:"questions" json:"questions"`
}

type BankQuestion struct {
	Points   int    `yaml:"points" json:"points"`
	Question string `yaml:"question" json:"question"`
	Answer   string `yaml:"answer" json:"answer"`
}

// ImportResult counts what an import created.
type ImportResult struct {
	CategoriesCreated int `json:"categoriesCreated"`
	QuestionsCreated  int `json:"questionsCreated"`
	QuestionsSkipped  int `json:"questionsSkipped"`
}

// ImportBank loads a bank document, reusing categories with the same name and skipping
// questions whose text already exists in the target category.
func (s *BoardService) ImportBank(ctx context.Context, bank Bank) (ImportResult, error) {
	var result ImportResult

	existing, err := s.categories.ListCategories(ctx)
	if err != nil {
		return result, err
	}
	bySlug := make(map[string]domain.Category, len(existing))
	for _, c := range existing {
		bySlug[c.Slug] = c
	}

	for _, bc := range bank.Categories {
		category, ok := bySlug[slug.Make(bc.Name)]
		if !ok {
			category, err = s.CreateCategory(ctx, bc.Name, bc.Color)
			if err != nil {
				return result, fmt.Errorf("import category %q: %w", bc.Name, err)
			}
			bySlug[category.Slug] = category
			result.CategoriesCreated++
		}

		current, err := s.questions.ListQuestions(ctx, category.ID)
		if err != nil {
			return result, err
		}
		seen := make(map[string]struct{}, len(current))
		for _, q := range current {
			seen[strings.ToLower(q.Text)] = struct{}{}
		}

		for _, bq := range bc.Questions {
			key := strings.ToLower(strings.TrimSpace(bq.Question))
			if _, dup := seen[key]; dup {
				result.QuestionsSkipped++
				continue
			}
			if _, err := s.CreateQuestion(ctx, category.ID, bq.Points, bq.Question, bq.Answer); err != nil {
				return result, fmt.Errorf("import question %q: %w", bq.Question, err)
			}
			seen[key] = struct{}{}
			result.QuestionsCreated++
		}
	}
	return result, nil
}
