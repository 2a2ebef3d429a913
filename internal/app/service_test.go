package app_test

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"trivia-board-service/internal/app"
	"trivia-board-service/internal/domain"
	"trivia-board-service/internal/infra/memory"
)

type fixture struct {
	svc        *app.BoardService
	questions  *memory.QuestionStore
	categories *memory.CategoryStore
	games      *memory.GameStore
}

func newFixture(t *testing.T, opts ...app.Option) *fixture {
	t.Helper()
	return newFixtureWithGames(t, nil, opts...)
}

// newFixtureWithGames lets a test substitute the game repository.
func newFixtureWithGames(t *testing.T, games app.GameRepository, opts ...app.Option) *fixture {
	t.Helper()
	f := &fixture{
		questions:  memory.NewQuestionStore(),
		categories: memory.NewCategoryStore(),
		games:      memory.NewGameStore(),
	}
	if games == nil {
		games = f.games
	}
	catalog := memory.NewCategoryCatalog(app.NewCatalogLoader(f.categories, f.questions), time.Minute)
	base := []app.Option{
		app.WithRand(rand.New(rand.NewSource(1))),
		app.WithClock(func() time.Time { return time.Date(2024, 11, 22, 18, 0, 0, 0, time.UTC) }),
	}
	f.svc = app.NewBoardService(f.questions, f.categories, games, catalog, append(base, opts...)...)
	return f
}

// seedCategory creates a category with one question per listed point value.
func (f *fixture) seedCategory(t *testing.T, name string, points ...int) (domain.Category, []domain.Question) {
	t.Helper()
	ctx := context.Background()
	category, err := f.svc.CreateCategory(ctx, name, domain.ColorBlue)
	if err != nil {
		t.Fatalf("create category %s: %v", name, err)
	}
	questions := make([]domain.Question, 0, len(points))
	for i, p := range points {
		q, err := f.svc.CreateQuestion(ctx, category.ID, p, fmt.Sprintf("%s question %d", name, i), "answer")
		if err != nil {
			t.Fatalf("create question: %v", err)
		}
		questions = append(questions, q)
	}
	return category, questions
}

// seedFullBoard creates categories with `depth` questions in every point value.
func (f *fixture) seedFullBoard(t *testing.T, categories, depth int) {
	t.Helper()
	points := make([]int, 0, domain.MaxPoints*depth)
	for p := domain.MinPoints; p <= domain.MaxPoints; p++ {
		for i := 0; i < depth; i++ {
			points = append(points, p)
		}
	}
	for c := 0; c < categories; c++ {
		f.seedCategory(t, fmt.Sprintf("Category %d", c), points...)
	}
}

func (f *fixture) question(t *testing.T, id string) domain.Question {
	t.Helper()
	q, err := f.questions.GetQuestion(context.Background(), id)
	if err != nil {
		t.Fatalf("get question %s: %v", id, err)
	}
	return q
}

func boundTo(q domain.Question) string {
	if q.BoundGameID == nil {
		return ""
	}
	return *q.BoundGameID
}
