package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"trivia-board-service/internal/domain"
)

func TestBindIfUnboundHasOneWinner(t *testing.T) {
	ctx := context.Background()
	store := NewQuestionStore()
	_ = store.CreateQuestion(ctx, domain.Question{ID: "q1", CategoryID: "c1", Points: 5})

	var wins atomic.Int32
	var wg sync.WaitGroup
	for _, game := range []string{"g1", "g2", "g3", "g4"} {
		wg.Add(1)
		go func(game string) {
			defer wg.Done()
			if ok, _ := store.BindIfUnbound(ctx, "q1", game); ok {
				wins.Add(1)
			}
		}(game)
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Fatalf("expected exactly one binding, got %d", wins.Load())
	}
	unbound, _ := store.ListUnbound(ctx, "c1", 5)
	if len(unbound) != 0 {
		t.Fatalf("bound question listed as candidate")
	}
}

func TestReleaseOnlyTouchesOwnBindings(t *testing.T) {
	ctx := context.Background()
	store := NewQuestionStore()
	for _, id := range []string{"q1", "q2", "q3"} {
		_ = store.CreateQuestion(ctx, domain.Question{ID: id, CategoryID: "c1", Points: 1})
	}
	_, _ = store.BindIfUnbound(ctx, "q1", "g1")
	_, _ = store.BindIfUnbound(ctx, "q2", "g1")
	_, _ = store.BindIfUnbound(ctx, "q3", "g2")

	released, _ := store.ReleaseQuestions(ctx, "g1", []string{"q1", "q3"})
	if released != 1 {
		t.Fatalf("expected one release, got %d", released)
	}
	released, _ = store.ReleaseQuestions(ctx, "g1", nil)
	if released != 1 {
		t.Fatalf("expected remaining g1 binding released, got %d", released)
	}
	q3, _ := store.GetQuestion(ctx, "q3")
	if !q3.IsBound() || *q3.BoundGameID != "g2" {
		t.Fatalf("foreign binding released")
	}
}

func TestCellIndexFollowsEdits(t *testing.T) {
	ctx := context.Background()
	store := NewQuestionStore()
	_ = store.CreateQuestion(ctx, domain.Question{ID: "q1", CategoryID: "c1", Points: 2})
	_, _ = store.BindIfUnbound(ctx, "q1", "g1")

	if err := store.UpdateQuestion(ctx, domain.Question{ID: "q1", CategoryID: "c2", Points: 7}); err != nil {
		t.Fatalf("update: %v", err)
	}
	q, _ := store.GetQuestion(ctx, "q1")
	if !q.IsBound() {
		t.Fatalf("edits must keep the binding")
	}
	_, _ = store.ReleaseQuestions(ctx, "g1", nil)

	if old, _ := store.ListUnbound(ctx, "c1", 2); len(old) != 0 {
		t.Fatalf("stale index entry for old cell")
	}
	if moved, _ := store.ListUnbound(ctx, "c2", 7); len(moved) != 1 {
		t.Fatalf("expected question in new cell")
	}
	if removed, _ := store.DeleteQuestionsByCategory(ctx, "c2"); removed != 1 {
		t.Fatalf("expected one question removed, got %d", removed)
	}
	if moved, _ := store.ListUnbound(ctx, "c2", 7); len(moved) != 0 {
		t.Fatalf("deleted question still indexed")
	}
}

func TestReturnedQuestionsAreCopies(t *testing.T) {
	ctx := context.Background()
	store := NewQuestionStore()
	_ = store.CreateQuestion(ctx, domain.Question{ID: "q1", CategoryID: "c1", Points: 2})
	_, _ = store.BindIfUnbound(ctx, "q1", "g1")

	q, _ := store.GetQuestion(ctx, "q1")
	*q.BoundGameID = "tampered"
	again, _ := store.GetQuestion(ctx, "q1")
	if *again.BoundGameID != "g1" {
		t.Fatalf("store state leaked through returned pointer")
	}
}

func TestAppendAnswerGuards(t *testing.T) {
	ctx := context.Background()
	store := NewGameStore()
	_ = store.CreateGame(ctx, domain.Game{
		ID:             "g1",
		FirstTeamName:  "A",
		SecondTeamName: "B",
		Status:         domain.StatusOngoing,
		SelectedQuestions: []domain.SelectedQuestion{
			{CategoryID: "c1", PointValue: 3, QuestionID: "q1"},
		},
	})
	entry := domain.AnsweredQuestion{QuestionID: "q1", TeamName: "B", Points: 3, AnsweredAt: time.Now()}

	game, err := store.AppendAnswer(ctx, "g1", domain.SecondTeam, entry)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if game.SecondTeamScore != 3 || len(game.AnsweredQuestions) != 1 {
		t.Fatalf("unexpected game %+v", game)
	}
	if _, err := store.AppendAnswer(ctx, "g1", domain.SecondTeam, entry); !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("expected already answered, got %v", err)
	}
	entry.QuestionID = "q9"
	if _, err := store.AppendAnswer(ctx, "g1", domain.FirstTeam, entry); !errors.Is(err, domain.ErrQuestionNotOnBoard) {
		t.Fatalf("expected not on board, got %v", err)
	}

	completed, err := store.CompleteGame(ctx, "g1")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if *completed.Winner != "B" {
		t.Fatalf("expected B to win, got %s", *completed.Winner)
	}
	if _, err := store.CompleteGame(ctx, "g1"); !errors.Is(err, domain.ErrGameCompleted) {
		t.Fatalf("expected completed, got %v", err)
	}
	if _, err := store.AdjustScore(ctx, "g1", domain.FirstTeam, 1); !errors.Is(err, domain.ErrGameCompleted) {
		t.Fatalf("expected completed, got %v", err)
	}
}

func TestCategorySlugUniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewCategoryStore()
	_ = store.CreateCategory(ctx, domain.Category{ID: "c1", Name: "Science", Slug: "science"})
	_ = store.CreateCategory(ctx, domain.Category{ID: "c2", Name: "Art", Slug: "art"})

	if err := store.CreateCategory(ctx, domain.Category{ID: "c3", Name: "SCIENCE", Slug: "science"}); !errors.Is(err, domain.ErrDuplicateCategory) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if err := store.UpdateCategory(ctx, domain.Category{ID: "c2", Name: "Science", Slug: "science"}); !errors.Is(err, domain.ErrDuplicateCategory) {
		t.Fatalf("expected duplicate on rename, got %v", err)
	}
	if err := store.UpdateCategory(ctx, domain.Category{ID: "c2", Name: "Fine Art", Slug: "fine-art"}); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if err := store.CreateCategory(ctx, domain.Category{ID: "c4", Name: "Art", Slug: "art"}); err != nil {
		t.Fatalf("old slug should be free after rename: %v", err)
	}
}

func TestSnapshotCache(t *testing.T) {
	ctx := context.Background()
	cache := NewSnapshotCache()
	if _, ok, _ := cache.Get(ctx, "game"); ok {
		t.Fatalf("expected miss")
	}
	_ = cache.Set(ctx, "game", domain.Snapshot{Data: []byte(`{"id":"g1"}`), StoredAt: time.Now()})
	snap, ok, _ := cache.Get(ctx, "game")
	if !ok || string(snap.Data) != `{"id":"g1"}` {
		t.Fatalf("unexpected snapshot %q", snap.Data)
	}
	_ = cache.Invalidate(ctx, "game")
	if _, ok, _ := cache.Get(ctx, "game"); ok {
		t.Fatalf("expected miss after invalidate")
	}
}
