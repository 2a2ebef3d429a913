package board

import (
	"reflect"
	"testing"

	"trivia-board-service/internal/domain"
)

func sampleBank() []domain.CategoryWithQuestions {
	return []domain.CategoryWithQuestions{
		{
			Category: domain.Category{ID: "sci", Name: "Science", Color: domain.ColorGreen},
			Questions: []domain.Question{
				{ID: "q1", CategoryID: "sci", Points: 5, Text: "H2O?", Answer: "Water", Answered: true},
				{ID: "q2", CategoryID: "sci", Points: 5, Text: "NaCl?", Answer: "Salt"},
				{ID: "q3", CategoryID: "sci", Points: 1, Text: "Au?", Answer: "Gold"},
			},
		},
		{
			Category: domain.Category{ID: "his", Name: "History", Color: domain.ColorOrange},
			Questions: []domain.Question{
				{ID: "q4", CategoryID: "his", Points: 10, Text: "1066?", Answer: "Hastings"},
			},
		},
	}
}

func sampleGame() *domain.Game {
	return &domain.Game{
		ID:     "g1",
		Status: domain.StatusOngoing,
		SelectedQuestions: []domain.SelectedQuestion{
			{CategoryID: "sci", PointValue: 5, QuestionID: "q2"},
			{CategoryID: "sci", PointValue: 1, QuestionID: "q3"},
			{CategoryID: "his", PointValue: 10, QuestionID: "q4"},
		},
		AnsweredQuestions: []domain.AnsweredQuestion{
			{QuestionID: "q4", TeamName: "A", Points: 10},
		},
	}
}

func cell(t *testing.T, b Board, column, points int) Cell {
	t.Helper()
	for _, c := range b.Columns[column].Cells {
		if c.Points == points {
			return c
		}
	}
	t.Fatalf("no %d-point cell in column %d", points, column)
	return Cell{}
}

func TestBoundBoardUsesGameSelections(t *testing.T) {
	b := Project(sampleBank(), sampleGame(), nil)

	if b.Mode != ModeBoundToGame {
		t.Fatalf("expected bound mode, got %s", b.Mode)
	}
	if len(b.Columns) != 2 || len(b.Columns[0].Cells) != domain.MaxPoints {
		t.Fatalf("unexpected shape %d columns", len(b.Columns))
	}
	if c := cell(t, b, 0, 5); c.Empty() || c.Question.ID != "q2" || c.Answered {
		t.Fatalf("unexpected Science/5 cell %+v", c)
	}
	if c := cell(t, b, 1, 10); c.Empty() || !c.Answered {
		t.Fatalf("expected answered History/10 cell, got %+v", c)
	}
	if c := cell(t, b, 0, 2); !c.Empty() {
		t.Fatalf("expected empty cell without selection")
	}
}

func TestBankAnsweredFlagDoesNotLeakIntoGame(t *testing.T) {
	game := sampleGame()
	game.SelectedQuestions[0].QuestionID = "q1"

	b := Project(sampleBank(), game, nil)
	if c := cell(t, b, 0, 5); c.Question.ID != "q1" || c.Answered {
		t.Fatalf("cell state must come from the game log only, got %+v", c)
	}
}

func TestProjectionIsDeterministic(t *testing.T) {
	game := sampleGame()
	first := Project(sampleBank(), game, nil)
	second := Project(sampleBank(), game, nil)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same inputs produced different boards")
	}
}

func TestCategoryChangesKeepAnsweredState(t *testing.T) {
	game := sampleGame()
	before := Project(sampleBank(), game, nil).AnsweredState()

	changed := sampleBank()
	changed[0].Name = "Chemistry"
	changed[0].Color = domain.ColorPurple
	changed[1].Questions[0].Answered = true
	changed[0].Questions = append(changed[0].Questions, domain.Question{ID: "q9", CategoryID: "sci", Points: 5})

	after := Project(changed, game, nil).AnsweredState()
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("answered state changed with categories: %v vs %v", before, after)
	}
}

func TestPopulatedSelectionWinsOverLookup(t *testing.T) {
	game := sampleGame()
	game.SelectedQuestions[0].Question = &domain.Question{ID: "q2", CategoryID: "sci", Points: 5, Text: "fresh text"}

	b := Project(sampleBank(), game, nil)
	if c := cell(t, b, 0, 5); c.Question.Text != "fresh text" {
		t.Fatalf("expected populated question, got %q", c.Question.Text)
	}
}

func TestDeletedQuestionRendersEmpty(t *testing.T) {
	bank := sampleBank()
	bank[0].Questions = bank[0].Questions[2:]

	b := Project(bank, sampleGame(), nil)
	if c := cell(t, b, 0, 5); !c.Empty() {
		t.Fatalf("expected unresolvable selection to render empty, got %+v", c)
	}
}

func TestLiveRandomFallback(t *testing.T) {
	last := func(n int) int { return n - 1 }

	b := Project(sampleBank(), nil, last)
	if b.Mode != ModeLiveRandom {
		t.Fatalf("expected live random mode, got %s", b.Mode)
	}
	if c := cell(t, b, 0, 5); c.Question.ID != "q2" {
		t.Fatalf("expected picker to choose q2, got %s", c.Question.ID)
	}
	if c := cell(t, b, 0, 3); !c.Empty() {
		t.Fatalf("expected empty cell")
	}

	first := func(int) int { return 0 }
	b = Project(sampleBank(), &domain.Game{ID: "g2"}, first)
	if b.Mode != ModeLiveRandom {
		t.Fatalf("a game without selections falls back to live random")
	}
	if c := cell(t, b, 0, 5); c.Question.ID != "q1" || !c.Answered {
		t.Fatalf("expected bank flag in live mode, got %+v", c)
	}
}
