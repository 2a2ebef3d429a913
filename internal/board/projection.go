// Package board turns categories and a game into the renderable question grid.
package board

import (
	"fmt"
	"math/rand/v2"

	"trivia-board-service/internal/domain"
)

// DisplayMode tells how a board was produced.
type DisplayMode int

const (
	// ModeBoundToGame renders exactly the questions selected into a game.
	ModeBoundToGame DisplayMode = iota
	// ModeLiveRandom draws a throwaway question per cell from the live bank. Nothing is bound
	// and two renders of the same input may differ.
	ModeLiveRandom
)

func (m DisplayMode) String() string {
	if m == ModeLiveRandom {
		return "liveRandom"
	}
	return "boundToGame"
}

func (m DisplayMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *DisplayMode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "boundToGame":
		*m = ModeBoundToGame
	case "liveRandom":
		*m = ModeLiveRandom
	default:
		return fmt.Errorf("unknown display mode %q", text)
	}
	return nil
}

// Cell is one (category, point value) slot. A nil Question is an empty cell.
type Cell struct {
	Points   int              `json:"points"`
	Question *domain.Question `json:"question,omitempty"`
	Answered bool             `json:"isAnswered"`
}

func (c Cell) Empty() bool {
	return c.Question == nil
}

// Column holds the cells of one category ordered by point value.
type Column struct {
	Category domain.Category `json:"category"`
	Cells    []Cell          `json:"cells"`
}

type Board struct {
	Mode    DisplayMode `json:"mode"`
	Columns []Column    `json:"columns"`
}

// Picker returns an index in [0, n). It only feeds the live random mode.
type Picker func(n int) int

// Project builds the board for a game. Without a game, or for a game with no selections, it
// falls back to ModeLiveRandom using pick (math/rand when nil).
//
// In ModeBoundToGame the result depends only on the inputs: a cell's answered state comes from
// the game's answer log alone and categories serve as a lookup table for names and questions.
func Project(categories []domain.CategoryWithQuestions, game *domain.Game, pick Picker) Board {
	if game == nil || len(game.SelectedQuestions) == 0 {
		if pick == nil {
			pick = rand.IntN
		}
		return liveRandom(categories, pick)
	}
	return boundToGame(categories, game)
}

type cellKey struct {
	categoryID string
	points     int
}

func boundToGame(categories []domain.CategoryWithQuestions, game *domain.Game) Board {
	known := make(map[string]*domain.Question)
	for i := range categories {
		for j := range categories[i].Questions {
			q := &categories[i].Questions[j]
			known[q.ID] = q
		}
	}
	selected := make(map[cellKey]domain.SelectedQuestion, len(game.SelectedQuestions))
	for _, s := range game.SelectedQuestions {
		selected[cellKey{categoryID: s.CategoryID, points: s.PointValue}] = s
	}
	answered := make(map[string]bool, len(game.AnsweredQuestions))
	for _, a := range game.AnsweredQuestions {
		answered[a.QuestionID] = true
	}

	b := Board{Mode: ModeBoundToGame, Columns: make([]Column, 0, len(categories))}
	for _, category := range categories {
		column := newColumn(category.Category)
		for i := range column.Cells {
			s, ok := selected[cellKey{categoryID: category.ID, points: column.Cells[i].Points}]
			if !ok {
				continue
			}
			q := s.Question
			if q == nil {
				q = known[s.QuestionID]
			}
			if q == nil {
				// The question was deleted from the bank after selection.
				continue
			}
			resolved := *q
			column.Cells[i].Question = &resolved
			column.Cells[i].Answered = answered[s.QuestionID]
		}
		b.Columns = append(b.Columns, column)
	}
	return b
}

func liveRandom(categories []domain.CategoryWithQuestions, pick Picker) Board {
	b := Board{Mode: ModeLiveRandom, Columns: make([]Column, 0, len(categories))}
	for _, category := range categories {
		byPoints := make(map[int][]domain.Question)
		for _, q := range category.Questions {
			byPoints[q.Points] = append(byPoints[q.Points], q)
		}
		column := newColumn(category.Category)
		for i := range column.Cells {
			candidates := byPoints[column.Cells[i].Points]
			if len(candidates) == 0 {
				continue
			}
			q := candidates[pick(len(candidates))]
			column.Cells[i].Question = &q
			column.Cells[i].Answered = q.Answered
		}
		b.Columns = append(b.Columns, column)
	}
	return b
}

func newColumn(category domain.Category) Column {
	cells := make([]Cell, 0, domain.MaxPoints-domain.MinPoints+1)
	for p := domain.MinPoints; p <= domain.MaxPoints; p++ {
		cells = append(cells, Cell{Points: p})
	}
	return Column{Category: category, Cells: cells}
}

// AnsweredState maps each question on the board to its answered flag.
func (b Board) AnsweredState() map[string]bool {
	state := make(map[string]bool)
	for _, column := range b.Columns {
		for _, cell := range column.Cells {
			if !cell.Empty() {
				state[cell.Question.ID] = cell.Answered
			}
		}
	}
	return state
}
