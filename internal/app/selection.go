package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"trivia-board-service/internal/domain"
)

func newID() string {
	return uuid.NewString()
}

// CreateGame draws one unbound question per (category, point value) cell, binds the draw
// to a new game and persists it. Cells with no unbound question are left out of the board.
// Either the whole game is created or every binding made along the way is rolled back.
func (s *BoardService) CreateGame(ctx context.Context, name, firstTeamName, secondTeamName string) (domain.Game, error) {
	if err := domain.RequireNonEmpty("name", name, "firstTeamName", firstTeamName, "secondTeamName", secondTeamName); err != nil {
		return domain.Game{}, err
	}

	categories, err := s.categories.ListCategories(ctx)
	if err != nil {
		return domain.Game{}, fmt.Errorf("list categories: %w", err)
	}

	gameID := s.newID()
	board := make([]domain.SelectedQuestion, 0, len(categories)*domain.MaxPoints)
	for _, category := range categories {
		for points := domain.MinPoints; points <= domain.MaxPoints; points++ {
			selected, ok, err := s.drawCell(ctx, gameID, category.ID, points)
			if err != nil {
				s.rollbackBindings(ctx, gameID, board)
				return domain.Game{}, err
			}
			if ok {
				board = append(board, selected)
			}
		}
	}

	now := s.now()
	game := domain.Game{
		ID:                gameID,
		Name:              name,
		FirstTeamName:     firstTeamName,
		SecondTeamName:    secondTeamName,
		Status:            domain.StatusOngoing,
		SelectedQuestions: board,
		AnsweredQuestions: []domain.AnsweredQuestion{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.games.CreateGame(ctx, game); err != nil {
		s.rollbackBindings(ctx, gameID, board)
		return domain.Game{}, fmt.Errorf("create game: %w", err)
	}

	s.logger().Info("game created", "game_id", game.ID, "cells", len(board))
	s.changed(ctx, &game)
	return game, nil
}

// drawCell picks uniformly among the cell's unbound questions. A candidate that another game
// binds first is skipped; when every candidate is gone the cell stays empty.
func (s *BoardService) drawCell(ctx context.Context, gameID, categoryID string, points int) (domain.SelectedQuestion, bool, error) {
	candidates, err := s.questions.ListUnbound(ctx, categoryID, points)
	if err != nil {
		return domain.SelectedQuestion{}, false, fmt.Errorf("list candidates: %w", err)
	}
	if len(candidates) == 0 {
		return domain.SelectedQuestion{}, false, nil
	}

	s.shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	for _, candidate := range candidates {
		bound, err := s.questions.BindIfUnbound(ctx, candidate.ID, gameID)
		if err != nil {
			return domain.SelectedQuestion{}, false, fmt.Errorf("bind question: %w", err)
		}
		if bound {
			return domain.SelectedQuestion{
				CategoryID: categoryID,
				PointValue: points,
				QuestionID: candidate.ID,
			}, true, nil
		}
		s.logger().Debug("candidate taken by another game", "question_id", candidate.ID, "game_id", gameID)
	}
	return domain.SelectedQuestion{}, false, nil
}

func (s *BoardService) rollbackBindings(ctx context.Context, gameID string, board []domain.SelectedQuestion) {
	if len(board) == 0 {
		return
	}
	ids := make([]string, 0, len(board))
	for _, selected := range board {
		ids = append(ids, selected.QuestionID)
	}
	if _, err := s.questions.ReleaseQuestions(context.WithoutCancel(ctx), gameID, ids); err != nil {
		s.logger().Error("release bindings after failed creation", "game_id", gameID, "error", err)
	}
}
