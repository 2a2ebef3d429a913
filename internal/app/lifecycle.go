package app

import (
	"context"
	"errors"
	"fmt"

	"trivia-board-service/internal/domain"
)

// EndGame completes an ongoing game, decides the winner and returns every unanswered board
// question to the pool. Answered questions stay bound to the completed game for good.
// Ending a completed game fails with ErrGameCompleted, but first finishes a release that an
// earlier call did not get to.
func (s *BoardService) EndGame(ctx context.Context, gameID string) (domain.Game, error) {
	game, err := s.games.CompleteGame(ctx, gameID)
	if errors.Is(err, domain.ErrGameCompleted) {
		completed, getErr := s.games.GetGame(ctx, gameID)
		if getErr != nil {
			return domain.Game{}, getErr
		}
		if _, relErr := s.releaseUnanswered(ctx, completed); relErr != nil {
			return domain.Game{}, relErr
		}
		return domain.Game{}, err
	}
	if err != nil {
		return domain.Game{}, err
	}

	freed, err := s.releaseUnanswered(ctx, game)
	if err != nil {
		return domain.Game{}, err
	}
	s.logger().Info("game ended", "game_id", gameID, "winner", deref(game.Winner), "freed", freed)

	s.changed(ctx, &game)
	return game, nil
}

func (s *BoardService) releaseUnanswered(ctx context.Context, game domain.Game) (int64, error) {
	unanswered := make([]string, 0, len(game.SelectedQuestions))
	for _, selected := range game.SelectedQuestions {
		if !game.IsAnswered(selected.QuestionID) {
			unanswered = append(unanswered, selected.QuestionID)
		}
	}
	if len(unanswered) == 0 {
		return 0, nil
	}
	freed, err := s.questions.ReleaseQuestions(ctx, game.ID, unanswered)
	if err != nil {
		return 0, fmt.Errorf("release unanswered questions: %w", err)
	}
	return freed, nil
}

// DeleteGame releases every question bound to a game, answered or not, then removes the game.
// It returns how many questions went back to the pool.
func (s *BoardService) DeleteGame(ctx context.Context, gameID string) (int64, error) {
	if _, err := s.games.GetGame(ctx, gameID); err != nil {
		return 0, err
	}
	freed, err := s.questions.ReleaseQuestions(ctx, gameID, nil)
	if err != nil {
		return 0, fmt.Errorf("release game questions: %w", err)
	}
	if err := s.games.DeleteGame(ctx, gameID); err != nil {
		return 0, err
	}
	s.updates.Close(gameID)
	s.changed(ctx, nil)
	return freed, nil
}

// ResetQuestionsForGame clears binding and answered flag of every question bound to the game.
// The game record itself is left alone.
func (s *BoardService) ResetQuestionsForGame(ctx context.Context, gameID string) (int64, error) {
	if err := domain.RequireNonEmpty("gameId", gameID); err != nil {
		return 0, err
	}
	modified, err := s.questions.ResetBoundTo(ctx, gameID)
	if err != nil {
		return 0, err
	}
	s.changed(ctx, nil)
	return modified, nil
}

// ResetAllQuestions clears binding and answered flag on the whole bank.
func (s *BoardService) ResetAllQuestions(ctx context.Context) (int64, error) {
	modified, err := s.questions.ResetAll(ctx)
	if err != nil {
		return 0, err
	}
	s.changed(ctx, nil)
	return modified, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
