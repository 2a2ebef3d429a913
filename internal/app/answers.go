package app

import (
	"context"
	"fmt"

	"trivia-board-service/internal/domain"
)

// GetGame returns a game with every selected question resolved to its full record.
func (s *BoardService) GetGame(ctx context.Context, id string) (domain.Game, error) {
	game, err := s.games.GetGame(ctx, id)
	if err != nil {
		return domain.Game{}, err
	}
	if err := s.populateBoard(ctx, &game); err != nil {
		return domain.Game{}, err
	}
	return game, nil
}

// ListGames returns games, optionally filtered by status ("" for all).
func (s *BoardService) ListGames(ctx context.Context, status domain.GameStatus) ([]domain.Game, error) {
	if status != "" && status != domain.StatusOngoing && status != domain.StatusCompleted {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, status)
	}
	return s.games.ListGames(ctx, status)
}

func (s *BoardService) populateBoard(ctx context.Context, game *domain.Game) error {
	if len(game.SelectedQuestions) == 0 {
		return nil
	}
	ids := make([]string, 0, len(game.SelectedQuestions))
	for _, selected := range game.SelectedQuestions {
		ids = append(ids, selected.QuestionID)
	}
	questions, err := s.questions.GetQuestionsByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("resolve board questions: %w", err)
	}
	byID := make(map[string]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	for i := range game.SelectedQuestions {
		if q, ok := byID[game.SelectedQuestions[i].QuestionID]; ok {
			q := q
			game.SelectedQuestions[i].Question = &q
		}
	}
	return nil
}

// RecordAnswer appends an answer to the game's log and credits the team in one atomic step,
// then marks the question answered in the bank. A second answer for the same question in the
// same game is rejected with ErrAlreadyAnswered and changes nothing.
func (s *BoardService) RecordAnswer(ctx context.Context, gameID, questionID, teamName string, points int) (domain.Game, error) {
	if err := domain.RequireNonEmpty("gameId", gameID, "questionId", questionID, "teamName", teamName); err != nil {
		return domain.Game{}, err
	}
	if err := domain.ValidatePoints(points); err != nil {
		return domain.Game{}, err
	}

	game, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return domain.Game{}, err
	}
	team, ok := game.TeamByName(teamName)
	if !ok {
		return domain.Game{}, fmt.Errorf("%w: %q", domain.ErrUnknownTeam, teamName)
	}

	updated, err := s.games.AppendAnswer(ctx, gameID, team, domain.AnsweredQuestion{
		QuestionID: questionID,
		TeamName:   game.TeamName(team),
		Points:     points,
		AnsweredAt: s.now(),
	})
	if err != nil {
		return domain.Game{}, err
	}

	// The bank flag is idempotent and is also set by the question update endpoint, so a
	// failure here is logged rather than undoing the recorded answer.
	if err := s.questions.MarkAnswered(ctx, questionID); err != nil {
		s.logger().Warn("mark question answered", "question_id", questionID, "game_id", gameID, "error", err)
	}

	s.changed(ctx, &updated)
	return updated, nil
}

// MarkQuestionAnswered sets the bank-side answered flag of a question.
func (s *BoardService) MarkQuestionAnswered(ctx context.Context, questionID string) (domain.Question, error) {
	if err := s.questions.MarkAnswered(ctx, questionID); err != nil {
		return domain.Question{}, err
	}
	s.catalog.Invalidate(ctx)
	return s.questions.GetQuestion(ctx, questionID)
}

// AdjustScore changes a team's score by delta without touching the answer log.
// The resulting score never drops below zero.
func (s *BoardService) AdjustScore(ctx context.Context, gameID, teamName string, delta int) (domain.Game, error) {
	game, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return domain.Game{}, err
	}
	team, ok := game.TeamByName(teamName)
	if !ok {
		return domain.Game{}, fmt.Errorf("%w: %q", domain.ErrUnknownTeam, teamName)
	}
	updated, err := s.games.AdjustScore(ctx, gameID, team, delta)
	if err != nil {
		return domain.Game{}, err
	}
	s.changed(ctx, &updated)
	return updated, nil
}

// GamePatch carries the optional fields of a game update.
type GamePatch struct {
	FirstTeamScore  *int               `json:"firstTeamScore,omitempty"`
	SecondTeamScore *int               `json:"secondTeamScore,omitempty"`
	Status          *domain.GameStatus `json:"status,omitempty"`
	Winner          *string            `json:"winner,omitempty"`
}

// UpdateGame applies absolute score edits to an ongoing game. Completing a game through a
// patch goes through EndGame so the winner always comes from the final scores.
func (s *BoardService) UpdateGame(ctx context.Context, gameID string, patch GamePatch) (domain.Game, error) {
	game, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return domain.Game{}, err
	}

	if patch.Status != nil {
		switch *patch.Status {
		case domain.StatusOngoing, domain.StatusCompleted:
		default:
			return domain.Game{}, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, *patch.Status)
		}
		if game.Status == domain.StatusCompleted && *patch.Status == domain.StatusOngoing {
			return domain.Game{}, domain.ErrGameCompleted
		}
	}

	if patch.FirstTeamScore != nil || patch.SecondTeamScore != nil {
		game, err = s.games.SetScores(ctx, gameID, clampScore(patch.FirstTeamScore), clampScore(patch.SecondTeamScore))
		if err != nil {
			return domain.Game{}, err
		}
		s.changed(ctx, &game)
	}

	if patch.Status != nil && *patch.Status == domain.StatusCompleted && game.Status == domain.StatusOngoing {
		return s.EndGame(ctx, gameID)
	}
	return game, nil
}

func clampScore(score *int) *int {
	if score == nil || *score >= 0 {
		return score
	}
	zero := 0
	return &zero
}
