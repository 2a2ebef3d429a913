package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"trivia-board-service/internal/domain"
)

// GameStore is an in-memory implementation of app.GameRepository.
type GameStore struct {
	mu    sync.RWMutex
	games map[string]domain.Game
	now   func() time.Time
}

func NewGameStore() *GameStore {
	return &GameStore{
		games: make(map[string]domain.Game),
		now:   time.Now,
	}
}

func (s *GameStore) CreateGame(_ context.Context, g domain.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[g.ID] = cloneGame(g)
	return nil
}

func (s *GameStore) GetGame(_ context.Context, id string) (domain.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.games[id]
	if !ok {
		return domain.Game{}, domain.ErrGameNotFound
	}
	return cloneGame(g), nil
}

func (s *GameStore) ListGames(_ context.Context, status domain.GameStatus) ([]domain.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Game, 0, len(s.games))
	for _, g := range s.games {
		if status == "" || g.Status == status {
			out = append(out, cloneGame(g))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *GameStore) DeleteGame(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[id]; !ok {
		return domain.ErrGameNotFound
	}
	delete(s.games, id)
	return nil
}

func (s *GameStore) AppendAnswer(_ context.Context, gameID string, team domain.Team, entry domain.AnsweredQuestion) (domain.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[gameID]
	switch {
	case !ok:
		return domain.Game{}, domain.ErrGameNotFound
	case g.Status == domain.StatusCompleted:
		return domain.Game{}, domain.ErrGameCompleted
	}
	if _, onBoard := g.Selected(entry.QuestionID); !onBoard {
		return domain.Game{}, domain.ErrQuestionNotOnBoard
	}
	if g.IsAnswered(entry.QuestionID) {
		return domain.Game{}, domain.ErrAlreadyAnswered
	}

	g = cloneGame(g)
	g.AnsweredQuestions = append(g.AnsweredQuestions, entry)
	addScore(&g, team, entry.Points)
	g.UpdatedAt = s.now()
	s.games[gameID] = g
	return cloneGame(g), nil
}

func (s *GameStore) AdjustScore(_ context.Context, gameID string, team domain.Team, delta int) (domain.Game, error) {
	return s.update(gameID, func(g *domain.Game) error {
		addScore(g, team, delta)
		return nil
	})
}

func (s *GameStore) SetScores(_ context.Context, gameID string, first, second *int) (domain.Game, error) {
	return s.update(gameID, func(g *domain.Game) error {
		if first != nil {
			g.FirstTeamScore = *first
		}
		if second != nil {
			g.SecondTeamScore = *second
		}
		return nil
	})
}

func (s *GameStore) CompleteGame(_ context.Context, gameID string) (domain.Game, error) {
	return s.update(gameID, func(g *domain.Game) error {
		winner := g.DecideWinner()
		g.Status = domain.StatusCompleted
		g.Winner = &winner
		return nil
	})
}

// update applies fn to an ongoing game under the store lock.
func (s *GameStore) update(gameID string, fn func(g *domain.Game) error) (domain.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[gameID]
	if !ok {
		return domain.Game{}, domain.ErrGameNotFound
	}
	if g.Status == domain.StatusCompleted {
		return domain.Game{}, domain.ErrGameCompleted
	}
	g = cloneGame(g)
	if err := fn(&g); err != nil {
		return domain.Game{}, err
	}
	g.UpdatedAt = s.now()
	s.games[gameID] = g
	return cloneGame(g), nil
}

func addScore(g *domain.Game, team domain.Team, delta int) {
	score := &g.FirstTeamScore
	if team == domain.SecondTeam {
		score = &g.SecondTeamScore
	}
	*score += delta
	if *score < 0 {
		*score = 0
	}
}

func cloneGame(g domain.Game) domain.Game {
	selected := make([]domain.SelectedQuestion, len(g.SelectedQuestions))
	for i, sq := range g.SelectedQuestions {
		sq.Question = nil
		selected[i] = sq
	}
	g.SelectedQuestions = selected
	g.AnsweredQuestions = append([]domain.AnsweredQuestion{}, g.AnsweredQuestions...)
	if g.Winner != nil {
		w := *g.Winner
		g.Winner = &w
	}
	return g
}
