package memory

import (
	"context"
	"sort"
	"sync"

	"trivia-board-service/internal/domain"
)

type cellKey struct {
	categoryID string
	points     int
}

// QuestionStore is an in-memory implementation of app.QuestionRepository.
// Every method runs under one lock, which makes each conditional write atomic.
type QuestionStore struct {
	mu        sync.RWMutex
	questions map[string]domain.Question
	cells     map[cellKey]map[string]struct{}
}

func NewQuestionStore() *QuestionStore {
	return &QuestionStore{
		questions: make(map[string]domain.Question),
		cells:     make(map[cellKey]map[string]struct{}),
	}
}

func (s *QuestionStore) CreateQuestion(_ context.Context, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[q.ID] = cloneQuestion(q)
	s.index(q)
	return nil
}

func (s *QuestionStore) GetQuestion(_ context.Context, id string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return cloneQuestion(q), nil
}

func (s *QuestionStore) GetQuestionsByIDs(_ context.Context, ids []string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := s.questions[id]; ok {
			out = append(out, cloneQuestion(q))
		}
	}
	return out, nil
}

func (s *QuestionStore) ListQuestions(_ context.Context, categoryID string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, 0, len(s.questions))
	for _, q := range s.questions {
		if categoryID == "" || q.CategoryID == categoryID {
			out = append(out, cloneQuestion(q))
		}
	}
	sortQuestions(out)
	return out, nil
}

func (s *QuestionStore) UpdateQuestion(_ context.Context, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.questions[q.ID]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	s.unindex(current)
	// Binding is owned by the selection engine; edits never move it.
	q.BoundGameID = current.BoundGameID
	s.questions[q.ID] = cloneQuestion(q)
	s.index(q)
	return nil
}

func (s *QuestionStore) DeleteQuestion(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	s.unindex(q)
	delete(s.questions, id)
	return nil
}

func (s *QuestionStore) DeleteQuestionsByCategory(_ context.Context, categoryID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, q := range s.questions {
		if q.CategoryID == categoryID {
			s.unindex(q)
			delete(s.questions, id)
			removed++
		}
	}
	return removed, nil
}

func (s *QuestionStore) ListUnbound(_ context.Context, categoryID string, points int) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.cells[cellKey{categoryID: categoryID, points: points}]
	out := make([]domain.Question, 0, len(ids))
	for id := range ids {
		q := s.questions[id]
		if !q.IsBound() {
			out = append(out, cloneQuestion(q))
		}
	}
	sortQuestions(out)
	return out, nil
}

func (s *QuestionStore) BindIfUnbound(_ context.Context, questionID, gameID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[questionID]
	if !ok || q.IsBound() {
		return false, nil
	}
	q.BoundGameID = &gameID
	s.questions[questionID] = q
	return true, nil
}

func (s *QuestionStore) ReleaseQuestions(_ context.Context, gameID string, questionIDs []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var released int64
	release := func(id string) {
		q, ok := s.questions[id]
		if !ok || !q.IsBound() || *q.BoundGameID != gameID {
			return
		}
		q.BoundGameID = nil
		s.questions[id] = q
		released++
	}
	if questionIDs == nil {
		for id := range s.questions {
			release(id)
		}
		return released, nil
	}
	for _, id := range questionIDs {
		release(id)
	}
	return released, nil
}

func (s *QuestionStore) MarkAnswered(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	q.Answered = true
	s.questions[id] = q
	return nil
}

func (s *QuestionStore) ResetBoundTo(_ context.Context, gameID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var modified int64
	for id, q := range s.questions {
		if q.IsBound() && *q.BoundGameID == gameID {
			q.BoundGameID = nil
			q.Answered = false
			s.questions[id] = q
			modified++
		}
	}
	return modified, nil
}

func (s *QuestionStore) ResetAll(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var modified int64
	for id, q := range s.questions {
		if q.IsBound() || q.Answered {
			modified++
		}
		q.BoundGameID = nil
		q.Answered = false
		s.questions[id] = q
	}
	return modified, nil
}

func (s *QuestionStore) index(q domain.Question) {
	key := cellKey{categoryID: q.CategoryID, points: q.Points}
	ids, ok := s.cells[key]
	if !ok {
		ids = make(map[string]struct{})
		s.cells[key] = ids
	}
	ids[q.ID] = struct{}{}
}

func (s *QuestionStore) unindex(q domain.Question) {
	key := cellKey{categoryID: q.CategoryID, points: q.Points}
	if ids, ok := s.cells[key]; ok {
		delete(ids, q.ID)
		if len(ids) == 0 {
			delete(s.cells, key)
		}
	}
}

func cloneQuestion(q domain.Question) domain.Question {
	if q.BoundGameID != nil {
		id := *q.BoundGameID
		q.BoundGameID = &id
	}
	return q
}

func sortQuestions(qs []domain.Question) {
	sort.Slice(qs, func(i, j int) bool {
		if qs[i].Points != qs[j].Points {
			return qs[i].Points < qs[j].Points
		}
		if !qs[i].CreatedAt.Equal(qs[j].CreatedAt) {
			return qs[i].CreatedAt.Before(qs[j].CreatedAt)
		}
		return qs[i].ID < qs[j].ID
	})
}
