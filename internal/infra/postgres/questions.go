package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"trivia-board-service/internal/domain"
)

const questionColumns = `id, category_id, points, text, answer, answered, bound_game_id, created_at, updated_at`

func (s *Store) CreateQuestion(ctx context.Context, q domain.Question) error {
	const stmt = `
		INSERT INTO questions (id, category_id, points, text, answer, answered, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.pool.Exec(ctx, stmt, q.ID, q.CategoryID, q.Points, q.Text, q.Answer, q.Answered, q.CreatedAt, q.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func (s *Store) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id)
	q, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("get question: %w", err)
	}
	return q, nil
}

func (s *Store) GetQuestionsByIDs(ctx context.Context, ids []string) ([]domain.Question, error) {
	return s.queryQuestions(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = ANY($1)`, ids)
}

func (s *Store) ListQuestions(ctx context.Context, categoryID string) ([]domain.Question, error) {
	if categoryID == "" {
		return s.queryQuestions(ctx, `SELECT `+questionColumns+` FROM questions ORDER BY points, created_at, id`)
	}
	return s.queryQuestions(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE category_id = $1 ORDER BY points, created_at, id`, categoryID)
}

// UpdateQuestion rewrites the editable fields. The binding is left to the selection statements.
func (s *Store) UpdateQuestion(ctx context.Context, q domain.Question) error {
	const stmt = `
		UPDATE questions
		SET category_id = $2, points = $3, text = $4, answer = $5, answered = $6, updated_at = $7
		WHERE id = $1
	`
	res, err := s.pool.Exec(ctx, stmt, q.ID, q.CategoryID, q.Points, q.Text, q.Answer, q.Answered, q.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	if res.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	res, err := s.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if res.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (s *Store) DeleteQuestionsByCategory(ctx context.Context, categoryID string) (int64, error) {
	res, err := s.pool.Exec(ctx, `DELETE FROM questions WHERE category_id = $1`, categoryID)
	if err != nil {
		return 0, fmt.Errorf("delete category questions: %w", err)
	}
	return res.RowsAffected(), nil
}

func (s *Store) ListUnbound(ctx context.Context, categoryID string, points int) ([]domain.Question, error) {
	return s.queryQuestions(ctx, `
		SELECT `+questionColumns+`
		FROM questions
		WHERE category_id = $1 AND points = $2 AND bound_game_id IS NULL
		ORDER BY created_at, id
	`, categoryID, points)
}

func (s *Store) BindIfUnbound(ctx context.Context, questionID, gameID string) (bool, error) {
	const stmt = `
		UPDATE questions
		SET bound_game_id = $2
		WHERE id = $1 AND bound_game_id IS NULL
	`
	res, err := s.pool.Exec(ctx, stmt, questionID, gameID)
	if err != nil {
		return false, fmt.Errorf("bind question: %w", err)
	}
	return res.RowsAffected() == 1, nil
}

func (s *Store) ReleaseQuestions(ctx context.Context, gameID string, questionIDs []string) (int64, error) {
	var (
		tag pgconn.CommandTag
		err error
	)
	if questionIDs == nil {
		tag, err = s.pool.Exec(ctx, `UPDATE questions SET bound_game_id = NULL WHERE bound_game_id = $1`, gameID)
	} else {
		tag, err = s.pool.Exec(ctx,
			`UPDATE questions SET bound_game_id = NULL WHERE bound_game_id = $1 AND id = ANY($2)`, gameID, questionIDs)
	}
	if err != nil {
		return 0, fmt.Errorf("release questions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) MarkAnswered(ctx context.Context, id string) error {
	res, err := s.pool.Exec(ctx, `UPDATE questions SET answered = true, updated_at = $2 WHERE id = $1`, id, s.now())
	if err != nil {
		return fmt.Errorf("mark answered: %w", err)
	}
	if res.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (s *Store) ResetBoundTo(ctx context.Context, gameID string) (int64, error) {
	res, err := s.pool.Exec(ctx,
		`UPDATE questions SET bound_game_id = NULL, answered = false, updated_at = $2 WHERE bound_game_id = $1`,
		gameID, s.now())
	if err != nil {
		return 0, fmt.Errorf("reset game questions: %w", err)
	}
	return res.RowsAffected(), nil
}

func (s *Store) ResetAll(ctx context.Context) (int64, error) {
	res, err := s.pool.Exec(ctx, `
		UPDATE questions
		SET bound_game_id = NULL, answered = false, updated_at = $1
		WHERE bound_game_id IS NOT NULL OR answered
	`, s.now())
	if err != nil {
		return 0, fmt.Errorf("reset questions: %w", err)
	}
	return res.RowsAffected(), nil
}

func (s *Store) queryQuestions(ctx context.Context, query string, args ...interface{}) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	questions := []domain.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var q domain.Question
	err := row.Scan(&q.ID, &q.CategoryID, &q.Points, &q.Text, &q.Answer, &q.Answered, &q.BoundGameID, &q.CreatedAt, &q.UpdatedAt)
	return q, err
}
