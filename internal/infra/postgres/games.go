package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"

	"trivia-board-service/internal/domain"
)

const gameColumns = `id, name, first_team_name, second_team_name, first_team_score, second_team_score,
	status, winner, created_at, updated_at`

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// CreateGame stores the game row and its board in one transaction.
func (s *Store) CreateGame(ctx context.Context, g domain.Game) error {
	return s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		const insertGame = `
			INSERT INTO games (id, name, first_team_name, second_team_name, first_team_score, second_team_score,
				status, winner, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`
		if _, err := tx.Exec(ctx, insertGame, g.ID, g.Name, g.FirstTeamName, g.SecondTeamName,
			g.FirstTeamScore, g.SecondTeamScore, string(g.Status), g.Winner, g.CreatedAt, g.UpdatedAt); err != nil {
			return fmt.Errorf("insert game: %w", err)
		}

		if len(g.SelectedQuestions) == 0 {
			return nil
		}
		batch := &pgx.Batch{}
		for i, selected := range g.SelectedQuestions {
			batch.Queue(`
				INSERT INTO game_selections (game_id, position, category_id, point_value, question_id)
				VALUES ($1, $2, $3, $4, $5)
			`, g.ID, i, selected.CategoryID, selected.PointValue, selected.QuestionID)
		}
		results := tx.SendBatch(ctx, batch)
		for range g.SelectedQuestions {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("insert selection: %w", err)
			}
		}
		return results.Close()
	})
}

func (s *Store) GetGame(ctx context.Context, id string) (domain.Game, error) {
	return s.loadGame(ctx, s.pool, id)
}

func (s *Store) ListGames(ctx context.Context, status domain.GameStatus) ([]domain.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	games := []domain.Game{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}

	if err := s.loadChildren(ctx, s.pool, games); err != nil {
		return nil, err
	}
	return games, nil
}

func (s *Store) DeleteGame(ctx context.Context, id string) error {
	res, err := s.pool.Exec(ctx, `DELETE FROM games WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	if res.RowsAffected() == 0 {
		return domain.ErrGameNotFound
	}
	return nil
}

// AppendAnswer locks the game row, so concurrent answers for one game are serialized and the
// log entry and score change commit together.
func (s *Store) AppendAnswer(ctx context.Context, gameID string, team domain.Team, entry domain.AnsweredQuestion) (domain.Game, error) {
	var game domain.Game
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx, `SELECT status FROM games WHERE id = $1 FOR UPDATE`, gameID).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrGameNotFound
		}
		if err != nil {
			return fmt.Errorf("lock game: %w", err)
		}
		if domain.GameStatus(status) == domain.StatusCompleted {
			return domain.ErrGameCompleted
		}

		var onBoard bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM game_selections WHERE game_id = $1 AND question_id = $2)`,
			gameID, entry.QuestionID).Scan(&onBoard)
		if err != nil {
			return fmt.Errorf("check selection: %w", err)
		}
		if !onBoard {
			return domain.ErrQuestionNotOnBoard
		}

		res, err := tx.Exec(ctx, `
			INSERT INTO game_answers (game_id, question_id, team_name, points, answered_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (game_id, question_id) DO NOTHING
		`, gameID, entry.QuestionID, entry.TeamName, entry.Points, entry.AnsweredAt)
		if err != nil {
			return fmt.Errorf("insert answer: %w", err)
		}
		if res.RowsAffected() == 0 {
			return domain.ErrAlreadyAnswered
		}

		if _, err := tx.Exec(ctx, scoreUpdate(team, "%s + $2"), gameID, entry.Points, s.now()); err != nil {
			return fmt.Errorf("credit team: %w", err)
		}
		game, err = s.loadGame(ctx, tx, gameID)
		return err
	})
	if err != nil {
		return domain.Game{}, err
	}
	return game, nil
}

func (s *Store) AdjustScore(ctx context.Context, gameID string, team domain.Team, delta int) (domain.Game, error) {
	res, err := s.pool.Exec(ctx, scoreUpdate(team, "GREATEST(%s + $2, 0)")+` AND status = 'ongoing'`, gameID, delta, s.now())
	if err != nil {
		return domain.Game{}, fmt.Errorf("adjust score: %w", err)
	}
	if res.RowsAffected() == 0 {
		return domain.Game{}, s.classify(ctx, gameID)
	}
	return s.GetGame(ctx, gameID)
}

func (s *Store) SetScores(ctx context.Context, gameID string, first, second *int) (domain.Game, error) {
	const stmt = `
		UPDATE games
		SET first_team_score = COALESCE($2::int, first_team_score),
			second_team_score = COALESCE($3::int, second_team_score),
			updated_at = $4
		WHERE id = $1 AND status = 'ongoing'
	`
	res, err := s.pool.Exec(ctx, stmt, gameID, first, second, s.now())
	if err != nil {
		return domain.Game{}, fmt.Errorf("set scores: %w", err)
	}
	if res.RowsAffected() == 0 {
		return domain.Game{}, s.classify(ctx, gameID)
	}
	return s.GetGame(ctx, gameID)
}

// CompleteGame decides the winner from the stored scores in the same statement that ends the game.
func (s *Store) CompleteGame(ctx context.Context, gameID string) (domain.Game, error) {
	const stmt = `
		UPDATE games
		SET status = 'completed',
			winner = CASE
				WHEN first_team_score > second_team_score THEN first_team_name
				WHEN second_team_score > first_team_score THEN second_team_name
				ELSE $2
			END,
			updated_at = $3
		WHERE id = $1 AND status = 'ongoing'
	`
	res, err := s.pool.Exec(ctx, stmt, gameID, domain.TieWinner, s.now())
	if err != nil {
		return domain.Game{}, fmt.Errorf("complete game: %w", err)
	}
	if res.RowsAffected() == 0 {
		return domain.Game{}, s.classify(ctx, gameID)
	}
	return s.GetGame(ctx, gameID)
}

// classify explains why a conditional game update matched no row.
func (s *Store) classify(ctx context.Context, gameID string) error {
	var status string
	err := s.pool.QueryRow(ctx, `SELECT status FROM games WHERE id = $1`, gameID).Scan(&status)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return domain.ErrGameNotFound
	case err != nil:
		return fmt.Errorf("read game status: %w", err)
	case domain.GameStatus(status) == domain.StatusCompleted:
		return domain.ErrGameCompleted
	}
	return fmt.Errorf("game %s changed concurrently", gameID)
}

// scoreUpdate builds the score statement for one team column; expr receives the column name.
func scoreUpdate(team domain.Team, expr string) string {
	column := "first_team_score"
	if team == domain.SecondTeam {
		column = "second_team_score"
	}
	return fmt.Sprintf(`UPDATE games SET %s = %s, updated_at = $3 WHERE id = $1`, column, fmt.Sprintf(expr, column))
}

func (s *Store) loadGame(ctx context.Context, q querier, id string) (domain.Game, error) {
	g, err := scanGame(q.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Game{}, domain.ErrGameNotFound
	}
	if err != nil {
		return domain.Game{}, fmt.Errorf("get game: %w", err)
	}
	games := []domain.Game{g}
	if err := s.loadChildren(ctx, q, games); err != nil {
		return domain.Game{}, err
	}
	return games[0], nil
}

// loadChildren fills the board and the answer log of each game in two queries.
func (s *Store) loadChildren(ctx context.Context, q querier, games []domain.Game) error {
	if len(games) == 0 {
		return nil
	}
	ids := make([]string, len(games))
	index := make(map[string]int, len(games))
	for i := range games {
		ids[i] = games[i].ID
		index[games[i].ID] = i
		games[i].SelectedQuestions = []domain.SelectedQuestion{}
		games[i].AnsweredQuestions = []domain.AnsweredQuestion{}
	}

	rows, err := q.Query(ctx, `
		SELECT game_id, category_id, point_value, question_id
		FROM game_selections
		WHERE game_id = ANY($1)
		ORDER BY game_id, position
	`, ids)
	if err != nil {
		return fmt.Errorf("load selections: %w", err)
	}
	for rows.Next() {
		var gameID string
		var selected domain.SelectedQuestion
		if err := rows.Scan(&gameID, &selected.CategoryID, &selected.PointValue, &selected.QuestionID); err != nil {
			rows.Close()
			return fmt.Errorf("scan selection: %w", err)
		}
		g := &games[index[gameID]]
		g.SelectedQuestions = append(g.SelectedQuestions, selected)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load selections: %w", err)
	}

	rows, err = q.Query(ctx, `
		SELECT game_id, question_id, team_name, points, answered_at
		FROM game_answers
		WHERE game_id = ANY($1)
		ORDER BY game_id, answered_at, question_id
	`, ids)
	if err != nil {
		return fmt.Errorf("load answers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var gameID string
		var answer domain.AnsweredQuestion
		if err := rows.Scan(&gameID, &answer.QuestionID, &answer.TeamName, &answer.Points, &answer.AnsweredAt); err != nil {
			return fmt.Errorf("scan answer: %w", err)
		}
		g := &games[index[gameID]]
		g.AnsweredQuestions = append(g.AnsweredQuestions, answer)
	}
	return rows.Err()
}

func scanGame(row pgx.Row) (domain.Game, error) {
	var g domain.Game
	var status string
	err := row.Scan(&g.ID, &g.Name, &g.FirstTeamName, &g.SecondTeamName, &g.FirstTeamScore, &g.SecondTeamScore,
		&status, &g.Winner, &g.CreatedAt, &g.UpdatedAt)
	g.Status = domain.GameStatus(status)
	return g, err
}
