package syncclient

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"golang.org/x/sync/errgroup"

	"trivia-board-service/internal/board"
	"trivia-board-service/internal/domain"
)

// Backend is the part of the board API a session needs. *Client implements it.
type Backend interface {
	Categories(ctx context.Context) ([]domain.CategoryWithQuestions, error)
	Game(ctx context.Context, id string) (domain.Game, error)
	RecordAnswer(ctx context.Context, gameID, questionID, teamName string, points int) (domain.Game, error)
	MarkAnswered(ctx context.Context, questionID string) error
	AdjustScore(ctx context.Context, gameID, teamName string, delta int) (domain.Game, error)
	EndGame(ctx context.Context, gameID string) (domain.Game, error)
}

// Session holds the local view of one game. Actions change the local view synchronously and
// enqueue a background task that reports the action to the server. A failed task is recorded
// in Errors and logged; the local change stays in place until a later Refresh reconciles it.
type Session struct {
	backend Backend
	cache   Cache
	gameID  string
	now     func() time.Time
	log     *slog.Logger

	mu         sync.Mutex
	game       domain.Game
	categories []domain.CategoryWithQuestions
	revision   uint64
	mutations  uint64
	board      board.Board
	boardRev   uint64
	boardBuilt bool
	errs       []TaskError

	queue *queue

	schedMu sync.Mutex
	sched   gocron.Scheduler
}

type SessionOption func(*Session)

func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

func WithLogger(log *slog.Logger) SessionOption {
	return func(s *Session) { s.log = log }
}

// Open starts a session on a game. Any earlier snapshot of the game is dropped, then the
// categories and the game are fetched concurrently. If either fetch fails the error is
// returned and no session state exists.
func Open(ctx context.Context, backend Backend, cache Cache, gameID string, opts ...SessionOption) (*Session, error) {
	s := &Session{
		backend: backend,
		cache:   cache,
		gameID:  gameID,
		now:     time.Now,
		log:     slog.Default().With("component", "sync"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.queue = newQueue(s.recordError)

	if err := cache.Invalidate(ctx, gameKey(gameID)); err != nil {
		s.log.Warn("invalidate game snapshot", "game_id", gameID, "error", err)
	}

	var (
		categories []domain.CategoryWithQuestions
		game       domain.Game
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = backend.Categories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		game, err = backend.Game(gctx, gameID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("open game %s: %w", gameID, err)
	}

	s.categories = categories
	s.game = game
	s.revision = 1
	s.saveSnapshots(ctx, categories, game)
	return s, nil
}

// Game returns a copy of the local game.
func (s *Session) Game() domain.Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyGame(s.game)
}

// Revision increases whenever the local game changes.
func (s *Session) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Board returns the projected board, recomputed only when the game changed.
func (s *Session) Board() board.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.boardBuilt || s.boardRev != s.revision {
		game := copyGame(s.game)
		s.board = board.Project(s.categories, &game, nil)
		s.boardRev = s.revision
		s.boardBuilt = true
	}
	return s.board
}

// RecordAnswer credits a team for a question on the local board and reconciles in the
// background: the answer is posted, then the question is flagged answered in the bank.
func (s *Session) RecordAnswer(questionID, teamName string, points int) error {
	if err := domain.ValidatePoints(points); err != nil {
		return err
	}

	s.mu.Lock()
	if s.game.Status == domain.StatusCompleted {
		s.mu.Unlock()
		return domain.ErrGameCompleted
	}
	team, ok := s.game.TeamByName(teamName)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", domain.ErrUnknownTeam, teamName)
	}
	if _, ok := s.game.Selected(questionID); !ok {
		s.mu.Unlock()
		return domain.ErrQuestionNotOnBoard
	}
	if s.game.IsAnswered(questionID) {
		s.mu.Unlock()
		return domain.ErrAlreadyAnswered
	}
	s.game.AnsweredQuestions = append(s.game.AnsweredQuestions, domain.AnsweredQuestion{
		QuestionID: questionID,
		TeamName:   s.game.TeamName(team),
		Points:     points,
		AnsweredAt: s.now(),
	})
	addScore(&s.game, team, points)
	s.categories = withAnswered(s.categories, questionID)
	s.revision++
	s.mutations++
	s.mu.Unlock()

	s.queue.enqueue("record-answer", func(ctx context.Context) error {
		// A duplicate answer means an earlier attempt already landed; server stays zero-valued.
		server, err := s.backend.RecordAnswer(ctx, s.gameID, questionID, teamName, points)
		if err != nil && !IsAlreadyAnswered(err) {
			return err
		}
		if err := s.backend.MarkAnswered(ctx, questionID); err != nil {
			return fmt.Errorf("flag question: %w", err)
		}
		return s.reconcile(ctx, server)
	})
	return nil
}

// AdjustScore changes a team's score locally, never below zero, and reports it in the background.
func (s *Session) AdjustScore(teamName string, delta int) error {
	s.mu.Lock()
	if s.game.Status == domain.StatusCompleted {
		s.mu.Unlock()
		return domain.ErrGameCompleted
	}
	team, ok := s.game.TeamByName(teamName)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", domain.ErrUnknownTeam, teamName)
	}
	addScore(&s.game, team, delta)
	s.revision++
	s.mutations++
	s.mu.Unlock()

	s.queue.enqueue("adjust-score", func(ctx context.Context) error {
		server, err := s.backend.AdjustScore(ctx, s.gameID, teamName, delta)
		if err != nil {
			return err
		}
		return s.reconcile(ctx, server)
	})
	return nil
}

// EndGame completes the game locally with the winner from the local scores. The server call
// waits for every earlier task so the server decides on the same scores.
func (s *Session) EndGame() error {
	s.mu.Lock()
	if s.game.Status == domain.StatusCompleted {
		s.mu.Unlock()
		return domain.ErrGameCompleted
	}
	winner := s.game.DecideWinner()
	s.game.Status = domain.StatusCompleted
	s.game.Winner = &winner
	s.revision++
	s.mutations++
	s.mu.Unlock()

	s.queue.enqueueBarrier("end-game", func(ctx context.Context) error {
		server, err := s.backend.EndGame(ctx, s.gameID)
		if err != nil {
			return err
		}
		return s.reconcile(ctx, server)
	})
	return nil
}

// Refresh refetches categories and the game and merges them into the local view.
func (s *Session) Refresh(ctx context.Context) error {
	seq := s.mutationSeq()
	var (
		categories []domain.CategoryWithQuestions
		game       domain.Game
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		categories, err = s.backend.Categories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		game, err = s.backend.Game(gctx, s.gameID)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("refresh game %s: %w", s.gameID, err)
	}

	s.mu.Lock()
	s.categories = categories
	s.mu.Unlock()
	s.merge(ctx, game, func() bool { return s.mutations == seq && s.queue.idle() })
	return nil
}

// Errors returns the background failures recorded so far.
func (s *Session) Errors() []TaskError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TaskError(nil), s.errs...)
}

// Wait blocks until every enqueued task has finished.
func (s *Session) Wait() {
	s.queue.wait()
}

// StartAutoRefresh refreshes the session on a fixed interval until Stop.
func (s *Session) StartAutoRefresh(interval time.Duration) error {
	s.schedMu.Lock()
	defer s.schedMu.Unlock()
	if s.sched != nil {
		return nil
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			if err := s.Refresh(ctx); err != nil {
				s.recordError("refresh", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("schedule refresh: %w", err)
	}
	sched.Start()
	s.sched = sched
	return nil
}

// Stop ends auto refresh and waits for the tasks still in flight to succeed or fail.
func (s *Session) Stop() {
	s.schedMu.Lock()
	if s.sched != nil {
		if err := s.sched.Shutdown(); err != nil {
			s.log.Warn("stop refresh scheduler", "game_id", s.gameID, "error", err)
		}
		s.sched = nil
	}
	s.schedMu.Unlock()
	s.queue.wait()
}

// reconcile merges the result of a finished task. The last task standing refetches the game,
// since its own response may predate responses of tasks that finished before it.
func (s *Session) reconcile(ctx context.Context, server domain.Game) error {
	seq := s.mutationSeq()
	if s.queue.othersPending() {
		s.merge(ctx, server, nil)
		return nil
	}
	latest, err := s.backend.Game(ctx, s.gameID)
	if err != nil {
		s.merge(ctx, server, nil)
		return fmt.Errorf("refetch game: %w", err)
	}
	// An action taken during the refetch is not in latest; its scores must survive.
	s.merge(ctx, latest, func() bool { return s.mutations == seq && !s.queue.othersPending() })
	return nil
}

func (s *Session) mutationSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutations
}

// merge folds a server copy of the game into the local view. Local answer log entries are
// never dropped. Server scores are taken only when adoptScores, called under the session
// lock, reports that no local change is newer than the server copy. Status and winner are
// taken once the server reports the game completed.
func (s *Session) merge(ctx context.Context, server domain.Game, adoptScores func() bool) {
	s.mu.Lock()
	before := copyGame(s.game)

	local := s.game.AnsweredQuestions
	seen := make(map[string]struct{}, len(local))
	for _, a := range local {
		seen[a.QuestionID] = struct{}{}
	}
	for _, a := range server.AnsweredQuestions {
		if _, ok := seen[a.QuestionID]; !ok {
			local = append(local, a)
			seen[a.QuestionID] = struct{}{}
		}
	}
	s.game.AnsweredQuestions = local

	if adoptScores != nil && adoptScores() {
		s.game.FirstTeamScore = server.FirstTeamScore
		s.game.SecondTeamScore = server.SecondTeamScore
	}
	if server.Status == domain.StatusCompleted {
		s.game.Status = server.Status
		s.game.Winner = server.Winner
	}
	if len(s.game.SelectedQuestions) == 0 {
		s.game.SelectedQuestions = server.SelectedQuestions
	}

	game := copyGame(s.game)
	if !reflect.DeepEqual(before, game) {
		s.revision++
	}
	categories := s.categories
	s.mu.Unlock()

	s.saveSnapshots(ctx, categories, game)
}

func (s *Session) recordError(task string, err error) {
	te := TaskError{Task: task, GameID: s.gameID, At: s.now(), Err: err}
	s.log.Warn("reconciliation failed", "game_id", s.gameID, "task", task, "error", err)
	s.mu.Lock()
	s.errs = append(s.errs, te)
	s.mu.Unlock()
}

func (s *Session) saveSnapshots(ctx context.Context, categories []domain.CategoryWithQuestions, game domain.Game) {
	now := s.now()
	if categories != nil {
		if err := store(ctx, s.cache, categoriesKey, categories, now); err != nil {
			s.log.Warn("save categories snapshot", "error", err)
		}
	}
	if err := store(ctx, s.cache, gameKey(s.gameID), game, now); err != nil {
		s.log.Warn("save game snapshot", "game_id", s.gameID, "error", err)
	}
}

func addScore(game *domain.Game, team domain.Team, delta int) {
	score := &game.FirstTeamScore
	if team == domain.SecondTeam {
		score = &game.SecondTeamScore
	}
	*score += delta
	if *score < 0 {
		*score = 0
	}
}

// withAnswered returns categories with the question flagged answered. Slices are copied so
// snapshots taken earlier are never written to.
func withAnswered(categories []domain.CategoryWithQuestions, questionID string) []domain.CategoryWithQuestions {
	for i := range categories {
		for j := range categories[i].Questions {
			if categories[i].Questions[j].ID != questionID {
				continue
			}
			out := append([]domain.CategoryWithQuestions(nil), categories...)
			out[i].Questions = append([]domain.Question(nil), categories[i].Questions...)
			out[i].Questions[j].Answered = true
			return out
		}
	}
	return categories
}

func copyGame(g domain.Game) domain.Game {
	g.SelectedQuestions = append([]domain.SelectedQuestion(nil), g.SelectedQuestions...)
	g.AnsweredQuestions = append([]domain.AnsweredQuestion(nil), g.AnsweredQuestions...)
	if g.Winner != nil {
		w := *g.Winner
		g.Winner = &w
	}
	return g
}
