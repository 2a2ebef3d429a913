package app

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"trivia-board-service/internal/domain"
)

// QuestionRepository stores the question bank. Conditional writes must be atomic per question.
type QuestionRepository interface {
	CreateQuestion(ctx context.Context, q domain.Question) error
	GetQuestion(ctx context.Context, id string) (domain.Question, error)
	GetQuestionsByIDs(ctx context.Context, ids []string) ([]domain.Question, error)
	ListQuestions(ctx context.Context, categoryID string) ([]domain.Question, error)
	UpdateQuestion(ctx context.Context, q domain.Question) error
	DeleteQuestion(ctx context.Context, id string) error
	DeleteQuestionsByCategory(ctx context.Context, categoryID string) (int64, error)

	// ListUnbound returns questions of one board cell that are not bound to any game.
	ListUnbound(ctx context.Context, categoryID string, points int) ([]domain.Question, error)
	// BindIfUnbound sets boundGameId only if it is currently null; false means another game won.
	BindIfUnbound(ctx context.Context, questionID, gameID string) (bool, error)
	// ReleaseQuestions clears boundGameId for questions bound to gameID; nil ids means all of them.
	ReleaseQuestions(ctx context.Context, gameID string, questionIDs []string) (int64, error)
	MarkAnswered(ctx context.Context, id string) error
	ResetBoundTo(ctx context.Context, gameID string) (int64, error)
	ResetAll(ctx context.Context) (int64, error)
}

// CategoryRepository stores categories. Names are unique by slug.
type CategoryRepository interface {
	CreateCategory(ctx context.Context, c domain.Category) error
	GetCategory(ctx context.Context, id string) (domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	UpdateCategory(ctx context.Context, c domain.Category) error
	DeleteCategory(ctx context.Context, id string) error
}

// GameRepository stores game sessions. Every mutating method is a single atomic update.
type GameRepository interface {
	CreateGame(ctx context.Context, g domain.Game) error
	GetGame(ctx context.Context, id string) (domain.Game, error)
	ListGames(ctx context.Context, status domain.GameStatus) ([]domain.Game, error)
	DeleteGame(ctx context.Context, id string) error
	// AppendAnswer adds the log entry and the team's points together, or neither.
	AppendAnswer(ctx context.Context, gameID string, team domain.Team, entry domain.AnsweredQuestion) (domain.Game, error)
	AdjustScore(ctx context.Context, gameID string, team domain.Team, delta int) (domain.Game, error)
	SetScores(ctx context.Context, gameID string, first, second *int) (domain.Game, error)
	// CompleteGame moves an ongoing game to completed and sets the winner from the stored scores.
	CompleteGame(ctx context.Context, gameID string) (domain.Game, error)
}

// CategoryCatalog serves the populated category listing, usually from a cache.
type CategoryCatalog interface {
	GetCategories(ctx context.Context) ([]domain.CategoryWithQuestions, error)
	Invalidate(ctx context.Context)
}

// BoardService contains the game-session use cases and question bank management.
type BoardService struct {
	questions  QuestionRepository
	categories CategoryRepository
	games      GameRepository
	catalog    CategoryCatalog
	updates    *Broadcaster
	now        func() time.Time
	newID      func() string

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// Option customizes a BoardService.
type Option func(*BoardService)

// WithClock replaces time.Now, for deterministic timestamps in tests.
func WithClock(now func() time.Time) Option {
	return func(s *BoardService) { s.now = now }
}

// WithRand seeds the selection randomness.
func WithRand(rnd *rand.Rand) Option {
	return func(s *BoardService) { s.rnd = rnd }
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *BoardService) { s.newID = newID }
}

// WithBroadcaster shares a broadcaster with the transport layer.
func WithBroadcaster(b *Broadcaster) Option {
	return func(s *BoardService) { s.updates = b }
}

func NewBoardService(questions QuestionRepository, categories CategoryRepository, games GameRepository, catalog CategoryCatalog, opts ...Option) *BoardService {
	s := &BoardService{
		questions:  questions,
		categories: categories,
		games:      games,
		catalog:    catalog,
		updates:    NewBroadcaster(),
		now:        time.Now,
		newID:      newID,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Updates exposes the per-game update feed.
func (s *BoardService) Updates() *Broadcaster {
	return s.updates
}

// Categories returns every category with its questions populated.
func (s *BoardService) Categories(ctx context.Context) ([]domain.CategoryWithQuestions, error) {
	return s.catalog.GetCategories(ctx)
}

func (s *BoardService) shuffle(n int, swap func(i, j int)) {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	s.rnd.Shuffle(n, swap)
}

// changed invalidates cached listings and pushes the game, with its board questions resolved,
// to live subscribers.
func (s *BoardService) changed(ctx context.Context, game *domain.Game) {
	s.catalog.Invalidate(ctx)
	if game == nil || s.updates.SubscriberCount(game.ID) == 0 {
		return
	}
	update := *game
	update.SelectedQuestions = append([]domain.SelectedQuestion(nil), game.SelectedQuestions...)
	if err := s.populateBoard(ctx, &update); err != nil {
		s.logger().Warn("resolve board for update", "game_id", game.ID, "error", err)
	}
	s.updates.Publish(update)
}

func (s *BoardService) logger() *slog.Logger {
	return slog.Default().With("component", "board")
}
