package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"trivia-board-service/internal/app"
	"trivia-board-service/internal/config"
	"trivia-board-service/internal/infra/memory"
	"trivia-board-service/internal/infra/postgres"
	infraredis "trivia-board-service/internal/infra/redis"
)

// buildService assembles the board service on Postgres when a URL is configured and on the
// in-memory stores otherwise. The category catalog goes to Redis when an address is set.
func buildService(ctx context.Context, cfg config.Config) (*app.BoardService, func(), error) {
	var (
		questions  app.QuestionRepository
		categories app.CategoryRepository
		games      app.GameRepository
		closers    []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.Postgres.URL != "" {
		if err := postgres.Migrate(ctx, cfg.Postgres.URL); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		store := postgres.NewStore(pool)
		questions, categories, games = store, store, store
		slog.Info("using postgres store")
	} else {
		questions = memory.NewQuestionStore()
		categories = memory.NewCategoryStore()
		games = memory.NewGameStore()
		slog.Warn("postgres url not configured, using in-memory store")
	}

	loader := app.NewCatalogLoader(categories, questions)
	ttl := config.TTLDuration(cfg.Categories.TTL, 10*time.Minute)

	var catalog app.CategoryCatalog
	if cfg.Redis.Addr != "" {
		client, err := redisClient(ctx, cfg)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = client.Close() })
		catalog = infraredis.NewCategoryCatalog(client, loader, ttl)
	} else {
		catalog = memory.NewCategoryCatalog(loader, ttl)
	}

	return app.NewBoardService(questions, categories, games, catalog), closeAll, nil
}

func redisClient(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}
