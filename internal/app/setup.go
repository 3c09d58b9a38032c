package app

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kvistgaard/agentlab/db"
	"github.com/kvistgaard/agentlab/internal/config"
	"github.com/kvistgaard/agentlab/internal/llm"
	"github.com/kvistgaard/agentlab/internal/log"
	"github.com/kvistgaard/agentlab/internal/memory"
	"github.com/kvistgaard/agentlab/internal/security"
	"github.com/kvistgaard/agentlab/internal/tools"
)

// Setup creates and initializes the application. On failure everything
// already initialized is released before returning.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if logger == nil {
		logger = log.New(log.Config{})
	}

	a := &App{Config: cfg, Logger: logger}
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	g, err := llm.Setup(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize genkit: %w", err)
	}
	a.Genkit = g

	client, err := llm.New(modelClientConfig(g, logger, cfg))
	if err != nil {
		return nil, fmt.Errorf("create model client: %w", err)
	}
	a.LLM = client

	a.URLValidator = security.NewURL(security.WithTimeout(cfg.WebFetch.Timeout()))

	handler, err := tools.NewHandler(tools.HandlerConfig{
		HTTPVal:          a.URLValidator,
		Logger:           logger,
		SearchBaseURL:    cfg.SearXNG.BaseURL,
		SearchMaxResults: cfg.SearXNG.MaxResults,
		FetchMaxChars:    cfg.WebFetch.MaxChars,
	})
	if err != nil {
		return nil, fmt.Errorf("create tool handler: %w", err)
	}
	tools.Register(g, handler)
	a.ToolRegistry = tools.NewRegistry(g)

	if cfg.PostgresHost != "" {
		if err := setupMemory(ctx, a); err != nil {
			return nil, err
		}
	} else {
		logger.Info("postgres not configured, long-term memory disabled")
	}

	logger.Info("application initialized",
		"provider", cfg.Provider,
		"model", cfg.ModelName,
		"memory", a.Memory != nil,
	)
	return a, nil
}

// modelClientConfig maps application configuration onto the model
// client's config. Temperature widens from the config's float32.
func modelClientConfig(g *genkit.Genkit, logger log.Logger, cfg *config.Config) llm.Config {
	return llm.Config{
		Genkit:      g,
		Logger:      logger,
		Model:       cfg.FullModelName(),
		Temperature: float64(cfg.Temperature),
		MaxTokens:   cfg.MaxTokens,
	}
}

// setupMemory migrates the schema, opens the pool, and builds the
// vector store.
func setupMemory(ctx context.Context, a *App) error {
	if err := db.Migrate(a.Config.PostgresURL()); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, a.Config.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping database: %w", err)
	}
	a.Pool = pool

	embedder := llm.Embedder(a.Genkit, a.Config)
	if embedder == nil {
		return fmt.Errorf("embedder %q not found for provider %q", a.Config.EmbedderModel, a.Config.Provider)
	}

	store, err := memory.NewStore(memory.NewQueries(pool), embedder, a.Logger)
	if err != nil {
		return fmt.Errorf("create memory store: %w", err)
	}
	a.Memory = store
	return nil
}
