// Package app provides application initialization and wiring.
//
// App is the container that connects configuration, the model client,
// tools, memory, and the agents. Setup builds everything once; Close
// releases it.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kvistgaard/agentlab/internal/agent"
	"github.com/kvistgaard/agentlab/internal/browser"
	"github.com/kvistgaard/agentlab/internal/config"
	"github.com/kvistgaard/agentlab/internal/document"
	"github.com/kvistgaard/agentlab/internal/llm"
	"github.com/kvistgaard/agentlab/internal/log"
	"github.com/kvistgaard/agentlab/internal/memory"
	"github.com/kvistgaard/agentlab/internal/planner"
	"github.com/kvistgaard/agentlab/internal/research"
	"github.com/kvistgaard/agentlab/internal/security"
	"github.com/kvistgaard/agentlab/internal/tools"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit *genkit.Genkit
	LLM    *llm.Client

	// Pool and Memory are nil when Postgres is not configured;
	// agents degrade to memory-less operation.
	Pool   *pgxpool.Pool
	Memory *memory.Store

	URLValidator *security.URL
	ToolRegistry *tools.Registry
}

// Close releases pooled resources. Safe to call after a failed Setup.
func (a *App) Close() error {
	if a.Pool != nil {
		a.Pool.Close()
		a.Logger.Info("database pool closed")
	}
	return nil
}

// QAAgent builds the tool-calling QA agent. withMemory controls
// long-term recall and writeback; it has no effect when Postgres is
// not configured.
func (a *App) QAAgent(ctx context.Context, withMemory bool) (*agent.QA, error) {
	cfg := agent.Config{
		LLM:          a.LLM,
		Logger:       a.Logger,
		Tools:        a.ToolRegistry.All(ctx),
		ShortTerm:    memory.NewShortTerm(a.Config.MaxContextTokens),
		MaxToolSteps: a.Config.MaxToolSteps,
		MemoryTopK:   a.Config.MemoryTopK,
	}
	if withMemory && a.Memory != nil {
		cfg.Memory = a.Memory
	}
	return agent.New(cfg)
}

// Executor builds the plan-and-execute agent.
func (a *App) Executor(ctx context.Context) (*planner.Executor, error) {
	names := tools.ToolNames()
	executorTools := make([]ai.Tool, 0, len(names))
	for _, name := range names {
		t := genkit.LookupTool(a.Genkit, name)
		if t == nil {
			return nil, fmt.Errorf("tool %q not registered", name)
		}
		executorTools = append(executorTools, t)
	}

	p, err := planner.NewPlanner(a.LLM, names, a.Logger)
	if err != nil {
		return nil, err
	}

	return planner.NewExecutor(planner.ExecutorConfig{
		LLM:      a.LLM,
		Planner:  p,
		Logger:   a.Logger,
		Tools:    executorTools,
		MaxSteps: a.Config.MaxExecutorSteps,
	})
}

// ReviewPipeline builds the literature-review pipeline.
func (a *App) ReviewPipeline() (*research.Pipeline, error) {
	arxiv, err := research.NewArxivClient(a.Config.Research.ArxivBaseURL, a.Logger)
	if err != nil {
		return nil, err
	}
	semantic, err := research.NewSemanticScholarClient(
		a.Config.Research.SemanticScholarBaseURL,
		a.Config.Research.SemanticScholarAPIKey,
		a.Logger,
	)
	if err != nil {
		return nil, err
	}
	summarizer, err := research.NewSummarizer(a.LLM, a.Config.Research.ChunkChars, a.Logger)
	if err != nil {
		return nil, err
	}

	return research.NewPipeline(research.PipelineConfig{
		LLM:        a.LLM,
		Arxiv:      arxiv,
		Semantic:   semantic,
		Summarizer: summarizer,
		Logger:     a.Logger,
	})
}

// FileAgent builds the file-analysis agent.
func (a *App) FileAgent() (*document.Agent, error) {
	summarizer, err := research.NewSummarizer(a.LLM, a.Config.Research.ChunkChars, a.Logger)
	if err != nil {
		return nil, err
	}
	return document.New(document.Config{
		LLM:        a.LLM,
		Summarizer: summarizer,
		Logger:     a.Logger,
	})
}

// WebAgent builds the browser-automation agent. Each run launches and
// tears down its own Chrome session.
func (a *App) WebAgent() (*browser.Agent, error) {
	browserCfg := a.Config.Browser
	factory := func(ctx context.Context) (browser.Session, error) {
		return browser.NewSession(ctx, browserCfg, a.Logger)
	}
	return browser.New(factory, a.Logger)
}

// RequireMemory returns an error when Postgres-backed memory is not
// configured.
func (a *App) RequireMemory() error {
	if a.Memory == nil {
		return errors.New("long-term memory requires Postgres configuration")
	}
	return nil
}
