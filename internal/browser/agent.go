package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/kvistgaard/agentlab/internal/log"
)

// SessionFactory opens a browser session. Production code uses
// NewSession; tests substitute a stub.
type SessionFactory func(ctx context.Context) (Session, error)

// StepResult records the outcome of one executed step.
type StepResult struct {
	Step   int    `json:"step"`
	Type   string `json:"type"`
	Output string `json:"output,omitempty"`
}

// RunResult collects per-step outputs and failures for one run. A
// failed step appears in Errors and execution continues.
type RunResult struct {
	Results []StepResult `json:"results"`
	Errors  []string     `json:"errors,omitempty"`
}

// Agent executes multi-step browser tasks.
type Agent struct {
	sessions SessionFactory
	logger   log.Logger
}

// New creates a browser agent.
func New(sessions SessionFactory, logger log.Logger) (*Agent, error) {
	if sessions == nil {
		return nil, errors.New("session factory is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Agent{sessions: sessions, logger: logger}, nil
}

// Run executes steps in order against a fresh session. The session is
// always closed, and partial results are returned even when steps
// fail; only an unopenable browser or a canceled context aborts the
// run.
func (a *Agent) Run(ctx context.Context, steps []Step) (*RunResult, error) {
	if len(steps) == 0 {
		return nil, errors.New("at least one step is required")
	}

	session, err := a.sessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("open browser session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			a.logger.Warn("browser session close failed", "error", err)
		}
	}()

	result := &RunResult{Results: []StepResult{}}
	for i, step := range steps {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("run canceled: %w", ctx.Err())
		}

		output, err := executeStep(ctx, session, step)
		if err != nil {
			a.logger.Warn("browser step failed", "step", i, "type", step.Type, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("step %d (%s): %v", i, step.Type, err))
			continue
		}
		result.Results = append(result.Results, StepResult{Step: i, Type: step.Type, Output: output})
	}

	a.logger.Info("browser run completed",
		"steps", len(steps),
		"succeeded", len(result.Results),
		"failed", len(result.Errors),
	)
	return result, nil
}
