package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"

	"github.com/kvistgaard/agentlab/internal/llm"
	"github.com/kvistgaard/agentlab/internal/log"
)

// DefaultMaxSteps is the hard cap on executed steps per run.
// The cap holds even when the model plans more work; runaway loops end
// in synthesis, not in an unbounded tool budget.
const DefaultMaxSteps = 12

// ToolOutput records one executed step.
// Tool failures land in Error as data: the executor keeps going and the
// synthesis prompt sees the failure text, mirroring how the QA loop
// feeds tool errors back to the model.
type ToolOutput struct {
	Step   int    `json:"step"`
	Goal   string `json:"goal"`
	Tool   string `json:"tool"`
	Input  any    `json:"input,omitempty"`
	Output any    `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// State is the full, inspectable state of one plan-and-execute run.
type State struct {
	Question    string       `json:"question"`
	Plan        []Step       `json:"plan"`
	StepIndex   int          `json:"step_index"`
	ToolOutputs []ToolOutput `json:"tool_outputs,omitempty"`
	FinalAnswer string       `json:"final_answer,omitempty"`
	Completed   bool         `json:"completed"`
	Error       string       `json:"error,omitempty"`
}

const argsSystemPrompt = `You are executing one step of a plan.
Step goal: %s
Call the %s tool with arguments that achieve this goal.
Previous step results:
%s`

const synthesisSystemPrompt = `You are writing the final answer to the user's question.
The plan below was executed and produced the observations listed.
Use them to answer. If a step failed, work with what succeeded and say
what could not be determined.`

// ExecutorConfig contains all required parameters for the Executor.
type ExecutorConfig struct {
	LLM     *llm.Client
	Planner *Planner
	Logger  log.Logger
	Tools   []ai.Tool

	// MaxSteps caps executed steps (default DefaultMaxSteps).
	MaxSteps int
}

// Executor runs the plan -> execute-tool -> synthesize state machine.
type Executor struct {
	llm      *llm.Client
	planner  *Planner
	logger   log.Logger
	tools    map[string]ai.Tool
	maxSteps int
}

// NewExecutor creates an executor.
func NewExecutor(cfg ExecutorConfig) (*Executor, error) {
	if cfg.LLM == nil {
		return nil, errors.New("llm client is required")
	}
	if cfg.Planner == nil {
		return nil, errors.New("planner is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if len(cfg.Tools) == 0 {
		return nil, errors.New("at least one tool is required")
	}

	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	tools := make(map[string]ai.Tool, len(cfg.Tools))
	for _, t := range cfg.Tools {
		tools[t.Name()] = t
	}

	return &Executor{
		llm:      cfg.LLM,
		planner:  cfg.Planner,
		logger:   cfg.Logger,
		tools:    tools,
		maxSteps: maxSteps,
	}, nil
}

// Run executes the full state machine for one question.
// The returned State is always non-nil when error is nil, and
// State.Completed is true even when individual steps failed; only
// planning or synthesis failures abort the run.
func (e *Executor) Run(ctx context.Context, question string) (*State, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.New("question must not be empty")
	}

	state := &State{Question: question}

	plan, err := e.planner.Plan(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("planning failed: %w", err)
	}
	state.Plan = plan

	e.logger.Info("executing plan", "steps", len(plan), "question_length", len(question))

	for state.StepIndex < len(state.Plan) && len(state.ToolOutputs) < e.maxSteps {
		step := state.Plan[state.StepIndex]

		if step.Action == ActionRespond {
			break
		}

		output := e.executeStep(ctx, state, step)
		state.ToolOutputs = append(state.ToolOutputs, output)
		state.StepIndex++

		if ctx.Err() != nil {
			return nil, fmt.Errorf("execution canceled: %w", ctx.Err())
		}
	}

	answer, err := e.synthesize(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("synthesis failed: %w", err)
	}

	state.FinalAnswer = answer
	state.Completed = true

	e.logger.Info("plan execution completed",
		"steps_executed", len(state.ToolOutputs),
		"answer_length", len(answer),
	)
	return state, nil
}

// executeStep runs one plan step: ask the model for tool arguments,
// then invoke the tool. All failures become data in the returned
// ToolOutput.
func (e *Executor) executeStep(ctx context.Context, state *State, step Step) ToolOutput {
	out := ToolOutput{
		Step: state.StepIndex,
		Goal: step.Goal,
		Tool: step.Action,
	}

	tool, ok := e.tools[step.Action]
	if !ok {
		out.Error = fmt.Sprintf("unknown tool %q", step.Action)
		e.logger.Warn("plan step names unknown tool", "step", state.StepIndex, "action", step.Action)
		return out
	}

	system := fmt.Sprintf(argsSystemPrompt, step.Goal, step.Action, formatOutputs(state.ToolOutputs))

	// WithReturnToolRequests stops the framework from auto-running the
	// tool; the executor owns the call.
	resp, err := e.llm.Generate(ctx,
		ai.WithSystem(system),
		ai.WithPrompt(state.Question),
		ai.WithTools(tool),
		ai.WithReturnToolRequests(true),
		ai.WithMaxTurns(1),
	)
	if err != nil {
		out.Error = fmt.Sprintf("argument generation failed: %v", err)
		return out
	}

	var req *ai.ToolRequest
	for _, tr := range resp.ToolRequests() {
		if tr.Name == step.Action {
			req = tr
			break
		}
	}
	if req == nil {
		out.Error = fmt.Sprintf("model did not request the %s tool", step.Action)
		e.logger.Warn("no tool request produced", "step", state.StepIndex, "tool", step.Action)
		return out
	}
	out.Input = req.Input

	result, err := tool.RunRaw(ctx, req.Input)
	if err != nil {
		out.Error = fmt.Sprintf("tool execution failed: %v", err)
		e.logger.Warn("tool execution failed", "step", state.StepIndex, "tool", step.Action, "error", err)
		return out
	}

	out.Output = result
	e.logger.Debug("step executed", "step", state.StepIndex, "tool", step.Action)
	return out
}

// synthesize writes the final answer from the accumulated observations.
func (e *Executor) synthesize(ctx context.Context, state *State) (string, error) {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(state.Question)
	b.WriteString("\n\nPlan:\n")
	for i, s := range state.Plan {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, s.Goal, s.Action)
	}
	b.WriteString("\nObservations:\n")
	b.WriteString(formatOutputs(state.ToolOutputs))

	answer, err := e.llm.GenerateText(ctx, synthesisSystemPrompt, b.String())
	if err != nil {
		return "", err
	}
	return answer, nil
}

// formatOutputs renders executed steps for prompt context.
func formatOutputs(outputs []ToolOutput) string {
	if len(outputs) == 0 {
		return "(none yet)"
	}
	var b strings.Builder
	for _, o := range outputs {
		if o.Error != "" {
			fmt.Fprintf(&b, "step %d (%s via %s): FAILED: %s\n", o.Step+1, o.Goal, o.Tool, o.Error)
			continue
		}
		rendered, err := json.Marshal(o.Output)
		if err != nil {
			rendered = fmt.Appendf(nil, "%v", o.Output)
		}
		fmt.Fprintf(&b, "step %d (%s via %s): %s\n", o.Step+1, o.Goal, o.Tool, rendered)
	}
	return b.String()
}
