// Package planner implements the plan-and-execute agent: an explicit
// state machine that first asks the model for a step-by-step plan, then
// executes each step's tool call, feeding results forward until a final
// answer can be synthesized.
//
// Unlike the QA agent, where the framework drives the tool loop, this
// package owns every transition. The state after each step is inspectable,
// which is the point: the graph is the product.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kvistgaard/agentlab/internal/llm"
	"github.com/kvistgaard/agentlab/internal/log"
)

// ActionRespond is the plan action that ends tool execution and moves
// to answer synthesis.
const ActionRespond = "respond"

// MaxPlanSteps bounds the accepted plan length. Longer plans are
// truncated rather than rejected.
const MaxPlanSteps = 10

// ErrEmptyPlan is returned when the model produces a plan with no steps.
var ErrEmptyPlan = errors.New("model returned an empty plan")

// Step is one entry of a plan: a goal in plain language and the action
// (tool name or "respond") that should achieve it.
type Step struct {
	Goal   string `json:"goal"`
	Action string `json:"action"`
}

const planSystemPrompt = `You are a planning assistant. Break the user's question into a short
sequence of steps. Each step has a "goal" (plain language) and an
"action": one of the available tools, or "respond" when no tool is
needed and the answer should be written.

Available tools: %s

Respond with ONLY a JSON array, no prose. Example:
[
  {"goal": "find the current population of Tokyo", "action": "webSearch"},
  {"goal": "compute the population density", "action": "calculator"},
  {"goal": "write the final answer", "action": "respond"}
]`

// Planner asks the model for a plan and parses it.
type Planner struct {
	llm       *llm.Client
	logger    log.Logger
	toolNames []string
}

// NewPlanner creates a planner that plans over the given tool names.
func NewPlanner(client *llm.Client, toolNames []string, logger log.Logger) (*Planner, error) {
	if client == nil {
		return nil, errors.New("llm client is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if len(toolNames) == 0 {
		return nil, errors.New("at least one tool name is required")
	}
	return &Planner{
		llm:       client,
		logger:    logger,
		toolNames: toolNames,
	}, nil
}

// Plan produces an executable plan for the question.
// Steps naming unknown actions are kept: the executor treats them as
// errors-as-data so the run can continue.
func (p *Planner) Plan(ctx context.Context, question string) ([]Step, error) {
	system := fmt.Sprintf(planSystemPrompt, strings.Join(p.toolNames, ", "))

	text, err := p.llm.GenerateText(ctx, system, question)
	if err != nil {
		return nil, fmt.Errorf("plan generate: %w", err)
	}

	steps, err := parsePlan(text)
	if err != nil {
		return nil, fmt.Errorf("plan parse: %w", err)
	}

	if len(steps) > MaxPlanSteps {
		p.logger.Warn("plan truncated", "requested", len(steps), "max", MaxPlanSteps)
		steps = steps[:MaxPlanSteps]
	}

	p.logger.Debug("plan created", "steps", len(steps))
	return steps, nil
}

// parsePlan extracts the JSON step array from model output.
// Models often wrap JSON in markdown code fences or add prose around
// it; both are tolerated. The JSON itself must be well-formed.
func parsePlan(text string) ([]Step, error) {
	raw := extractJSONArray(text)
	if raw == "" {
		return nil, fmt.Errorf("no JSON array found in model output")
	}

	var steps []Step
	if err := json.Unmarshal([]byte(raw), &steps); err != nil {
		return nil, fmt.Errorf("invalid plan JSON: %w", err)
	}
	if len(steps) == 0 {
		return nil, ErrEmptyPlan
	}

	for i, s := range steps {
		if strings.TrimSpace(s.Goal) == "" {
			return nil, fmt.Errorf("step %d has an empty goal", i)
		}
		steps[i].Action = strings.TrimSpace(s.Action)
		if steps[i].Action == "" {
			steps[i].Action = ActionRespond
		}
	}
	return steps, nil
}

// extractJSONArray returns the first top-level JSON array in text,
// stripping markdown code fences if present.
func extractJSONArray(text string) string {
	text = strings.TrimSpace(text)

	// Strip ```json ... ``` or ``` ... ``` fences
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "[")
	if start < 0 {
		return ""
	}

	// Find the matching closing bracket, respecting strings
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '[':
			depth++
		case c == ']':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
