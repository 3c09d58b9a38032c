package planner

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kvistgaard/agentlab/internal/llm"
	"github.com/kvistgaard/agentlab/internal/log"
)

// scriptedModel returns pre-programmed responses in order, regardless
// of input. A final tool-request step is simulated by returning a
// message containing a ToolRequest part.
type scriptedModel struct {
	mu        sync.Mutex
	responses []*ai.Message
	calls     int
}

func (s *scriptedModel) register(g *genkit.Genkit) {
	genkit.DefineModel(g, "scripted/model", &ai.ModelOptions{
		Supports: &ai.ModelSupports{Multiturn: true, Tools: true, SystemRole: true},
	}, func(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.calls >= len(s.responses) {
			return nil, fmt.Errorf("scripted model exhausted after %d calls", s.calls)
		}
		msg := s.responses[s.calls]
		s.calls++
		return &ai.ModelResponse{Request: req, Message: msg}, nil
	})
}

func textMsg(text string) *ai.Message {
	return ai.NewModelTextMessage(text)
}

func toolReqMsg(name string, input any) *ai.Message {
	return &ai.Message{
		Role: ai.RoleModel,
		Content: []*ai.Part{{
			Kind:        ai.PartToolRequest,
			ToolRequest: &ai.ToolRequest{Name: name, Input: input},
		}},
	}
}

type executorEnv struct {
	executor *Executor
	model    *scriptedModel
}

// setupExecutor wires a scripted model, a real calculator-style tool,
// and the executor under test.
func setupExecutor(t *testing.T, responses []*ai.Message, maxSteps int) *executorEnv {
	t.Helper()

	g := genkit.Init(context.Background())
	model := &scriptedModel{responses: responses}
	model.register(g)

	client, err := llm.New(llm.Config{
		Genkit: g,
		Logger: log.NewNop(),
		Model:  "scripted/model",
	})
	require.NoError(t, err)

	calc := genkit.DefineTool(g, "calculator", "Evaluate arithmetic.",
		func(ctx *ai.ToolContext, input struct {
			Expression string `json:"expression"`
		}) (string, error) {
			if input.Expression == "1/0" {
				return "", fmt.Errorf("division by zero")
			}
			return "4", nil
		})

	p, err := NewPlanner(client, []string{"calculator"}, log.NewNop())
	require.NoError(t, err)

	exec, err := NewExecutor(ExecutorConfig{
		LLM:      client,
		Planner:  p,
		Logger:   log.NewNop(),
		Tools:    []ai.Tool{calc},
		MaxSteps: maxSteps,
	})
	require.NoError(t, err)

	return &executorEnv{executor: exec, model: model}
}

func TestExecutorRunHappyPath(t *testing.T) {
	env := setupExecutor(t, []*ai.Message{
		// 1: plan
		textMsg(`[{"goal": "compute 2+2", "action": "calculator"}, {"goal": "answer", "action": "respond"}]`),
		// 2: tool arguments for step 0
		toolReqMsg("calculator", map[string]any{"expression": "2+2"}),
		// 3: synthesis
		textMsg("The answer is 4."),
	}, 0)

	state, err := env.executor.Run(context.Background(), "what is 2+2?")
	require.NoError(t, err)

	assert.True(t, state.Completed)
	assert.Equal(t, "The answer is 4.", state.FinalAnswer)
	require.Len(t, state.ToolOutputs, 1)
	assert.Equal(t, "calculator", state.ToolOutputs[0].Tool)
	assert.Empty(t, state.ToolOutputs[0].Error)
	assert.Equal(t, "4", state.ToolOutputs[0].Output)
	assert.Equal(t, 1, state.StepIndex)
}

func TestExecutorUnknownToolIsErrorAsData(t *testing.T) {
	env := setupExecutor(t, []*ai.Message{
		textMsg(`[{"goal": "teleport", "action": "teleporter"}]`),
		textMsg("I could not complete the plan."),
	}, 0)

	state, err := env.executor.Run(context.Background(), "teleport me")
	require.NoError(t, err)

	assert.True(t, state.Completed)
	require.Len(t, state.ToolOutputs, 1)
	assert.Contains(t, state.ToolOutputs[0].Error, "unknown tool")
}

func TestExecutorToolFailureIsErrorAsData(t *testing.T) {
	env := setupExecutor(t, []*ai.Message{
		textMsg(`[{"goal": "divide", "action": "calculator"}]`),
		toolReqMsg("calculator", map[string]any{"expression": "1/0"}),
		textMsg("Division by zero cannot be computed."),
	}, 0)

	state, err := env.executor.Run(context.Background(), "compute 1/0")
	require.NoError(t, err)

	assert.True(t, state.Completed)
	require.Len(t, state.ToolOutputs, 1)
	assert.Contains(t, state.ToolOutputs[0].Error, "tool execution failed")
	assert.Equal(t, "Division by zero cannot be computed.", state.FinalAnswer)
}

func TestExecutorNoToolRequestIsErrorAsData(t *testing.T) {
	env := setupExecutor(t, []*ai.Message{
		textMsg(`[{"goal": "compute", "action": "calculator"}]`),
		textMsg("I would rather chat than call tools."),
		textMsg("Done anyway."),
	}, 0)

	state, err := env.executor.Run(context.Background(), "compute something")
	require.NoError(t, err)

	require.Len(t, state.ToolOutputs, 1)
	assert.Contains(t, state.ToolOutputs[0].Error, "did not request")
}

func TestExecutorHardStepCap(t *testing.T) {
	env := setupExecutor(t, []*ai.Message{
		textMsg(`[
			{"goal": "a", "action": "calculator"},
			{"goal": "b", "action": "calculator"},
			{"goal": "c", "action": "calculator"},
			{"goal": "d", "action": "calculator"}
		]`),
		toolReqMsg("calculator", map[string]any{"expression": "1+1"}),
		toolReqMsg("calculator", map[string]any{"expression": "2+2"}),
		textMsg("Stopped at the cap."),
	}, 2)

	state, err := env.executor.Run(context.Background(), "lots of math")
	require.NoError(t, err)

	assert.True(t, state.Completed)
	assert.Len(t, state.ToolOutputs, 2) // capped
	assert.Equal(t, "Stopped at the cap.", state.FinalAnswer)
}

func TestExecutorPlanningFailureAborts(t *testing.T) {
	env := setupExecutor(t, []*ai.Message{
		textMsg("no json here"),
	}, 0)

	_, err := env.executor.Run(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "planning failed")
}

func TestExecutorEmptyQuestion(t *testing.T) {
	env := setupExecutor(t, nil, 0)
	_, err := env.executor.Run(context.Background(), "  ")
	assert.Error(t, err)
}

func TestNewExecutorValidation(t *testing.T) {
	_, err := NewExecutor(ExecutorConfig{})
	assert.Error(t, err)
}
