// Package agent implements the tool-calling question answering agent.
//
// The QA agent wires together the pieces the rest of the repository
// provides: the resilient LLM client, the registered tool set, and the
// two memory layers. One Ask call runs the full loop: recall relevant
// long-term memories, let the model call tools until it has an answer,
// then write the exchange back to memory.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/kvistgaard/agentlab/internal/llm"
	"github.com/kvistgaard/agentlab/internal/log"
	"github.com/kvistgaard/agentlab/internal/memory"
)

// FallbackAnswer is returned when the model produces an empty response.
const FallbackAnswer = "I apologize, but I couldn't generate a response. Please try rephrasing your question."

// memoryRecallTimeout bounds long-term memory lookups so a slow vector
// search cannot block the whole request.
const memoryRecallTimeout = 5 * time.Second

const qaSystemPrompt = `You are a helpful assistant that answers questions accurately.
Use the available tools whenever they can improve your answer:
- calculator for any arithmetic
- webSearch for current events or facts you are unsure about
- webFetch to read a specific page

Answer concisely. If relevant context from previous conversations is
provided, take it into account.`

// MemoryStore is the long-term memory interface the agent consumes.
type MemoryStore interface {
	Add(ctx context.Context, doc memory.Document) error
	Search(ctx context.Context, query string, opts ...memory.SearchOption) ([]memory.Result, error)
}

// Config contains all required parameters for the QA agent.
type Config struct {
	LLM    *llm.Client
	Logger log.Logger
	Tools  []ai.ToolRef

	// Memory is optional; nil disables long-term recall and writeback.
	Memory MemoryStore
	// ShortTerm is optional; nil disables conversation history.
	ShortTerm *memory.ShortTerm

	// MaxToolSteps caps agentic loop turns (default 3).
	MaxToolSteps int
	// MemoryTopK is the number of memories recalled per question (default 3).
	MemoryTopK int
}

func (cfg Config) validate() error {
	if cfg.LLM == nil {
		return errors.New("llm client is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if len(cfg.Tools) == 0 {
		return errors.New("at least one tool is required")
	}
	return nil
}

// Answer is the complete result of one Ask call.
type Answer struct {
	Text string `json:"text"`
	// ToolsUsed lists the tool names the model called, in order.
	ToolsUsed []string `json:"tools_used,omitempty"`
	// Recalled is the number of long-term memories injected as context.
	Recalled int `json:"recalled,omitempty"`
}

// QA is the tool-calling question answering agent.
//
// QA is stateless apart from the short-term buffer and safe for
// concurrent use. All configuration is captured at construction time.
type QA struct {
	llm       *llm.Client
	logger    log.Logger
	tools     []ai.ToolRef
	toolNames string // cached comma-separated list for logging

	mem       MemoryStore
	shortTerm *memory.ShortTerm

	maxToolSteps int
	memoryTopK   int
}

// New creates a QA agent.
func New(cfg Config) (*QA, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	maxToolSteps := cfg.MaxToolSteps
	if maxToolSteps <= 0 {
		maxToolSteps = 3
	}
	memoryTopK := cfg.MemoryTopK
	if memoryTopK <= 0 {
		memoryTopK = 3
	}

	names := make([]string, len(cfg.Tools))
	for i, t := range cfg.Tools {
		names[i] = t.Name()
	}

	a := &QA{
		llm:          cfg.LLM,
		logger:       cfg.Logger,
		tools:        cfg.Tools,
		toolNames:    strings.Join(names, ", "),
		mem:          cfg.Memory,
		shortTerm:    cfg.ShortTerm,
		maxToolSteps: maxToolSteps,
		memoryTopK:   memoryTopK,
	}

	a.logger.Info("qa agent initialized",
		"totalTools", len(a.tools),
		"maxToolSteps", a.maxToolSteps,
	)
	return a, nil
}

// Ask answers a question, letting the model call tools as needed.
func (a *QA) Ask(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.New("question must not be empty")
	}

	recalled := a.recallMemories(ctx, question)

	messages := a.buildMessages(question, recalled)

	a.logger.Debug("executing qa agent",
		"tools", a.toolNames,
		"maxToolSteps", a.maxToolSteps,
		"recalled", len(recalled),
		"questionLength", len(question),
	)

	resp, err := a.llm.Generate(ctx,
		ai.WithMessages(messages...),
		ai.WithTools(a.tools...),
		ai.WithMaxTurns(a.maxToolSteps),
	)
	if err != nil {
		return nil, fmt.Errorf("qa generate: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	// Only fall back when truly empty: no text AND no tool requests
	if text == "" && len(resp.ToolRequests()) == 0 {
		a.logger.Warn("model returned empty response with no tool requests")
		text = FallbackAnswer
	}

	toolsUsed := toolCallTrace(resp)

	if a.shortTerm != nil {
		a.shortTerm.AddUser(question)
		a.shortTerm.AddModel(text)
	}
	a.writeBack(ctx, question, text)

	return &Answer{
		Text:      text,
		ToolsUsed: toolsUsed,
		Recalled:  len(recalled),
	}, nil
}

// recallMemories fetches relevant long-term memories.
// Returns nil on any failure (graceful degradation).
func (a *QA) recallMemories(ctx context.Context, question string) []memory.Result {
	if a.mem == nil {
		return nil
	}

	recallCtx, cancel := context.WithTimeout(ctx, memoryRecallTimeout)
	defer cancel()

	results, err := a.mem.Search(recallCtx, question,
		memory.WithTopK(a.memoryTopK),
		memory.WithFilter("agent", "qa"),
	)
	if err != nil {
		if ctx.Err() != nil || recallCtx.Err() != nil {
			a.logger.Debug("memory recall canceled or timed out (continuing without context)",
				"error", err)
		} else {
			a.logger.Warn("memory recall failed (continuing without context)",
				"error", err)
		}
		return nil
	}

	if len(results) > 0 {
		a.logger.Debug("recalled memories", "count", len(results))
	}
	return results
}

// buildMessages assembles system prompt, recalled context, short-term
// history, and the new question.
func (a *QA) buildMessages(question string, recalled []memory.Result) []*ai.Message {
	system := qaSystemPrompt
	if len(recalled) > 0 {
		var b strings.Builder
		b.WriteString(system)
		b.WriteString("\n\nRelevant context from previous conversations:\n")
		for _, r := range recalled {
			b.WriteString("- ")
			b.WriteString(r.Content)
			b.WriteString("\n")
		}
		system = b.String()
	}

	messages := []*ai.Message{ai.NewSystemTextMessage(system)}
	if a.shortTerm != nil {
		messages = append(messages, a.shortTerm.Messages()...)
	}
	return append(messages, ai.NewUserTextMessage(question))
}

// writeBack persists the exchange to long-term memory.
// Failures are logged, never surfaced: losing a memory write must not
// fail the answer.
func (a *QA) writeBack(ctx context.Context, question, answer string) {
	if a.mem == nil {
		return
	}

	doc := memory.Document{
		ID:      uuid.NewString(),
		Content: fmt.Sprintf("Q: %s\nA: %s", question, answer),
		Metadata: map[string]string{
			"agent": "qa",
		},
		CreatedAt: time.Now(),
	}
	if err := a.mem.Add(ctx, doc); err != nil {
		a.logger.Error("failed to write memory", "error", err)
	}
}

// toolCallTrace extracts the names of tools the model requested,
// walking the full request history in order.
func toolCallTrace(resp *ai.ModelResponse) []string {
	var names []string
	if resp.Request != nil {
		for _, msg := range resp.Request.Messages {
			if msg.Role != ai.RoleModel {
				continue
			}
			for _, part := range msg.Content {
				if part.ToolRequest != nil {
					names = append(names, part.ToolRequest.Name)
				}
			}
		}
	}
	for _, req := range resp.ToolRequests() {
		names = append(names, req.Name)
	}
	return names
}
