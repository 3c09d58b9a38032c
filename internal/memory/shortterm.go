package memory

import (
	"slices"
	"sync"
	"unicode/utf8"

	"github.com/firebase/genkit/go/ai"
)

// DefaultMaxContextTokens bounds short-term history when no budget is given.
const DefaultMaxContextTokens = 4000

// ShortTerm is a conversation buffer bounded by an estimated token budget.
// When the history exceeds the budget, the oldest non-system messages are
// dropped; the system message (if present) always survives truncation.
//
// ShortTerm is safe for concurrent use.
type ShortTerm struct {
	mu        sync.Mutex
	maxTokens int
	messages  []*ai.Message
}

// NewShortTerm creates a short-term buffer with the given token budget.
// A non-positive budget falls back to DefaultMaxContextTokens.
func NewShortTerm(maxTokens int) *ShortTerm {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxContextTokens
	}
	return &ShortTerm{maxTokens: maxTokens}
}

// SetSystem sets or replaces the system message at the head of the history.
func (m *ShortTerm) SetSystem(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg := ai.NewSystemTextMessage(text)
	if len(m.messages) > 0 && m.messages[0].Role == ai.RoleSystem {
		m.messages[0] = msg
		return
	}
	m.messages = append([]*ai.Message{msg}, m.messages...)
}

// AddUser appends a user message and truncates to the budget.
func (m *ShortTerm) AddUser(text string) {
	m.append(ai.NewUserTextMessage(text))
}

// AddModel appends a model message and truncates to the budget.
func (m *ShortTerm) AddModel(text string) {
	m.append(ai.NewModelTextMessage(text))
}

// Append appends arbitrary messages and truncates to the budget.
func (m *ShortTerm) Append(msgs ...*ai.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msgs...)
	m.messages = truncate(m.messages, m.maxTokens)
}

func (m *ShortTerm) append(msg *ai.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	m.messages = truncate(m.messages, m.maxTokens)
}

// Messages returns a copy of the current history.
func (m *ShortTerm) Messages() []*ai.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.messages)
}

// Len returns the number of messages currently held.
func (m *ShortTerm) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// Clear drops all messages, including the system message.
func (m *ShortTerm) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}

// EstimateTokens provides a rough token count.
// Uses rune count divided by 2 as a conservative estimate that works
// for both English (~4 chars/token) and CJK (~1.5 chars/token) text.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 2
}

// estimateMessagesTokens estimates total tokens in messages.
func estimateMessagesTokens(msgs []*ai.Message) int {
	total := 0
	for _, msg := range msgs {
		for _, part := range msg.Content {
			total += EstimateTokens(part.Text)
		}
	}
	return total
}

// truncate removes oldest messages to fit within budget.
// Preserves the system message (if present) and keeps the most recent
// messages.
func truncate(msgs []*ai.Message, budget int) []*ai.Message {
	if len(msgs) == 0 || estimateMessagesTokens(msgs) <= budget {
		return msgs
	}

	result := make([]*ai.Message, 0, len(msgs))

	startIdx := 0
	if msgs[0].Role == ai.RoleSystem {
		result = append(result, msgs[0])
		startIdx = 1
	}

	// Walk newest to oldest until the budget is exhausted
	remaining := budget - estimateMessagesTokens(result)
	kept := make([]*ai.Message, 0)
	for i := len(msgs) - 1; i >= startIdx; i-- {
		msgTokens := estimateMessagesTokens([]*ai.Message{msgs[i]})
		if remaining < msgTokens {
			break
		}
		kept = append(kept, msgs[i])
		remaining -= msgTokens
	}
	slices.Reverse(kept)

	return append(result, kept...)
}
