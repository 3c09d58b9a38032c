package research

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kvistgaard/agentlab/internal/llm"
	"github.com/kvistgaard/agentlab/internal/log"
)

const chunkSummaryPrompt = `You are an academic assistant. Summarize the paper excerpt below,
highlighting the contributions, methods, and conclusions.`

const mergeSummaryPrompt = `Merge the partial summaries below into one structured summary
covering background, methods, results, and limitations.`

// Summarizer produces map-reduce summaries of long documents: each
// chunk is summarized independently, then the partial summaries are
// merged in a second pass.
type Summarizer struct {
	llm        *llm.Client
	logger     log.Logger
	chunkChars int
}

// NewSummarizer creates a summarizer. chunkChars <= 0 uses
// DefaultChunkChars.
func NewSummarizer(client *llm.Client, chunkChars int, logger log.Logger) (*Summarizer, error) {
	if client == nil {
		return nil, errors.New("llm client is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if chunkChars <= 0 {
		chunkChars = DefaultChunkChars
	}
	return &Summarizer{llm: client, logger: logger, chunkChars: chunkChars}, nil
}

// SummarizeText summarizes arbitrary text. An optional instruction
// (like "focus on the evaluation setup") is appended to the chunk
// prompt.
func (s *Summarizer) SummarizeText(ctx context.Context, text, instruction string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("text must not be empty")
	}

	chunks, err := ChunkText(text, s.chunkChars)
	if err != nil {
		return "", fmt.Errorf("chunk text: %w", err)
	}

	system := chunkSummaryPrompt
	if instruction != "" {
		system += "\nAdditional instruction: " + instruction
	}

	summaries := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		summary, err := s.llm.GenerateText(ctx, system,
			fmt.Sprintf("Excerpt %d of %d:\n%s", i+1, len(chunks), chunk))
		if err != nil {
			return "", fmt.Errorf("summarize chunk %d: %w", i+1, err)
		}
		summaries = append(summaries, summary)
	}

	// A single chunk needs no merge pass.
	if len(summaries) == 1 {
		return summaries[0], nil
	}

	merged, err := s.llm.GenerateText(ctx, mergeSummaryPrompt, strings.Join(summaries, "\n\n"))
	if err != nil {
		return "", fmt.Errorf("merge summaries: %w", err)
	}

	s.logger.Debug("document summarized", "chunks", len(chunks))
	return merged, nil
}

// SummarizePDF extracts a PDF's text and summarizes it.
func (s *Summarizer) SummarizePDF(ctx context.Context, path, instruction string) (string, error) {
	text, err := ExtractPDFText(path, 0)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("pdf %s contains no extractable text", path)
	}
	return s.SummarizeText(ctx, text, instruction)
}
