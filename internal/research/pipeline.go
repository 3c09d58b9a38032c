package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kvistgaard/agentlab/internal/llm"
	"github.com/kvistgaard/agentlab/internal/log"
)

const reviewSystemPrompt = `You are a senior academic writer. Using the provided search results
and PDF summaries, write a structured literature review in Markdown
with these sections: Introduction, Key Advances, Method Comparison
(a table or list is fine), Typical Applications, Limitations and
Future Directions, Conclusion, and Reference Links.`

// Searcher is the shape both academic search clients share.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]Paper, error)
}

// ReviewRequest describes one literature-review run.
type ReviewRequest struct {
	Topic string `json:"topic"`

	// MaxResults caps results per search source (default DefaultMaxResults).
	MaxResults int `json:"max_results,omitempty"`

	// PDFPaths are local papers to summarize and fold into the review.
	PDFPaths []string `json:"pdf_paths,omitempty"`

	// Instruction optionally steers the PDF summaries.
	Instruction string `json:"instruction,omitempty"`
}

// ReviewResult carries the generated review plus the raw material it
// was built from.
type ReviewResult struct {
	Markdown        string   `json:"markdown"`
	ArxivResults    []Paper  `json:"arxiv_results,omitempty"`
	SemanticResults []Paper  `json:"semantic_results,omitempty"`
	PDFSummaries    []string `json:"pdf_summaries,omitempty"`
}

// PipelineConfig contains all required parameters for the Pipeline.
type PipelineConfig struct {
	LLM        *llm.Client
	Arxiv      Searcher
	Semantic   Searcher
	Summarizer *Summarizer
	Logger     log.Logger
}

// Pipeline orchestrates search, PDF summarization, and review
// generation. Search and per-PDF failures degrade the review instead
// of failing the run; only review generation itself is fatal.
type Pipeline struct {
	llm        *llm.Client
	arxiv      Searcher
	semantic   Searcher
	summarizer *Summarizer
	logger     log.Logger
}

// NewPipeline creates a pipeline.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.LLM == nil {
		return nil, errors.New("llm client is required")
	}
	if cfg.Arxiv == nil || cfg.Semantic == nil {
		return nil, errors.New("both search clients are required")
	}
	if cfg.Summarizer == nil {
		return nil, errors.New("summarizer is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Pipeline{
		llm:        cfg.LLM,
		arxiv:      cfg.Arxiv,
		semantic:   cfg.Semantic,
		summarizer: cfg.Summarizer,
		logger:     cfg.Logger,
	}, nil
}

// Review runs the full pipeline for one topic.
func (p *Pipeline) Review(ctx context.Context, req ReviewRequest) (*ReviewResult, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, errors.New("topic must not be empty")
	}
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	result := &ReviewResult{}

	result.ArxivResults = p.searchSoft(ctx, p.arxiv, "arxiv", topic, maxResults)
	result.SemanticResults = p.searchSoft(ctx, p.semantic, "semantic_scholar", topic, maxResults)

	for _, path := range req.PDFPaths {
		summary, err := p.summarizer.SummarizePDF(ctx, path, req.Instruction)
		if err != nil {
			p.logger.Warn("pdf summarization failed", "path", path, "error", err)
			summary = fmt.Sprintf("(summarization of %s failed: %v)", path, err)
		}
		result.PDFSummaries = append(result.PDFSummaries, summary)
	}

	markdown, err := p.generateReview(ctx, topic, result)
	if err != nil {
		return nil, fmt.Errorf("review generation failed: %w", err)
	}
	result.Markdown = markdown

	p.logger.Info("review generated",
		"topic_length", len(topic),
		"arxiv_results", len(result.ArxivResults),
		"semantic_results", len(result.SemanticResults),
		"pdfs", len(result.PDFSummaries),
	)
	return result, nil
}

// searchSoft runs one search source and degrades to empty results on
// failure.
func (p *Pipeline) searchSoft(ctx context.Context, s Searcher, source, topic string, maxResults int) []Paper {
	papers, err := s.Search(ctx, topic, maxResults)
	if err != nil {
		p.logger.Warn("academic search failed", "source", source, "error", err)
		return nil
	}
	return papers
}

// generateReview makes the single synthesis call. The gathered context
// goes to the model as JSON so titles and links survive verbatim.
func (p *Pipeline) generateReview(ctx context.Context, topic string, result *ReviewResult) (string, error) {
	payload := map[string]any{
		"topic":         topic,
		"arxiv":         result.ArxivResults,
		"semantic":      result.SemanticResults,
		"pdf_summaries": result.PDFSummaries,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal review context: %w", err)
	}
	return p.llm.GenerateText(ctx, reviewSystemPrompt, string(data))
}
