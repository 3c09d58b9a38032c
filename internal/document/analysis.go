package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kvistgaard/agentlab/internal/llm"
	"github.com/kvistgaard/agentlab/internal/log"
	"github.com/kvistgaard/agentlab/internal/research"
)

const (
	// excerptChars bounds the raw-text excerpt stored in an overview.
	excerptChars = 1000
	// summarizeInputChars bounds text sent to the model for a quick
	// summary; longer documents go through the map-reduce summarizer.
	summarizeInputChars = 8000
)

const quickSummaryPrompt = `You are a careful document summarizer. Outline the key points of
the text below, keeping any structure (lists, sections) visible.`

const reportSystemPrompt = `You are a senior document analyst. From the structured analysis
below, write a Markdown report covering: file type and basics,
summary or structure overview, detected URLs/emails/dates, potential
quality issues, and suggested next steps.`

// Overview is the per-type extraction result inside an Analysis.
type Overview struct {
	TextExcerpt string            `json:"text_excerpt,omitempty"`
	Summary     string            `json:"summary,omitempty"`
	Workbook    *WorkbookOverview `json:"workbook,omitempty"`
}

// Analysis is the structured output of one file analysis. Extraction
// and summarization failures accumulate in Errors; the analysis itself
// is always returned.
type Analysis struct {
	FilePath string   `json:"file_path"`
	FileType FileType `json:"file_type"`
	Overview Overview `json:"overview"`
	Entities Entities `json:"entities"`
	Errors   []string `json:"errors,omitempty"`
}

// Config contains all required parameters for the Agent.
type Config struct {
	LLM        *llm.Client
	Summarizer *research.Summarizer
	Logger     log.Logger
}

// Agent analyzes local files: classify, extract, summarize, and pull
// entities.
type Agent struct {
	llm        *llm.Client
	summarizer *research.Summarizer
	logger     log.Logger
}

// New creates a file-analysis agent.
func New(cfg Config) (*Agent, error) {
	if cfg.LLM == nil {
		return nil, errors.New("llm client is required")
	}
	if cfg.Summarizer == nil {
		return nil, errors.New("summarizer is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Agent{llm: cfg.LLM, summarizer: cfg.Summarizer, logger: cfg.Logger}, nil
}

// Analyze classifies and analyzes one file. Missing files and unknown
// types land in Analysis.Errors rather than the error return; only an
// empty path is a caller error.
func (a *Agent) Analyze(ctx context.Context, path string, maxPreviewRows int) (*Analysis, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("file path must not be empty")
	}

	analysis := &Analysis{
		FilePath: path,
		FileType: TypeUnknown,
		Entities: Entities{URLs: []string{}, Emails: []string{}, Dates: []string{}},
	}

	if _, err := os.Stat(path); err != nil {
		analysis.Errors = append(analysis.Errors, fmt.Sprintf("file not accessible: %v", err))
		return analysis, nil
	}

	analysis.FileType = Classify(path)

	switch analysis.FileType {
	case TypePDF:
		a.analyzePDF(ctx, analysis)
	case TypeWord:
		a.analyzeTextual(ctx, analysis, func() (string, error) { return ExtractWordText(analysis.FilePath) })
	case TypeExcel:
		a.analyzeExcel(ctx, analysis, maxPreviewRows)
	case TypeText:
		a.analyzeTextual(ctx, analysis, func() (string, error) { return ExtractPlainText(analysis.FilePath) })
	case TypeHTML:
		a.analyzeTextual(ctx, analysis, func() (string, error) {
			f, err := os.Open(analysis.FilePath)
			if err != nil {
				return "", fmt.Errorf("open html file: %w", err)
			}
			defer f.Close()
			return ExtractHTMLText(f)
		})
	default:
		analysis.Errors = append(analysis.Errors, "unsupported or unknown file type")
	}

	a.logger.Info("file analyzed",
		"file_type", string(analysis.FileType),
		"errors", len(analysis.Errors),
	)
	return analysis, nil
}

// Report renders a markdown report over a completed analysis.
func (a *Agent) Report(ctx context.Context, analysis *Analysis) (string, error) {
	if analysis == nil {
		return "", errors.New("analysis must not be nil")
	}
	data, err := json.Marshal(analysis)
	if err != nil {
		return "", fmt.Errorf("marshal analysis: %w", err)
	}
	return a.llm.GenerateText(ctx, reportSystemPrompt, string(data))
}

// analyzePDF uses the map-reduce summarizer since PDFs routinely
// exceed a single prompt.
func (a *Agent) analyzePDF(ctx context.Context, analysis *Analysis) {
	text, err := research.ExtractPDFText(analysis.FilePath, 0)
	if err != nil {
		analysis.Errors = append(analysis.Errors, err.Error())
		return
	}

	analysis.Overview.TextExcerpt = excerpt(text, excerptChars)

	summary, err := a.summarizer.SummarizeText(ctx, text, "")
	if err != nil {
		analysis.Errors = append(analysis.Errors, fmt.Sprintf("summarization failed: %v", err))
	} else {
		analysis.Overview.Summary = summary
	}

	analysis.Entities = ExtractEntities(text + "\n" + analysis.Overview.Summary)
}

// analyzeTextual covers the formats that reduce to plain text.
func (a *Agent) analyzeTextual(ctx context.Context, analysis *Analysis, extract func() (string, error)) {
	text, err := extract()
	if err != nil {
		analysis.Errors = append(analysis.Errors, err.Error())
		return
	}

	analysis.Overview.TextExcerpt = excerpt(text, excerptChars)

	summary, err := a.summarize(ctx, text)
	if err != nil {
		analysis.Errors = append(analysis.Errors, fmt.Sprintf("summarization failed: %v", err))
	} else {
		analysis.Overview.Summary = summary
	}

	analysis.Entities = ExtractEntities(text + "\n" + analysis.Overview.Summary)
}

func (a *Agent) analyzeExcel(ctx context.Context, analysis *Analysis, maxPreviewRows int) {
	overview, err := ExtractExcelOverview(analysis.FilePath, maxPreviewRows)
	if err != nil {
		analysis.Errors = append(analysis.Errors, err.Error())
		return
	}
	analysis.Overview.Workbook = overview

	rendered, err := json.Marshal(overview)
	if err != nil {
		analysis.Errors = append(analysis.Errors, fmt.Sprintf("render structure: %v", err))
		return
	}
	summary, err := a.summarize(ctx, string(rendered))
	if err != nil {
		analysis.Errors = append(analysis.Errors, fmt.Sprintf("summarization failed: %v", err))
		return
	}
	analysis.Overview.Summary = summary
}

// summarize makes a single bounded-input summary call.
func (a *Agent) summarize(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	return a.llm.GenerateText(ctx, quickSummaryPrompt, excerpt(text, summarizeInputChars))
}

// excerpt truncates to at most n runes.
func excerpt(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
