// Package tools provides Genkit tool registration and management.
//
// Three tools are exposed to agents:
//   - calculator: safe arithmetic evaluation
//   - webSearch: web search via a SearXNG instance
//   - webFetch: fetch a URL and extract readable text (SSRF protected)
//
// Tool failures are returned as structured Results rather than Go errors,
// so the agent loop can feed them back to the model for correction.
package tools

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/firebase/genkit/go/ai"
	readability "github.com/go-shiori/go-readability"

	"github.com/kvistgaard/agentlab/internal/log"
)

// HTTPValidator defines the interface for HTTP security validation.
// Interfaces are defined by the consumer, not the provider
// (similar to http.RoundTripper, sql.Driver).
type HTTPValidator interface {
	// Validate checks a URL to prevent SSRF attacks
	Validate(url string) error

	// Client returns a configured HTTP client
	Client() *http.Client

	// MaxResponseSize returns the maximum allowed response size in bytes
	MaxResponseSize() int64
}

// HandlerConfig holds all dependencies for the tool handler.
type HandlerConfig struct {
	HTTPVal HTTPValidator
	Logger  log.Logger

	// SearchBaseURL is the SearXNG instance URL (e.g. http://localhost:8888).
	SearchBaseURL string
	// SearchMaxResults caps webSearch results (default 5).
	SearchMaxResults int

	// FetchMaxChars truncates extracted page text (default 20000).
	FetchMaxChars int
}

// Handler implements the tool operations with security validation.
// Follows the http.Server naming convention: explicit dependencies,
// independently testable methods, Genkit closures as thin adapters.
type Handler struct {
	httpVal          HTTPValidator
	logger           log.Logger
	searchBaseURL    string
	searchMaxResults int
	fetchMaxChars    int

	// searchClient talks to the operator-configured SearXNG instance.
	// That URL is deployment config, not model input, so it bypasses the
	// SSRF validator (SearXNG usually runs on a private address).
	searchClient *http.Client
}

// NewHandler creates a tool handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.HTTPVal == nil {
		return nil, fmt.Errorf("http validator is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	maxResults := cfg.SearchMaxResults
	if maxResults <= 0 {
		maxResults = 5
	}
	maxChars := cfg.FetchMaxChars
	if maxChars <= 0 {
		maxChars = 20000
	}

	return &Handler{
		httpVal:          cfg.HTTPVal,
		logger:           cfg.Logger,
		searchBaseURL:    strings.TrimRight(cfg.SearchBaseURL, "/"),
		searchMaxResults: maxResults,
		fetchMaxChars:    maxChars,
		searchClient:     &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// Calculator evaluates an arithmetic expression.
func (h *Handler) Calculator(_ *ai.ToolContext, input CalculatorInput) (Result, error) {
	h.logger.Debug("Calculator called", "expression", input.Expression)

	value, err := evaluateExpression(input.Expression)
	if err != nil {
		h.logger.Warn("Calculator evaluation failed", "expression", input.Expression, "error", err)
		return Result{
			Status:  StatusError,
			Message: "Expression evaluation failed",
			Error: &Error{
				Code:    ErrCodeValidation,
				Message: fmt.Sprintf("cannot evaluate expression: %v", err),
			},
		}, nil
	}

	return Result{
		Status:  StatusSuccess,
		Message: fmt.Sprintf("%s = %g", input.Expression, value),
		Data: map[string]any{
			"expression": input.Expression,
			"result":     value,
		},
	}, nil
}

// searxngResponse is the subset of SearXNG's JSON output we consume.
type searxngResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// WebSearch queries the configured SearXNG instance.
func (h *Handler) WebSearch(ctx *ai.ToolContext, input WebSearchInput) (Result, error) {
	h.logger.Info("WebSearch called", "query", input.Query)

	if strings.TrimSpace(input.Query) == "" {
		return Result{
			Status:  StatusError,
			Message: "Query is required",
			Error:   &Error{Code: ErrCodeValidation, Message: "query must not be empty"},
		}, nil
	}
	if h.searchBaseURL == "" {
		return Result{
			Status:  StatusError,
			Message: "Web search is not configured",
			Error:   &Error{Code: ErrCodeValidation, Message: "search base URL is not configured"},
		}, nil
	}

	maxResults := input.MaxResults
	if maxResults <= 0 || maxResults > h.searchMaxResults {
		maxResults = h.searchMaxResults
	}

	searchURL := h.searchBaseURL + "/search?q=" + url.QueryEscape(input.Query) + "&format=json"
	req, err := http.NewRequestWithContext(ctx.Context, http.MethodGet, searchURL, nil)
	if err != nil {
		return Result{
			Status:  StatusError,
			Message: "Failed to build search request",
			Error:   &Error{Code: ErrCodeNetwork, Message: err.Error()},
		}, nil
	}

	resp, err := h.searchClient.Do(req)
	if err != nil {
		h.logger.Error("WebSearch request failed", "query", input.Query, "error", err)
		return Result{
			Status:  StatusError,
			Message: "Search request failed",
			Error:   &Error{Code: ErrCodeNetwork, Message: fmt.Sprintf("search request failed: %v", err)},
		}, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Result{
			Status:  StatusError,
			Message: "Search service error",
			Error:   &Error{Code: ErrCodeNetwork, Message: fmt.Sprintf("search service returned status %d", resp.StatusCode)},
		}, nil
	}

	var parsed searxngResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, h.httpVal.MaxResponseSize())).Decode(&parsed); err != nil {
		return Result{
			Status:  StatusError,
			Message: "Failed to parse search results",
			Error:   &Error{Code: ErrCodeIO, Message: fmt.Sprintf("failed to decode search response: %v", err)},
		}, nil
	}

	results := make([]map[string]any, 0, maxResults)
	for _, r := range parsed.Results {
		if len(results) >= maxResults {
			break
		}
		results = append(results, map[string]any{
			"title":   r.Title,
			"url":     r.URL,
			"snippet": r.Content,
		})
	}

	h.logger.Info("WebSearch succeeded", "query", input.Query, "result_count", len(results))
	return Result{
		Status:  StatusSuccess,
		Message: fmt.Sprintf("Found %d results for %q", len(results), input.Query),
		Data: map[string]any{
			"query":   input.Query,
			"results": results,
		},
	}, nil
}

// WebFetch fetches a URL and extracts its readable text content.
// The URL is model-controlled, so it goes through full SSRF validation
// and fetches happen over the validator's DNS-checking client.
func (h *Handler) WebFetch(ctx *ai.ToolContext, input WebFetchInput) (Result, error) {
	h.logger.Info("WebFetch called", "url", input.URL)

	if err := h.httpVal.Validate(input.URL); err != nil {
		h.logger.Error("WebFetch URL validation failed", "url", input.URL, "error", err)
		return Result{
			Status:  StatusError,
			Message: "URL validation failed",
			Error: &Error{
				Code:    ErrCodeSecurity,
				Message: fmt.Sprintf("security warning: url validation failed (possible SSRF attempt): %v", err),
			},
		}, nil
	}

	req, err := http.NewRequestWithContext(ctx.Context, http.MethodGet, input.URL, nil)
	if err != nil {
		return Result{
			Status:  StatusError,
			Message: "Failed to build request",
			Error:   &Error{Code: ErrCodeNetwork, Message: err.Error()},
		}, nil
	}
	req.Header.Set("User-Agent", "agentlab/1.0")

	resp, err := h.httpVal.Client().Do(req)
	if err != nil {
		h.logger.Error("WebFetch request failed", "url", input.URL, "error", err)
		return Result{
			Status:  StatusError,
			Message: "HTTP request failed",
			Error:   &Error{Code: ErrCodeNetwork, Message: fmt.Sprintf("http request failed: %v", err)},
		}, nil
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, h.httpVal.MaxResponseSize()))
	if err != nil {
		return Result{
			Status:  StatusError,
			Message: "Failed to read response",
			Error:   &Error{Code: ErrCodeIO, Message: fmt.Sprintf("failed to read response: %v", err)},
		}, nil
	}

	pageURL, _ := url.Parse(input.URL)
	article, err := readability.FromReader(strings.NewReader(string(body)), pageURL)
	text := ""
	title := ""
	if err != nil {
		// Readability can fail on non-article pages; fall back to stripped body text
		h.logger.Debug("readability extraction failed, using plain text fallback", "url", input.URL, "error", err)
		text = plainHTMLText(body)
	} else {
		text = article.TextContent
		title = article.Title
	}

	// The budget is counted in runes so truncation never splits a
	// multi-byte character.
	truncated := false
	if runes := []rune(text); len(runes) > h.fetchMaxChars {
		text = string(runes[:h.fetchMaxChars])
		truncated = true
	}

	h.logger.Info("WebFetch succeeded",
		"url", input.URL, "status_code", resp.StatusCode,
		"text_length", len(text), "truncated", truncated)
	return Result{
		Status:  StatusSuccess,
		Message: fmt.Sprintf("Successfully fetched: %s (status %d)", input.URL, resp.StatusCode),
		Data: map[string]any{
			"url":       input.URL,
			"status":    resp.StatusCode,
			"title":     title,
			"text":      text,
			"truncated": truncated,
		},
	}, nil
}

// blockSelector matches elements that end a run of inline text. A
// separator is inserted after each so adjacent blocks do not merge
// into one word when the markup carries no whitespace between them.
const blockSelector = "p, div, li, h1, h2, h3, h4, h5, h6, tr, td, th, br, blockquote, pre"

// plainHTMLText strips markup from an HTML document and collapses
// whitespace. Used when readability cannot identify article content.
func plainHTMLText(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return string(body)
	}
	doc.Find("script, style, noscript").Remove()
	doc.Find(blockSelector).AfterHtml(" ")
	return strings.Join(strings.Fields(doc.Text()), " ")
}
