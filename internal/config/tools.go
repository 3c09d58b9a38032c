package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// SearXNGConfig holds SearXNG service configuration for web search.
type SearXNGConfig struct {
	// BaseURL is the SearXNG instance URL (e.g. http://searxng:8080)
	BaseURL string `mapstructure:"base_url" json:"base_url"`
	// MaxResults is the default number of search results returned (default: 5)
	MaxResults int `mapstructure:"max_results" json:"max_results"`
}

// WebFetchConfig holds configuration for the webFetch tool.
type WebFetchConfig struct {
	// TimeoutMs is the request timeout in milliseconds (default: 30000)
	TimeoutMs int `mapstructure:"timeout_ms" json:"timeout_ms"`
	// MaxChars is the character budget for returned page text (default: 4000)
	MaxChars int `mapstructure:"max_chars" json:"max_chars"`
}

// Timeout returns the fetch timeout as a duration.
func (c WebFetchConfig) Timeout() time.Duration {
	if c.TimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// ResearchConfig holds academic search and PDF summarization settings.
type ResearchConfig struct {
	// ArxivBaseURL is the arXiv Atom API endpoint.
	ArxivBaseURL string `mapstructure:"arxiv_base_url" json:"arxiv_base_url"`
	// SemanticScholarBaseURL is the Semantic Scholar Graph API endpoint.
	SemanticScholarBaseURL string `mapstructure:"semantic_scholar_base_url" json:"semantic_scholar_base_url"`
	// SemanticScholarAPIKey raises rate limits when set. SENSITIVE: masked in MarshalJSON.
	SemanticScholarAPIKey string `mapstructure:"semantic_scholar_api_key" json:"semantic_scholar_api_key"`
	// ChunkChars is the per-chunk character budget for PDF summarization (default: 3000)
	ChunkChars int `mapstructure:"chunk_chars" json:"chunk_chars"`
}

// MarshalJSON implements json.Marshaler with sensitive field masking.
func (r ResearchConfig) MarshalJSON() ([]byte, error) {
	type alias ResearchConfig
	a := alias(r)
	a.SemanticScholarAPIKey = maskSecret(a.SemanticScholarAPIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal research config: %w", err)
	}
	return data, nil
}

// BrowserConfig holds Chrome automation settings for the web agent.
type BrowserConfig struct {
	// Bin is an optional Chrome/Chromium binary path (empty = rod's default lookup).
	Bin string `mapstructure:"bin" json:"bin"`
	// Headless controls whether Chrome runs without a visible window (default: true).
	Headless bool `mapstructure:"headless" json:"headless"`
	// NavigationTimeoutMs bounds page loads and selector waits (default: 15000).
	NavigationTimeoutMs int `mapstructure:"navigation_timeout_ms" json:"navigation_timeout_ms"`
	// ScreenshotDir is where screenshot actions write PNG files (default: artifacts/web).
	ScreenshotDir string `mapstructure:"screenshot_dir" json:"screenshot_dir"`
}

// NavigationTimeout returns the navigation timeout as a duration.
func (c BrowserConfig) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}
