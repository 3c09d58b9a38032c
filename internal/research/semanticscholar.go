package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kvistgaard/agentlab/internal/log"
)

// DefaultSemanticScholarBaseURL is the public Graph API endpoint.
const DefaultSemanticScholarBaseURL = "https://api.semanticscholar.org/graph/v1"

// SemanticScholarClient searches the Semantic Scholar Graph API.
// An API key is optional; the free tier works without one at a lower
// rate limit.
type SemanticScholarClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  log.Logger
}

// NewSemanticScholarClient creates a client. baseURL may be empty to
// use the public endpoint; apiKey may be empty.
func NewSemanticScholarClient(baseURL, apiKey string, logger log.Logger) (*SemanticScholarClient, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if baseURL == "" {
		baseURL = DefaultSemanticScholarBaseURL
	}
	return &SemanticScholarClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}, nil
}

type semanticSearchResponse struct {
	Total int `json:"total"`
	Data  []struct {
		Title    string `json:"title"`
		Abstract string `json:"abstract"`
		URL      string `json:"url"`
	} `json:"data"`
}

// Search queries the paper search endpoint and returns up to
// maxResults papers.
func (c *SemanticScholarClient) Search(ctx context.Context, query string, maxResults int) ([]Paper, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(maxResults))
	params.Set("fields", "title,abstract,url")

	reqURL := c.baseURL + "/paper/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create semantic scholar request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("semantic scholar request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("semantic scholar returned status %d", resp.StatusCode)
	}

	var parsed semanticSearchResponse
	if err := json.NewDecoder(http.MaxBytesReader(nil, resp.Body, maxFeedBytes)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode semantic scholar response: %w", err)
	}

	papers := make([]Paper, 0, len(parsed.Data))
	for _, p := range parsed.Data {
		papers = append(papers, Paper{
			Title:   strings.TrimSpace(p.Title),
			Summary: strings.TrimSpace(p.Abstract),
			Link:    strings.TrimSpace(p.URL),
		})
	}

	c.logger.Debug("semantic scholar search completed", "query_length", len(query), "results", len(papers))
	return papers, nil
}
