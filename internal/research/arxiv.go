package research

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kvistgaard/agentlab/internal/log"
)

// DefaultArxivBaseURL is the public arXiv Atom API endpoint.
const DefaultArxivBaseURL = "https://export.arxiv.org/api/query"

// maxFeedBytes caps the Atom response read. arXiv abstracts are short;
// anything bigger than this is not a feed we want.
const maxFeedBytes = 4 << 20

// ArxivClient searches the arXiv Atom API.
//
// arXiv's terms of use ask for no more than one request every three
// seconds, so every search waits on a shared limiter.
type ArxivClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	logger  log.Logger
}

// NewArxivClient creates a client. baseURL may be empty to use the
// public endpoint.
func NewArxivClient(baseURL string, logger log.Logger) (*ArxivClient, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if baseURL == "" {
		baseURL = DefaultArxivBaseURL
	}
	return &ArxivClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(3*time.Second), 1),
		logger:  logger,
	}, nil
}

// atomFeed mirrors the subset of the arXiv Atom response we consume.
type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID      string `xml:"id"`
	Title   string `xml:"title"`
	Summary string `xml:"summary"`
}

// Search queries arXiv and returns up to maxResults papers.
func (c *ArxivClient) Search(ctx context.Context, query string, maxResults int) ([]Paper, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query must not be empty")
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("arxiv rate limit wait: %w", err)
	}

	params := url.Values{}
	params.Set("search_query", "all:"+query)
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(maxResults))

	reqURL := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create arxiv request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned status %d", resp.StatusCode)
	}

	var feed atomFeed
	if err := xml.NewDecoder(http.MaxBytesReader(nil, resp.Body, maxFeedBytes)).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode arxiv feed: %w", err)
	}

	papers := make([]Paper, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		papers = append(papers, Paper{
			Title:   strings.Join(strings.Fields(e.Title), " "),
			Summary: strings.TrimSpace(e.Summary),
			Link:    strings.TrimSpace(e.ID),
		})
	}

	c.logger.Debug("arxiv search completed", "query_length", len(query), "results", len(papers))
	return papers, nil
}
