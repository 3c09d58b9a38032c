// Package memory provides the two memory layers agents use: a short-term
// conversation buffer bounded by a token budget, and a long-term store
// backed by PostgreSQL with pgvector similarity search.
package memory

import "time"

// Document is a single long-term memory entry.
type Document struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at,omitzero"`
}

// Result is a search hit with its cosine similarity score.
type Result struct {
	Document
	Similarity float64 `json:"similarity"`
}

// searchConfig holds resolved search options.
type searchConfig struct {
	topK    int
	filter  map[string]string
	timeout time.Duration
}

// SearchOption configures a Search call.
type SearchOption func(*searchConfig)

// WithTopK sets the maximum number of results (default 5).
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithFilter restricts results to documents whose metadata contains
// the given key/value pair. May be applied multiple times.
func WithFilter(key, value string) SearchOption {
	return func(c *searchConfig) {
		if c.filter == nil {
			c.filter = make(map[string]string)
		}
		c.filter[key] = value
	}
}

// WithSearchTimeout overrides the default 10s vector search timeout.
func WithSearchTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func buildSearchConfig(opts []SearchOption) searchConfig {
	cfg := searchConfig{
		topK:    5,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
