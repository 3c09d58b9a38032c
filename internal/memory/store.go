package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"

	"github.com/kvistgaard/agentlab/internal/log"
)

// Querier defines the database operations the Store needs.
// Interfaces are defined by the consumer, not the provider
// (similar to http.RoundTripper, io.Reader).
type Querier interface {
	UpsertMemory(ctx context.Context, arg UpsertMemoryParams) error
	SearchMemories(ctx context.Context, arg SearchMemoriesParams) ([]MemoryRow, error)
	CountMemories(ctx context.Context, filterMetadata []byte) (int64, error)
	DeleteMemory(ctx context.Context, id string) error
}

// Store manages long-term memories with vector search.
// It handles embedding generation and similarity search via
// PostgreSQL + pgvector.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   log.Logger
}

// NewStore creates a long-term memory store.
func NewStore(querier Querier, embedder ai.Embedder, logger log.Logger) (*Store, error) {
	if querier == nil {
		return nil, errors.New("querier is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Store{queries: querier, embedder: embedder, logger: logger}, nil
}

// Add embeds the document's content and upserts it into the store.
func (s *Store) Add(ctx context.Context, doc Document) error {
	if doc.ID == "" {
		return errors.New("document ID is required")
	}
	if doc.Content == "" {
		return errors.New("document content is required")
	}

	embedding, err := s.embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("failed to embed document %q: %w", doc.ID, err)
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	if err := s.queries.UpsertMemory(ctx, UpsertMemoryParams{
		ID:        doc.ID,
		Content:   doc.Content,
		Embedding: embedding,
		Metadata:  metadataJSON,
		CreatedAt: createdAt,
	}); err != nil {
		return fmt.Errorf("failed to upsert memory %q: %w", doc.ID, err)
	}

	s.logger.Debug("added memory", "id", doc.ID, "content_length", len(doc.Content))
	return nil
}

// Search performs semantic search and returns the most similar memories,
// ordered by similarity. A per-call timeout bounds embedding and query time.
//
//	results, err := store.Search(ctx, "token budgets",
//	    memory.WithTopK(10),
//	    memory.WithFilter("agent", "qa"))
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	embedding, err := s.embed(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("embedding generation timeout: %w", err)
		}
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	// Filter JSON always comes from json.Marshal and is bound as a query
	// parameter, never interpolated.
	var filterJSON []byte
	if len(cfg.filter) > 0 {
		filterJSON, err = json.Marshal(cfg.filter)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal filter: %w", err)
		}
	}

	rows, err := s.queries.SearchMemories(queryCtx, SearchMemoriesParams{
		QueryEmbedding: embedding,
		FilterMetadata: filterJSON,
		ResultLimit:    int32(cfg.topK),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}

	return s.rowsToResults(rows), nil
}

// Count returns the number of memories matching the filter.
// A nil or empty filter counts all memories.
func (s *Store) Count(ctx context.Context, filter map[string]string) (int, error) {
	var filterJSON []byte
	if len(filter) > 0 {
		var err error
		filterJSON, err = json.Marshal(filter)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal filter: %w", err)
		}
	}

	count, err := s.queries.CountMemories(ctx, filterJSON)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}

	// Overflow protection for 32-bit platforms
	if count > math.MaxInt {
		return 0, fmt.Errorf("memory count %d exceeds platform int capacity", count)
	}

	return int(count), nil
}

// Delete removes a memory by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.queries.DeleteMemory(ctx, id); err != nil {
		return fmt.Errorf("failed to delete memory %q: %w", id, err)
	}
	s.logger.Debug("deleted memory", "id", id)
	return nil
}

func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{Content: []*ai.Part{ai.NewTextPart(text)}},
		},
	})
	if err != nil {
		return pgvector.Vector{}, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, errors.New("empty embedding returned")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}

func (s *Store) rowsToResults(rows []MemoryRow) []Result {
	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		var metadata map[string]string
		if len(row.Metadata) > 0 {
			if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
				s.logger.Warn("failed to parse metadata", "memory_id", row.ID, "error", err)
				metadata = make(map[string]string)
			}
		}

		results = append(results, Result{
			Document: Document{
				ID:        row.ID,
				Content:   row.Content,
				Metadata:  metadata,
				CreatedAt: row.CreatedAt,
			},
			Similarity: row.Similarity,
		})
	}
	return results
}
