package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// DBTX is the subset of pgxpool.Pool the queries need.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries implements Querier against PostgreSQL with pgvector.
type Queries struct {
	db DBTX
}

// NewQueries creates a Queries instance bound to a pool or transaction.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// UpsertMemoryParams are the arguments for UpsertMemory.
type UpsertMemoryParams struct {
	ID        string
	Content   string
	Embedding pgvector.Vector
	Metadata  []byte
	CreatedAt time.Time
}

const upsertMemorySQL = `
INSERT INTO memories (id, content, embedding, metadata, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
    content    = EXCLUDED.content,
    embedding  = EXCLUDED.embedding,
    metadata   = EXCLUDED.metadata,
    created_at = EXCLUDED.created_at`

// UpsertMemory inserts or replaces a memory row.
func (q *Queries) UpsertMemory(ctx context.Context, arg UpsertMemoryParams) error {
	_, err := q.db.Exec(ctx, upsertMemorySQL,
		arg.ID, arg.Content, arg.Embedding, arg.Metadata, arg.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert memory: %w", err)
	}
	return nil
}

// SearchMemoriesParams are the arguments for SearchMemories.
type SearchMemoriesParams struct {
	QueryEmbedding pgvector.Vector
	FilterMetadata []byte // nil = no filter
	ResultLimit    int32
}

// MemoryRow is one vector search result.
type MemoryRow struct {
	ID         string
	Content    string
	Metadata   []byte
	CreatedAt  time.Time
	Similarity float64
}

const searchMemoriesSQL = `
SELECT id, content, metadata, created_at,
       1 - (embedding <=> $1) AS similarity
FROM memories
ORDER BY embedding <=> $1
LIMIT $2`

const searchMemoriesFilteredSQL = `
SELECT id, content, metadata, created_at,
       1 - (embedding <=> $1) AS similarity
FROM memories
WHERE metadata @> $2
ORDER BY embedding <=> $1
LIMIT $3`

// SearchMemories runs a cosine similarity search, optionally filtered by
// JSONB metadata containment.
func (q *Queries) SearchMemories(ctx context.Context, arg SearchMemoriesParams) ([]MemoryRow, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if len(arg.FilterMetadata) > 0 {
		rows, err = q.db.Query(ctx, searchMemoriesFilteredSQL,
			arg.QueryEmbedding, arg.FilterMetadata, arg.ResultLimit)
	} else {
		rows, err = q.db.Query(ctx, searchMemoriesSQL,
			arg.QueryEmbedding, arg.ResultLimit)
	}
	if err != nil {
		return nil, fmt.Errorf("search memories: %w", err)
	}
	defer rows.Close()

	var results []MemoryRow
	for rows.Next() {
		var r MemoryRow
		if err := rows.Scan(&r.ID, &r.Content, &r.Metadata, &r.CreatedAt, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scan memory row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memory rows: %w", err)
	}
	return results, nil
}

const countMemoriesSQL = `SELECT count(*) FROM memories`

const countMemoriesFilteredSQL = `SELECT count(*) FROM memories WHERE metadata @> $1`

// CountMemories counts rows, optionally filtered by metadata containment.
func (q *Queries) CountMemories(ctx context.Context, filterMetadata []byte) (int64, error) {
	var (
		row pgx.Row
	)
	if len(filterMetadata) > 0 {
		row = q.db.QueryRow(ctx, countMemoriesFilteredSQL, filterMetadata)
	} else {
		row = q.db.QueryRow(ctx, countMemoriesSQL)
	}

	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count memories: %w", err)
	}
	return count, nil
}

const deleteMemorySQL = `DELETE FROM memories WHERE id = $1`

// DeleteMemory removes a row by ID.
func (q *Queries) DeleteMemory(ctx context.Context, id string) error {
	_, err := q.db.Exec(ctx, deleteMemorySQL, id)
	if err != nil {
		return fmt.Errorf("delete memory: %w", err)
	}
	return nil
}
