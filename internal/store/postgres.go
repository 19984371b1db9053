// Package store provides the Postgres/pgvector implementation of the vector
// index consumed by the retrieval engine, plus the probes used by the health
// endpoint.
//
// The schema is owned by the ingestion pipeline and its migrations; this
// package only reads. Search relies on the pgvector `<=>` cosine-distance
// operator and an HNSW index on chunks.embedding.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/connexus-ai/hr-rag-service/internal/search"
)

// Postgres is a read-only vector store over the documents/chunks schema.
// Safe for concurrent use; the pool handles connection management.
type Postgres struct {
	pool *pgxpool.Pool
}

// New connects to databaseURL, registers the pgvector types on every
// connection, and verifies connectivity with a ping.
func New(ctx context.Context, databaseURL string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() { p.pool.Close() }

const searchSQL = `
SELECT c.id, c.document_id, c.chunk_index, c.content, c.section_title,
       d.checksum, d.source_file, d.title, d.created_at,
       c.embedding <=> $1 AS distance
FROM chunks c
JOIN documents d ON d.id = c.document_id
WHERE c.embedding IS NOT NULL
  AND ($2::uuid IS NULL OR c.document_id = $2::uuid)
ORDER BY c.embedding <=> $1
LIMIT $3`

// Search returns the topK chunks nearest to vec by cosine distance,
// ascending, skipping chunks without embeddings. documentID, when non-empty,
// restricts the search to a single document.
func (p *Postgres) Search(ctx context.Context, vec []float32, topK int, documentID string) ([]search.StoreMatch, error) {
	var docFilter *string
	if documentID != "" {
		docFilter = &documentID
	}

	rows, err := p.pool.Query(ctx, searchSQL, pgvector.NewVector(vec), docFilter, topK)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var out []search.StoreMatch
	for rows.Next() {
		var (
			m            search.StoreMatch
			sectionTitle *string
			sourceFile   *string
			title        *string
		)
		if err := rows.Scan(
			&m.Chunk.ID, &m.Chunk.DocumentID, &m.Chunk.ChunkIndex, &m.Chunk.Content, &sectionTitle,
			&m.Document.Checksum, &sourceFile, &title, &m.Document.CreatedAt,
			&m.Distance,
		); err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		m.Document.ID = m.Chunk.DocumentID
		if sectionTitle != nil {
			m.Chunk.SectionTitle = *sectionTitle
		}
		if sourceFile != nil {
			m.Document.SourceFile = *sourceFile
		}
		if title != nil {
			m.Document.Title = *title
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunk rows: %w", err)
	}
	return out, nil
}

// Ping runs a trivial read and reports its latency. Used by the health
// endpoint as the critical check.
func (p *Postgres) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	var one int
	if err := p.pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

// HasVectorExtension reports whether the pgvector extension is installed.
func (p *Postgres) HasVectorExtension(ctx context.Context) (bool, error) {
	var ok bool
	err := p.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'vector')").Scan(&ok)
	return ok, err
}

// compile-time interface check
var _ search.VectorStore = (*Postgres)(nil)
