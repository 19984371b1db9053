// Package search implements the retrieval engine: it embeds a query into a
// fixed-dimension vector, runs cosine-similarity search against the vector
// store, and converts store distances into ranked, threshold-filtered
// results.
//
// The package consumes the Embedder and VectorStore as interfaces so the
// engine stays independent of the concrete providers (OpenAI embeddings and
// Postgres/pgvector in production, fakes in tests).
package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/connexus-ai/hr-rag-service/internal/domain"
)

// ErrBadEmbedding is returned when the embedder yields no vector or a vector
// whose length differs from domain.EmbeddingDim.
var ErrBadEmbedding = errors.New("embedder returned an unusable vector")

// Embedder turns texts into L2-normalized vectors of domain.EmbeddingDim
// floats, one per input, in input order.
//
// Implementations must honor the context for cancellation and deadlines and
// must be safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// StoreMatch is one row returned by the vector store: a chunk, its owning
// document, and the cosine distance of the chunk embedding to the query
// vector. Distance is in [0,1] for L2-normalized vectors; the store returns
// matches sorted ascending by distance and skips chunks without embeddings.
type StoreMatch struct {
	Chunk    domain.Chunk
	Document domain.Document
	Distance float64
}

// VectorStore executes nearest-neighbour search over the persistent index.
// documentID, when non-empty, restricts the search to one document's chunks.
type VectorStore interface {
	Search(ctx context.Context, vec []float32, topK int, documentID string) ([]StoreMatch, error)
}

// Retriever wires an Embedder and a VectorStore into the search operation.
// Both outbound calls run under their own deadline so a stuck collaborator
// surfaces as context.DeadlineExceeded rather than a hung handler.
type Retriever struct {
	Embedder Embedder
	Store    VectorStore

	// Deadlines for the two outbound calls. Zero disables the bound, which
	// is only appropriate in tests.
	EmbedTimeout time.Duration
	StoreTimeout time.Duration
}

// Search embeds q.Text, asks the store for the q.TopK nearest chunks, and
// returns results with similarity ≥ q.MinSimilarity in the store's order
// (descending similarity). An empty slice is a successful outcome; the
// chat orchestrator relies on it for the no-context fallback.
//
// Timeouts from either collaborator carry context.DeadlineExceeded in their
// chain so callers can distinguish them from provider outages.
func (r *Retriever) Search(ctx context.Context, q domain.Query) ([]domain.RetrievalResult, error) {
	tr := otel.Tracer("search/Retriever")
	ctx, span := tr.Start(ctx, "Search",
		trace.WithAttributes(
			attribute.Int("query.top_k", q.TopK),
			attribute.Float64("query.min_similarity", q.MinSimilarity),
		),
	)
	defer span.End()

	vec, err := r.embedQuery(ctx, q.Text)
	if err != nil {
		return nil, err
	}

	matches, err := r.searchStore(ctx, vec, q.TopK, q.DocumentID)
	if err != nil {
		return nil, err
	}

	results := make([]domain.RetrievalResult, 0, len(matches))
	for _, m := range matches {
		sim := clampSimilarity(1 - m.Distance)
		if sim < q.MinSimilarity {
			continue
		}
		results = append(results, domain.RetrievalResult{
			Chunk:      m.Chunk,
			Document:   m.Document,
			Similarity: sim,
		})
	}
	span.SetAttributes(attribute.Int("results.count", len(results)))
	return results, nil
}

// embedQuery obtains the single query vector under the embedding deadline.
func (r *Retriever) embedQuery(ctx context.Context, text string) ([]float32, error) {
	if r.EmbedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.EmbedTimeout)
		defer cancel()
	}

	vecs, err := r.Embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) == 0 {
		return nil, ErrBadEmbedding
	}
	if len(vecs[0]) != domain.EmbeddingDim {
		return nil, fmt.Errorf("%w: got %d dimensions, want %d", ErrBadEmbedding, len(vecs[0]), domain.EmbeddingDim)
	}
	return vecs[0], nil
}

// searchStore runs the nearest-neighbour query under the store deadline.
func (r *Retriever) searchStore(ctx context.Context, vec []float32, topK int, documentID string) ([]StoreMatch, error) {
	if r.StoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.StoreTimeout)
		defer cancel()
	}

	matches, err := r.Store.Search(ctx, vec, topK, documentID)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return matches, nil
}

// clampSimilarity forces a converted similarity into [0,1]. Float drift in
// the store can put 1-distance a hair outside the range.
func clampSimilarity(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
