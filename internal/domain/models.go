// Package domain defines the core data types of the HR knowledge-base RAG
// service: ingested documents and their embedded chunks, transient queries
// and conversation messages, and ranked retrieval results.
//
// The service never writes documents or chunks; ingestion is an external
// pipeline. These types therefore model the read side only.
package domain

import "time"

// EmbeddingDim is the fixed length of every stored and generated embedding
// vector. Chunks whose embedding is absent are invisible to search.
const EmbeddingDim = 1536

// Message roles accepted from clients. System-role messages are rejected at
// the validation layer; the system prompt is owned by the server.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Document represents an ingested source document. Immutable after
// ingestion.
//
// Fields:
//   - ID: UUID primary key.
//   - Checksum: hex digest of the original content; unique and non-empty.
//   - SourceFile: origin path of the markdown source, when known.
//   - Title: human-readable document title, when known.
//   - CreatedAt: ingestion timestamp.
type Document struct {
	ID         string    `json:"id"`
	Checksum   string    `json:"checksum"`
	SourceFile string    `json:"source_file,omitempty"`
	Title      string    `json:"title,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Chunk is a contiguous passage extracted from a document. Chunks are unique
// per (DocumentID, ChunkIndex) and are cascade-deleted with their document.
//
// Embedding is nil when the ingestion pipeline has not yet back-filled it;
// such chunks are skipped by the vector store. When present, its length is
// exactly EmbeddingDim.
type Chunk struct {
	ID           string    `json:"id"`
	DocumentID   string    `json:"document_id"`
	ChunkIndex   int       `json:"chunk_index"`
	Content      string    `json:"content"`
	SectionTitle string    `json:"section_title,omitempty"`
	Embedding    []float32 `json:"-"`
}

// Message is a single conversational turn supplied by the client. Transient;
// the service keeps no conversation state between requests.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Query describes one retrieval request. Transient.
//
// TopK is bounded to [1,50]; MinSimilarity to [0,1]. DocumentID optionally
// restricts the search to chunks of a single document.
type Query struct {
	Text          string
	TopK          int
	MinSimilarity float64
	DocumentID    string
}

// RetrievalResult pairs a matched chunk with its owning document and the
// cosine similarity of the chunk embedding to the query embedding.
// Similarity is always within [0,1]; results are ordered by similarity
// descending.
type RetrievalResult struct {
	Chunk      Chunk
	Document   Document
	Similarity float64
}
