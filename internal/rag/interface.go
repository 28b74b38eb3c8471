// Package rag defines the retrieval-augmented generation core: the vector
// store abstraction, the embedding abstraction, and the retrieval-and-context
// composer that turns a raw visitor question into a bounded, diverse,
// relevance-ranked context string. Concrete backends (Qdrant, the local
// embedding synthesizer, hosted embedders) satisfy these interfaces so the
// chat pipeline never depends on a specific vendor.
package rag

import (
	"context"
	"errors"
)

// Sentinel errors for the retrieval layer. Callers match with errors.Is and
// treat all three as recoverable — they feed the fallback chain, they never
// abort a request.
var (
	// ErrIndexUnavailable indicates the backing vector store is unreachable.
	ErrIndexUnavailable = errors.New("rag: vector index unavailable")

	// ErrDimensionMismatch indicates a vector's length does not match the
	// dimension the collection was created with. This is a hard error:
	// mixed-dimension corpora silently break cosine ranking.
	ErrDimensionMismatch = errors.New("rag: embedding dimension mismatch")

	// ErrNoRelevantContext indicates retrieval ran but nothing cleared the
	// relevance floor. The orchestrator treats this as a retrieval miss.
	ErrNoRelevantContext = errors.New("rag: no relevant context found")
)

// Document represents a unit of stored or retrieved knowledge — one chunk of
// the portfolio corpus.
type Document struct {
	// ID is the unique identifier for this chunk.
	ID string

	// Content is the raw text content of the chunk.
	Content string

	// Category labels the portfolio section this chunk came from
	// (e.g. "skills", "projects", "experience").
	Category string

	// Metadata holds additional key-value pairs persisted alongside the
	// chunk (source, chunk_index, total_chunks, timestamp).
	Metadata map[string]string

	// Score is the cosine similarity assigned during retrieval. Zero value
	// means the score was not computed (e.g. during ingestion).
	Score float32
}

// VectorStore is the interface for persisting and searching chunk embeddings.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Upsert stores or updates a batch of documents with their pre-computed
	// embeddings. The embeddings slice must be parallel to docs —
	// embeddings[i] is the vector for docs[i]. Idempotent by document ID.
	Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error

	// Search returns the top-k most similar documents for the query
	// embedding, ordered by descending cosine similarity. An empty corpus
	// yields an empty slice, not an error.
	Search(ctx context.Context, queryEmbedding []float32, topK int) ([]Document, error)

	// Clear deletes every vector in the collection. Used for corpus resets;
	// never called on the request hot path.
	Clear(ctx context.Context) error

	// Count reports the number of stored vectors.
	Count(ctx context.Context) (uint64, error)

	// Close releases any resources held by the store.
	Close() error
}

// Embedder is the interface for converting text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their corresponding embeddings.
	// The returned slice is parallel to the input slice.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions reports the length of the vectors this embedder produces.
	Dimensions() int
}
