package driven

import (
	"context"

	"github.com/custodia-labs/docseek/internal/core/domain"
)

// VectorStore is a persistent similarity index with a metadata row per
// vector and a tombstone set of deleted chunk ids.
//
// Writes (Add, Delete, Save, Compact) must be serialised by the caller.
// Search is safe while no write is in flight.
type VectorStore interface {
	// Add appends one row per embedding. The first vector fixes the store
	// dimension; any other length fails with domain.ErrDimensionMismatch.
	Add(ctx context.Context, embeddings [][]float32, rows []domain.Chunk) error

	// Search returns up to k live rows by descending cosine similarity.
	Search(ctx context.Context, query []float32, k int) ([]domain.RetrievedChunk, error)

	// Delete tombstones ids. Unknown or already deleted ids are ignored.
	Delete(ctx context.Context, ids ...string) error

	// Save persists the index, metadata rows, tombstones and dimension.
	Save(ctx context.Context) error

	// Compact rebuilds the backend from live rows and clears tombstones.
	Compact(ctx context.Context) error

	// Chunks returns live rows in insertion order.
	Chunks() []domain.Chunk

	// Select returns the ids of live rows accepted by match.
	Select(match func(domain.Chunk) bool) []string

	// Dimension returns the fixed dimension, or 0 before the first insert.
	Dimension() int

	// Len returns the number of live rows.
	Len() int

	// Close releases resources.
	Close() error
}

// VectorBackend is the positional similarity index beneath a VectorStore.
// Row i of the backend corresponds to metadata row i of the store.
// Vectors passed in are already L2-normalised.
type VectorBackend interface {
	// Name identifies the backend in logs.
	Name() string

	// Load opens persisted state and returns the number of stored rows.
	// dim is the dimension recorded in the metadata, or 0 when unknown.
	Load(ctx context.Context, dim int) (int, error)

	// Append adds vectors at the next positions.
	Append(ctx context.Context, vectors [][]float32) error

	// Search returns up to n positions by descending inner product.
	Search(ctx context.Context, query []float32, n int) ([]VectorHit, error)

	// Vectors returns every stored vector in position order.
	Vectors(ctx context.Context) ([][]float32, error)

	// Truncate drops every row at position n or later.
	Truncate(ctx context.Context, n int) error

	// Reset drops all rows.
	Reset(ctx context.Context) error

	// Save persists the index.
	Save(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// VectorHit is a backend match.
type VectorHit struct {
	// Position is the row index in the backend.
	Position int

	// Score is the inner product with the query.
	Score float64
}
