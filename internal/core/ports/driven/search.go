package driven

import (
	"context"

	"github.com/custodia-labs/docseek/internal/core/domain"
)

// KeywordIndex provides lexical search over the chunk corpus.
// Backed by SQLite FTS5 for BM25 ranking.
type KeywordIndex interface {
	// Build replaces the index contents with chunks.
	Build(ctx context.Context, chunks []domain.Chunk) error

	// Search returns up to limit hits, best first.
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)

	// Close releases resources.
	Close() error
}

// SearchHit represents a keyword match.
type SearchHit struct {
	// Chunk is the matched chunk.
	Chunk domain.Chunk

	// Score is the relevance score (higher is better).
	Score float64
}
