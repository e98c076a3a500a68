package driving

import (
	"context"

	"github.com/custodia-labs/docseek/internal/core/domain"
)

// RetrievalService answers questions with ranked chunks.
type RetrievalService interface {
	// Answer returns the top chunks for question using mode.
	// A topK <= 0 uses the configured default.
	Answer(ctx context.Context, question string, topK int, mode domain.SearchMode) ([]domain.RetrievedChunk, error)

	// Ask runs Answer and passes the chunks to the generator.
	Ask(ctx context.Context, question string, topK int, mode domain.SearchMode) (domain.Answer, error)
}

// IndexService populates and maintains the index.
type IndexService interface {
	// RunFullReindex loads, chunks, embeds and stores everything under sourcePath.
	RunFullReindex(ctx context.Context, sourcePath string) (int, error)

	// RunIncrementalUpdate re-indexes only the changed sources.
	RunIncrementalUpdate(ctx context.Context, sources []string) (int, error)
}

// CatalogService describes what the index currently holds.
type CatalogService interface {
	// Stats counts the live chunks, documents and sources.
	Stats(ctx context.Context) (domain.IndexStats, error)

	// Chunk returns the live chunk with id, or domain.ErrNotFound.
	Chunk(ctx context.Context, id string) (domain.Chunk, error)

	// Sources lists the distinct source paths of live chunks, sorted.
	Sources(ctx context.Context) ([]string, error)
}
