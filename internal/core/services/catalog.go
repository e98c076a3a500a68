package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/custodia-labs/docseek/internal/core/domain"
	"github.com/custodia-labs/docseek/internal/core/ports/driven"
	"github.com/custodia-labs/docseek/internal/core/ports/driving"
)

// Ensure Catalog implements the interface.
var _ driving.CatalogService = (*Catalog)(nil)

// Catalog reads index contents from the vector store.
type Catalog struct {
	store driven.VectorStore
}

// NewCatalog creates a catalog over store.
func NewCatalog(store driven.VectorStore) *Catalog {
	return &Catalog{store: store}
}

// Stats counts the live chunks, documents and sources.
func (c *Catalog) Stats(ctx context.Context) (domain.IndexStats, error) {
	if err := ctx.Err(); err != nil {
		return domain.IndexStats{}, err
	}

	chunks := c.store.Chunks()
	docs := make(map[string]struct{})
	sources := make(map[string]struct{})
	for _, ch := range chunks {
		docs[ch.DocumentID] = struct{}{}
		if p := ch.SourcePath(); p != "" {
			sources[p] = struct{}{}
		}
	}

	return domain.IndexStats{
		Chunks:    len(chunks),
		Documents: len(docs),
		Sources:   len(sources),
		Dimension: c.store.Dimension(),
	}, nil
}

// Chunk returns the live chunk with id.
func (c *Catalog) Chunk(ctx context.Context, id string) (domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return domain.Chunk{}, err
	}
	for _, ch := range c.store.Chunks() {
		if ch.ID == id {
			return ch, nil
		}
	}
	return domain.Chunk{}, fmt.Errorf("chunk %q: %w", id, domain.ErrNotFound)
}

// Sources lists the distinct source paths of live chunks.
func (c *Catalog) Sources(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	out := []string{}
	for _, ch := range c.store.Chunks() {
		p := ch.SourcePath()
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}
