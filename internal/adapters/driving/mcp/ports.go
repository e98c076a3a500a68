package mcp

import (
	"github.com/custodia-labs/docseek/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval answers questions.
	Retrieval driving.RetrievalService

	// Index runs reindex and update tools. Optional.
	Index driving.IndexService

	// Catalog backs the index resources. Optional.
	Catalog driving.CatalogService

	// SourcePath is reindexed when the reindex tool gets no path.
	SourcePath string
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
