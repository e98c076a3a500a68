// Package mcp provides an MCP (Model Context Protocol) server adapter for docseek.
// It lets AI assistants query and refresh the documentation index.
package mcp

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/docseek/internal/core/domain"
)

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")

// ErrIndexingDisabled is returned by index tools when no index service is wired.
var ErrIndexingDisabled = errors.New("mcp: indexing is not enabled on this server")

// toolError rewrites core errors into messages a client can act on.
// The original error stays in the chain.
func toolError(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrConfiguration), errors.Is(err, domain.ErrInvalidInput):
		return fmt.Errorf("%s: invalid request: %w", op, err)
	case errors.Is(err, domain.ErrNotAvailable):
		return fmt.Errorf("%s: backend unavailable: %w", op, err)
	case errors.Is(err, domain.ErrDimensionMismatch):
		return fmt.Errorf("%s: index was built with a different embedding model, reindex required: %w", op, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
