package driven

import "github.com/custodia-labs/docseek/internal/core/domain"

// Chunker splits documents into overlapping word windows.
type Chunker interface {
	Chunk(docs []domain.Document) []domain.Chunk
}
