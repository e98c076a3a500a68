// Package chunker provides a word-window text chunking processor.
package chunker

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/docseek/internal/core/domain"
	"github.com/custodia-labs/docseek/internal/core/ports/driven"
)

// DefaultChunkSize is the default number of words per chunk.
const DefaultChunkSize = 500

// DefaultChunkOverlap is the default number of words shared by consecutive chunks.
const DefaultChunkOverlap = 100

// Verify interface compliance.
var _ driven.Chunker = (*Processor)(nil)

// Processor splits document content into overlapping word windows.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in words.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		p.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in words.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// New creates a new chunker processor with the given options.
// It fails with domain.ErrConfiguration unless size > 0 and 0 <= overlap < size.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrConfiguration, p.chunkSize)
	}
	if p.overlap < 0 || p.overlap >= p.chunkSize {
		return nil, fmt.Errorf("%w: overlap must be in [0, %d), got %d",
			domain.ErrConfiguration, p.chunkSize, p.overlap)
	}

	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the window size in words.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the number of shared words between windows.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Chunk splits every document, preserving document order.
func (p *Processor) Chunk(docs []domain.Document) []domain.Chunk {
	var chunks []domain.Chunk
	for i := range docs {
		chunks = append(chunks, p.Process(&docs[i])...)
	}
	return chunks
}

// Process splits one document into chunks.
// Whitespace-only content produces no chunks.
func (p *Processor) Process(doc *domain.Document) []domain.Chunk {
	words := strings.Fields(doc.Content)
	if len(words) == 0 {
		return nil
	}

	step := p.chunkSize - p.overlap
	chunks := make([]domain.Chunk, 0, (len(words)+step-1)/step)

	start := 0
	for {
		end := start + p.chunkSize
		if end > len(words) {
			end = len(words)
		}

		text := strings.TrimSpace(strings.Join(words[start:end], " "))
		if text != "" {
			index := len(chunks)
			meta := domain.CopyMetadata(doc.Metadata)
			meta[domain.MetaChunkIndex] = index
			meta[domain.MetaChunkSize] = p.chunkSize
			meta[domain.MetaChunkOverlap] = p.overlap

			chunks = append(chunks, domain.Chunk{
				ID:         fmt.Sprintf("%s:%d", doc.ID, index),
				DocumentID: doc.ID,
				Content:    text,
				Metadata:   meta,
			})
		}

		if end >= len(words) {
			break
		}
		start = max(0, end-p.overlap)
	}

	return chunks
}
