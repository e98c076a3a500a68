// Package extractive provides the default answer generator. It does not
// run a language model: the answer is the ranked context laid out as
// numbered, attributed excerpts.
package extractive

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docseek/internal/core/domain"
	"github.com/custodia-labs/docseek/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.Generator = (*Generator)(nil)

const (
	// DefaultMaxSources caps how many chunks appear in an answer.
	DefaultMaxSources = 5

	// DefaultMaxExcerpt caps each excerpt, in runes.
	DefaultMaxExcerpt = 400
)

// NoContextAnswer is returned when there is nothing to ground an answer on.
const NoContextAnswer = "No relevant documentation was found for this question."

// Generator formats ranked chunks into answer text.
type Generator struct {
	maxSources int
	maxExcerpt int
}

// Option configures a Generator.
type Option func(*Generator)

// WithMaxSources sets the number of chunks used. Values <= 0 are ignored.
func WithMaxSources(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxSources = n
		}
	}
}

// WithMaxExcerpt sets the excerpt length in runes. Values <= 0 are ignored.
func WithMaxExcerpt(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxExcerpt = n
		}
	}
}

// New creates an extractive generator.
func New(opts ...Option) *Generator {
	g := &Generator{
		maxSources: DefaultMaxSources,
		maxExcerpt: DefaultMaxExcerpt,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate lays out the highest ranked chunks in order, each with its source.
func (g *Generator) Generate(ctx context.Context, question string, chunks []domain.RetrievedChunk) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(chunks) == 0 {
		return NoContextAnswer, nil
	}

	used := chunks
	if len(used) > g.maxSources {
		used = used[:g.maxSources]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Relevant documentation for %q:\n", strings.TrimSpace(question))
	for i, rc := range used {
		fmt.Fprintf(&b, "\n%d. [%s]\n", i+1, SourceLabel(rc.Chunk))
		b.WriteString(excerpt(rc.Chunk.Content, g.maxExcerpt))
		b.WriteString("\n")
	}
	return b.String(), nil
}

// SourceLabel names where a chunk came from: its source path, falling back
// to the document id.
func SourceLabel(c domain.Chunk) string {
	if p := c.SourcePath(); p != "" {
		return p
	}
	return c.DocumentID
}

func excerpt(content string, limit int) string {
	text := strings.Join(strings.Fields(content), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	cut := strings.TrimRight(string(runes[:limit]), " ")
	return cut + "..."
}
