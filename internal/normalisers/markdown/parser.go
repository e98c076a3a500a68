// Package markdown provides a Parser for Markdown documentation.
package markdown

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/docseek/internal/core/domain"
	"github.com/custodia-labs/docseek/internal/core/ports/driven"
	"github.com/custodia-labs/docseek/internal/normalisers"
)

// Name is the parser name used in ingestion.parsers.
const Name = "markdown"

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser handles Markdown documents.
type Parser struct{}

// New creates a new Markdown parser.
func New() *Parser {
	return &Parser{}
}

// Name returns the parser name.
func (p *Parser) Name() string {
	return Name
}

// Extensions returns the extensions this parser handles.
func (p *Parser) Extensions() []string {
	return []string{".md", ".markdown"}
}

// Parse simplifies markdown formatting to plain text.
// Fenced code is kept since documentation answers often live there.
func (p *Parser) Parse(_ context.Context, path string, raw string) (domain.Document, error) {
	title := extractTitle(raw)
	if title == "" {
		title = normalisers.TitleFromPath(path)
	}

	return domain.Document{
		ID:      normalisers.DocumentID(path),
		Content: stripMarkdown(raw),
		Metadata: map[string]any{
			"title":  title,
			"format": Name,
		},
	}, nil
}

var (
	fences   = regexp.MustCompile("(?m)^```[^\n]*$")
	newlines = regexp.MustCompile(`\n{3,}`)

	// Applied in order.
	rewrites = []struct {
		re   *regexp.Regexp
		with string
	}{
		{regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`), ""},
		{regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`), "$1"},
		{regexp.MustCompile("`([^`\n]+)`"), "$1"},
		{regexp.MustCompile(`(?m)^#{1,6}\s+`), ""},
		{regexp.MustCompile(`(?m)^>\s*`), ""},
		{regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`), ""},
		{regexp.MustCompile(`(?m)^\s*[-*+]\s+`), ""},
		{regexp.MustCompile(`(?m)^\s*\d+\.\s+`), ""},
		{regexp.MustCompile(`(\*\*|__)([^*_]+)(\*\*|__)`), "$2"},
		{regexp.MustCompile(`(^|[^*\w])\*([^*\n]+)\*`), "$1$2"},
	}
)

func extractTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}

func stripMarkdown(content string) string {
	content = fences.ReplaceAllString(content, "")
	for _, rw := range rewrites {
		content = rw.re.ReplaceAllString(content, rw.with)
	}
	content = newlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
