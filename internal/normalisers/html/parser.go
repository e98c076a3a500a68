package html

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/custodia-labs/docseek/internal/core/domain"
	"github.com/custodia-labs/docseek/internal/core/ports/driven"
	"github.com/custodia-labs/docseek/internal/normalisers"
)

// Name is the parser name used in ingestion.parsers.
const Name = "html"

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser handles HTML documents.
type Parser struct{}

// New creates a new HTML parser.
func New() *Parser {
	return &Parser{}
}

// Name returns the parser name.
func (p *Parser) Name() string {
	return Name
}

// Extensions returns the extensions this parser handles.
func (p *Parser) Extensions() []string {
	return []string{".html", ".htm"}
}

// Parse strips markup from raw and records the page title.
func (p *Parser) Parse(_ context.Context, path string, raw string) (domain.Document, error) {
	title := extractTitle(raw)
	if title == "" {
		title = normalisers.TitleFromPath(path)
	}

	return domain.Document{
		ID:      normalisers.DocumentID(path),
		Content: stripHTML(raw),
		Metadata: map[string]any{
			"title":  title,
			"format": Name,
		},
	}, nil
}

var (
	titleTag    = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	allTags     = regexp.MustCompile(`<[^>]+>`)
	multiSpaces = regexp.MustCompile(`[ \t]+`)

	// Applied in order before the remaining tags are stripped.
	rewrites = []struct {
		re   *regexp.Regexp
		with string
	}{
		{regexp.MustCompile(`(?is)<(script|style|noscript|svg)[^>]*>.*?</(script|style|noscript|svg)>`), ""},
		{regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`), ""},
		{regexp.MustCompile(`(?s)<!--.*?-->`), ""},
		{regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`), "\n"},
		{regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)>`), "\n"},
		{regexp.MustCompile(`(?i)<(br|hr)\s*/?>`), "\n"},
	}
)

func extractTitle(content string) string {
	m := titleTag.FindStringSubmatch(content)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(m[1]))
}

// stripHTML returns the visible text of content, one non-empty line per block.
func stripHTML(content string) string {
	for _, rw := range rewrites {
		content = rw.re.ReplaceAllString(content, rw.with)
	}
	content = allTags.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = multiSpaces.ReplaceAllString(content, " ")

	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
