package normalisers

import (
	"crypto/sha1" //nolint:gosec // content address, not a security boundary
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/docseek/internal/core/domain"
	"github.com/custodia-labs/docseek/internal/core/ports/driven"
)

// Registry maps file extensions to parsers.
type Registry struct {
	byExt map[string]driven.Parser
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]driven.Parser)}
}

// Register adds p for every extension it handles.
// A later registration for the same extension replaces the earlier one.
func (r *Registry) Register(p driven.Parser) {
	for _, ext := range p.Extensions() {
		r.byExt[strings.ToLower(ext)] = p
	}
}

// Lookup returns the parser registered for ext, if any.
func (r *Registry) Lookup(ext string) (driven.Parser, bool) {
	if r == nil {
		return nil, false
	}
	p, ok := r.byExt[strings.ToLower(ext)]
	return p, ok
}

// Extensions returns the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// BuilderFunc creates a parser.
type BuilderFunc func() driven.Parser

// Build creates a registry holding the named parsers from builders.
// Unknown names fail with domain.ErrConfiguration.
func Build(names []string, builders map[string]BuilderFunc) (*Registry, error) {
	r := NewRegistry()
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		build, ok := builders[key]
		if !ok {
			return nil, fmt.Errorf("%w: unsupported parser %q", domain.ErrConfiguration, name)
		}
		r.Register(build())
	}
	return r, nil
}

// DocumentID returns the stable document id for a file path:
// the hex SHA-1 of the path string.
func DocumentID(path string) string {
	sum := sha1.Sum([]byte(path)) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])
}

// TitleFromPath derives a human-readable title from a file name.
func TitleFromPath(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}
