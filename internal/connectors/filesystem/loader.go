package filesystem

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/docseek/internal/core/domain"
	"github.com/custodia-labs/docseek/internal/core/ports/driven"
	"github.com/custodia-labs/docseek/internal/logger"
	"github.com/custodia-labs/docseek/internal/normalisers"
)

// Verify interface compliance.
var _ driven.DocumentLoader = (*Loader)(nil)

// SupportedExtensions lists the file extensions collected from directories.
var SupportedExtensions = []string{".html", ".htm", ".md", ".markdown", ".json"}

// Loader reads documentation files into documents.
type Loader struct {
	parsers       *normalisers.Registry
	includeHidden bool
}

// Option configures the loader.
type Option func(*Loader)

// WithParsers sets the per-extension parsers consulted before the builtin normaliser.
func WithParsers(r *normalisers.Registry) Option {
	return func(l *Loader) {
		if r != nil {
			l.parsers = r
		}
	}
}

// WithParser registers a single parser.
func WithParser(p driven.Parser) Option {
	return func(l *Loader) {
		l.parsers.Register(p)
	}
}

// WithHiddenFiles controls whether directory walks collect dot-prefixed
// files and descend into dot-prefixed directories. They are skipped by
// default.
func WithHiddenFiles(include bool) Option {
	return func(l *Loader) {
		l.includeHidden = include
	}
}

// NewLoader creates a loader. Without parsers every file goes through
// the builtin normaliser.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{parsers: normalisers.NewRegistry()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the documents under path in path order.
// A missing path yields no documents. Files that cannot be read or
// parsed are skipped.
func (l *Loader) Load(ctx context.Context, path string) ([]domain.Document, error) {
	root := filepath.Clean(path)
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		logger.Debug("loader: stat %s: %v", root, err)
		return nil, nil
	}

	var files []string
	if info.IsDir() {
		files, err = collect(ctx, root, l.includeHidden)
		if err != nil {
			return nil, err
		}
	} else {
		files = []string{root}
	}

	var docs []domain.Document
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return docs, err
		}
		loaded, err := l.loadFile(ctx, file)
		if err != nil {
			logger.Debug("loader: skipping %s: %v", file, err)
			continue
		}
		docs = append(docs, loaded...)
	}

	logger.Debug("loader: %d documents from %d files under %s", len(docs), len(files), root)
	return docs, nil
}

// collect walks root for supported files, sorted by path. Hidden entries
// are skipped unless includeHidden is set.
func collect(ctx context.Context, root string, includeHidden bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			// Unreadable entries are skipped like unreadable files.
			if d != nil && d.IsDir() && p != root {
				return fs.SkipDir
			}
			return nil
		}
		if !includeHidden && p != root && isHidden(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsSupported(p) {
			return nil
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// IsSupported reports whether path has a supported extension.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

func (l *Loader) loadFile(ctx context.Context, path string) ([]domain.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := strings.ToValidUTF8(string(raw), "")
	ext := strings.ToLower(filepath.Ext(path))

	if parser, ok := l.parsers.Lookup(ext); ok {
		doc, err := parser.Parse(ctx, path, text)
		if err != nil {
			return nil, err
		}
		meta := baseMetadata(path)
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		meta[domain.MetaSourcePath] = path
		if doc.ID == "" {
			doc.ID = normalisers.DocumentID(path)
		}
		doc.Content = strings.TrimSpace(doc.Content)
		doc.Metadata = meta
		return []domain.Document{doc}, nil
	}

	if ext == ".json" {
		return normaliseJSON(path, text), nil
	}

	return []domain.Document{{
		ID:       normalisers.DocumentID(path),
		Content:  strings.TrimSpace(text),
		Metadata: baseMetadata(path),
	}}, nil
}

func baseMetadata(path string) map[string]any {
	return map[string]any{
		domain.MetaSourcePath: path,
		domain.MetaFileName:   filepath.Base(path),
		domain.MetaExtension:  strings.ToLower(filepath.Ext(path)),
	}
}

// isHidden reports whether a path has a dot-prefixed element.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if len(part) > 1 && part[0] == '.' && part != ".." {
			return true
		}
	}
	return false
}
