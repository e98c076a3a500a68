package domain

import (
	"path/filepath"
	"strings"
)

// Metadata keys set by the loader and chunker.
const (
	MetaSourcePath   = "source_path"
	MetaFileName     = "file_name"
	MetaExtension    = "extension"
	MetaChunkIndex   = "chunk_index"
	MetaChunkSize    = "chunk_size"
	MetaChunkOverlap = "chunk_overlap"
)

// Document is the normalised text of one source file or source record.
// It is immutable once produced by the loader.
type Document struct {
	// ID is the stable identifier, derived from the source path.
	ID string

	// Content is the extracted text before chunking.
	Content string

	// Metadata holds scalar provenance fields.
	Metadata map[string]any
}

// Chunk is a contiguous word window of a Document.
// Its ID is "{document_id}:{index}" so re-chunking the same content
// re-derives the same ids.
type Chunk struct {
	ID         string         `json:"id"`
	DocumentID string         `json:"document_id"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
}

// SourcePath returns the source_path metadata value, or "" if unset.
func (c Chunk) SourcePath() string {
	if c.Metadata == nil {
		return ""
	}
	s, _ := c.Metadata[MetaSourcePath].(string)
	return s
}

// FromSource reports whether the chunk was loaded from path, either the
// file itself or any file below it when path is a directory.
func (c Chunk) FromSource(path string) bool {
	src := c.SourcePath()
	if src == "" || path == "" {
		return false
	}
	src = filepath.Clean(src)
	path = filepath.Clean(path)
	if src == path {
		return true
	}
	return strings.HasPrefix(src, path+string(filepath.Separator))
}

// CopyMetadata returns a shallow copy of m, never nil.
func CopyMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+3)
	for k, v := range m {
		out[k] = v
	}
	return out
}
