package domain

import (
	"fmt"
	"strings"
)

// SearchMode selects the retrieval path used to answer a question.
type SearchMode string

// Available search modes.
const (
	// SearchModeSemantic embeds the question and searches the vector store.
	SearchModeSemantic SearchMode = "semantic"

	// SearchModeKeyword ranks chunks with the lexical index.
	SearchModeKeyword SearchMode = "keyword"

	// SearchModeHybrid fuses semantic and keyword results.
	SearchModeHybrid SearchMode = "hybrid"
)

// IsValid returns true if the search mode is recognised.
func (m SearchMode) IsValid() bool {
	switch m {
	case SearchModeSemantic, SearchModeKeyword, SearchModeHybrid:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (m SearchMode) String() string {
	return string(m)
}

// ParseSearchMode resolves a case-insensitive mode name.
func ParseSearchMode(s string) (SearchMode, error) {
	m := SearchMode(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("%w: unsupported search mode %q", ErrConfiguration, s)
	}
	return m, nil
}

// FusionStrategy selects how hybrid search merges ranked lists.
type FusionStrategy string

// Available fusion strategies.
const (
	// FusionWeighted min-max normalises both lists and blends them by weight.
	FusionWeighted FusionStrategy = "weighted"

	// FusionRRF uses reciprocal rank fusion and ignores raw scores.
	FusionRRF FusionStrategy = "rrf"
)

// IsValid returns true if the fusion strategy is recognised.
func (f FusionStrategy) IsValid() bool {
	return f == FusionWeighted || f == FusionRRF
}

// Result source tags.
const (
	SourceSemantic = "semantic"
	SourceKeyword  = "keyword"
	SourceHybrid   = "hybrid"
)

// RetrievedChunk is a chunk scored by one retrieval path.
// It is transient and constructed per query.
type RetrievedChunk struct {
	Chunk  Chunk   `json:"chunk"`
	Score  float64 `json:"score"`
	Source string  `json:"source"`
}

// Answer is generated text together with the chunks it was built from.
type Answer struct {
	Text    string           `json:"answer"`
	Sources []RetrievedChunk `json:"sources"`
}

// IndexStats summarises the live contents of the index.
type IndexStats struct {
	Chunks    int `json:"chunks"`
	Documents int `json:"documents"`
	Sources   int `json:"sources"`
	Dimension int `json:"dimension"`
}
