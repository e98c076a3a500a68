package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/docseek/internal/core/domain"
	"github.com/custodia-labs/docseek/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
type mockEmbeddingService struct {
	mu        sync.Mutex
	vector    []float32
	err       error
	failBatch int // 1-based EmbedBatch call that fails; 0 never
	calls     int
}

func (m *mockEmbeddingService) Embed(_ context.Context, _ string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.vector, nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.mu.Unlock()

	if m.err != nil && (m.failBatch == 0 || call == m.failBatch) {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = m.vector
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int              { return len(m.vector) }
func (m *mockEmbeddingService) ModelName() string            { return "mock" }
func (m *mockEmbeddingService) Ping(_ context.Context) error { return nil }
func (m *mockEmbeddingService) Close() error                 { return nil }

// mockVectorStore implements driven.VectorStore for testing.
type mockVectorStore struct {
	results   []domain.RetrievedChunk
	chunks    []domain.Chunk
	searchErr error
	lastK     int
}

var _ driven.VectorStore = (*mockVectorStore)(nil)

func (m *mockVectorStore) Add(_ context.Context, _ [][]float32, _ []domain.Chunk) error {
	return nil
}

func (m *mockVectorStore) Search(_ context.Context, _ []float32, k int) ([]domain.RetrievedChunk, error) {
	m.lastK = k
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	out := make([]domain.RetrievedChunk, 0, len(m.results))
	for _, r := range m.results {
		if len(out) == k {
			break
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *mockVectorStore) Delete(_ context.Context, _ ...string) error { return nil }
func (m *mockVectorStore) Save(_ context.Context) error              { return nil }
func (m *mockVectorStore) Compact(_ context.Context) error           { return nil }
func (m *mockVectorStore) Chunks() []domain.Chunk                    { return m.chunks }
func (m *mockVectorStore) Dimension() int                            { return 4 }
func (m *mockVectorStore) Len() int                                  { return len(m.chunks) }
func (m *mockVectorStore) Close() error                              { return nil }

func (m *mockVectorStore) Select(match func(domain.Chunk) bool) []string {
	var ids []string
	for _, c := range m.chunks {
		if match(c) {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// mockKeywordIndex implements driven.KeywordIndex for testing.
type mockKeywordIndex struct {
	hits      []driven.SearchHit
	searchErr error
	built     []domain.Chunk
	lastLimit int
}

var _ driven.KeywordIndex = (*mockKeywordIndex)(nil)

func (m *mockKeywordIndex) Build(_ context.Context, chunks []domain.Chunk) error {
	m.built = chunks
	return nil
}

func (m *mockKeywordIndex) Search(_ context.Context, _ string, limit int) ([]driven.SearchHit, error) {
	m.lastLimit = limit
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if limit > len(m.hits) {
		return m.hits, nil
	}
	return m.hits[:limit], nil
}

func (m *mockKeywordIndex) Close() error { return nil }

// mockGenerator implements driven.Generator for testing.
type mockGenerator struct {
	text     string
	err      error
	question string
	chunks   []domain.RetrievedChunk
}

func (m *mockGenerator) Generate(_ context.Context, question string, chunks []domain.RetrievedChunk) (string, error) {
	m.question = question
	m.chunks = chunks
	return m.text, m.err
}

// scored builds a retrieved chunk with only id and score set.
func scored(id string, score float64) domain.RetrievedChunk {
	return domain.RetrievedChunk{
		Chunk: domain.Chunk{ID: id, DocumentID: "doc", Content: "content " + id},
		Score: score,
	}
}

func hit(id string, score float64) driven.SearchHit {
	return driven.SearchHit{
		Chunk: domain.Chunk{ID: id, DocumentID: "doc", Content: "content " + id},
		Score: score,
	}
}

func resultIDs(results []domain.RetrievedChunk) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Chunk.ID
	}
	return out
}
