package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docseek/internal/core/domain"
	"github.com/custodia-labs/docseek/internal/core/ports/driven"
)

// backendCase opens one kind of backend for the shared store tests.
type backendCase struct {
	name      string
	indexFile string
	open      func(path string) (driven.VectorBackend, error)
}

// storeBackends lists the backends every store test runs against.
// Native backends are appended by build-tagged files.
var storeBackends = []backendCase{
	{
		name:      "flat",
		indexFile: "index.json",
		open:      func(path string) (driven.VectorBackend, error) { return NewFlatBackend(path), nil },
	},
}

func forEachBackend(t *testing.T, fn func(t *testing.T, bc backendCase)) {
	t.Helper()
	for _, bc := range storeBackends {
		t.Run(bc.name, func(t *testing.T) {
			fn(t, bc)
		})
	}
}

type paths struct {
	index    string
	metadata string
}

func tempPaths(t *testing.T) paths {
	t.Helper()
	return tempPathsFor(t, storeBackends[0])
}

func tempPathsFor(t *testing.T, bc backendCase) paths {
	t.Helper()
	dir := t.TempDir()
	return paths{
		index:    filepath.Join(dir, "storage", bc.indexFile),
		metadata: filepath.Join(dir, "storage", "index_metadata.json"),
	}
}

func openFlat(t *testing.T, p paths) *Store {
	t.Helper()
	s, err := Open(context.Background(), NewFlatBackend(p.index), p.metadata)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func openStore(t *testing.T, bc backendCase, p paths) *Store {
	t.Helper()
	backend, err := bc.open(p.index)
	require.NoError(t, err)
	s, err := Open(context.Background(), backend, p.metadata)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// cappedBackend returns at most limit hits per search.
type cappedBackend struct {
	driven.VectorBackend
	limit int
}

func (b cappedBackend) Search(ctx context.Context, query []float32, n int) ([]driven.VectorHit, error) {
	return b.VectorBackend.Search(ctx, query, min(n, b.limit))
}

func chunk(id string) domain.Chunk {
	return domain.Chunk{
		ID:         id,
		DocumentID: "doc",
		Content:    "content of " + id,
		Metadata:   map[string]any{domain.MetaSourcePath: "/docs/" + id + ".md"},
	}
}

func ids(results []domain.RetrievedChunk) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Chunk.ID
	}
	return out
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	err := s.Add(context.Background(),
		[][]float32{
			{1, 0, 0, 0},
			{0.8, 0.6, 0, 0},
			{0, 1, 0, 0},
			{0, 0, 1, 0},
		},
		[]domain.Chunk{chunk("a"), chunk("b"), chunk("c"), chunk("d")},
	)
	require.NoError(t, err)
}

func TestStore_EmptyStore(t *testing.T) {
	forEachBackend(t, func(t *testing.T, bc backendCase) {
		s := openStore(t, bc, tempPathsFor(t, bc))
		ctx := context.Background()

		results, err := s.Search(ctx, []float32{1, 0}, 3)
		require.NoError(t, err)
		assert.Empty(t, results)
		assert.Equal(t, 0, s.Dimension())
		assert.Equal(t, 0, s.Len())

		require.NoError(t, s.Add(ctx, nil, nil))
		assert.Equal(t, 0, s.Dimension())
	})
}

func TestStore_SearchOrdersByCosine(t *testing.T) {
	forEachBackend(t, func(t *testing.T, bc backendCase) {
		s := openStore(t, bc, tempPathsFor(t, bc))
		seed(t, s)

		results, err := s.Search(context.Background(), []float32{2, 0, 0, 0}, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, ids(results))
		assert.InDelta(t, 1.0, results[0].Score, 1e-5)
		assert.InDelta(t, 0.8, results[1].Score, 1e-5)
		for _, r := range results {
			assert.Equal(t, domain.SourceSemantic, r.Source)
		}
	})
}

func TestStore_SearchNonPositiveK(t *testing.T) {
	forEachBackend(t, func(t *testing.T, bc backendCase) {
		s := openStore(t, bc, tempPathsFor(t, bc))
		seed(t, s)

		for _, k := range []int{0, -1} {
			results, err := s.Search(context.Background(), []float32{1, 0, 0, 0}, k)
			require.NoError(t, err)
			assert.Empty(t, results)
		}
	})
}

func TestStore_AddNormalizes(t *testing.T) {
	p := tempPaths(t)
	s := openFlat(t, p)
	require.NoError(t, s.Add(context.Background(), [][]float32{{3, 4}}, []domain.Chunk{chunk("a")}))
	require.NoError(t, s.Save(context.Background()))

	raw, err := os.ReadFile(p.index)
	require.NoError(t, err)
	var file flatFile
	require.NoError(t, json.Unmarshal(raw, &file))
	require.Len(t, file.Vectors, 1)
	assert.InDelta(t, 0.6, file.Vectors[0][0], 1e-5)
	assert.InDelta(t, 0.8, file.Vectors[0][1], 1e-5)
}

func TestStore_DimensionEnforcement(t *testing.T) {
	forEachBackend(t, func(t *testing.T, bc backendCase) {
		ctx := context.Background()
		s := openStore(t, bc, tempPathsFor(t, bc))
		require.NoError(t, s.Add(ctx, [][]float32{{1, 0, 0, 0}}, []domain.Chunk{chunk("a")}))
		assert.Equal(t, 4, s.Dimension())

		err := s.Add(ctx, [][]float32{{1, 0, 0, 0, 0, 0, 0, 0}}, []domain.Chunk{chunk("b")})
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

		_, err = s.Search(ctx, []float32{1, 0, 0, 0, 0, 0, 0, 0}, 1)
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

		err = s.Add(ctx, [][]float32{{1, 0, 0, 0}}, []domain.Chunk{chunk("b"), chunk("c")})
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

		assert.Equal(t, 1, s.Len())
	})
}

func TestStore_MixedDimensionsInFirstBatch(t *testing.T) {
	forEachBackend(t, func(t *testing.T, bc backendCase) {
		s := openStore(t, bc, tempPathsFor(t, bc))
		err := s.Add(context.Background(), [][]float32{{1, 0}, {1, 0, 0}}, []domain.Chunk{chunk("a"), chunk("b")})
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
		assert.Equal(t, 0, s.Dimension())
		assert.Equal(t, 0, s.Len())
	})
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, bc backendCase) {
		ctx := context.Background()
		p := tempPathsFor(t, bc)
		s := openStore(t, bc, p)
		seed(t, s)

		require.NoError(t, s.Delete(ctx, "a"))
		require.NoError(t, s.Delete(ctx, "a", "missing"))
		assert.Equal(t, 3, s.Len())

		results, err := s.Search(ctx, []float32{1, 0, 0, 0}, 4)
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c", "d"}, ids(results))

		require.NoError(t, s.Save(ctx))
		reopened := openStore(t, bc, p)
		results, err = reopened.Search(ctx, []float32{1, 0, 0, 0}, 4)
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c", "d"}, ids(results))
	})
}

func TestStore_OverFetchSkipsTombstones(t *testing.T) {
	forEachBackend(t, func(t *testing.T, bc backendCase) {
		ctx := context.Background()
		s := openStore(t, bc, tempPathsFor(t, bc))
		seed(t, s)

		require.NoError(t, s.Delete(ctx, "a", "b"))

		results, err := s.Search(ctx, []float32{1, 0, 0, 0}, 2)
		require.NoError(t, err)
		assert.Len(t, results, 2)
		assert.NotContains(t, ids(results), "a")
		assert.NotContains(t, ids(results), "b")
	})
}

func TestStore_Supersession(t *testing.T) {
	forEachBackend(t, func(t *testing.T, bc backendCase) {
		ctx := context.Background()
		p := tempPathsFor(t, bc)
		s := openStore(t, bc, p)
		seed(t, s)

		replacement := chunk("a")
		replacement.Content = "updated"
		require.NoError(t, s.Delete(ctx, "a"))
		require.NoError(t, s.Add(ctx, [][]float32{{0, 0, 0, 1}}, []domain.Chunk{replacement}))

		assert.Equal(t, 4, s.Len())
		results, err := s.Search(ctx, []float32{0, 0, 0, 1}, 4)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, "a", results[0].Chunk.ID)
		assert.Equal(t, "updated", results[0].Chunk.Content)

		count := 0
		for _, r := range results {
			if r.Chunk.ID == "a" {
				count++
			}
		}
		assert.Equal(t, 1, count)

		require.NoError(t, s.Save(ctx))
		reopened := openStore(t, bc, p)
		assert.Equal(t, 4, reopened.Len())
		chunks := reopened.Chunks()
		assert.Equal(t, "updated", chunks[len(chunks)-1].Content)
	})
}

func TestStore_RoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, bc backendCase) {
		ctx := context.Background()
		p := tempPathsFor(t, bc)
		s := openStore(t, bc, p)
		seed(t, s)

		query := []float32{0.5, 0.5, 0.1, 0}
		before, err := s.Search(ctx, query, 3)
		require.NoError(t, err)
		require.NoError(t, s.Save(ctx))

		reopened := openStore(t, bc, p)
		after, err := reopened.Search(ctx, query, 3)
		require.NoError(t, err)

		require.Equal(t, ids(before), ids(after))
		for i := range before {
			assert.InDelta(t, before[i].Score, after[i].Score, 1e-5)
			assert.Equal(t, before[i].Chunk.Content, after[i].Chunk.Content)
		}
		assert.Equal(t, 4, reopened.Dimension())
	})
}

func TestStore_MetadataArtifact(t *testing.T) {
	forEachBackend(t, func(t *testing.T, bc backendCase) {
		ctx := context.Background()
		p := tempPathsFor(t, bc)
		s := openStore(t, bc, p)
		seed(t, s)
		require.NoError(t, s.Delete(ctx, "d", "b"))
		require.NoError(t, s.Save(ctx))

		raw, err := os.ReadFile(p.metadata)
		require.NoError(t, err)

		var file struct {
			Dim        *int             `json:"dim"`
			Metadata   []map[string]any `json:"metadata"`
			DeletedIDs []string         `json:"deleted_ids"`
		}
		require.NoError(t, json.Unmarshal(raw, &file))
		require.NotNil(t, file.Dim)
		assert.Equal(t, 4, *file.Dim)
		assert.Len(t, file.Metadata, 4)
		assert.Equal(t, []string{"b", "d"}, file.DeletedIDs)
		for _, key := range []string{"id", "document_id", "content", "metadata"} {
			assert.Contains(t, file.Metadata[0], key)
		}
	})
}

func TestStore_SaveEmptyWritesNullDim(t *testing.T) {
	forEachBackend(t, func(t *testing.T, bc backendCase) {
		p := tempPathsFor(t, bc)
		s := openStore(t, bc, p)
		require.NoError(t, s.Save(context.Background()))

		raw, err := os.ReadFile(p.metadata)
		require.NoError(t, err)
		assert.JSONEq(t, `{"dim":null,"metadata":[],"deleted_ids":[]}`, string(raw))
	})
}

func TestStore_TruncatesUnsavedRows(t *testing.T) {
	forEachBackend(t, func(t *testing.T, bc backendCase) {
		ctx := context.Background()
		p := tempPathsFor(t, bc)
		backend, err := bc.open(p.index)
		require.NoError(t, err)
		s, err := Open(ctx, backend, p.metadata)
		require.NoError(t, err)
		seed(t, s)
		require.NoError(t, s.Save(ctx))

		// The index reaches disk but the metadata does not.
		require.NoError(t, s.Add(ctx, [][]float32{{0, 0, 0, 1}}, []domain.Chunk{chunk("e")}))
		require.NoError(t, backend.Save(ctx))
		require.NoError(t, s.Close())

		reopenedBackend, err := bc.open(p.index)
		require.NoError(t, err)
		reopened, err := Open(ctx, reopenedBackend, p.metadata)
		require.NoError(t, err)
		defer reopened.Close()
		assert.Equal(t, 4, reopened.Len())

		vectors, err := reopenedBackend.Vectors(ctx)
		require.NoError(t, err)
		assert.Len(t, vectors, 4)
	})
}

func TestStore_MissingIndexRows(t *testing.T) {
	ctx := context.Background()
	p := tempPaths(t)
	s := openFlat(t, p)
	seed(t, s)
	require.NoError(t, s.Save(ctx))
	require.NoError(t, os.Remove(p.index))

	_, err := Open(ctx, NewFlatBackend(p.index), p.metadata)
	assert.Error(t, err)
}

func TestStore_IgnoresIndexWithoutMetadata(t *testing.T) {
	forEachBackend(t, func(t *testing.T, bc backendCase) {
		ctx := context.Background()
		p := tempPathsFor(t, bc)
		s := openStore(t, bc, p)
		seed(t, s)
		require.NoError(t, s.Save(ctx))
		require.NoError(t, os.Remove(p.metadata))

		reopened := openStore(t, bc, p)
		assert.Equal(t, 0, reopened.Len())
		assert.Equal(t, 0, reopened.Dimension())
	})
}

func TestStore_Compact(t *testing.T) {
	forEachBackend(t, func(t *testing.T, bc backendCase) {
		ctx := context.Background()
		p := tempPathsFor(t, bc)
		s := openStore(t, bc, p)
		seed(t, s)

		replacement := chunk("c")
		replacement.Content = "new c"
		require.NoError(t, s.Delete(ctx, "a", "c"))
		require.NoError(t, s.Add(ctx, [][]float32{{0, 1, 0, 0}}, []domain.Chunk{replacement}))

		require.NoError(t, s.Compact(ctx))
		assert.Equal(t, 3, s.Len())

		chunks := s.Chunks()
		require.Len(t, chunks, 3)
		assert.Equal(t, "b", chunks[0].ID)
		assert.Equal(t, "d", chunks[1].ID)
		assert.Equal(t, "new c", chunks[2].Content)

		raw, err := os.ReadFile(p.metadata)
		require.NoError(t, err)
		var file metadataFile
		require.NoError(t, json.Unmarshal(raw, &file))
		assert.Len(t, file.Metadata, 3)
		assert.Empty(t, file.DeletedIDs)

		reopened := openStore(t, bc, p)
		results, err := reopened.Search(ctx, []float32{0, 1, 0, 0}, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "new c", results[0].Chunk.Content)
	})
}

func TestStore_Select(t *testing.T) {
	forEachBackend(t, func(t *testing.T, bc backendCase) {
		ctx := context.Background()
		s := openStore(t, bc, tempPathsFor(t, bc))
		seed(t, s)
		require.NoError(t, s.Delete(ctx, "b"))

		selected := s.Select(func(c domain.Chunk) bool {
			return c.ID != "c"
		})
		assert.Equal(t, []string{"a", "d"}, selected)

		assert.Empty(t, s.Select(func(domain.Chunk) bool { return false }))
	})
}

func TestStore_ChunksAreCopies(t *testing.T) {
	forEachBackend(t, func(t *testing.T, bc backendCase) {
		s := openStore(t, bc, tempPathsFor(t, bc))
		seed(t, s)

		chunks := s.Chunks()
		chunks[0].Metadata["extra"] = true

		again := s.Chunks()
		assert.NotContains(t, again[0].Metadata, "extra")
	})
}

func TestOpen_Validation(t *testing.T) {
	_, err := Open(context.Background(), nil, "meta.json")
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = Open(context.Background(), NewFlatBackend("index.json"), "")
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestStore_SearchFallsBackToScanWhenBackendIsCapped(t *testing.T) {
	ctx := context.Background()
	p := tempPaths(t)
	s, err := Open(ctx, cappedBackend{VectorBackend: NewFlatBackend(p.index), limit: 2}, p.metadata)
	require.NoError(t, err)
	defer s.Close()
	seed(t, s)

	// The two nearest rows are dead and fill every capped response.
	require.NoError(t, s.Delete(ctx, "a", "b"))

	results, err := s.Search(ctx, []float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c", "d"}, ids(results))
	for _, r := range results {
		assert.Equal(t, domain.SourceSemantic, r.Source)
		assert.InDelta(t, 0.0, r.Score, 1e-5)
	}
}

func TestStore_ManyDeadRowsAboveLiveRows(t *testing.T) {
	forEachBackend(t, func(t *testing.T, bc backendCase) {
		ctx := context.Background()
		s := openStore(t, bc, tempPathsFor(t, bc))

		const dead = 4097
		vectors := make([][]float32, 0, dead+3)
		rows := make([]domain.Chunk, 0, dead+3)
		deadIDs := make([]string, 0, dead)
		for i := range dead {
			id := fmt.Sprintf("near-%d", i)
			vectors = append(vectors, []float32{1, float32(i%10) * 0.001, 0, 0})
			rows = append(rows, chunk(id))
			deadIDs = append(deadIDs, id)
		}
		for i, v := range [][]float32{{0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}} {
			vectors = append(vectors, v)
			rows = append(rows, chunk(fmt.Sprintf("far-%d", i)))
		}
		require.NoError(t, s.Add(ctx, vectors, rows))
		require.NoError(t, s.Delete(ctx, deadIDs...))
		require.Equal(t, 3, s.Len())

		results, err := s.Search(ctx, []float32{1, 0, 0, 0}, 3)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"far-0", "far-1", "far-2"}, ids(results))
	})
}
