package vectorstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docseek/cgo/sqlitevec"
	"github.com/custodia-labs/docseek/internal/core/domain"
)

func settings(t *testing.T, kind string) domain.VectorStoreSettings {
	t.Helper()
	dir := t.TempDir()
	return domain.VectorStoreSettings{
		Type:         kind,
		IndexPath:    filepath.Join(dir, "index.db"),
		MetadataPath: filepath.Join(dir, "index_metadata.json"),
	}
}

func TestNew_Flat(t *testing.T) {
	for _, kind := range []string{"flat", " Linear "} {
		t.Run(kind, func(t *testing.T) {
			s, err := New(context.Background(), settings(t, kind))
			require.NoError(t, err)
			defer s.Close()
			assert.Equal(t, FlatBackendName, s.Backend())
		})
	}
}

func TestNew_Auto(t *testing.T) {
	want := FlatBackendName
	if sqlitevec.Available() {
		want = sqlitevec.Name
	}

	for _, kind := range []string{"auto", "FAISS", ""} {
		t.Run(kind, func(t *testing.T) {
			s, err := New(context.Background(), settings(t, kind))
			require.NoError(t, err)
			defer s.Close()
			assert.Equal(t, want, s.Backend())
		})
	}
}

func TestNew_Native(t *testing.T) {
	s, err := New(context.Background(), settings(t, "sqlite-vec"))
	if !sqlitevec.Available() {
		assert.ErrorIs(t, err, domain.ErrNotAvailable)
		return
	}
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, sqlitevec.Name, s.Backend())
}

func TestNew_Unsupported(t *testing.T) {
	_, err := New(context.Background(), settings(t, "annoy"))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "annoy")
}

func TestNew_AutoRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := settings(t, "auto")

	s, err := New(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx,
		[][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		[]domain.Chunk{chunk("a"), chunk("b"), chunk("c")},
	))
	require.NoError(t, s.Delete(ctx, "a"))
	require.NoError(t, s.Save(ctx))
	require.NoError(t, s.Close())

	reopened, err := New(ctx, cfg)
	require.NoError(t, err)
	defer reopened.Close()

	results, err := reopened.Search(ctx, []float32{1, 0.1, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, ids(results))
}
