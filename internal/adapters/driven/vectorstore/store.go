package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/custodia-labs/docseek/internal/core/domain"
	"github.com/custodia-labs/docseek/internal/core/ports/driven"
	"github.com/custodia-labs/docseek/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// metadataFile is the on-disk form of the metadata artifact.
type metadataFile struct {
	Dim        *int           `json:"dim"`
	Metadata   []domain.Chunk `json:"metadata"`
	DeletedIDs []string       `json:"deleted_ids"`
}

// Store is a vector store over a positional backend.
//
// A row is live when its id is not tombstoned and it is the newest row
// carrying that id. Adding an id clears its tombstone, so re-adding a
// deleted chunk makes only the new row visible.
type Store struct {
	mu           sync.RWMutex
	backend      driven.VectorBackend
	metadataPath string

	dim     int
	rows    []domain.Chunk
	latest  map[string]int      // id -> newest position
	deleted map[string]struct{} // subset of latest keys
}

// Open creates a store over backend and loads any state persisted at
// metadataPath.
func Open(ctx context.Context, backend driven.VectorBackend, metadataPath string) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: vector backend is required", domain.ErrConfiguration)
	}
	if metadataPath == "" {
		return nil, fmt.Errorf("%w: metadata path is required", domain.ErrConfiguration)
	}

	s := &Store{
		backend:      backend,
		metadataPath: metadataPath,
		latest:       make(map[string]int),
		deleted:      make(map[string]struct{}),
	}
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	raw, err := os.ReadFile(s.metadataPath)
	if errors.Is(err, fs.ErrNotExist) {
		// No metadata means nothing was ever saved. Discard backend rows.
		if _, err := s.backend.Load(ctx, 0); err != nil {
			return fmt.Errorf("load %s index: %w", s.backend.Name(), err)
		}
		if err := s.backend.Reset(ctx); err != nil {
			return fmt.Errorf("reset %s index: %w", s.backend.Name(), err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read metadata: %w", err)
	}

	var file metadataFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("decode metadata %s: %w", s.metadataPath, err)
	}
	if file.Dim != nil {
		s.dim = *file.Dim
	}

	n, err := s.backend.Load(ctx, s.dim)
	if err != nil {
		return fmt.Errorf("load %s index: %w", s.backend.Name(), err)
	}
	switch {
	case n < len(file.Metadata):
		return fmt.Errorf("%s index holds %d vectors but metadata has %d rows",
			s.backend.Name(), n, len(file.Metadata))
	case n > len(file.Metadata):
		// Rows appended after the last save.
		logger.L().Warn("truncating unsaved index rows",
			zap.String("backend", s.backend.Name()),
			zap.Int("index_rows", n),
			zap.Int("metadata_rows", len(file.Metadata)),
		)
		if err := s.backend.Truncate(ctx, len(file.Metadata)); err != nil {
			return fmt.Errorf("truncate %s index: %w", s.backend.Name(), err)
		}
	}

	s.rows = file.Metadata
	for i, row := range s.rows {
		s.latest[row.ID] = i
	}
	for _, id := range file.DeletedIDs {
		if _, ok := s.latest[id]; ok {
			s.deleted[id] = struct{}{}
		}
	}

	logger.L().Debug("vector store loaded",
		zap.String("backend", s.backend.Name()),
		zap.Int("rows", len(s.rows)),
		zap.Int("deleted", len(s.deleted)),
		zap.Int("dim", s.dim),
	)
	return nil
}

// Add appends one row per embedding.
func (s *Store) Add(ctx context.Context, embeddings [][]float32, rows []domain.Chunk) error {
	if len(embeddings) != len(rows) {
		return fmt.Errorf("%w: %d embeddings for %d rows", domain.ErrDimensionMismatch, len(embeddings), len(rows))
	}
	if len(embeddings) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.dim
	if dim == 0 {
		dim = len(embeddings[0])
		if dim == 0 {
			return fmt.Errorf("%w: empty embedding", domain.ErrDimensionMismatch)
		}
	}

	vectors := make([][]float32, len(embeddings))
	for i, e := range embeddings {
		if len(e) != dim {
			return fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, dim, len(e))
		}
		vectors[i] = normalize(e)
	}

	if err := s.backend.Append(ctx, vectors); err != nil {
		return fmt.Errorf("append to %s index: %w", s.backend.Name(), err)
	}

	s.dim = dim
	for _, row := range rows {
		row.Metadata = domain.CopyMetadata(row.Metadata)
		s.latest[row.ID] = len(s.rows)
		delete(s.deleted, row.ID)
		s.rows = append(s.rows, row)
	}
	return nil
}

// Search returns up to k live rows by descending cosine similarity.
func (s *Store) Search(ctx context.Context, query []float32, k int) ([]domain.RetrievedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := []domain.RetrievedChunk{}
	if k <= 0 || len(s.rows) == 0 {
		return results, nil
	}
	if len(query) != s.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, store has %d",
			domain.ErrDimensionMismatch, len(query), s.dim)
	}

	total := len(s.rows)
	live := s.liveCount()
	if live == 0 {
		return results, nil
	}
	q := normalize(query)

	want := min(k+(total-live), total)
	for {
		hits, err := s.backend.Search(ctx, q, want)
		if err != nil {
			return nil, fmt.Errorf("search %s index: %w", s.backend.Name(), err)
		}

		results = results[:0]
		for _, hit := range hits {
			if hit.Position < 0 || hit.Position >= total || !s.isLive(hit.Position) {
				continue
			}
			row := s.rows[hit.Position]
			row.Metadata = domain.CopyMetadata(row.Metadata)
			results = append(results, domain.RetrievedChunk{
				Chunk:  row,
				Score:  hit.Score,
				Source: domain.SourceSemantic,
			})
			if len(results) == k {
				return results, nil
			}
		}

		if len(results) == live {
			return results, nil
		}
		if len(hits) < want {
			// The backend caps its candidate count, so widening cannot
			// reach live rows ranked below the dead ones.
			return s.scan(ctx, q, k)
		}
		if want >= total {
			return results, nil
		}
		want = min(want*2, total)
	}
}

// scan scores every live row against q.
func (s *Store) scan(ctx context.Context, q []float32, k int) ([]domain.RetrievedChunk, error) {
	vectors, err := s.backend.Vectors(ctx)
	if err != nil {
		return nil, fmt.Errorf("read %s index: %w", s.backend.Name(), err)
	}
	if len(vectors) != len(s.rows) {
		return nil, fmt.Errorf("%s index holds %d vectors but metadata has %d rows",
			s.backend.Name(), len(vectors), len(s.rows))
	}

	hits := make([]driven.VectorHit, 0, s.liveCount())
	for i, v := range vectors {
		if s.isLive(i) {
			hits = append(hits, driven.VectorHit{Position: i, Score: dot(q, v)})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })

	results := make([]domain.RetrievedChunk, 0, min(k, len(hits)))
	for _, hit := range hits[:min(k, len(hits))] {
		row := s.rows[hit.Position]
		row.Metadata = domain.CopyMetadata(row.Metadata)
		results = append(results, domain.RetrievedChunk{
			Chunk:  row,
			Score:  hit.Score,
			Source: domain.SourceSemantic,
		})
	}
	return results, nil
}

// Delete tombstones ids.
func (s *Store) Delete(_ context.Context, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if _, ok := s.latest[id]; ok {
			s.deleted[id] = struct{}{}
		}
	}
	return nil
}

// Save persists the backend index and then the metadata artifact.
func (s *Store) Save(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.save(ctx)
}

func (s *Store) save(ctx context.Context) error {
	if err := s.backend.Save(ctx); err != nil {
		return fmt.Errorf("save %s index: %w", s.backend.Name(), err)
	}

	file := metadataFile{
		Metadata:   s.rows,
		DeletedIDs: make([]string, 0, len(s.deleted)),
	}
	if file.Metadata == nil {
		file.Metadata = []domain.Chunk{}
	}
	if s.dim > 0 {
		dim := s.dim
		file.Dim = &dim
	}
	for id := range s.deleted {
		file.DeletedIDs = append(file.DeletedIDs, id)
	}
	sort.Strings(file.DeletedIDs)

	raw, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := writeFileAtomic(s.metadataPath, raw); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// Compact rebuilds the backend from live rows, clears tombstones and
// saves both artifacts.
func (s *Store) Compact(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	vectors, err := s.backend.Vectors(ctx)
	if err != nil {
		return fmt.Errorf("read %s index: %w", s.backend.Name(), err)
	}
	if len(vectors) != len(s.rows) {
		return fmt.Errorf("%s index holds %d vectors but metadata has %d rows",
			s.backend.Name(), len(vectors), len(s.rows))
	}

	keptRows := make([]domain.Chunk, 0, s.liveCount())
	keptVectors := make([][]float32, 0, cap(keptRows))
	for i, row := range s.rows {
		if s.isLive(i) {
			keptRows = append(keptRows, row)
			keptVectors = append(keptVectors, vectors[i])
		}
	}

	if err := s.backend.Reset(ctx); err != nil {
		return fmt.Errorf("reset %s index: %w", s.backend.Name(), err)
	}
	if err := s.backend.Append(ctx, keptVectors); err != nil {
		return fmt.Errorf("rebuild %s index: %w", s.backend.Name(), err)
	}

	removed := len(s.rows) - len(keptRows)
	s.rows = keptRows
	s.latest = make(map[string]int, len(keptRows))
	for i, row := range keptRows {
		s.latest[row.ID] = i
	}
	s.deleted = make(map[string]struct{})

	logger.L().Info("vector store compacted",
		zap.String("backend", s.backend.Name()),
		zap.Int("rows", len(keptRows)),
		zap.Int("removed", removed),
	)
	return s.save(ctx)
}

// Chunks returns live rows in position order.
func (s *Store) Chunks() []domain.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Chunk, 0, s.liveCount())
	for i, row := range s.rows {
		if s.isLive(i) {
			row.Metadata = domain.CopyMetadata(row.Metadata)
			out = append(out, row)
		}
	}
	return out
}

// Select returns the ids of live rows accepted by match.
func (s *Store) Select(match func(domain.Chunk) bool) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for i, row := range s.rows {
		if s.isLive(i) && match(row) {
			ids = append(ids, row.ID)
		}
	}
	return ids
}

// Dimension returns the fixed dimension, or 0 before the first insert.
func (s *Store) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dim
}

// Len returns the number of live rows.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.liveCount()
}

// Backend returns the backend name.
func (s *Store) Backend() string {
	return s.backend.Name()
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) isLive(pos int) bool {
	id := s.rows[pos].ID
	if _, gone := s.deleted[id]; gone {
		return false
	}
	return s.latest[id] == pos
}

func (s *Store) liveCount() int {
	return len(s.latest) - len(s.deleted)
}

// normalize returns v scaled to unit length. A zero vector is copied as is.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		norm = 1
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// writeFileAtomic writes data to a temp file next to path and renames it
// into place, creating parent directories as needed.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
