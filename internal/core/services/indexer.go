package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/docseek/internal/core/domain"
	"github.com/custodia-labs/docseek/internal/core/ports/driven"
	"github.com/custodia-labs/docseek/internal/core/ports/driving"
	"github.com/custodia-labs/docseek/internal/logger"
)

// Ensure IndexUpdater implements the interface.
var _ driving.IndexService = (*IndexUpdater)(nil)

// Default indexing parameters.
const (
	DefaultBatchSize = 64
	DefaultWorkers   = 1
)

// IndexUpdater runs documents through loader, chunker and embedder into
// the vector store. Embedding runs on a worker pool; a single writer adds
// batches to the store in order.
type IndexUpdater struct {
	loader   driven.DocumentLoader
	chunker  driven.Chunker
	embedder driven.EmbeddingService
	store    driven.VectorStore
	keyword  driven.KeywordIndex

	batchSize     int
	workers       int
	deleteOnEmpty bool
	pruneMissing  bool

	// mu serialises runs so the store has a single writer.
	mu sync.Mutex
}

// IndexOption configures an IndexUpdater.
type IndexOption func(*IndexUpdater)

// WithBatchSize sets the number of chunks embedded per request.
func WithBatchSize(n int) IndexOption {
	return func(u *IndexUpdater) {
		if n > 0 {
			u.batchSize = n
		}
	}
}

// WithWorkers sets the number of concurrent embedding requests.
func WithWorkers(n int) IndexOption {
	return func(u *IndexUpdater) {
		if n > 0 {
			u.workers = n
		}
	}
}

// WithDeleteOnEmpty tombstones a source's chunks when an incremental
// reload of it yields no chunks.
func WithDeleteOnEmpty(enabled bool) IndexOption {
	return func(u *IndexUpdater) {
		u.deleteOnEmpty = enabled
	}
}

// WithPruneMissing tombstones live chunks not produced by a full reindex.
func WithPruneMissing(enabled bool) IndexOption {
	return func(u *IndexUpdater) {
		u.pruneMissing = enabled
	}
}

// WithKeywordIndex rebuilds idx from the store after every write run.
func WithKeywordIndex(idx driven.KeywordIndex) IndexOption {
	return func(u *IndexUpdater) {
		u.keyword = idx
	}
}

// NewIndexUpdater creates an index updater.
func NewIndexUpdater(
	loader driven.DocumentLoader,
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	store driven.VectorStore,
	opts ...IndexOption,
) *IndexUpdater {
	u := &IndexUpdater{
		loader:    loader,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		batchSize: DefaultBatchSize,
		workers:   DefaultWorkers,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// RunFullReindex indexes everything under sourcePath and returns the
// number of chunks added. On failure the count added so far is returned
// and nothing is saved.
func (u *IndexUpdater) RunFullReindex(ctx context.Context, sourcePath string) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	log := logger.L().With(zap.String("run_id", uuid.NewString()))
	logger.Section("Full Reindex")
	start := time.Now()

	docs, err := u.loader.Load(ctx, sourcePath)
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", sourcePath, err)
	}
	chunks := u.chunker.Chunk(docs)
	log.Info("full reindex started",
		zap.String("source", sourcePath),
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)),
	)
	if len(chunks) == 0 {
		log.Info("no chunks to index")
		return 0, nil
	}

	added, err := u.embedAndAdd(ctx, log, chunks)
	if err != nil {
		log.Warn("full reindex failed", zap.Int("added", added), zap.Error(err))
		return added, err
	}

	if u.pruneMissing {
		produced := make(map[string]bool, len(chunks))
		for _, c := range chunks {
			produced[c.ID] = true
		}
		stale := u.store.Select(func(c domain.Chunk) bool { return !produced[c.ID] })
		if err := u.store.Delete(ctx, stale...); err != nil {
			return added, fmt.Errorf("prune stale chunks: %w", err)
		}
		log.Info("pruned chunks missing from source", zap.Int("pruned", len(stale)))
	}

	if err := u.commit(ctx); err != nil {
		return added, err
	}

	log.Info("full reindex completed",
		zap.Int("chunks", added),
		zap.Duration("duration", time.Since(start)),
	)
	return added, nil
}

// RunIncrementalUpdate re-indexes the changed sources and returns the
// number of chunks added. Each source's previous chunks are removed
// before its new chunks are added. The store is saved once at the end.
func (u *IndexUpdater) RunIncrementalUpdate(ctx context.Context, sources []string) (int, error) {
	if len(sources) == 0 {
		return 0, nil
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	log := logger.L().With(zap.String("run_id", uuid.NewString()))
	logger.Section("Incremental Update")

	total := 0
	changed := false
	for _, source := range sources {
		docs, err := u.loader.Load(ctx, source)
		if err != nil {
			return total, fmt.Errorf("load %s: %w", source, err)
		}
		chunks := u.chunker.Chunk(docs)

		if len(chunks) == 0 {
			if !u.deleteOnEmpty {
				log.Debug("source yielded no chunks, skipping", zap.String("source", source))
				continue
			}
			stale := u.store.Select(func(c domain.Chunk) bool { return c.FromSource(source) })
			if len(stale) > 0 {
				if err := u.store.Delete(ctx, stale...); err != nil {
					return total, fmt.Errorf("delete chunks of %s: %w", source, err)
				}
				changed = true
			}
			log.Info("removed chunks of empty source",
				zap.String("source", source),
				zap.Int("removed", len(stale)),
			)
			continue
		}

		reloaded := make(map[string]bool, len(docs))
		for _, d := range docs {
			reloaded[d.ID] = true
		}
		stale := u.store.Select(func(c domain.Chunk) bool {
			return c.FromSource(source) || reloaded[c.DocumentID]
		})
		ids := make([]string, 0, len(chunks)+len(stale))
		for _, c := range chunks {
			ids = append(ids, c.ID)
		}
		ids = append(ids, stale...)
		if err := u.store.Delete(ctx, ids...); err != nil {
			return total, fmt.Errorf("delete chunks of %s: %w", source, err)
		}

		added, err := u.embedAndAdd(ctx, log, chunks)
		total += added
		changed = true
		if err != nil {
			log.Warn("incremental update failed",
				zap.String("source", source),
				zap.Int("added", total),
				zap.Error(err),
			)
			return total, err
		}
		log.Info("source updated",
			zap.String("source", source),
			zap.Int("chunks", added),
			zap.Int("replaced", len(stale)),
		)
	}

	if changed {
		if err := u.commit(ctx); err != nil {
			return total, err
		}
	}
	return total, nil
}

// commit saves the store and refreshes the keyword index.
func (u *IndexUpdater) commit(ctx context.Context) error {
	if err := u.store.Save(ctx); err != nil {
		return fmt.Errorf("save vector store: %w", err)
	}
	if u.keyword != nil {
		if err := u.keyword.Build(ctx, u.store.Chunks()); err != nil {
			return fmt.Errorf("rebuild keyword index: %w", err)
		}
	}
	return nil
}

// embedded is the outcome of embedding one batch.
type embedded struct {
	vectors [][]float32
	err     error
}

// embedAndAdd embeds chunks in batches on the worker pool and adds them
// to the store in batch order. It returns the number of chunks added.
func (u *IndexUpdater) embedAndAdd(ctx context.Context, log *zap.Logger, chunks []domain.Chunk) (int, error) {
	batches := batch(chunks, u.batchSize)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.workers)

	// Slots are buffered so workers never block on the writer.
	slots := make([]chan embedded, len(batches))
	for i := range slots {
		slots[i] = make(chan embedded, 1)
	}

	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		for i, b := range batches {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					slots[i] <- embedded{err: err}
					return err
				}
				vectors, err := u.embedder.EmbedBatch(gctx, contents(b))
				if err != nil {
					err = fmt.Errorf("embed batch %d: %w", i, err)
				}
				slots[i] <- embedded{vectors: vectors, err: err}
				return err
			})
		}
	}()

	added, writeErr := u.drain(gctx, log, batches, slots, len(chunks))

	cancel()
	<-dispatched
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return added, err
	}
	return added, writeErr
}

// drain is the single writer: it waits for each batch in order and adds it.
func (u *IndexUpdater) drain(
	ctx context.Context, log *zap.Logger, batches [][]domain.Chunk, slots []chan embedded, total int,
) (int, error) {
	added := 0
	for i, b := range batches {
		var r embedded
		select {
		case r = <-slots[i]:
		case <-ctx.Done():
			r.err = ctx.Err()
		}
		if r.err != nil {
			return added, r.err
		}

		if err := u.store.Add(ctx, r.vectors, b); err != nil {
			return added, fmt.Errorf("add batch %d: %w", i, err)
		}
		added += len(b)
		log.Debug("batch indexed",
			zap.Int("batch", i),
			zap.Int("indexed", added),
			zap.Int("total", total),
		)
	}
	return added, nil
}

// batch splits chunks into slices of at most size.
func batch(chunks []domain.Chunk, size int) [][]domain.Chunk {
	batches := make([][]domain.Chunk, 0, (len(chunks)+size-1)/size)
	for start := 0; start < len(chunks); start += size {
		end := min(start+size, len(chunks))
		batches = append(batches, chunks[start:end])
	}
	return batches
}

func contents(chunks []domain.Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	return texts
}
