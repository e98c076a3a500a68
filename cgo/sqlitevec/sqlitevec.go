//go:build cgo

package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/custodia-labs/docseek/internal/core/domain"
	"github.com/custodia-labs/docseek/internal/core/ports/driven"
)

func init() {
	sqlite_vec.Auto()
}

// Ensure Backend implements the interface.
var _ driven.VectorBackend = (*Backend)(nil)

// Name identifies the backend.
const Name = "sqlite-vec"

// maxK is the largest k accepted by a vec0 KNN query.
const maxK = 4096

// Available reports whether the native backend is compiled in.
func Available() bool {
	return true
}

// Backend stores vectors in a vec0 virtual table. Row position i is
// stored under rowid i+1.
type Backend struct {
	mu    sync.Mutex
	db    *sql.DB
	path  string
	dim   int
	count int
	ready bool // vectors table exists
}

// New opens (or creates) the sqlite database at path.
func New(path string) (*Backend, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: sqlite-vec: path cannot be empty", domain.ErrConfiguration)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite-vec: create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite-vec: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite-vec: ping %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	return &Backend{db: db, path: path}, nil
}

// Name returns "sqlite-vec".
func (b *Backend) Name() string {
	return Name
}

// Load counts persisted rows and checks them against dim.
func (b *Backend) Load(ctx context.Context, dim int) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.dim = dim
	b.count = 0

	var tables int
	err := b.db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'vectors'`).Scan(&tables)
	if err != nil {
		return 0, fmt.Errorf("inspecting schema: %w", err)
	}
	b.ready = tables > 0
	if !b.ready {
		return 0, nil
	}

	if err := b.db.QueryRowContext(ctx, `SELECT count(*) FROM vectors`).Scan(&b.count); err != nil {
		return 0, fmt.Errorf("counting vectors: %w", err)
	}

	if b.count > 0 {
		var blob []byte
		if err := b.db.QueryRowContext(ctx, `SELECT embedding FROM vectors LIMIT 1`).Scan(&blob); err != nil {
			return 0, fmt.Errorf("reading vector: %w", err)
		}
		stored := len(blob) / 4
		if dim > 0 && stored != dim {
			return 0, fmt.Errorf("%w: index has %d dimensions, metadata has %d",
				domain.ErrDimensionMismatch, stored, dim)
		}
		b.dim = stored
	}
	return b.count, nil
}

// Append inserts vectors at the next rowids.
func (b *Backend) Append(ctx context.Context, vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.ready {
		if b.dim == 0 {
			b.dim = len(vectors[0])
		}
		ddl := fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS vectors USING vec0(embedding float[%d])`, b.dim)
		if _, err := b.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("creating vectors virtual table: %w", err)
		}
		b.ready = true
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO vectors(rowid, embedding) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, v := range vectors {
		blob, err := sqlite_vec.SerializeFloat32(v)
		if err != nil {
			return fmt.Errorf("serializing embedding: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, b.count+i+1, blob); err != nil {
			return fmt.Errorf("inserting vector %d: %w", b.count+i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing vectors: %w", err)
	}
	b.count += len(vectors)
	return nil
}

// Search runs a KNN query. For unit vectors the L2 distance d maps to the
// inner product 1 - d²/2.
func (b *Backend) Search(ctx context.Context, query []float32, n int) ([]driven.VectorHit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n <= 0 || b.count == 0 {
		return nil, nil
	}
	n = min(n, maxK, b.count)

	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, fmt.Errorf("serializing query vector: %w", err)
	}

	const q = `SELECT rowid, distance FROM vectors
WHERE embedding MATCH ? AND k = ?
ORDER BY distance`

	rows, err := b.db.QueryContext(ctx, q, blob, n)
	if err != nil {
		return nil, fmt.Errorf("searching vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	hits := make([]driven.VectorHit, 0, n)
	for rows.Next() {
		var (
			rowid    int64
			distance float64
		)
		if err := rows.Scan(&rowid, &distance); err != nil {
			return nil, fmt.Errorf("scanning vector result: %w", err)
		}
		hits = append(hits, driven.VectorHit{
			Position: int(rowid - 1),
			Score:    1 - distance*distance/2,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vector results: %w", err)
	}
	return hits, nil
}

// Vectors reads every vector in rowid order.
func (b *Backend) Vectors(ctx context.Context) ([][]float32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.ready {
		return [][]float32{}, nil
	}

	rows, err := b.db.QueryContext(ctx, `SELECT embedding FROM vectors ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("reading vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([][]float32, 0, b.count)
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("scanning vector: %w", err)
		}
		v, err := decode(blob)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vectors: %w", err)
	}
	return out, nil
}

// Truncate deletes rows at position n or later.
func (b *Backend) Truncate(ctx context.Context, n int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.ready || n >= b.count {
		return nil
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// vec0 deletes by rowid equality.
	for rowid := b.count; rowid > n; rowid-- {
		if _, err := tx.ExecContext(ctx, `DELETE FROM vectors WHERE rowid = ?`, rowid); err != nil {
			return fmt.Errorf("deleting vector %d: %w", rowid, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing truncate: %w", err)
	}
	b.count = n
	return nil
}

// Reset drops the vectors table. The dimension is kept for the next append.
func (b *Backend) Reset(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.db.ExecContext(ctx, `DROP TABLE IF EXISTS vectors`); err != nil {
		return fmt.Errorf("dropping vectors table: %w", err)
	}
	b.ready = false
	b.count = 0
	return nil
}

// Save checkpoints the write-ahead log. Rows are durable once appended.
func (b *Backend) Save(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return fmt.Errorf("checkpointing: %w", err)
	}
	return nil
}

// Close closes the database.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.db.Close()
}

func decode(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, errors.New("sqlite-vec: malformed vector blob")
	}
	v := make([]float32, len(blob)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return v, nil
}
