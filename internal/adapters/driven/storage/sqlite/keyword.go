package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/docseek/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/docseek/internal/core/domain"
	"github.com/custodia-labs/docseek/internal/core/ports/driven"
	"github.com/custodia-labs/docseek/internal/logger"
)

// Ensure KeywordIndex implements the interface.
var _ driven.KeywordIndex = (*KeywordIndex)(nil)

// keywordSkip lists metadata keys not indexed as keywords.
var keywordSkip = map[string]bool{
	domain.MetaSourcePath: true,
	domain.MetaExtension:  true,
}

// KeywordIndex ranks chunks with FTS5 BM25.
type KeywordIndex struct {
	db *sql.DB
}

// NewKeywordIndex opens a keyword index at path. An empty path keeps the
// index in memory.
func NewKeywordIndex(path string) (*KeywordIndex, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// An in-memory database lives on a single connection.
	db.SetMaxOpenConns(1)

	if err := migrate(db, migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &KeywordIndex{db: db}, nil
}

// Build replaces the index contents with chunks.
func (k *KeywordIndex) Build(ctx context.Context, chunks []domain.Chunk) error {
	tx, err := k.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks_fts`); err != nil {
		return fmt.Errorf("clearing fts: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}

	insertChunk, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (seq, id, document_id, content, metadata) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer insertChunk.Close()

	insertFTS, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks_fts (rowid, content, keywords) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing fts insert: %w", err)
	}
	defer insertFTS.Close()

	for i, c := range chunks {
		metaJSON, err := json.Marshal(domain.CopyMetadata(c.Metadata))
		if err != nil {
			return fmt.Errorf("marshalling metadata for %s: %w", c.ID, err)
		}
		seq := i + 1
		if _, err := insertChunk.ExecContext(ctx, seq, c.ID, c.DocumentID, c.Content, string(metaJSON)); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
		if _, err := insertFTS.ExecContext(ctx, seq, c.Content, keywords(c.Metadata)); err != nil {
			return fmt.Errorf("indexing chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing index: %w", err)
	}

	logger.L().Debug("keyword index built", zap.Int("chunks", len(chunks)))
	return nil
}

// Search returns up to limit chunks matching any query term, best first.
// Score is the negated BM25 rank, with content weighted 1.0 and keywords
// 0.5, so higher is better.
func (k *KeywordIndex) Search(ctx context.Context, query string, limit int) ([]driven.SearchHit, error) {
	hits := []driven.SearchHit{}
	if limit <= 0 {
		return hits, nil
	}
	match := matchExpression(query)
	if match == "" {
		return hits, nil
	}

	rows, err := k.db.QueryContext(ctx, `
		SELECT c.id, c.document_id, c.content, c.metadata,
		       bm25(chunks_fts, 1.0, 0.5) AS rank
		FROM chunks_fts
		JOIN chunks c ON c.seq = chunks_fts.rowid
		WHERE chunks_fts MATCH ?
		ORDER BY rank, c.seq
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("searching keyword index: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c        domain.Chunk
			metaJSON string
			rank     float64
		)
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Content, &metaJSON, &rank); err != nil {
			return nil, fmt.Errorf("scanning keyword hit: %w", err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &c.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata for %s: %w", c.ID, err)
		}
		hits = append(hits, driven.SearchHit{Chunk: c, Score: -rank})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating keyword hits: %w", err)
	}
	return hits, nil
}

// Len returns the number of indexed chunks.
func (k *KeywordIndex) Len(ctx context.Context) (int, error) {
	var n int
	if err := k.db.QueryRowContext(ctx, `SELECT count(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (k *KeywordIndex) Close() error {
	return k.db.Close()
}

// Terms splits text into lower-cased runs of letters and digits, keeping
// the first occurrence of each.
func Terms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			terms = append(terms, f)
		}
	}
	return terms
}

// matchExpression builds an FTS5 query matching any term of query.
func matchExpression(query string) string {
	terms := Terms(query)
	if len(terms) == 0 {
		return ""
	}
	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = `"` + t + `"`
	}
	return strings.Join(quoted, " OR ")
}

// keywords joins the string metadata values worth matching.
func keywords(metadata map[string]any) string {
	keys := make([]string, 0, len(metadata))
	for key := range metadata {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var parts []string
	for _, key := range keys {
		if keywordSkip[key] {
			continue
		}
		if s, ok := metadata[key].(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// migrate runs all pending migrations.
func migrate(db *sql.DB, fsys fs.FS) error {
	// Ensure schema_migrations table exists
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_keyword_index.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}
