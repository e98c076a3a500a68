// Package sqlite provides the SQLite-based keyword index.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Chunks are indexed in an FTS5 table and
// ranked with BM25 over chunk text and metadata keywords.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// The index is derived from the vector store metadata and is held in memory
// unless a path is given.
//
// # Thread Safety
//
// All operations are thread-safe. The index uses a single connection.
package sqlite
