// Package vectorstore provides the persistent vector store used for
// semantic retrieval.
//
// A Store keeps an append-only sequence of metadata rows parallel to the
// rows of a positional backend. Deleted chunk ids are tombstoned and
// filtered at read time; physical removal only happens on Compact.
//
// Backends:
//   - flat: in-memory linear scan persisted as JSON
//   - sqlitevec: sqlite-vec vec0 table (requires cgo)
package vectorstore
