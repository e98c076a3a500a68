// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - DocumentLoader: Turns a source path into normalised documents
//   - Parser: Optional per-extension document parser used by the loader
//   - Chunker: Splits documents into overlapping word windows
//   - EmbeddingService: Text to dense vectors (remote model or hash fallback)
//   - VectorStore: Persistent similarity index with tombstoned deletes
//   - KeywordIndex: Lexical BM25 index over the chunk corpus
//   - Generator: Opaque answer generation over ranked chunks
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
