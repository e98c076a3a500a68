// Package domain defines the core entities of the docseek retrieval engine.
//
// This package is the innermost layer of the hexagon. It has NO external
// dependencies and defines the fundamental types:
//
//   - Document: normalised text of one source file or record
//   - Chunk: a word window of a Document, the unit of embedding and retrieval
//   - RetrievedChunk: a Chunk scored by one retrieval path
//   - Settings: typed configuration consumed at startup
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
