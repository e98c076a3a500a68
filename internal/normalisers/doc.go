// Package normalisers provides optional per-extension parsers for the
// filesystem loader. Each parser knows how to extract readable text from
// one document format.
//
// Parsers are enabled by name through ingestion.parsers and collected in
// a Registry before the loader is built.
package normalisers
