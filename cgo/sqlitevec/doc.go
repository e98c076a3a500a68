// Package sqlitevec provides a vector backend on the sqlite-vec extension.
// It implements the driven.VectorBackend interface.
//
// Build requires:
//   - CGO (mattn/go-sqlite3 and the bundled sqlite-vec amalgamation)
//
// Without CGO, New returns domain.ErrNotAvailable and callers fall back to
// the flat backend.
package sqlitevec
