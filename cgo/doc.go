// Package cgo provides CGO bindings for native libraries.
// This package isolates all CGO code from the pure Go core.
//
// Sub-packages:
//   - sqlitevec: sqlite-vec bindings for vector similarity search
package cgo
