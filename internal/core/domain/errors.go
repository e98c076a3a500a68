package domain

import "errors"

// Domain errors represent retrieval engine failures.
// Adapters wrap them with context; callers match with errors.Is.
var (
	// ErrConfiguration indicates an unsupported provider or backend kind,
	// or invalid construction parameters. It is fatal at construction.
	ErrConfiguration = errors.New("configuration error")

	// ErrDimensionMismatch indicates a vector whose length differs from the
	// dimension fixed by the store, or mismatched vector and row counts.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrNotAvailable indicates a backend that cannot be reached or loaded,
	// such as a remote embedding model or the native vector index.
	ErrNotAvailable = errors.New("not available")

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates a malformed request from a client.
	ErrInvalidInput = errors.New("invalid input")
)
