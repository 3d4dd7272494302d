package domain

import "errors"

// Error kinds returned across component boundaries. Components wrap them with %w,
// so callers match with errors.Is.
var (
	// ErrUnsupportedFormat indicates no loader is registered for a file extension.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrEmptyQuery indicates a blank or whitespace-only query.
	ErrEmptyQuery = errors.New("empty query")

	// ErrEmbedding indicates the embedding provider failed or returned a malformed response.
	ErrEmbedding = errors.New("embedding failed")

	// ErrStore indicates the vector store could not be reached or written.
	ErrStore = errors.New("vector store failed")

	// ErrGeneration indicates the language model call failed.
	ErrGeneration = errors.New("generation failed")

	// ErrDimensionMismatch indicates vectors from a different embedding space.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
