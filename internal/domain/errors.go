package domain

import "errors"

var (
	// ErrInvalidArgument signals a caller-supplied argument that fails validation.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrCollectionNotFound signals a missing quote collection.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrGenerationProvider signals a generation provider failure.
	ErrGenerationProvider = errors.New("generation provider error")
)
