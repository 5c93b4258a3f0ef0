package domain

import "errors"

var (
	// ErrIngestion signals that a corpus could not be loaded into a ready index.
	ErrIngestion = errors.New("ingestion failed")
	// ErrEmbedding signals an embedding provider failure or timeout.
	ErrEmbedding = errors.New("embedding provider error")
	// ErrNotReady signals a search before any successful ingestion.
	ErrNotReady = errors.New("index not ready")
	// ErrQuery signals a query that cannot be served against the loaded index.
	ErrQuery = errors.New("invalid query")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrInvalidRequest signals malformed caller input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrRateLimited signals a local rate limit hit.
	ErrRateLimited = errors.New("rate limited")
)
