package domain

import "errors"

var (
	// ErrDatastoreUnavailable signals a connection-level datastore outage.
	// It is the only failure Retrieve surfaces to callers.
	ErrDatastoreUnavailable = errors.New("datastore unavailable")
	// ErrGeneration signals that the query generator failed or returned unusable text.
	ErrGeneration = errors.New("query generation failed")
	// ErrExecution signals that the datastore rejected a generated query.
	ErrExecution = errors.New("query execution failed")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrCompletionProviderError signals a language model provider failure.
	ErrCompletionProviderError = errors.New("completion provider error")
	// ErrInvalidRecord signals a datastore row without identity.
	ErrInvalidRecord = errors.New("invalid candidate record")
	// ErrEmptyQuery signals a blank retrieval query.
	ErrEmptyQuery = errors.New("query is empty")
)
