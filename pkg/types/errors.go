package types

import "errors"

// Error taxonomy for the retrieval engine. Errors in the semantic and rerank
// branches are recovered by degrading to the next-best channel; only lexical
// failures propagate to the caller.
var (
	// ErrEmbeddingUnavailable indicates the embedding model/API cannot be reached.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
	// ErrEmbeddingTimeout indicates embedding inference exceeded its deadline.
	ErrEmbeddingTimeout = errors.New("embedding timed out")
	// ErrVectorStoreUnavailable indicates the vector store cannot serve queries.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")
	// ErrRerankUnavailable indicates the rerank provider cannot be reached.
	ErrRerankUnavailable = errors.New("rerank provider unavailable")
	// ErrRerankTimeout indicates the rerank call exceeded its deadline.
	ErrRerankTimeout = errors.New("rerank timed out")
	// ErrConfigurationInvalid indicates contradictory or out-of-range settings.
	// Surfaced at startup, never per query.
	ErrConfigurationInvalid = errors.New("configuration invalid")
	// ErrModelVersionMismatch indicates the store holds no vectors for the
	// active embedding model version.
	ErrModelVersionMismatch = errors.New("no vectors for active model version")
)
