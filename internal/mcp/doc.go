// Package mcp exposes the retrieval engine over the Model Context Protocol
// on stdio.
//
// Four tools are registered:
//
//   - search_code: adaptive hybrid search with confidence annotation
//   - locate_symbol: exact symbol-name lookup, no ranking involved
//   - index_status: index statistics and subsystem health
//   - reindex_embeddings: incremental vector index maintenance
//
// Handlers validate parameters and translate between JSON tool arguments
// and the engine's types; retrieval semantics live entirely in
// internal/retriever.
package mcp
