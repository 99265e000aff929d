// Package embedder generates vector embeddings for query text and indexed
// snippets.
//
// Three providers are available:
//   - local: deterministic in-process trigram embedding, always available,
//     never sends text off the machine
//   - openai: OpenAI embeddings API (external, dual privacy gate required)
//   - jina: Jina AI embeddings API (external, dual privacy gate required)
//
// Every embedding is tagged with (provider, model id, model version,
// dimension). Vectors produced under different model versions are never
// comparable; the vector store filters by model version before any distance
// computation.
//
// External calls use exponential backoff retry and respect the caller's
// deadline. Failures map onto types.ErrEmbeddingUnavailable and
// types.ErrEmbeddingTimeout so the retrieval engine can degrade to
// lexical-only instead of failing the query.
package embedder
