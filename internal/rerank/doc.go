// Package rerank implements the optional rerank stage over the top-N fused
// candidates.
//
// The local rule-based reranker is the default: always available, free, and
// entirely on-machine. External providers (Jina, Cohere) may only be
// constructed when both privacy gates are open; there is no silent external
// fallback. Rerank failures are fail-soft: the engine keeps the pre-rerank
// fused order and records a soft-failure metric.
package rerank
