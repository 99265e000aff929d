// Package retriever implements adaptive hybrid retrieval over the lexical
// and semantic channels.
//
// A query flows through a fixed pipeline: the trigger policy decides whether
// the semantic channel runs at all, the two candidate lists are fused with
// weighted reciprocal rank fusion, the fused top-N is reranked (locally, or
// by an external provider when both privacy gates are open), and the final
// set is annotated with a confidence level plus follow-up suggestions when
// confidence is low.
//
// The lexical channel is authoritative: its failure fails the query. Every
// other stage degrades softly, falling back to the best remaining order and
// recording a soft-failure metric instead of surfacing an error.
package retriever
