// Package lexical defines the port to the full-text search engine. The
// retrieval engine treats the engine's ordering as authoritative for the
// lexical channel and never re-ranks it before fusion.
package lexical

import (
	"context"

	"github.com/signalridge/codecompass/pkg/types"
)

// Hit is one lexical result. Rank is the 1-based position in the engine's
// ordering; Score is the engine's raw relevance score (BM25-like, higher is
// better). The two are carried separately because fusion is rank-based while
// the trigger policy reads raw scores.
type Hit struct {
	ID    types.SnippetID
	Rank  int
	Score float64
}

// Filter scopes a lexical search.
type Filter struct {
	ProjectID string
	Ref       string
	Language  string
	Limit     int
}

// Searcher is the lexical retrieval port. Implementations return hits in
// rank order; an error here is fatal to the query, unlike the semantic and
// rerank branches.
type Searcher interface {
	Search(ctx context.Context, query string, filter Filter) ([]Hit, error)
}
