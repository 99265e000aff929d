package rerank

import (
	"context"
	"sort"
	"strings"
)

// Boost weights for the rule-based reranker.
const (
	exactNameBoost     = 5.0
	qualifiedNameBoost = 2.0
	definitionBoost    = 1.0
	pathAffinityBoost  = 1.0
)

// Local is the rule-based reranker: always available, free, and never sends
// anything off the machine. It boosts exact symbol-name matches, qualified
// name containment, definitions over bare text hits, and path affinity.
type Local struct{}

// NewLocal creates the rule-based reranker.
func NewLocal() *Local {
	return &Local{}
}

func (l *Local) Provider() string { return ProviderLocal }

func (l *Local) Rerank(ctx context.Context, query string, docs []Document, topN int) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapCallError(ctx, err)
	}

	queryLower := strings.ToLower(strings.TrimSpace(query))

	results := make([]Result, len(docs))
	for i, doc := range docs {
		boost := 0.0

		if doc.Name != "" && strings.ToLower(doc.Name) == queryLower {
			boost += exactNameBoost
		}
		if doc.QualifiedName != "" && strings.Contains(strings.ToLower(doc.QualifiedName), queryLower) {
			boost += qualifiedNameBoost
		}
		if doc.Kind != "" {
			boost += definitionBoost
		}
		if doc.Path != "" && strings.Contains(strings.ToLower(doc.Path), queryLower) {
			boost += pathAffinityBoost
		}

		results[i] = Result{ID: doc.ID, Score: doc.Score + boost}
	}

	// Stable tiebreaker on identity keeps the order total.
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID.String() < results[j].ID.String()
	})

	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results, nil
}
