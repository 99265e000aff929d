package retriever

import (
	"sort"

	"github.com/signalridge/codecompass/internal/lexical"
	"github.com/signalridge/codecompass/internal/vectorstore"
	"github.com/signalridge/codecompass/pkg/types"
)

// fuse combines the two ranked lists with weighted Reciprocal Rank Fusion:
//
//	lexical_rrf  = 1 / (k + r_l)   if present, else 0
//	semantic_rrf = 1 / (k + r_s)   if present, else 0
//	fused        = (1-w)*lexical_rrf + w*semantic_rrf
//
// Fusion is rank-based because BM25 and cosine scores live on incomparable
// scales; RRF sidesteps calibration by operating on ordinal position. A
// candidate absent from a channel keeps that channel's rank and score nil.
func fuse(lexHits []lexical.Hit, semHits []vectorstore.Result, w, k float64) []types.RetrievalCandidate {
	byID := make(map[types.SnippetID]*types.RetrievalCandidate, len(lexHits)+len(semHits))
	order := make([]types.SnippetID, 0, len(lexHits)+len(semHits))

	for i := range lexHits {
		hit := lexHits[i]
		rank := hit.Rank
		score := hit.Score
		byID[hit.ID] = &types.RetrievalCandidate{
			ID:           hit.ID,
			LexicalRank:  &rank,
			LexicalScore: &score,
		}
		order = append(order, hit.ID)
	}

	for i := range semHits {
		res := semHits[i]
		id := res.Key.SnippetID()
		rank := i + 1
		score := res.Score
		if cand, ok := byID[id]; ok {
			cand.SemanticRank = &rank
			cand.SemanticScore = &score
			cand.SnippetHash = res.Key.SnippetHash
			continue
		}
		byID[id] = &types.RetrievalCandidate{
			ID:            id,
			SnippetHash:   res.Key.SnippetHash,
			SemanticRank:  &rank,
			SemanticScore: &score,
		}
		order = append(order, id)
	}

	fused := make([]types.RetrievalCandidate, 0, len(order))
	for _, id := range order {
		cand := byID[id]
		cand.FusedScore = rrfScore(cand, w, k)
		fused = append(fused, *cand)
	}

	sortCandidates(fused)
	return fused
}

func rrfScore(cand *types.RetrievalCandidate, w, k float64) float64 {
	var lexRRF, semRRF float64
	if cand.LexicalRank != nil {
		lexRRF = 1.0 / (k + float64(*cand.LexicalRank))
	}
	if cand.SemanticRank != nil {
		semRRF = 1.0 / (k + float64(*cand.SemanticRank))
	}
	return (1-w)*lexRRF + w*semRRF
}

// sortCandidates orders by fused score descending with a total tie-break:
// presence in both channels beats single-channel presence, then lower
// lexical rank, then the stable identifier. The order is deterministic for
// identical inputs.
func sortCandidates(cands []types.RetrievalCandidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := &cands[i], &cands[j]
		if a.FusedScore != b.FusedScore {
			return a.FusedScore > b.FusedScore
		}
		if a.InBothChannels() != b.InBothChannels() {
			return a.InBothChannels()
		}
		if ar, br := lexRankOrMax(a), lexRankOrMax(b); ar != br {
			return ar < br
		}
		return a.ID.String() < b.ID.String()
	})
}

func lexRankOrMax(c *types.RetrievalCandidate) int {
	if c.LexicalRank == nil {
		return int(^uint(0) >> 1)
	}
	return *c.LexicalRank
}
