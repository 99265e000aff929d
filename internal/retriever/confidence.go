package retriever

import (
	"fmt"
	"strconv"

	"github.com/signalridge/codecompass/internal/config"
	"github.com/signalridge/codecompass/internal/intent"
	"github.com/signalridge/codecompass/pkg/types"
)

// buildSignal derives the composite confidence signal from the final ordered
// candidate list and the path the query took.
func buildSignal(cands []types.RetrievalCandidate, semanticSkipped bool) types.ConfidenceSignal {
	sig := types.ConfidenceSignal{SemanticSkipped: semanticSkipped}
	if len(cands) == 0 {
		return sig
	}
	sig.TopScore = cands[0].FusedScore
	if len(cands) > 1 {
		sig.Margin = cands[0].FusedScore - cands[1].FusedScore
	}
	sig.ChannelsAgree = topChannelsAgree(cands)
	return sig
}

// topChannelsAgree reports whether the candidate ranked first lexically is
// also the candidate ranked first semantically.
func topChannelsAgree(cands []types.RetrievalCandidate) bool {
	var lexTop, semTop *types.RetrievalCandidate
	for i := range cands {
		c := &cands[i]
		if c.LexicalRank != nil && *c.LexicalRank == 1 {
			lexTop = c
		}
		if c.SemanticRank != nil && *c.SemanticRank == 1 {
			semTop = c
		}
	}
	return lexTop != nil && semTop != nil && lexTop.ID == semTop.ID
}

// classify applies the composite rule: low when the top score is clearly
// below the floor, or when the margin is clearly below its floor while the
// two channels disagree. "Clearly" means past the tolerance band, so a
// sub-tolerance perturbation of a score never flips the classification.
// A single threshold would misclassify across the naturally different score
// ranges of lexical-only and hybrid queries; the composite avoids that.
func classify(sig types.ConfidenceSignal, snap config.Snapshot) (types.Confidence, string) {
	tol := snap.ConfidenceTolerance

	if sig.TopScore < snap.ConfidenceScoreFloor-tol {
		return types.ConfidenceLow,
			fmt.Sprintf("top score %.4g below floor %.4g", sig.TopScore, snap.ConfidenceScoreFloor)
	}

	disagree := !sig.ChannelsAgree && !sig.SemanticSkipped
	if disagree && sig.Margin < snap.ConfidenceMarginFloor-tol {
		return types.ConfidenceLow,
			fmt.Sprintf("margin %.4g below floor %.4g and channels disagree", sig.Margin, snap.ConfidenceMarginFloor)
	}

	return types.ConfidenceHigh,
		fmt.Sprintf("top score %.4g with margin %.4g", sig.TopScore, sig.Margin)
}

// buildFollowUps produces the machine-actionable suggestions emitted with a
// low-confidence result. The list is deterministic and never empty so an
// automated caller can always self-correct without a human in the loop.
func buildFollowUps(query string, sig types.ConfidenceSignal, snap config.Snapshot) []types.FollowUp {
	var ups []types.FollowUp

	if ident := intent.ExtractIdentifier(query); ident != "" {
		ups = append(ups, types.FollowUp{
			Operation: "locate_symbol",
			Params:    map[string]string{"name": ident},
			Reason:    fmt.Sprintf("query contains identifier %q; exact lookup may outperform ranked search", ident),
		})
	}

	if sig.SemanticSkipped {
		ups = append(ups, types.FollowUp{
			Operation: "search_code",
			Params:    map[string]string{"query": query, "force_semantic": "true"},
			Reason:    "semantic retrieval was skipped; retrying with it forced may surface conceptual matches",
		})
	}

	ups = append(ups, types.FollowUp{
		Operation: "search_code",
		Params: map[string]string{
			"query": query,
			"limit": strconv.Itoa(snap.Limit * 2),
		},
		Reason: "widen the result window to expose lower-ranked candidates",
	})

	return ups
}
