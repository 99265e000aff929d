package retriever

import (
	"github.com/signalridge/codecompass/internal/config"
	"github.com/signalridge/codecompass/internal/intent"
	"github.com/signalridge/codecompass/internal/lexical"
)

// Skip reasons recorded on the result set and in logs.
const (
	SkipReasonRatioZero      = "semantic_ratio_zero"
	SkipReasonUnavailable    = "semantic_unavailable"
	SkipReasonShortCircuit   = "lexical_short_circuit"
	SkipReasonExactIntent    = "exact_intent"
	SkipReasonProviderFailed = "provider_failed"
)

// Decision is the trigger policy's verdict for one query.
type Decision struct {
	SkipSemantic bool
	Reason       string
	// Weight is the effective semantic weight for fusion, capped at the
	// configured semantic ratio. 0 when the semantic branch is skipped.
	Weight float64
}

// decide determines whether the semantic branch runs for this query.
// Lexical results are already available; the policy trades embedding latency
// and cost against the chance semantic retrieval improves the answer.
func decide(snap config.Snapshot, hits []lexical.Hit, queryIntent intent.Intent, semanticReady, forceSemantic bool) Decision {
	if snap.SemanticRatio == 0 {
		return Decision{SkipSemantic: true, Reason: SkipReasonRatioZero}
	}
	if !semanticReady {
		return Decision{SkipSemantic: true, Reason: SkipReasonUnavailable}
	}

	if forceSemantic {
		return Decision{Weight: snap.SemanticRatio}
	}

	// Identifier and path shaped queries are answered by exact lexical
	// matching; embedding them buys nothing.
	if queryIntent == intent.IntentSymbol || queryIntent == intent.IntentPath {
		return Decision{SkipSemantic: true, Reason: SkipReasonExactIntent}
	}

	if lexicalConfident(snap, hits) {
		return Decision{SkipSemantic: true, Reason: SkipReasonShortCircuit}
	}

	return Decision{Weight: snap.SemanticRatio}
}

// lexicalConfident reports whether lexical search already answers the query
// well: top score past the floor and a clear margin over the runner-up.
func lexicalConfident(snap config.Snapshot, hits []lexical.Hit) bool {
	if len(hits) == 0 {
		return false
	}
	top := hits[0].Score
	if top < snap.ShortCircuitScore {
		return false
	}
	margin := top
	if len(hits) > 1 {
		margin = top - hits[1].Score
	}
	return margin >= snap.ShortCircuitMargin
}
