package retriever

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/signalridge/codecompass/internal/config"
	"github.com/signalridge/codecompass/internal/intent"
	"github.com/signalridge/codecompass/internal/lexical"
)

func policySnap() config.Snapshot {
	snap := config.Default().Snapshot()
	snap.SemanticRatio = 0.6
	snap.ShortCircuitScore = 12.0
	snap.ShortCircuitMargin = 4.0
	return snap
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name       string
		ratio      float64
		hits       []lexical.Hit
		intent     intent.Intent
		ready      bool
		force      bool
		wantSkip   bool
		wantReason string
		wantWeight float64
	}{
		{
			name:       "ratio zero disables semantic even when forced",
			ratio:      0,
			hits:       nil,
			intent:     intent.IntentNaturalLanguage,
			ready:      true,
			force:      true,
			wantSkip:   true,
			wantReason: SkipReasonRatioZero,
		},
		{
			name:       "subsystem unavailable",
			ratio:      0.6,
			hits:       nil,
			intent:     intent.IntentNaturalLanguage,
			ready:      false,
			force:      true,
			wantSkip:   true,
			wantReason: SkipReasonUnavailable,
		},
		{
			name:       "symbol intent skips",
			ratio:      0.6,
			hits:       []lexical.Hit{lexHit("a", 1, 3.0)},
			intent:     intent.IntentSymbol,
			ready:      true,
			wantSkip:   true,
			wantReason: SkipReasonExactIntent,
		},
		{
			name:       "path intent skips",
			ratio:      0.6,
			hits:       []lexical.Hit{lexHit("a", 1, 3.0)},
			intent:     intent.IntentPath,
			ready:      true,
			wantSkip:   true,
			wantReason: SkipReasonExactIntent,
		},
		{
			name:       "short circuit on confident lexical top",
			ratio:      0.6,
			hits:       []lexical.Hit{lexHit("a", 1, 15.0), lexHit("b", 2, 5.0)},
			intent:     intent.IntentNaturalLanguage,
			ready:      true,
			wantSkip:   true,
			wantReason: SkipReasonShortCircuit,
		},
		{
			name:       "single confident hit short circuits",
			ratio:      0.6,
			hits:       []lexical.Hit{lexHit("a", 1, 15.0)},
			intent:     intent.IntentNaturalLanguage,
			ready:      true,
			wantSkip:   true,
			wantReason: SkipReasonShortCircuit,
		},
		{
			name:       "narrow margin runs semantic",
			ratio:      0.6,
			hits:       []lexical.Hit{lexHit("a", 1, 15.0), lexHit("b", 2, 12.0)},
			intent:     intent.IntentNaturalLanguage,
			ready:      true,
			wantWeight: 0.6,
		},
		{
			name:       "top below score floor runs semantic",
			ratio:      0.6,
			hits:       []lexical.Hit{lexHit("a", 1, 11.0), lexHit("b", 2, 1.0)},
			intent:     intent.IntentNaturalLanguage,
			ready:      true,
			wantWeight: 0.6,
		},
		{
			name:       "no lexical hits runs semantic",
			ratio:      0.6,
			hits:       nil,
			intent:     intent.IntentNaturalLanguage,
			ready:      true,
			wantWeight: 0.6,
		},
		{
			name:       "force bypasses short circuit",
			ratio:      0.6,
			hits:       []lexical.Hit{lexHit("a", 1, 20.0), lexHit("b", 2, 1.0)},
			intent:     intent.IntentNaturalLanguage,
			ready:      true,
			force:      true,
			wantWeight: 0.6,
		},
		{
			name:       "force bypasses intent skip",
			ratio:      0.6,
			hits:       []lexical.Hit{lexHit("a", 1, 3.0)},
			intent:     intent.IntentSymbol,
			ready:      true,
			force:      true,
			wantWeight: 0.6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := policySnap()
			snap.SemanticRatio = tt.ratio

			dec := decide(snap, tt.hits, tt.intent, tt.ready, tt.force)
			assert.Equal(t, tt.wantSkip, dec.SkipSemantic)
			assert.Equal(t, tt.wantReason, dec.Reason)
			assert.InDelta(t, tt.wantWeight, dec.Weight, 1e-12)
		})
	}
}

func TestLexicalConfidentBoundaries(t *testing.T) {
	snap := policySnap()

	// Margin exactly at the floor counts as confident.
	hits := []lexical.Hit{lexHit("a", 1, 16.0), lexHit("b", 2, 12.0)}
	assert.True(t, lexicalConfident(snap, hits))

	// A hair under does not.
	hits[1].Score = 12.1
	assert.False(t, lexicalConfident(snap, hits))

	// Top score exactly at the floor passes.
	hits = []lexical.Hit{lexHit("a", 1, 12.0)}
	assert.True(t, lexicalConfident(snap, hits))
}
