package retriever

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalridge/codecompass/internal/config"
	"github.com/signalridge/codecompass/pkg/types"
)

func confSnap() config.Snapshot {
	snap := config.Default().Snapshot()
	snap.ConfidenceScoreFloor = 0.016
	snap.ConfidenceMarginFloor = 0.0005
	snap.ConfidenceTolerance = 0.0001
	return snap
}

func TestClassify(t *testing.T) {
	snap := confSnap()

	tests := []struct {
		name string
		sig  types.ConfidenceSignal
		want types.Confidence
	}{
		{
			name: "strong top with agreement",
			sig:  types.ConfidenceSignal{TopScore: 0.02, Margin: 0.002, ChannelsAgree: true},
			want: types.ConfidenceHigh,
		},
		{
			name: "top clearly below floor",
			sig:  types.ConfidenceSignal{TopScore: 0.010, Margin: 0.002, ChannelsAgree: true},
			want: types.ConfidenceLow,
		},
		{
			name: "disagreement with thin margin",
			sig:  types.ConfidenceSignal{TopScore: 0.02, Margin: 0.0002, ChannelsAgree: false},
			want: types.ConfidenceLow,
		},
		{
			name: "thin margin is fine when channels agree",
			sig:  types.ConfidenceSignal{TopScore: 0.02, Margin: 0.0002, ChannelsAgree: true},
			want: types.ConfidenceHigh,
		},
		{
			name: "disagreement is moot on a lexical-only path",
			sig:  types.ConfidenceSignal{TopScore: 0.02, Margin: 0.0002, SemanticSkipped: true},
			want: types.ConfidenceHigh,
		},
		{
			name: "wide margin survives disagreement",
			sig:  types.ConfidenceSignal{TopScore: 0.02, Margin: 0.003, ChannelsAgree: false},
			want: types.ConfidenceHigh,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := classify(tt.sig, snap)
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, reason)
		})
	}
}

func TestClassifyToleranceBand(t *testing.T) {
	snap := confSnap()

	// Scores inside the tolerance band of the floor classify as high: a
	// sub-tolerance wobble around the threshold must not flip the verdict.
	inBand := types.ConfidenceSignal{TopScore: snap.ConfidenceScoreFloor - snap.ConfidenceTolerance/2, ChannelsAgree: true}
	got, _ := classify(inBand, snap)
	assert.Equal(t, types.ConfidenceHigh, got)

	atEdge := types.ConfidenceSignal{TopScore: snap.ConfidenceScoreFloor - snap.ConfidenceTolerance, ChannelsAgree: true}
	got, _ = classify(atEdge, snap)
	assert.Equal(t, types.ConfidenceHigh, got)

	pastBand := types.ConfidenceSignal{TopScore: snap.ConfidenceScoreFloor - 2*snap.ConfidenceTolerance, ChannelsAgree: true}
	got, _ = classify(pastBand, snap)
	assert.Equal(t, types.ConfidenceLow, got)
}

func TestBuildSignal(t *testing.T) {
	t.Run("empty candidates", func(t *testing.T) {
		sig := buildSignal(nil, true)
		assert.Zero(t, sig.TopScore)
		assert.Zero(t, sig.Margin)
		assert.False(t, sig.ChannelsAgree)
		assert.True(t, sig.SemanticSkipped)
	})

	t.Run("margin and agreement", func(t *testing.T) {
		one := 1
		two := 2
		cands := []types.RetrievalCandidate{
			{ID: sid("a"), LexicalRank: &one, SemanticRank: &one, FusedScore: 0.020},
			{ID: sid("b"), LexicalRank: &two, SemanticRank: &two, FusedScore: 0.015},
		}
		sig := buildSignal(cands, false)
		assert.InDelta(t, 0.020, sig.TopScore, 1e-12)
		assert.InDelta(t, 0.005, sig.Margin, 1e-12)
		assert.True(t, sig.ChannelsAgree)
	})

	t.Run("channel tops diverge", func(t *testing.T) {
		one := 1
		two := 2
		cands := []types.RetrievalCandidate{
			{ID: sid("a"), LexicalRank: &one, SemanticRank: &two, FusedScore: 0.020},
			{ID: sid("b"), LexicalRank: &two, SemanticRank: &one, FusedScore: 0.019},
		}
		sig := buildSignal(cands, false)
		assert.False(t, sig.ChannelsAgree)
	})
}

func TestBuildFollowUps(t *testing.T) {
	snap := confSnap()

	t.Run("identifier query suggests exact lookup", func(t *testing.T) {
		ups := buildFollowUps("where is UserCache flushed", types.ConfidenceSignal{}, snap)
		require.NotEmpty(t, ups)
		assert.Equal(t, "locate_symbol", ups[0].Operation)
		assert.Equal(t, "UserCache", ups[0].Params["name"])
	})

	t.Run("skipped semantic suggests forced retry", func(t *testing.T) {
		ups := buildFollowUps("plain words only here", types.ConfidenceSignal{SemanticSkipped: true}, snap)
		require.NotEmpty(t, ups)
		var forced bool
		for _, up := range ups {
			if up.Params["force_semantic"] == "true" {
				forced = true
			}
		}
		assert.True(t, forced)
	})

	t.Run("always offers a wider window", func(t *testing.T) {
		ups := buildFollowUps("plain words only here", types.ConfidenceSignal{}, snap)
		require.NotEmpty(t, ups)
		last := ups[len(ups)-1]
		assert.Equal(t, "search_code", last.Operation)
		assert.NotEmpty(t, last.Params["limit"])
	})
}
