package retriever

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalridge/codecompass/internal/lexical"
	"github.com/signalridge/codecompass/internal/vectorstore"
	"github.com/signalridge/codecompass/pkg/types"
)

func sid(symbol string) types.SnippetID {
	return types.SnippetID{ProjectID: "proj", Ref: "main", SymbolStableID: symbol}
}

func lexHit(symbol string, rank int, score float64) lexical.Hit {
	return lexical.Hit{ID: sid(symbol), Rank: rank, Score: score}
}

func semHit(symbol, hash string, score float64) vectorstore.Result {
	return vectorstore.Result{
		Key: vectorstore.Key{
			ProjectID:      "proj",
			Ref:            "main",
			SymbolStableID: symbol,
			SnippetHash:    hash,
			ModelVersion:   "v1",
		},
		Score: score,
	}
}

func TestFuseWeightedArithmetic(t *testing.T) {
	// X: lexical rank 1, semantic rank 3. Y: lexical rank 5, semantic rank 1.
	lex := []lexical.Hit{
		lexHit("x", 1, 9.0),
		lexHit("y", 5, 3.0),
	}
	sem := []vectorstore.Result{
		semHit("y", "hy", 0.95),
		semHit("z", "hz", 0.80),
		semHit("x", "hx", 0.70),
	}

	fused := fuse(lex, sem, 0.5, 60)
	require.Len(t, fused, 3)

	byID := make(map[string]types.RetrievalCandidate)
	for _, c := range fused {
		byID[c.ID.SymbolStableID] = c
	}

	wantX := 0.5/61.0 + 0.5/63.0
	wantY := 0.5/65.0 + 0.5/61.0
	wantZ := 0.5 / 62.0
	assert.InDelta(t, wantX, byID["x"].FusedScore, 1e-12)
	assert.InDelta(t, wantY, byID["y"].FusedScore, 1e-12)
	assert.InDelta(t, wantZ, byID["z"].FusedScore, 1e-12)

	// X edges out Y despite Y winning the semantic channel.
	assert.Equal(t, "x", fused[0].ID.SymbolStableID)
	assert.Equal(t, "y", fused[1].ID.SymbolStableID)
	assert.Equal(t, "z", fused[2].ID.SymbolStableID)
}

func TestFuseChannelFieldsNilWhenAbsent(t *testing.T) {
	lex := []lexical.Hit{lexHit("lexonly", 1, 8.0)}
	sem := []vectorstore.Result{semHit("semonly", "h1", 0.9)}

	fused := fuse(lex, sem, 0.5, 60)
	require.Len(t, fused, 2)

	for _, c := range fused {
		switch c.ID.SymbolStableID {
		case "lexonly":
			require.NotNil(t, c.LexicalRank)
			assert.Equal(t, 1, *c.LexicalRank)
			require.NotNil(t, c.LexicalScore)
			assert.Nil(t, c.SemanticRank)
			assert.Nil(t, c.SemanticScore)
			assert.False(t, c.InBothChannels())
		case "semonly":
			assert.Nil(t, c.LexicalRank)
			assert.Nil(t, c.LexicalScore)
			require.NotNil(t, c.SemanticRank)
			assert.Equal(t, 1, *c.SemanticRank)
			assert.Equal(t, "h1", c.SnippetHash)
			assert.False(t, c.InBothChannels())
		}
	}
}

func TestFuseZeroWeightPreservesLexicalOrder(t *testing.T) {
	lex := []lexical.Hit{
		lexHit("a", 1, 9.0),
		lexHit("b", 2, 7.0),
		lexHit("c", 3, 4.0),
	}

	fused := fuse(lex, nil, 0, 60)
	require.Len(t, fused, 3)
	for i, want := range []string{"a", "b", "c"} {
		assert.Equal(t, want, fused[i].ID.SymbolStableID)
	}
}

func TestFuseDeterministic(t *testing.T) {
	lex := []lexical.Hit{lexHit("a", 1, 9.0), lexHit("b", 2, 7.0)}
	sem := []vectorstore.Result{semHit("b", "hb", 0.9), semHit("c", "hc", 0.8)}

	first := fuse(lex, sem, 0.6, 60)
	second := fuse(lex, sem, 0.6, 60)
	assert.Equal(t, first, second)
}

func TestFuseWeightMonotonicity(t *testing.T) {
	lex := []lexical.Hit{lexHit("lexonly", 1, 9.0)}
	sem := []vectorstore.Result{semHit("semonly", "h", 0.9)}

	scoreAt := func(w float64) float64 {
		for _, c := range fuse(lex, sem, w, 60) {
			if c.ID.SymbolStableID == "semonly" {
				return c.FusedScore
			}
		}
		t.Fatal("semonly candidate missing")
		return 0
	}

	low := scoreAt(0.2)
	high := scoreAt(0.8)
	assert.Greater(t, high, low)

	// At equal ranks the heavier semantic weight flips the winner.
	fused := fuse(lex, sem, 0.8, 60)
	assert.Equal(t, "semonly", fused[0].ID.SymbolStableID)
}

func TestFuseDoubleWinnerStaysFirstForEveryWeight(t *testing.T) {
	lex := []lexical.Hit{
		lexHit("winner", 1, 9.0),
		lexHit("runner", 2, 7.0),
		lexHit("third", 3, 4.0),
	}
	sem := []vectorstore.Result{
		semHit("winner", "hw", 0.95),
		semHit("third", "ht", 0.85),
		semHit("other", "ho", 0.75),
	}

	for _, w := range []float64{0, 0.25, 0.5, 0.75, 1} {
		fused := fuse(lex, sem, w, 60)
		require.NotEmpty(t, fused)
		assert.Equalf(t, "winner", fused[0].ID.SymbolStableID,
			"rank-1-in-both candidate displaced at w=%v", w)
	}
}

func TestSortCandidatesTieBreaks(t *testing.T) {
	one := 1
	three := 3
	mk := func(symbol string, lexRank *int, semRank *int, score float64) types.RetrievalCandidate {
		return types.RetrievalCandidate{
			ID:           sid(symbol),
			LexicalRank:  lexRank,
			SemanticRank: semRank,
			FusedScore:   score,
		}
	}

	t.Run("both channels beats single channel", func(t *testing.T) {
		cands := []types.RetrievalCandidate{
			mk("single", &one, nil, 0.5),
			mk("both", &three, &one, 0.5),
		}
		sortCandidates(cands)
		assert.Equal(t, "both", cands[0].ID.SymbolStableID)
	})

	t.Run("lower lexical rank wins among equals", func(t *testing.T) {
		cands := []types.RetrievalCandidate{
			mk("later", &three, nil, 0.5),
			mk("earlier", &one, nil, 0.5),
		}
		sortCandidates(cands)
		assert.Equal(t, "earlier", cands[0].ID.SymbolStableID)
	})

	t.Run("identifier breaks remaining ties", func(t *testing.T) {
		cands := []types.RetrievalCandidate{
			mk("bbb", &one, nil, 0.5),
			mk("aaa", &one, nil, 0.5),
		}
		sortCandidates(cands)
		assert.Equal(t, "aaa", cands[0].ID.SymbolStableID)
	})
}
