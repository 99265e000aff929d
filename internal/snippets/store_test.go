package snippets

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalridge/codecompass/internal/lexical"
	"github.com/signalridge/codecompass/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "snippets.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testSnippet(symbol, name, content string) *types.Snippet {
	return &types.Snippet{
		ID: types.SnippetID{
			ProjectID:      "proj",
			Ref:            "main",
			SymbolStableID: symbol,
		},
		Name:          name,
		QualifiedName: "pkg." + name,
		Kind:          "function",
		Language:      "go",
		Location:      types.Location{Path: "pkg/file.go", StartLine: 10, EndLine: 30},
		Content:       content,
		ContentHash:   "hash-" + symbol,
	}
}

func TestUpsertGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sn := testSnippet("sym-1", "ParseConfig", "func ParseConfig(path string) error { return nil }")
	require.NoError(t, store.Upsert(ctx, sn))

	got, err := store.Get(ctx, sn.ID)
	require.NoError(t, err)
	assert.Equal(t, sn.Name, got.Name)
	assert.Equal(t, sn.Content, got.Content)
	assert.Equal(t, sn.Location, got.Location)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), types.SnippetID{
		ProjectID: "proj", Ref: "main", SymbolStableID: "absent",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertReplacesContent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sn := testSnippet("sym-1", "ParseConfig", "old body")
	require.NoError(t, store.Upsert(ctx, sn))

	sn.Content = "new body"
	sn.ContentHash = "hash-2"
	require.NoError(t, store.Upsert(ctx, sn))

	got, err := store.Get(ctx, sn.ID)
	require.NoError(t, err)
	assert.Equal(t, "new body", got.Content)
	assert.Equal(t, "hash-2", got.ContentHash)

	all, err := store.List(ctx, "proj", "main")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSearchRanksExactNameFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, testSnippet("sym-1", "AuthHandler",
		"func AuthHandler(w http.ResponseWriter, r *http.Request) {}")))
	require.NoError(t, store.Upsert(ctx, testSnippet("sym-2", "parseToken",
		"parses a token emitted by some auth handler somewhere")))
	require.NoError(t, store.Upsert(ctx, testSnippet("sym-3", "renderPage",
		"renders an html page, nothing to do with authentication")))

	hits, err := store.Search(ctx, "AuthHandler", lexical.Filter{ProjectID: "proj", Ref: "main"})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "sym-1", hits[0].ID.SymbolStableID)
	assert.Equal(t, 1, hits[0].Rank)
	// Hits carry both rank and a raw score, ranks strictly increasing.
	for i, h := range hits {
		assert.Equal(t, i+1, h.Rank)
	}
}

func TestSearchScopedByRef(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	main := testSnippet("sym-1", "RateLimiter", "token bucket rate limiter")
	require.NoError(t, store.Upsert(ctx, main))

	branch := testSnippet("sym-2", "RateLimiter", "sliding window rate limiter")
	branch.ID.Ref = "feature/limits"
	require.NoError(t, store.Upsert(ctx, branch))

	hits, err := store.Search(ctx, "RateLimiter", lexical.Filter{ProjectID: "proj", Ref: "main"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "main", hits[0].ID.Ref)
}

func TestSearchSanitizesOperators(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, testSnippet("sym-1", "connect", "connect AND retry")))

	// Raw FTS operators must not produce a syntax error.
	_, err := store.Search(ctx, `connect AND (retry OR "timeout")*`, lexical.Filter{ProjectID: "proj", Ref: "main"})
	assert.NoError(t, err)
}

func TestLocateSymbol(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, testSnippet("sym-1", "Connect", "func Connect() {}")))
	other := testSnippet("sym-2", "Connect", "type Connect struct{}")
	other.Kind = "struct"
	require.NoError(t, store.Upsert(ctx, other))

	all, err := store.LocateSymbol(ctx, "proj", "Connect", LocateOptions{Ref: "main"})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	structs, err := store.LocateSymbol(ctx, "proj", "Connect", LocateOptions{Ref: "main", Kind: "struct"})
	require.NoError(t, err)
	require.Len(t, structs, 1)
	assert.Equal(t, "sym-2", structs[0].ID.SymbolStableID)
}

func TestDeleteRemovesFromSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sn := testSnippet("sym-1", "Obsolete", "func Obsolete() {}")
	require.NoError(t, store.Upsert(ctx, sn))
	require.NoError(t, store.Delete(ctx, sn.ID))

	hits, err := store.Search(ctx, "Obsolete", lexical.Filter{ProjectID: "proj", Ref: "main"})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, testSnippet("sym-1", "A", "a")))
	py := testSnippet("sym-2", "B", "b")
	py.Language = "python"
	require.NoError(t, store.Upsert(ctx, py))

	st, err := store.Stats(ctx, "proj", "main")
	require.NoError(t, err)
	assert.Equal(t, 2, st.Snippets)
	assert.Equal(t, []string{"go", "python"}, st.Languages)
}
