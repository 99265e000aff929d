package rerank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalridge/codecompass/internal/config"
	"github.com/signalridge/codecompass/pkg/types"
)

func doc(symbol, name, qualified, path, kind string, score float64) Document {
	return Document{
		ID:            types.SnippetID{ProjectID: "proj", Ref: "main", SymbolStableID: symbol},
		Name:          name,
		QualifiedName: qualified,
		Path:          path,
		Kind:          kind,
		Content:       "func " + name + "() {}",
		Score:         score,
	}
}

func TestLocalBoostsExactNameMatch(t *testing.T) {
	local := NewLocal()

	docs := []Document{
		doc("sym-1", "parseToken", "auth.parseToken", "internal/auth/token.go", "function", 0.5),
		doc("sym-2", "AuthHandler", "auth.AuthHandler", "internal/auth/handler.go", "function", 0.4),
	}

	results, err := local.Rerank(context.Background(), "AuthHandler", docs, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	// Exact name match outweighs the higher fused score.
	assert.Equal(t, "sym-2", results[0].ID.SymbolStableID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestLocalDeterministicTies(t *testing.T) {
	local := NewLocal()

	docs := []Document{
		doc("sym-b", "x", "", "", "", 1.0),
		doc("sym-a", "y", "", "", "", 1.0),
	}

	first, err := local.Rerank(context.Background(), "unrelated", docs, 10)
	require.NoError(t, err)
	second, err := local.Rerank(context.Background(), "unrelated", docs, 10)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "sym-a", first[0].ID.SymbolStableID)
}

func TestLocalRespectsTopN(t *testing.T) {
	local := NewLocal()
	docs := []Document{
		doc("sym-1", "a", "", "", "", 3),
		doc("sym-2", "b", "", "", "", 2),
		doc("sym-3", "c", "", "", "", 1),
	}
	results, err := local.Rerank(context.Background(), "q", docs, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestFactoryBlocksExternalWithoutGates(t *testing.T) {
	cfg := config.RerankConfig{Provider: "jina", APIKey: "k"}

	_, err := New(cfg, config.PrivacyConfig{})
	assert.ErrorIs(t, err, types.ErrConfigurationInvalid)

	_, err = New(cfg, config.PrivacyConfig{AllowCodePayloadToExternal: true})
	assert.ErrorIs(t, err, types.ErrConfigurationInvalid)

	r, err := New(cfg, config.PrivacyConfig{
		ExternalProviderEnabled:    true,
		AllowCodePayloadToExternal: true,
	})
	require.NoError(t, err)
	assert.Equal(t, ProviderJina, r.Provider())
}

func TestFactoryDefaultsToLocal(t *testing.T) {
	r, err := New(config.RerankConfig{}, config.PrivacyConfig{})
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, r.Provider())
}

func TestHTTPRerankerOrdersByProviderScores(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query     string   `json:"query"`
			Documents []string `json:"documents"`
			TopN      int      `json:"top_n"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Len(t, req.Documents, 2)

		// Provider prefers the second document.
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{"index": 1, "relevance_score": 0.95},
				{"index": 0, "relevance_score": 0.20},
			},
		})
	}))
	defer server.Close()

	r, err := NewJina("test-key", server.URL)
	require.NoError(t, err)

	docs := []Document{
		doc("sym-1", "first", "", "", "", 1.0),
		doc("sym-2", "second", "", "", "", 0.5),
	}
	results, err := r.Rerank(context.Background(), "query", docs, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "sym-2", results[0].ID.SymbolStableID)
	assert.InDelta(t, 0.95, results[0].Score, 1e-9)
}

func TestHTTPRerankerMapsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	r, err := NewCohere("test-key", server.URL)
	require.NoError(t, err)

	_, err = r.Rerank(context.Background(), "query", []Document{doc("s", "n", "", "", "", 1)}, 1)
	assert.ErrorIs(t, err, types.ErrRerankUnavailable)
}

func TestHTTPRerankerMapsTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	r, err := NewJina("test-key", server.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = r.Rerank(ctx, "query", []Document{doc("s", "n", "", "", "", 1)}, 1)
	assert.ErrorIs(t, err, types.ErrRerankTimeout)
}

func TestHTTPRerankerRejectsBadKey(t *testing.T) {
	_, err := NewJina("", "")
	assert.ErrorIs(t, err, ErrNoAPIKey)
	_, err = NewCohere("", "")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}
