package embedder

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalridge/codecompass/internal/config"
	"github.com/signalridge/codecompass/pkg/types"
)

func TestLocalProviderDeterministic(t *testing.T) {
	p, err := NewLocalProvider("v1", nil)
	require.NoError(t, err)

	a, err := p.Embed(context.Background(), "func ParseConfig(path string) error")
	require.NoError(t, err)
	b, err := p.Embed(context.Background(), "func ParseConfig(path string) error")
	require.NoError(t, err)

	assert.Equal(t, a.Vector, b.Vector)
	assert.Equal(t, LocalDimension, a.Dimension)
	assert.Len(t, a.Vector, LocalDimension)
	assert.Equal(t, "v1", a.ModelVersion)
}

func TestLocalProviderNormalized(t *testing.T) {
	p, err := NewLocalProvider("v1", nil)
	require.NoError(t, err)

	emb, err := p.Embed(context.Background(), "authentication middleware handler")
	require.NoError(t, err)

	var norm float64
	for _, v := range emb.Vector {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)
}

func TestLocalProviderRejectsEmptyText(t *testing.T) {
	p, err := NewLocalProvider("v1", nil)
	require.NoError(t, err)

	_, err = p.Embed(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestLocalProviderBatch(t *testing.T) {
	p, err := NewLocalProvider("v1", NewCache(100))
	require.NoError(t, err)

	texts := []string{"first snippet", "second snippet", "third snippet"}
	embs, err := p.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, embs, 3)

	// Distinct texts should produce distinct vectors.
	assert.NotEqual(t, embs[0].Vector, embs[1].Vector)
}

func TestCacheReturnsCopies(t *testing.T) {
	cache := NewCache(10)
	emb := &Embedding{Vector: []float32{1, 2, 3}, Dimension: 3, Hash: "h"}
	cache.Set("h", emb)

	got, ok := cache.Get("h")
	require.True(t, ok)
	got.Vector[0] = 99

	again, ok := cache.Get("h")
	require.True(t, ok)
	assert.Equal(t, float32(1), again.Vector[0])
}

func TestMapCallErrorTaxonomy(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	err := mapCallError(ctx, ctx.Err())
	assert.ErrorIs(t, err, types.ErrEmbeddingTimeout)

	err = mapCallError(context.Background(), assert.AnError)
	assert.ErrorIs(t, err, types.ErrEmbeddingUnavailable)
}

func TestFactoryBlocksExternalWithoutGates(t *testing.T) {
	cfg := config.EmbeddingConfig{Provider: "openai", APIKey: "k", ModelVersion: "v1"}

	_, err := New(cfg, config.PrivacyConfig{})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConfigurationInvalid)

	_, err = New(cfg, config.PrivacyConfig{ExternalProviderEnabled: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConfigurationInvalid)

	_, err = New(cfg, config.PrivacyConfig{
		ExternalProviderEnabled:    true,
		AllowCodePayloadToExternal: true,
	})
	assert.NoError(t, err)
}

func TestFactoryDefaultsToLocal(t *testing.T) {
	emb, err := New(config.EmbeddingConfig{ModelVersion: "v1"}, config.PrivacyConfig{})
	require.NoError(t, err)
	assert.Equal(t, ProviderLocal, emb.Provider())
}
