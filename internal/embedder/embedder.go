package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/signalridge/codecompass/pkg/types"
)

// Common errors
var (
	ErrEmptyText         = errors.New("text cannot be empty")
	ErrBatchTooLarge     = errors.New("batch size exceeds limit")
	ErrUnsupportedModel  = errors.New("unsupported model")
	ErrNoProviderEnabled = errors.New("no embedding provider configured")
)

// Embedding is a vector tagged with the model identity that produced it.
// Vectors from different ModelVersion values must never be compared for
// similarity; the vector store enforces this at query time.
type Embedding struct {
	Vector       []float32
	Dimension    int
	Provider     string
	ModelID      string
	ModelVersion string
	Hash         string // content hash, used as the cache key
}

// Embedder produces fixed-dimension vectors for query and snippet text.
//
// Implementations return types.ErrEmbeddingUnavailable when the backing
// model/API cannot be reached and types.ErrEmbeddingTimeout when inference
// exceeds the caller's deadline. Both are degradation signals, not failures
// of the surrounding query.
type Embedder interface {
	// Embed generates a single embedding for the given text.
	Embed(ctx context.Context, text string) (*Embedding, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	EmbedBatch(ctx context.Context, texts []string) ([]*Embedding, error)

	// Dimension returns the embedding dimension for this provider.
	Dimension() int

	// Provider returns the provider name.
	Provider() string

	// ModelVersion returns the active model version tag.
	ModelVersion() string

	// Close releases any resources held by the embedder.
	Close() error
}

// Cache provides in-memory LRU caching of embeddings by content hash.
type Cache struct {
	cache *lru.Cache[string, *Embedding]
}

// NewCache creates a new embedding cache with LRU eviction.
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = 10000
	}
	cache, err := lru.New[string, *Embedding](maxLen)
	if err != nil {
		// Should never happen with positive size, but fall back to default.
		cache, _ = lru.New[string, *Embedding](10000)
	}
	return &Cache{cache: cache}
}

// Get retrieves a deep copy of an embedding from cache. Returning a copy
// prevents caller mutations from affecting cached values.
func (c *Cache) Get(hash string) (*Embedding, bool) {
	emb, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}
	cp := *emb
	cp.Vector = make([]float32, len(emb.Vector))
	copy(cp.Vector, emb.Vector)
	return &cp, true
}

// Set stores an embedding in the cache keyed by content hash.
func (c *Cache) Set(hash string, emb *Embedding) {
	if emb == nil {
		return
	}
	cp := *emb
	cp.Vector = make([]float32, len(emb.Vector))
	copy(cp.Vector, emb.Vector)
	c.cache.Add(hash, &cp)
}

// Len returns the number of cached embeddings.
func (c *Cache) Len() int {
	return c.cache.Len()
}

// ComputeHash returns the hex-encoded sha256 of the text, used both as the
// cache key and as the snippet content hash in the versioned identity.
func ComputeHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// validateText rejects empty input before any provider call.
func validateText(text string) error {
	if text == "" {
		return ErrEmptyText
	}
	return nil
}

// mapCallError translates transport-level failures into the engine's error
// taxonomy so callers can distinguish timeout from unavailability.
func mapCallError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", types.ErrEmbeddingTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", types.ErrEmbeddingUnavailable, err)
}
