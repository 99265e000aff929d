package embedder

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Provider names and model defaults.
const (
	ProviderLocal  = "local"
	ProviderOpenAI = "openai"
	ProviderJina   = "jina"

	DefaultLocalModel  = "local-embeddings"
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultJinaModel   = "jina-embeddings-v3"

	LocalDimension  = 384
	OpenAIDimension = 1536
	JinaDimension   = 1024

	MaxBatchSize = 100

	jinaEmbeddingsURL = "https://api.jina.ai/v1/embeddings"
)

// LocalProvider computes deterministic in-process embeddings. It is always
// available and never sends text off the machine, so it is the default and
// the degraded-mode fallback.
type LocalProvider struct {
	model        string
	modelVersion string
	cache        *Cache
}

// NewLocalProvider creates the local in-process embedder.
func NewLocalProvider(modelVersion string, cache *Cache) (*LocalProvider, error) {
	if modelVersion == "" {
		modelVersion = "v1"
	}
	return &LocalProvider{
		model:        DefaultLocalModel,
		modelVersion: modelVersion,
		cache:        cache,
	}, nil
}

func (l *LocalProvider) Embed(ctx context.Context, text string) (*Embedding, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, mapCallError(ctx, err)
	}

	hash := ComputeHash(text)
	if l.cache != nil {
		if emb, ok := l.cache.Get(hash); ok {
			return emb, nil
		}
	}

	emb := &Embedding{
		Vector:       localVector(text),
		Dimension:    LocalDimension,
		Provider:     ProviderLocal,
		ModelID:      l.model,
		ModelVersion: l.modelVersion,
		Hash:         hash,
	}

	if l.cache != nil {
		l.cache.Set(hash, emb)
	}
	return emb, nil
}

func (l *LocalProvider) EmbedBatch(ctx context.Context, texts []string) ([]*Embedding, error) {
	if len(texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}
	embeddings := make([]*Embedding, len(texts))
	for i, text := range texts {
		emb, err := l.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

func (l *LocalProvider) Dimension() int       { return LocalDimension }
func (l *LocalProvider) Provider() string     { return ProviderLocal }
func (l *LocalProvider) ModelVersion() string { return l.modelVersion }
func (l *LocalProvider) Close() error         { return nil }

// localVector folds overlapping byte trigrams of the text into a fixed-size
// bag-of-features vector, L2-normalized so cosine distances are meaningful.
// Deterministic: identical text always yields an identical vector.
func localVector(text string) []float32 {
	vector := make([]float32, LocalDimension)
	data := []byte(text)
	for i := 0; i+3 <= len(data); i++ {
		sum := sha256.Sum256(data[i : i+3])
		idx := (int(sum[0])<<8 | int(sum[1])) % LocalDimension
		vector[idx]++
	}
	if len(data) < 3 {
		sum := sha256.Sum256(data)
		for i := 0; i < LocalDimension && i < len(sum); i++ {
			vector[i] = float32(sum[i]) / 255.0
		}
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1.0 / math.Sqrt(norm))
		for i := range vector {
			vector[i] *= scale
		}
	}
	return vector
}

// OpenAIProvider implements Embedder using the OpenAI embeddings API.
// External: only constructed when both privacy gates are open.
type OpenAIProvider struct {
	client       *openai.Client
	model        string
	modelVersion string
	cache        *Cache
}

// NewOpenAIProvider creates an OpenAI-backed embedder.
func NewOpenAIProvider(apiKey, baseURL, modelVersion string, cache *Cache) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: openai api key not set", ErrNoProviderEnabled)
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client:       openai.NewClientWithConfig(cfg),
		model:        DefaultOpenAIModel,
		modelVersion: modelVersion,
		cache:        cache,
	}, nil
}

func (o *OpenAIProvider) Embed(ctx context.Context, text string) (*Embedding, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}

	hash := ComputeHash(text)
	if o.cache != nil {
		if emb, ok := o.cache.Get(hash); ok {
			return emb, nil
		}
	}

	embs, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embs) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", mapCallError(ctx, fmt.Errorf("empty response")))
	}
	return embs[0], nil
}

func (o *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([]*Embedding, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyText
	}
	if len(texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}

	resp, err := retryWithBackoff(ctx, DefaultRetryConfig(), func() (openai.EmbeddingResponse, error) {
		return o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts,
			Model: openai.EmbeddingModel(o.model),
		})
	})
	if err != nil {
		return nil, mapCallError(ctx, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts",
			mapCallError(ctx, fmt.Errorf("incomplete response")), len(resp.Data), len(texts))
	}

	embeddings := make([]*Embedding, len(texts))
	for i, d := range resp.Data {
		hash := ComputeHash(texts[i])
		emb := &Embedding{
			Vector:       d.Embedding,
			Dimension:    len(d.Embedding),
			Provider:     ProviderOpenAI,
			ModelID:      o.model,
			ModelVersion: o.modelVersion,
			Hash:         hash,
		}
		if o.cache != nil {
			o.cache.Set(hash, emb)
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

func (o *OpenAIProvider) Dimension() int       { return OpenAIDimension }
func (o *OpenAIProvider) Provider() string     { return ProviderOpenAI }
func (o *OpenAIProvider) ModelVersion() string { return o.modelVersion }
func (o *OpenAIProvider) Close() error         { return nil }

// JinaProvider implements Embedder using the Jina AI embeddings API.
// External: only constructed when both privacy gates are open.
type JinaProvider struct {
	apiKey       string
	baseURL      string
	model        string
	modelVersion string
	httpClient   *http.Client
	cache        *Cache
}

// NewJinaProvider creates a Jina-backed embedder.
func NewJinaProvider(apiKey, baseURL, modelVersion string, cache *Cache) (*JinaProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: jina api key not set", ErrNoProviderEnabled)
	}
	if baseURL == "" {
		baseURL = jinaEmbeddingsURL
	}
	return &JinaProvider{
		apiKey:       apiKey,
		baseURL:      baseURL,
		model:        DefaultJinaModel,
		modelVersion: modelVersion,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		cache:        cache,
	}, nil
}

func (j *JinaProvider) Embed(ctx context.Context, text string) (*Embedding, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}

	hash := ComputeHash(text)
	if j.cache != nil {
		if emb, ok := j.cache.Get(hash); ok {
			return emb, nil
		}
	}

	embs, err := j.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embs) == 0 {
		return nil, mapCallError(ctx, fmt.Errorf("no embeddings returned"))
	}
	return embs[0], nil
}

func (j *JinaProvider) EmbedBatch(ctx context.Context, texts []string) ([]*Embedding, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyText
	}
	if len(texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}

	vectors, err := retryWithBackoff(ctx, DefaultRetryConfig(), func() ([][]float32, error) {
		return j.callAPI(ctx, texts)
	})
	if err != nil {
		return nil, mapCallError(ctx, err)
	}

	embeddings := make([]*Embedding, len(texts))
	for i, vec := range vectors {
		hash := ComputeHash(texts[i])
		emb := &Embedding{
			Vector:       vec,
			Dimension:    len(vec),
			Provider:     ProviderJina,
			ModelID:      j.model,
			ModelVersion: j.modelVersion,
			Hash:         hash,
		}
		if j.cache != nil {
			j.cache.Set(hash, emb)
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

func (j *JinaProvider) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := map[string]interface{}{
		"input": texts,
		"model": j.model,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+j.apiKey)

	resp, err := j.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("jina API status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("got %d embeddings for %d texts", len(parsed.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

func (j *JinaProvider) Dimension() int       { return JinaDimension }
func (j *JinaProvider) Provider() string     { return ProviderJina }
func (j *JinaProvider) ModelVersion() string { return j.modelVersion }
func (j *JinaProvider) Close() error {
	j.httpClient.CloseIdleConnections()
	return nil
}
