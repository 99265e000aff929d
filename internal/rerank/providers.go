package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	jinaRerankURL   = "https://api.jina.ai/v1/rerank"
	cohereRerankURL = "https://api.cohere.com/v2/rerank"

	defaultJinaRerankModel   = "jina-reranker-v2-base-multilingual"
	defaultCohereRerankModel = "rerank-v3.5"
)

// httpReranker is the shared implementation for HTTP rerank APIs that take
// {model, query, documents, top_n} and return indexed relevance scores.
// Both Jina and Cohere follow this shape.
type httpReranker struct {
	provider   string
	url        string
	model      string
	apiKey     string
	httpClient *http.Client
}

// NewJina creates a Jina-backed reranker. External: callers gate it.
func NewJina(apiKey, baseURL string) (Reranker, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: jina", ErrNoAPIKey)
	}
	if baseURL == "" {
		baseURL = jinaRerankURL
	}
	return &httpReranker{
		provider:   ProviderJina,
		url:        baseURL,
		model:      defaultJinaRerankModel,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// NewCohere creates a Cohere-backed reranker. External: callers gate it.
func NewCohere(apiKey, baseURL string) (Reranker, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: cohere", ErrNoAPIKey)
	}
	if baseURL == "" {
		baseURL = cohereRerankURL
	}
	return &httpReranker{
		provider:   ProviderCohere,
		url:        baseURL,
		model:      defaultCohereRerankModel,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (h *httpReranker) Provider() string { return h.provider }

func (h *httpReranker) Rerank(ctx context.Context, query string, docs []Document, topN int) ([]Result, error) {
	if len(docs) == 0 {
		return []Result{}, nil
	}
	if topN <= 0 || topN > len(docs) {
		topN = len(docs)
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}

	reqBody := map[string]interface{}{
		"model":     h.model,
		"query":     query,
		"documents": texts,
		"top_n":     topN,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.apiKey)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, mapCallError(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, mapCallError(ctx, fmt.Errorf("%s rerank status %d: %s", h.provider, resp.StatusCode, string(respBody)))
	}

	var parsed struct {
		Results []struct {
			Index          int     `json:"index"`
			RelevanceScore float64 `json:"relevance_score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, mapCallError(ctx, fmt.Errorf("decode response: %w", err))
	}

	results := make([]Result, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if r.Index < 0 || r.Index >= len(docs) {
			return nil, mapCallError(ctx, fmt.Errorf("result index %d out of range", r.Index))
		}
		results = append(results, Result{ID: docs[r.Index].ID, Score: r.RelevanceScore})
	}
	if len(results) > topN {
		results = results[:topN]
	}
	return results, nil
}
