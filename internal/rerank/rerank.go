package rerank

import (
	"context"
	"errors"
	"fmt"

	"github.com/signalridge/codecompass/internal/config"
	"github.com/signalridge/codecompass/pkg/types"
)

// Provider names.
const (
	ProviderLocal  = "local"
	ProviderJina   = "jina"
	ProviderCohere = "cohere"
)

var (
	// ErrNoAPIKey is returned when an external reranker is configured
	// without credentials.
	ErrNoAPIKey = errors.New("rerank api key not set")
)

// Document is one candidate sent to a reranker: the top-N fused results,
// never the full set, to bound payload size and external-call cost.
type Document struct {
	ID            types.SnippetID
	Name          string
	QualifiedName string
	Path          string
	Kind          string
	Content       string
	Score         float64 // pre-rerank fused score
}

// Result is a reranked document with the provider's relevance score.
type Result struct {
	ID    types.SnippetID
	Score float64
}

// Reranker reorders candidate documents against a query.
type Reranker interface {
	// Rerank scores docs against the query and returns them ordered by
	// relevance, at most topN entries. Errors map onto
	// types.ErrRerankUnavailable / types.ErrRerankTimeout; the engine falls
	// back to the fused order on either.
	Rerank(ctx context.Context, query string, docs []Document, topN int) ([]Result, error)

	// Provider returns the provider name for result metadata.
	Provider() string
}

// New builds the configured reranker. External variants require both privacy
// gates; config validation catches that contradiction at startup, and the
// factory re-checks.
func New(cfg config.RerankConfig, privacy config.PrivacyConfig) (Reranker, error) {
	switch cfg.Provider {
	case ProviderLocal, "":
		return NewLocal(), nil
	case ProviderJina:
		if !privacy.ExternalProviderEnabled || !privacy.AllowCodePayloadToExternal {
			return nil, fmt.Errorf("%w: external reranker requires both privacy gates",
				types.ErrConfigurationInvalid)
		}
		return NewJina(cfg.APIKey, cfg.BaseURL)
	case ProviderCohere:
		if !privacy.ExternalProviderEnabled || !privacy.AllowCodePayloadToExternal {
			return nil, fmt.Errorf("%w: external reranker requires both privacy gates",
				types.ErrConfigurationInvalid)
		}
		return NewCohere(cfg.APIKey, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("%w: unknown rerank provider %q", types.ErrConfigurationInvalid, cfg.Provider)
	}
}

// mapCallError translates transport failures into the rerank error taxonomy.
func mapCallError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", types.ErrRerankTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %v", types.ErrRerankUnavailable, err)
}
