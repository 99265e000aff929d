package embedder

import (
	"fmt"
	"strings"

	"github.com/signalridge/codecompass/internal/config"
	"github.com/signalridge/codecompass/pkg/types"
)

// New creates an embedder from configuration. External variants require both
// privacy gates; that contradiction is caught at config validation, but the
// factory re-checks so a hand-built config cannot slip past the gate.
func New(cfg config.EmbeddingConfig, privacy config.PrivacyConfig) (Embedder, error) {
	cache := NewCache(cfg.CacheSize)

	provider := strings.ToLower(cfg.Provider)
	switch provider {
	case ProviderLocal, "":
		return NewLocalProvider(cfg.ModelVersion, cache)
	case ProviderOpenAI:
		if !privacy.ExternalProviderEnabled || !privacy.AllowCodePayloadToExternal {
			return nil, fmt.Errorf("%w: external embedding provider requires both privacy gates",
				types.ErrConfigurationInvalid)
		}
		return NewOpenAIProvider(cfg.APIKey, cfg.BaseURL, cfg.ModelVersion, cache)
	case ProviderJina:
		if !privacy.ExternalProviderEnabled || !privacy.AllowCodePayloadToExternal {
			return nil, fmt.Errorf("%w: external embedding provider requires both privacy gates",
				types.ErrConfigurationInvalid)
		}
		return NewJinaProvider(cfg.APIKey, cfg.BaseURL, cfg.ModelVersion, cache)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}
