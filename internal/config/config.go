package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalridge/codecompass/pkg/types"
)

// Config holds the full process configuration loaded at startup.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Rerank    RerankConfig    `yaml:"rerank"`
	Privacy   PrivacyConfig   `yaml:"privacy"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// PrivacyConfig is the dual gate guarding every external provider call that
// could carry code off the machine. Both flags default to false; external
// embedding and rerank variants require both to be true.
type PrivacyConfig struct {
	ExternalProviderEnabled    bool `yaml:"external_provider_enabled"`
	AllowCodePayloadToExternal bool `yaml:"allow_code_payload_to_external"`
}

// StorageConfig holds database settings.
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider     string        `yaml:"provider"` // local, openai, jina
	Model        string        `yaml:"model"`
	ModelVersion string        `yaml:"model_version"`
	APIKey       string        `yaml:"api_key"`
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	CacheSize    int           `yaml:"cache_size"`
}

// RetrievalConfig holds trigger-policy, fusion, and confidence knobs.
type RetrievalConfig struct {
	// SemanticRatio caps the semantic channel weight in fusion. 0 disables
	// the semantic branch entirely.
	SemanticRatio float64 `yaml:"semantic_ratio"`

	// Lexical short-circuit: skip the semantic branch when the top lexical
	// score and the top1-top2 margin both clear these floors.
	ShortCircuitScore  float64 `yaml:"lexical_short_circuit_score"`
	ShortCircuitMargin float64 `yaml:"lexical_short_circuit_margin"`

	RRFK  float64 `yaml:"rrf_k"`
	Limit int     `yaml:"limit"`

	// Confidence classifier floors and the perturbation tolerance band.
	ConfidenceScoreFloor  float64 `yaml:"confidence_score_floor"`
	ConfidenceMarginFloor float64 `yaml:"confidence_margin_floor"`
	ConfidenceTolerance   float64 `yaml:"confidence_tolerance"`
}

// RerankConfig holds rerank stage settings.
type RerankConfig struct {
	Provider string `yaml:"provider"` // local, jina, cohere
	TopN     int    `yaml:"top_n"`

	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when no file is supplied. The
// retrieval floors are starting points, not tuned values; operators are
// expected to validate them against their own query sets.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{DBPath: "~/.codecompass/index.db"},
		Embedding: EmbeddingConfig{
			Provider:     "local",
			Model:        "local-embeddings",
			ModelVersion: "v1",
			Timeout:      10 * time.Second,
			CacheSize:    10000,
		},
		Retrieval: RetrievalConfig{
			SemanticRatio:         0.6,
			ShortCircuitScore:     12.0,
			ShortCircuitMargin:    4.0,
			RRFK:                  60,
			Limit:                 10,
			ConfidenceScoreFloor:  0.016, // just under 1/(k+1) with k=60, so a lone rank-1 hit passes
			ConfidenceMarginFloor: 0.0005,
			ConfidenceTolerance:   0.0001,
		},
		Rerank: RerankConfig{
			Provider: "local",
			TopN:     10,
			Timeout:  5 * time.Second,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads configuration from a YAML file, filling unset fields from
// defaults, then validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", types.ErrConfigurationInvalid, path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets API keys come from the environment so they never
// need to live in the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CODECOMPASS_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("CODECOMPASS_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("CODECOMPASS_EMBEDDING_API_KEY")
	}
	if cfg.Rerank.APIKey == "" {
		cfg.Rerank.APIKey = os.Getenv("CODECOMPASS_RERANK_API_KEY")
	}
}

// Validate reports contradictory or out-of-range settings. Called once at
// startup; per-query code only ever sees a snapshot that already passed.
func (c *Config) Validate() error {
	r := c.Retrieval
	if r.SemanticRatio < 0 || r.SemanticRatio > 1 {
		return fmt.Errorf("%w: semantic_ratio %v outside [0,1]", types.ErrConfigurationInvalid, r.SemanticRatio)
	}
	if r.RRFK <= 0 {
		return fmt.Errorf("%w: rrf_k must be positive, got %v", types.ErrConfigurationInvalid, r.RRFK)
	}
	if r.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive, got %d", types.ErrConfigurationInvalid, r.Limit)
	}
	if r.ConfidenceTolerance < 0 {
		return fmt.Errorf("%w: confidence_tolerance must be >= 0", types.ErrConfigurationInvalid)
	}
	if c.Rerank.TopN <= 0 {
		return fmt.Errorf("%w: rerank top_n must be positive, got %d", types.ErrConfigurationInvalid, c.Rerank.TopN)
	}
	switch c.Rerank.Provider {
	case "local", "jina", "cohere":
	default:
		return fmt.Errorf("%w: unknown rerank provider %q", types.ErrConfigurationInvalid, c.Rerank.Provider)
	}
	switch c.Embedding.Provider {
	case "local", "openai", "jina":
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", types.ErrConfigurationInvalid, c.Embedding.Provider)
	}
	if c.Rerank.Provider != "local" && !c.Privacy.bothGatesOpen() {
		return fmt.Errorf("%w: rerank provider %q selected without both privacy gates",
			types.ErrConfigurationInvalid, c.Rerank.Provider)
	}
	if c.Embedding.Provider != "local" && !c.Privacy.bothGatesOpen() {
		return fmt.Errorf("%w: embedding provider %q selected without both privacy gates",
			types.ErrConfigurationInvalid, c.Embedding.Provider)
	}
	if c.Embedding.ModelVersion == "" {
		return fmt.Errorf("%w: embedding model_version must be set", types.ErrConfigurationInvalid)
	}
	return nil
}

func (p PrivacyConfig) bothGatesOpen() bool {
	return p.ExternalProviderEnabled && p.AllowCodePayloadToExternal
}

// Snapshot is the immutable per-query view of every knob the engine reads.
// It is captured once at query start so concurrent queries never observe a
// mid-flight configuration change.
type Snapshot struct {
	SemanticRatio      float64
	ShortCircuitScore  float64
	ShortCircuitMargin float64
	RRFK               float64
	Limit              int

	ConfidenceScoreFloor  float64
	ConfidenceMarginFloor float64
	ConfidenceTolerance   float64

	RerankProvider             string
	RerankTopN                 int
	ExternalProviderEnabled    bool
	AllowCodePayloadToExternal bool
	RerankTimeout              time.Duration

	EmbeddingTimeout  time.Duration
	EmbeddingModelVer string
}

// Snapshot captures the current configuration as an immutable value.
func (c *Config) Snapshot() Snapshot {
	return Snapshot{
		SemanticRatio:         c.Retrieval.SemanticRatio,
		ShortCircuitScore:     c.Retrieval.ShortCircuitScore,
		ShortCircuitMargin:    c.Retrieval.ShortCircuitMargin,
		RRFK:                  c.Retrieval.RRFK,
		Limit:                 c.Retrieval.Limit,
		ConfidenceScoreFloor:  c.Retrieval.ConfidenceScoreFloor,
		ConfidenceMarginFloor: c.Retrieval.ConfidenceMarginFloor,
		ConfidenceTolerance:   c.Retrieval.ConfidenceTolerance,

		RerankProvider:             c.Rerank.Provider,
		RerankTopN:                 c.Rerank.TopN,
		ExternalProviderEnabled:    c.Privacy.ExternalProviderEnabled,
		AllowCodePayloadToExternal: c.Privacy.AllowCodePayloadToExternal,
		RerankTimeout:              c.Rerank.Timeout,

		EmbeddingTimeout:  c.Embedding.Timeout,
		EmbeddingModelVer: c.Embedding.ModelVersion,
	}
}
