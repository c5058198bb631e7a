// Package config centralizes every determinism knob and filesystem root the
// core depends on into a single struct, loaded once at process start and
// threaded through construction — no global mutable config, no package-level
// singletons. This mirrors the teacher runtime's practice of building one
// config record from the environment and passing it into every service
// constructor.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// RetrievalTier controls whether the retriever may read bronze when silver
// is absent. See spec §9 "Data-layer ambiguity".
type RetrievalTier string

const (
	TierAuto   RetrievalTier = "auto"
	TierSilver RetrievalTier = "silver"
	TierBronze RetrievalTier = "bronze"
)

// Phase is the two-phase cache protocol switch (spec §4.2).
type Phase string

const (
	PhaseFetch  Phase = "fetch"
	PhaseReplay Phase = "replay"
)

// Config is the single configuration record threaded through every
// component constructor. Values come from environment variables so the
// CLI/launcher (an external collaborator per spec §1) never needs to know
// about internal wiring — it only sets env vars and invokes a subcommand.
type Config struct {
	Seed                  int64  `env:"SEED" envDefault:"42"`
	DeterministicHashSeed int64  `env:"DETERMINISTIC_HASH_SEED" envDefault:"0"`
	DeterministicTimestamp string `env:"DETERMINISTIC_TIMESTAMP" envDefault:"2025-01-01T00:00:00Z"`
	OfflineReplay         bool   `env:"OFFLINE_REPLAY" envDefault:"false"`
	RetrievalTierRaw      string `env:"RETRIEVAL_TIER" envDefault:"auto"`

	DataRoot      string `env:"DATA_ROOT" envDefault:"data"`
	CacheRoot     string `env:"CACHE_ROOT" envDefault:"cache"`
	ArtifactsRoot string `env:"ARTIFACTS_ROOT" envDefault:"artifacts/matrix"`

	EmbeddingProvider string `env:"EMBEDDING_PROVIDER" envDefault:"openai"`
	EmbeddingModelID  string `env:"EMBEDDING_MODEL_ID" envDefault:"ibm/slate-125m-english-rtrvr"`
	EmbeddingAPIBase  string `env:"EMBEDDING_API_BASE"`
	EmbeddingAPIKey   string `env:"EMBEDDING_API_KEY"`

	EditorProvider string `env:"EDITOR_PROVIDER" envDefault:"anthropic"`
	EditorModelID  string `env:"EDITOR_MODEL_ID" envDefault:"claude-sonnet"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`

	RubricVersion string `env:"RUBRIC_VERSION" envDefault:"v3.0"`
	EvidenceMin   int    `env:"EVIDENCE_MIN_PER_STAGE_CLAIM" envDefault:"2"`

	ChunkMinChars int `env:"CHUNK_MIN_CHARS" envDefault:"100"`

	FetchTimeoutSeconds int `env:"FETCH_TIMEOUT_SECONDS" envDefault:"30"`
	FetchRatePerSecond  int `env:"FETCH_RATE_PER_SECOND" envDefault:"5"`
}

// Tier parses RetrievalTierRaw, defaulting to TierAuto for unknown
// values (the loader validates and rejects unknown values before this is
// ever called in a running process).
func (c Config) Tier() RetrievalTier {
	switch strings.ToLower(strings.TrimSpace(c.RetrievalTierRaw)) {
	case string(TierSilver):
		return TierSilver
	case string(TierBronze):
		return TierBronze
	default:
		return TierAuto
	}
}

func (c Config) Phase() Phase {
	if c.OfflineReplay {
		return PhaseReplay
	}
	return PhaseFetch
}

// Load reads Config from the environment and rejects forbidden
// combinations at startup (ConfigError in the error taxonomy).
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces the single documented forbidden combination: replaying
// offline while demanding the bronze tier, which would let an un-consolidated,
// non-deduplicated layer leak into a supposedly reproducible replay.
func (c Config) Validate() error {
	tier := strings.ToLower(strings.TrimSpace(c.RetrievalTierRaw))
	if tier != "" && tier != string(TierAuto) && tier != string(TierSilver) && tier != string(TierBronze) {
		return fmt.Errorf("config: unknown RETRIEVAL_TIER %q", c.RetrievalTierRaw)
	}
	if c.OfflineReplay && tier == string(TierBronze) {
		return fmt.Errorf("config: OFFLINE_REPLAY=true forbids RETRIEVAL_TIER=bronze")
	}
	if c.EvidenceMin < 1 {
		return fmt.Errorf("config: EVIDENCE_MIN_PER_STAGE_CLAIM must be >= 1")
	}
	return nil
}
