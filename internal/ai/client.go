// Package ai provides the vision-model backends used by the curation
// pipeline: a safety classifier and a trait analyzer, both backed by a
// hosted multimodal model.
package ai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/musekit/curator/internal/types"
)

// ImageClassifier produces a safety classification for an image URL.
type ImageClassifier interface {
	Classify(ctx context.Context, imageURL string) (*types.SafetyClassification, error)
}

// TraitAnalyzer produces a descriptive trait analysis for an image URL.
type TraitAnalyzer interface {
	Analyze(ctx context.Context, imageURL string) (*types.TraitAnalysis, error)
}

// Vision is the combined surface the pipeline wires against. Both
// backends implement it.
type Vision interface {
	ImageClassifier
	TraitAnalyzer
}

// Provider identifiers accepted in Config.Provider
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

// Default models per provider
const (
	defaultAnthropicModel = "claude-sonnet-4-5"
	defaultOpenAIModel    = "gpt-4o"
)

// Config holds vision-backend configuration
type Config struct {
	Provider  string // "anthropic" or "openai"
	APIKey    string // provider API key
	Model     string // model identifier, empty selects the provider default
	MaxTokens int64  // per-call output cap, 0 selects the default

	Retry RetryConfig
}

// DefaultConfig returns the default vision configuration
func DefaultConfig() Config {
	return Config{
		Provider:  ProviderAnthropic,
		MaxTokens: 2048,
		Retry:     DefaultRetryConfig(),
	}
}

// ConfigFromEnv loads vision configuration from environment variables.
// CURATOR_AI_PROVIDER and CURATOR_AI_MODEL override the defaults; the
// API key comes from ANTHROPIC_API_KEY or OPENAI_API_KEY depending on
// the selected provider.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if provider := os.Getenv("CURATOR_AI_PROVIDER"); provider != "" {
		cfg.Provider = strings.ToLower(strings.TrimSpace(provider))
	}
	if model := os.Getenv("CURATOR_AI_MODEL"); model != "" {
		cfg.Model = model
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	default:
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	return cfg
}

// Validate checks the configuration for usability
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown AI provider: %q", c.Provider)
	}
	if c.APIKey == "" {
		return fmt.Errorf("missing API key for provider %s", c.Provider)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max tokens must be non-negative (got %d)", c.MaxTokens)
	}
	return nil
}

// NewVision constructs the configured backend
func NewVision(cfg Config) (Vision, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAIVision(cfg), nil
	default:
		return NewAnthropicVision(cfg), nil
	}
}
