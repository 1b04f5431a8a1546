// Package config loads the application-level configuration consumed by
// the CLI. File values come from curator.yaml, overridable through
// CURATOR_-prefixed environment variables; per-package env overrides
// (CURATOR_QUEUE_*, CURATOR_QUALITY_*) still apply on top.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// StorageConfig selects the queue database location
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// AIConfig selects the vision backend
type AIConfig struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	MaxTokens int64  `mapstructure:"maxtokens"`
}

// FeedConfig points at the intake feed
type FeedConfig struct {
	BaseURL  string `mapstructure:"baseurl"`
	Platform string `mapstructure:"platform"`
}

// QueueConfig carries the curation thresholds
type QueueConfig struct {
	MinSourceRating      float64 `mapstructure:"minsourcerating"`
	AutoApproveThreshold float64 `mapstructure:"autoapprovethreshold"`
	RejectBelowScore     float64 `mapstructure:"rejectbelowscore"`
	AssumedAIConfidence  float64 `mapstructure:"assumedaiconfidence"`
	PendingLimit         int     `mapstructure:"pendinglimit"`
	ProcessLimit         int     `mapstructure:"processlimit"`
}

// QualityConfig carries the scorer recommendation cutoffs
type QualityConfig struct {
	ApproveThreshold float64 `mapstructure:"approvethreshold"`
	ReviewThreshold  float64 `mapstructure:"reviewthreshold"`
}

// SimilarityConfig carries the duplicate-detection tuning
type SimilarityConfig struct {
	Threshold     float64 `mapstructure:"threshold"`
	MaxCandidates int     `mapstructure:"maxcandidates"`
}

// Config is the full application configuration
type Config struct {
	Storage    StorageConfig    `mapstructure:"storage"`
	AI         AIConfig         `mapstructure:"ai"`
	Feed       FeedConfig       `mapstructure:"feed"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Quality    QualityConfig    `mapstructure:"quality"`
	Similarity SimilarityConfig `mapstructure:"similarity"`
}

// Load reads curator.yaml (searched in the working directory and
// ~/.curator) merged with CURATOR_ environment variables and defaults.
// A missing config file is fine; a malformed one is an error.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("curator")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.curator")

	v.SetEnvPrefix("CURATOR")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.path", ".curator/queue.db")

	v.SetDefault("ai.provider", "anthropic")
	v.SetDefault("ai.model", "")
	v.SetDefault("ai.maxtokens", 2048)

	v.SetDefault("feed.baseurl", "https://civitai.com/api/v1")
	v.SetDefault("feed.platform", "civitai")

	v.SetDefault("queue.minsourcerating", 3.0)
	v.SetDefault("queue.autoapprovethreshold", 4.0)
	v.SetDefault("queue.rejectbelowscore", 2.0)
	v.SetDefault("queue.assumedaiconfidence", 0.8)
	v.SetDefault("queue.pendinglimit", 50)
	v.SetDefault("queue.processlimit", 20)

	v.SetDefault("quality.approvethreshold", 4.0)
	v.SetDefault("quality.reviewthreshold", 2.5)

	v.SetDefault("similarity.threshold", 0.85)
	v.SetDefault("similarity.maxcandidates", 500)
}
