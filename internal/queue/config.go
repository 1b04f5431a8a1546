package queue

import (
	"fmt"
	"os"
	"strconv"

	"github.com/musekit/curator/internal/analyzer"
)

// Config holds the curation queue's decision thresholds and limits.
// The value is copied at construction and never mutated afterwards.
type Config struct {
	// MinSourceRating filters intake: images carrying a source rating
	// below this never enter the queue.
	// Default: 3.0
	MinSourceRating float64

	// AutoApproveThreshold is the triage score needed for automatic
	// approval consideration.
	// Default: 4.0
	AutoApproveThreshold float64

	// RejectBelowScore is the triage score floor.
	// Default: 2.0
	RejectBelowScore float64

	// AssumedAIConfidence is the confidence attributed to the vision
	// classifier's age rating when validating it against the rules.
	// Default: 0.8
	AssumedAIConfidence float64

	// DefaultPendingLimit bounds GetPendingItems when the caller passes 0.
	// Default: 50
	DefaultPendingLimit int

	// DefaultProcessLimit bounds ProcessPendingItems when the caller
	// passes 0.
	// Default: 20
	DefaultProcessLimit int
}

// DefaultConfig returns the default queue configuration
func DefaultConfig() Config {
	return Config{
		MinSourceRating:      3.0,
		AutoApproveThreshold: 4.0,
		RejectBelowScore:     analyzer.RejectBelowTriageScore,
		AssumedAIConfidence:  0.8,
		DefaultPendingLimit:  50,
		DefaultProcessLimit:  20,
	}
}

// Validate checks if the configuration has valid values
func (c *Config) Validate() error {
	if c.MinSourceRating < 0 || c.MinSourceRating > 5 {
		return fmt.Errorf("min_source_rating must be between 0 and 5 (got %.2f)", c.MinSourceRating)
	}
	if c.AutoApproveThreshold < 0 || c.AutoApproveThreshold > 5 {
		return fmt.Errorf("auto_approve_threshold must be between 0 and 5 (got %.2f)", c.AutoApproveThreshold)
	}
	if c.RejectBelowScore < 0 || c.RejectBelowScore > 5 {
		return fmt.Errorf("reject_below_score must be between 0 and 5 (got %.2f)", c.RejectBelowScore)
	}
	if c.RejectBelowScore > c.AutoApproveThreshold {
		return fmt.Errorf("reject_below_score (%.2f) cannot exceed auto_approve_threshold (%.2f)",
			c.RejectBelowScore, c.AutoApproveThreshold)
	}
	if c.AssumedAIConfidence < 0 || c.AssumedAIConfidence > 1 {
		return fmt.Errorf("assumed_ai_confidence must be between 0 and 1 (got %.2f)", c.AssumedAIConfidence)
	}
	if c.DefaultPendingLimit <= 0 {
		return fmt.Errorf("default_pending_limit must be positive (got %d)", c.DefaultPendingLimit)
	}
	if c.DefaultProcessLimit <= 0 {
		return fmt.Errorf("default_process_limit must be positive (got %d)", c.DefaultProcessLimit)
	}
	return nil
}

// ConfigFromEnv creates a Config from environment variables, falling
// back to defaults.
//
// Environment variables:
//   - CURATOR_QUEUE_MIN_SOURCE_RATING: Intake rating filter (default: 3.0)
//   - CURATOR_QUEUE_AUTO_APPROVE: Auto-approval triage threshold (default: 4.0)
//   - CURATOR_QUEUE_REJECT_BELOW: Triage score floor (default: 2.0)
//   - CURATOR_QUEUE_ASSUMED_CONFIDENCE: Assumed AI rating confidence (default: 0.8)
//   - CURATOR_QUEUE_PENDING_LIMIT: Default pending listing limit (default: 50)
//   - CURATOR_QUEUE_PROCESS_LIMIT: Default processing batch limit (default: 20)
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	floats := map[string]*float64{
		"CURATOR_QUEUE_MIN_SOURCE_RATING":  &cfg.MinSourceRating,
		"CURATOR_QUEUE_AUTO_APPROVE":       &cfg.AutoApproveThreshold,
		"CURATOR_QUEUE_REJECT_BELOW":       &cfg.RejectBelowScore,
		"CURATOR_QUEUE_ASSUMED_CONFIDENCE": &cfg.AssumedAIConfidence,
	}
	for name, dest := range floats {
		if v := os.Getenv(name); v != "" {
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return cfg, fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*dest = parsed
		}
	}

	ints := map[string]*int{
		"CURATOR_QUEUE_PENDING_LIMIT": &cfg.DefaultPendingLimit,
		"CURATOR_QUEUE_PROCESS_LIMIT": &cfg.DefaultProcessLimit,
	}
	for name, dest := range ints {
		if v := os.Getenv(name); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil {
				return cfg, fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*dest = parsed
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid queue config from environment: %w", err)
	}
	return cfg, nil
}
