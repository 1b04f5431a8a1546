package similarity

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds configuration for the similarity engine
type Config struct {
	// Threshold is the minimum similarity (0.0-1.0) to mark as duplicate.
	// Higher values = more conservative (fewer false positives).
	// Default: 0.85
	Threshold float64

	// MaxCandidates bounds how many persisted corpus signatures a caller
	// should load into the engine per check. The engine itself accepts any
	// number; this limit exists for callers that rebuild the store from the
	// record store on every run.
	// Default: 500
	MaxCandidates int
}

// DefaultConfig returns the default similarity configuration
func DefaultConfig() Config {
	return Config{
		Threshold:     0.85,
		MaxCandidates: 500,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.Threshold < 0.0 || c.Threshold > 1.0 {
		return fmt.Errorf("threshold must be between 0.0 and 1.0 (got %.2f)", c.Threshold)
	}
	if c.MaxCandidates <= 0 {
		return fmt.Errorf("max_candidates must be positive (got %d)", c.MaxCandidates)
	}
	if c.MaxCandidates > 10000 {
		return fmt.Errorf("max_candidates too large (got %d, max 10000)", c.MaxCandidates)
	}
	return nil
}

// ConfigFromEnv creates a Config from environment variables, falling back
// to defaults.
//
// Environment variables:
//   - CURATOR_DUP_THRESHOLD: Minimum similarity (0.0-1.0) to mark as duplicate (default: 0.85)
//   - CURATOR_DUP_MAX_CANDIDATES: Maximum corpus signatures loaded per check (default: 500)
//
// Returns an error if any environment variable has an invalid value.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("CURATOR_DUP_THRESHOLD"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid value for CURATOR_DUP_THRESHOLD: %w", err)
		}
		cfg.Threshold = parsed
	}
	if v := os.Getenv("CURATOR_DUP_MAX_CANDIDATES"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid value for CURATOR_DUP_MAX_CANDIDATES: %w", err)
		}
		cfg.MaxCandidates = parsed
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration from environment: %w", err)
	}
	return cfg, nil
}
