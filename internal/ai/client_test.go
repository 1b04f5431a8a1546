package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/musekit/curator/internal/types"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid anthropic", func(c *Config) { c.APIKey = "sk-test" }, false},
		{"valid openai", func(c *Config) { c.Provider = ProviderOpenAI; c.APIKey = "sk-test" }, false},
		{"missing key", func(c *Config) {}, true},
		{"unknown provider", func(c *Config) { c.Provider = "llamacpp"; c.APIKey = "sk-test" }, true},
		{"negative max tokens", func(c *Config) { c.APIKey = "sk-test"; c.MaxTokens = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("CURATOR_AI_PROVIDER", "openai")
	t.Setenv("CURATOR_AI_MODEL", "gpt-5")
	t.Setenv("OPENAI_API_KEY", "sk-openai-test")
	t.Setenv("ANTHROPIC_API_KEY", "sk-anthropic-test")

	cfg := ConfigFromEnv()
	if cfg.Provider != ProviderOpenAI {
		t.Errorf("Expected provider openai, got %s", cfg.Provider)
	}
	if cfg.Model != "gpt-5" {
		t.Errorf("Expected model gpt-5, got %s", cfg.Model)
	}
	if cfg.APIKey != "sk-openai-test" {
		t.Errorf("Expected openai key to be selected, got %s", cfg.APIKey)
	}
}

func TestClassifyResponseNormalization(t *testing.T) {
	response := classifyResponse{
		AgeRating:   " sixteen ",
		ContentTags: []string{"violence", " GORE ", "ZOMBIES", "horror"},
		Description: " battle scene ",
	}

	result := response.toClassification("https://img.example/x.png")
	if result.AgeRating != types.RatingSixteen {
		t.Errorf("Expected SIXTEEN, got %s", result.AgeRating)
	}
	want := []types.ContentTag{types.TagViolence, types.TagGore, types.TagHorror}
	if len(result.ContentTags) != len(want) {
		t.Fatalf("Expected %d tags, got %v", len(want), result.ContentTags)
	}
	for i, tag := range want {
		if result.ContentTags[i] != tag {
			t.Errorf("Tag %d: expected %s, got %s", i, tag, result.ContentTags[i])
		}
	}
	if result.Description != "battle scene" {
		t.Errorf("Expected trimmed description, got %q", result.Description)
	}
}

func TestClassifyResponseKeepsInvalidRating(t *testing.T) {
	// Rating validation happens downstream, where an invented rating
	// triggers the rule-based fallback.
	response := classifyResponse{AgeRating: "PG-13"}
	result := response.toClassification("https://img.example/x.png")
	if result.AgeRating != types.AgeRating("PG-13") {
		t.Errorf("Expected rating preserved verbatim, got %s", result.AgeRating)
	}
	if result.AgeRating.IsValid() {
		t.Error("Expected rating to be invalid")
	}
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker(3, 2, 50*time.Millisecond)

	for i := 0; i < 3; i++ {
		if err := cb.Allow(); err != nil {
			t.Fatalf("Expected closed circuit on attempt %d: %v", i, err)
		}
		cb.RecordFailure()
	}

	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}

	// After the open timeout a probe is allowed (half-open)
	time.Sleep(60 * time.Millisecond)
	if err := cb.Allow(); err != nil {
		t.Errorf("Expected half-open probe allowed, got %v", err)
	}

	// Enough successes close the circuit again
	cb.RecordSuccess()
	cb.RecordSuccess()
	if err := cb.Allow(); err != nil {
		t.Errorf("Expected closed circuit after recovery, got %v", err)
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(1, 1, 10*time.Millisecond)
	cb.RecordFailure()
	time.Sleep(15 * time.Millisecond)

	if err := cb.Allow(); err != nil {
		t.Fatalf("Expected half-open probe allowed, got %v", err)
	}
	cb.RecordFailure()
	if err := cb.Allow(); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected circuit reopened, got %v", err)
	}
}

func TestCallerRetriesTransientErrors(t *testing.T) {
	cfg := DefaultRetryConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 2 * time.Millisecond
	c := newCaller(cfg)

	attempts := 0
	err := c.call(context.Background(), "test", func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("503 service unavailable")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestCallerDoesNotRetryPermanentErrors(t *testing.T) {
	cfg := DefaultRetryConfig()
	cfg.InitialBackoff = time.Millisecond
	c := newCaller(cfg)

	attempts := 0
	err := c.call(context.Background(), "test", func(ctx context.Context) error {
		attempts++
		return errors.New("401 invalid api key")
	})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if attempts != 1 {
		t.Errorf("Expected single attempt for permanent error, got %d", attempts)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{errors.New("429 too many requests"), true},
		{errors.New("overloaded_error: Overloaded"), true},
		{errors.New("context deadline exceeded"), true},
		{errors.New("502 bad gateway"), true},
		{errors.New("401 unauthorized"), false},
		{errors.New("invalid request body"), false},
		{nil, false},
	}

	for _, tt := range tests {
		if got := isRetryable(tt.err); got != tt.want {
			t.Errorf("isRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
