// Command curator runs the content curation pipeline: intake from an
// external image feed, AI-backed analysis, and queue management.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/musekit/curator/internal/agerating"
	"github.com/musekit/curator/internal/ai"
	"github.com/musekit/curator/internal/analyzer"
	"github.com/musekit/curator/internal/config"
	"github.com/musekit/curator/internal/feed"
	"github.com/musekit/curator/internal/quality"
	"github.com/musekit/curator/internal/queue"
	"github.com/musekit/curator/internal/similarity"
	"github.com/musekit/curator/internal/storage"
)

var (
	cfg   *config.Config
	store storage.Storage
)

var rootCmd = &cobra.Command{
	Use:   "curator",
	Short: "Content curation pipeline for AI character candidates",
	Long: `Curator ingests candidate images from an external feed, classifies
them for age-appropriateness, scores their quality, filters duplicates,
and maintains the approval queue that feeds character generation.

Configuration is read from curator.yaml (working directory or
~/.curator) and CURATOR_-prefixed environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded

		s, err := storage.NewStorage(cmd.Context(), &storage.Config{Path: cfg.Storage.Path})
		if err != nil {
			return fmt.Errorf("opening queue database %s: %w", cfg.Storage.Path, err)
		}
		store = s
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			_ = store.Close()
		}
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// queueConfig maps the application config onto the queue thresholds
func queueConfig() queue.Config {
	return queue.Config{
		MinSourceRating:      cfg.Queue.MinSourceRating,
		AutoApproveThreshold: cfg.Queue.AutoApproveThreshold,
		RejectBelowScore:     cfg.Queue.RejectBelowScore,
		AssumedAIConfidence:  cfg.Queue.AssumedAIConfidence,
		DefaultPendingLimit:  cfg.Queue.PendingLimit,
		DefaultProcessLimit:  cfg.Queue.ProcessLimit,
	}
}

// buildIntakeQueue wires a queue without vision collaborators. Intake
// and listing commands work without provider credentials.
func buildIntakeQueue() (*queue.CurationQueue, error) {
	scorer, err := quality.NewScorer(quality.Thresholds{
		Approve: cfg.Quality.ApproveThreshold,
		Review:  cfg.Quality.ReviewThreshold,
	})
	if err != nil {
		return nil, err
	}
	return queue.New(queueConfig(), store, nil, agerating.NewClassifier(), scorer)
}

// buildProcessingQueue wires the full pipeline including the vision
// backend
func buildProcessingQueue() (*queue.CurationQueue, error) {
	visionCfg := ai.DefaultConfig()
	visionCfg.Provider = cfg.AI.Provider
	visionCfg.Model = cfg.AI.Model
	if cfg.AI.MaxTokens > 0 {
		visionCfg.MaxTokens = cfg.AI.MaxTokens
	}
	switch visionCfg.Provider {
	case ai.ProviderOpenAI:
		visionCfg.APIKey = os.Getenv("OPENAI_API_KEY")
	default:
		visionCfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	vision, err := ai.NewVision(visionCfg)
	if err != nil {
		return nil, err
	}

	contentAnalyzer, err := analyzer.New(analyzer.Config{
		Classifier: vision,
		Analyzer:   vision,
		Store:      store,
		Similarity: similarity.Config{
			Threshold:     cfg.Similarity.Threshold,
			MaxCandidates: cfg.Similarity.MaxCandidates,
		},
	})
	if err != nil {
		return nil, err
	}

	scorer, err := quality.NewScorer(quality.Thresholds{
		Approve: cfg.Quality.ApproveThreshold,
		Review:  cfg.Quality.ReviewThreshold,
	})
	if err != nil {
		return nil, err
	}

	return queue.New(queueConfig(), store, contentAnalyzer, agerating.NewClassifier(), scorer)
}

// buildFeedClient wires the intake feed client
func buildFeedClient() (*feed.Client, error) {
	feedCfg := feed.DefaultConfig()
	feedCfg.BaseURL = cfg.Feed.BaseURL
	feedCfg.Platform = cfg.Feed.Platform
	feedCfg.APIKey = os.Getenv("CIVITAI_API_KEY")
	return feed.NewClient(feedCfg)
}
