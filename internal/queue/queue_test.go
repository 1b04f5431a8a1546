package queue

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musekit/curator/internal/agerating"
	"github.com/musekit/curator/internal/analyzer"
	"github.com/musekit/curator/internal/quality"
	"github.com/musekit/curator/internal/similarity"
	"github.com/musekit/curator/internal/storage"
	"github.com/musekit/curator/internal/storage/sqlite"
	"github.com/musekit/curator/internal/types"
)

type fakeClassifier struct {
	perURL   map[string]*types.SafetyClassification
	errFor   map[string]error
	fallback *types.SafetyClassification
}

func (f *fakeClassifier) Classify(ctx context.Context, imageURL string) (*types.SafetyClassification, error) {
	if err, ok := f.errFor[imageURL]; ok {
		return nil, err
	}
	if c, ok := f.perURL[imageURL]; ok {
		return c, nil
	}
	if f.fallback != nil {
		return f.fallback, nil
	}
	return &types.SafetyClassification{AgeRating: types.RatingL}, nil
}

type fakeTraitAnalyzer struct {
	perURL   map[string]*types.TraitAnalysis
	errFor   map[string]error
	fallback *types.TraitAnalysis
}

func (f *fakeTraitAnalyzer) Analyze(ctx context.Context, imageURL string) (*types.TraitAnalysis, error) {
	if err, ok := f.errFor[imageURL]; ok {
		return nil, err
	}
	if t, ok := f.perURL[imageURL]; ok {
		return t, nil
	}
	if f.fallback != nil {
		return f.fallback, nil
	}
	return &types.TraitAnalysis{}, nil
}

// approvableTraits scores 4.6 under the default thresholds
func approvableTraits() *types.TraitAnalysis {
	return &types.TraitAnalysis{
		PhysicalCharacteristics: types.PhysicalCharacteristics{
			HairColor:   "silver",
			EyeColor:    "violet",
			SkinTone:    "pale",
			BodyType:    "slender",
			Height:      "tall",
			ApparentAge: "mid twenties",
			Build:       "athletic",
			Face:        "sharp features",
		},
		VisualStyle: types.VisualStyle{
			ArtStyle:     "anime",
			Mood:         "serene",
			ColorPalette: "pastel",
		},
		Clothing: types.Clothing{
			Outfit:      "ornate robe",
			Style:       "fantasy",
			Accessories: []string{"staff"},
		},
		SuggestedTraits: types.SuggestedTraits{
			Personality:         []string{"kind", "patient"},
			Occupation:          "mage",
			Archetype:           "mentor",
			Species:             "elf",
			Gender:              "female",
			DistinctiveFeatures: []string{"glowing tattoos"},
		},
		OverallDescription: "A tall silver-haired elven mage in an ornate robe, rendered in a serene pastel anime style with glowing arcane tattoos along her arms.",
	}
}

func newTestQueue(t *testing.T, classifier *fakeClassifier, traitAnalyzer *fakeTraitAnalyzer) (*CurationQueue, storage.Storage) {
	t.Helper()
	return newTestQueueWithConfig(t, DefaultConfig(), classifier, traitAnalyzer)
}

func newTestQueueWithConfig(t *testing.T, cfg Config, classifier *fakeClassifier, traitAnalyzer *fakeTraitAnalyzer) (*CurationQueue, storage.Storage) {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	contentAnalyzer, err := analyzer.New(analyzer.Config{
		Classifier: classifier,
		Analyzer:   traitAnalyzer,
		Store:      store,
		Similarity: similarity.DefaultConfig(),
	})
	require.NoError(t, err)

	scorer, err := quality.NewScorer(quality.DefaultThresholds())
	require.NoError(t, err)

	q, err := New(cfg, store, contentAnalyzer, agerating.NewClassifier(), scorer)
	require.NoError(t, err)
	return q, store
}

func ratingPtr(v float64) *float64 { return &v }

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"negative rating filter", func(c *Config) { c.MinSourceRating = -1 }, true},
		{"floor above approve", func(c *Config) { c.RejectBelowScore = 4.5 }, true},
		{"bad confidence", func(c *Config) { c.AssumedAIConfidence = 1.5 }, true},
		{"zero pending limit", func(c *Config) { c.DefaultPendingLimit = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("CURATOR_QUEUE_MIN_SOURCE_RATING", "2.5")
	t.Setenv("CURATOR_QUEUE_PROCESS_LIMIT", "5")

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.InDelta(t, 2.5, cfg.MinSourceRating, 0.001)
	assert.Equal(t, 5, cfg.DefaultProcessLimit)
	assert.InDelta(t, 4.0, cfg.AutoApproveThreshold, 0.001, "untouched values keep defaults")

	t.Setenv("CURATOR_QUEUE_REJECT_BELOW", "not-a-number")
	_, err = ConfigFromEnv()
	assert.Error(t, err)
}

func TestAddToQueueFiltersLowRated(t *testing.T) {
	q, store := newTestQueue(t, &fakeClassifier{}, &fakeTraitAnalyzer{})
	ctx := context.Background()

	item, err := q.AddToQueue(ctx, types.ExternalImage{
		URL:    "https://img.example/low.png",
		Rating: ratingPtr(2.5),
	})
	require.NoError(t, err)
	assert.Nil(t, item, "filtered images return nil without error")

	stats, err := store.GetStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
}

func TestAddToQueueUnratedAdmitted(t *testing.T) {
	q, _ := newTestQueue(t, &fakeClassifier{}, &fakeTraitAnalyzer{})

	item, err := q.AddToQueue(context.Background(), types.ExternalImage{
		URL: "https://img.example/unrated.png",
	})
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, types.StatusPending, item.Status)
}

func TestAddToQueueIdempotent(t *testing.T) {
	q, store := newTestQueue(t, &fakeClassifier{}, &fakeTraitAnalyzer{})
	ctx := context.Background()

	img := types.ExternalImage{
		URL:    "https://img.example/once.png",
		Rating: ratingPtr(4.5),
		Author: "artist",
	}
	first, err := q.AddToQueue(ctx, img)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := q.AddToQueue(ctx, img)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID, "re-submission returns the existing record")

	stats, err := store.GetStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
}

func TestAddBatch(t *testing.T) {
	q, _ := newTestQueue(t, &fakeClassifier{}, &fakeTraitAnalyzer{})

	added, err := q.AddBatch(context.Background(), []types.ExternalImage{
		{URL: "https://img.example/b1.png", Rating: ratingPtr(4.0)},
		{URL: "https://img.example/b2.png", Rating: ratingPtr(1.0)}, // filtered
		{URL: ""}, // invalid, logged and skipped
		{URL: "https://img.example/b3.png"},
	})
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.Equal(t, "https://img.example/b1.png", added[0].SourceURL)
	assert.Equal(t, "https://img.example/b3.png", added[1].SourceURL)
}

func TestGetPendingItemsOldestFirst(t *testing.T) {
	q, _ := newTestQueue(t, &fakeClassifier{}, &fakeTraitAnalyzer{})
	ctx := context.Background()

	urls := []string{
		"https://img.example/p1.png",
		"https://img.example/p2.png",
		"https://img.example/p3.png",
	}
	for _, url := range urls {
		_, err := q.AddToQueue(ctx, types.ExternalImage{URL: url})
		require.NoError(t, err)
	}

	items, err := q.GetPendingItems(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, urls[0], items[0].SourceURL)

	limited, err := q.GetPendingItems(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestProcessApprovesHighQualityItem(t *testing.T) {
	url := "https://img.example/great.png"
	classifier := &fakeClassifier{fallback: &types.SafetyClassification{
		AgeRating:   types.RatingTwelve,
		ContentTags: []types.ContentTag{types.TagHorror},
	}}
	q, store := newTestQueue(t, classifier, &fakeTraitAnalyzer{fallback: approvableTraits()})
	ctx := context.Background()

	_, err := q.AddToQueue(ctx, types.ExternalImage{URL: url, Rating: ratingPtr(4.8)})
	require.NoError(t, err)

	result, err := q.ProcessPendingItems(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, &ProcessResult{Processed: 1, Approved: 1}, result)

	item, err := store.GetItemBySourceURL(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, types.StatusApproved, item.Status)
	assert.Equal(t, types.RatingTwelve, item.AgeRating)
	require.NotNil(t, item.QualityScore)
	assert.InDelta(t, 4.6, *item.QualityScore, 0.001)
	assert.Equal(t, []types.ContentTag{types.TagHorror}, item.ContentTags)
	assert.Equal(t, "female", item.Gender)
	assert.Equal(t, "elf", item.Species)
	assert.NotEmpty(t, item.Description)
	assert.NotNil(t, item.ProcessedAt)
	assert.Nil(t, item.RejectedAt)
}

func TestProcessRejectsExplicitContent(t *testing.T) {
	url := "https://img.example/explicit.png"
	classifier := &fakeClassifier{fallback: &types.SafetyClassification{
		AgeRating:   types.RatingEighteen,
		ContentTags: []types.ContentTag{types.TagNudity, types.TagSexual},
	}}
	traits := approvableTraits()
	traits.OverallDescription = "High production values but the scene depicts Hardcore Pornography in full."
	q, store := newTestQueue(t, classifier, &fakeTraitAnalyzer{fallback: traits})
	ctx := context.Background()

	_, err := q.AddToQueue(ctx, types.ExternalImage{URL: url, Rating: ratingPtr(5.0)})
	require.NoError(t, err)

	result, err := q.ProcessPendingItems(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, &ProcessResult{Processed: 1, Rejected: 1}, result)

	item, err := store.GetItemBySourceURL(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, types.StatusRejected, item.Status)
	assert.Equal(t, "did not meet quality standards", item.RejectionReason)
	assert.NotNil(t, item.RejectedAt)
	assert.Equal(t, types.RatingEighteen, item.AgeRating)
}

func TestProcessRejectsDuplicate(t *testing.T) {
	classifier := &fakeClassifier{fallback: &types.SafetyClassification{
		AgeRating:   types.RatingFourteen,
		ContentTags: []types.ContentTag{types.TagHorror},
	}}
	q, store := newTestQueue(t, classifier, &fakeTraitAnalyzer{fallback: approvableTraits()})
	ctx := context.Background()

	// Seed an approved item for the same CDN asset at a different rendition
	approved := &types.QueueItem{
		SourceURL: "https://cdn.example/images/1234.png?width=450",
	}
	require.NoError(t, store.CreateItem(ctx, approved, "test"))
	require.NoError(t, store.UpdateItem(ctx, approved.ID, map[string]interface{}{
		"status":       types.StatusApproved,
		"content_tags": []types.ContentTag{types.TagHorror},
		"species":      "elf",
		"gender":       "female",
	}, "test"))

	_, err := q.AddToQueue(ctx, types.ExternalImage{
		URL: "https://cdn.example/images/1234.png?width=1024",
	})
	require.NoError(t, err)

	result, err := q.ProcessPendingItems(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, &ProcessResult{Processed: 1, Rejected: 1}, result)

	item, err := store.GetItemBySourceURL(ctx, "https://cdn.example/images/1234.png?width=1024")
	require.NoError(t, err)
	assert.Equal(t, types.StatusRejected, item.Status)
	assert.Equal(t, "duplicate image detected", item.RejectionReason)
}

func TestProcessRejectsScorerRejectBand(t *testing.T) {
	// Empty traits pass the triage gate (score 3.0) but the scorer lands
	// below the review threshold.
	url := "https://img.example/thin.png"
	q, store := newTestQueue(t, &fakeClassifier{}, &fakeTraitAnalyzer{})
	ctx := context.Background()

	_, err := q.AddToQueue(ctx, types.ExternalImage{URL: url})
	require.NoError(t, err)

	result, err := q.ProcessPendingItems(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, &ProcessResult{Processed: 1, Rejected: 1}, result)

	item, err := store.GetItemBySourceURL(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, types.StatusRejected, item.Status)
	assert.Contains(t, item.RejectionReason, "acceptable quality image")
	assert.Equal(t, "unknown", item.Gender)
	assert.Equal(t, "unknown", item.Species)
}

func TestProcessRejectsBelowConfiguredFloor(t *testing.T) {
	// Triage score 4.0 clears the default floor but not a raised one.
	url := "https://img.example/floor.png"
	traits := &types.TraitAnalysis{
		VisualStyle:        types.VisualStyle{ArtStyle: "digital painting"},
		OverallDescription: "A moody digital painting of a lone traveler crossing a rain-soaked market square at dusk.",
	}

	cfg := DefaultConfig()
	cfg.RejectBelowScore = 4.5
	cfg.AutoApproveThreshold = 4.5
	q, store := newTestQueueWithConfig(t, cfg, &fakeClassifier{}, &fakeTraitAnalyzer{fallback: traits})
	ctx := context.Background()

	_, err := q.AddToQueue(ctx, types.ExternalImage{URL: url})
	require.NoError(t, err)

	result, err := q.ProcessPendingItems(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, &ProcessResult{Processed: 1, Rejected: 1}, result)

	item, err := store.GetItemBySourceURL(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, types.StatusRejected, item.Status)
	assert.Equal(t, "did not meet quality standards", item.RejectionReason)
}

func TestProcessApprovesReviewBand(t *testing.T) {
	// Mid-quality traits land in the review band, which collapses into
	// approval.
	url := "https://img.example/mid.png"
	traits := &types.TraitAnalysis{
		VisualStyle:        types.VisualStyle{ArtStyle: "digital painting"},
		OverallDescription: "A moody digital painting of a lone traveler crossing a rain-soaked market square at dusk.",
	}
	q, store := newTestQueue(t, &fakeClassifier{}, &fakeTraitAnalyzer{fallback: traits})
	ctx := context.Background()

	_, err := q.AddToQueue(ctx, types.ExternalImage{URL: url})
	require.NoError(t, err)

	result, err := q.ProcessPendingItems(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, &ProcessResult{Processed: 1, Approved: 1}, result)

	item, err := store.GetItemBySourceURL(ctx, url)
	require.NoError(t, err)
	assert.Equal(t, types.StatusApproved, item.Status)
}

func TestProcessBatchWithFailure(t *testing.T) {
	bad := "https://img.example/d2.png"
	classifier := &fakeClassifier{
		fallback: &types.SafetyClassification{AgeRating: types.RatingL},
		errFor:   map[string]error{bad: errors.New("model returned 500")},
	}
	q, store := newTestQueue(t, classifier, &fakeTraitAnalyzer{fallback: approvableTraits()})
	ctx := context.Background()

	for _, url := range []string{"https://img.example/d1.png", bad, "https://img.example/d3.png"} {
		_, err := q.AddToQueue(ctx, types.ExternalImage{URL: url})
		require.NoError(t, err)
	}

	result, err := q.ProcessPendingItems(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 2, result.Approved)
	assert.Equal(t, 1, result.Errors)

	item, err := store.GetItemBySourceURL(ctx, bad)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, item.Status)
	assert.Contains(t, item.RejectionReason, "model returned 500")
}

func TestIntakeOnlyQueue(t *testing.T) {
	store, err := sqlite.New(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	scorer, err := quality.NewScorer(quality.DefaultThresholds())
	require.NoError(t, err)

	q, err := New(DefaultConfig(), store, nil, agerating.NewClassifier(), scorer)
	require.NoError(t, err, "intake-only queue needs no analyzer")

	item, err := q.AddToQueue(context.Background(), types.ExternalImage{
		URL: "https://img.example/intake.png",
	})
	require.NoError(t, err)
	require.NotNil(t, item)

	_, err = q.AnalyzeAndClassify(context.Background(), item.ID)
	assert.ErrorContains(t, err, "not configured")
}

func TestAnalyzeAndClassifyMissingItem(t *testing.T) {
	q, _ := newTestQueue(t, &fakeClassifier{}, &fakeTraitAnalyzer{})

	_, err := q.AnalyzeAndClassify(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetApprovedItems(t *testing.T) {
	classifier := &fakeClassifier{fallback: &types.SafetyClassification{AgeRating: types.RatingL}}
	q, store := newTestQueue(t, classifier, &fakeTraitAnalyzer{fallback: approvableTraits()})
	ctx := context.Background()

	_, err := q.AddToQueue(ctx, types.ExternalImage{URL: "https://img.example/appr.png"})
	require.NoError(t, err)
	_, err = q.ProcessPendingItems(ctx, 0)
	require.NoError(t, err)

	items, err := q.GetApprovedItems(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)

	// Conversion removes the item from the generation backlog
	require.NoError(t, store.UpdateItem(ctx, items[0].ID,
		map[string]interface{}{"generated_char_id": "char-7"}, "test"))
	items, err = q.GetApprovedItems(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGetStatsAdditivity(t *testing.T) {
	bad := "https://img.example/s-bad.png"
	classifier := &fakeClassifier{
		fallback: &types.SafetyClassification{AgeRating: types.RatingL},
		errFor:   map[string]error{bad: errors.New("boom")},
	}
	q, _ := newTestQueue(t, classifier, &fakeTraitAnalyzer{fallback: approvableTraits()})
	ctx := context.Background()

	for _, url := range []string{"https://img.example/s1.png", bad, "https://img.example/s2.png"} {
		_, err := q.AddToQueue(ctx, types.ExternalImage{URL: url})
		require.NoError(t, err)
	}
	_, err := q.ProcessPendingItems(ctx, 2)
	require.NoError(t, err)

	stats, err := q.GetStats(ctx)
	require.NoError(t, err)
	assert.NoError(t, stats.Validate(), "per-status counts must sum to the total")
	assert.Equal(t, 3, stats.Total)
}
