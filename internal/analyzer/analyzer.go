// Package analyzer orchestrates the vision collaborators into one
// analysis pass per image: safety classification, trait analysis, a
// fast triage score, and a duplicate check against the accepted corpus.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/musekit/curator/internal/ai"
	"github.com/musekit/curator/internal/quality"
	"github.com/musekit/curator/internal/similarity"
	"github.com/musekit/curator/internal/storage"
	"github.com/musekit/curator/internal/types"
)

// RejectBelowTriageScore is the default triage score floor. Callers
// pass their configured floor to ShouldReject; this is the value used
// when nothing overrides it.
const RejectBelowTriageScore = 2.0

// nsfwTags mark an analysis as not safe for work
var nsfwTags = []types.ContentTag{types.TagNudity, types.TagSexual, types.TagGore}

// explicitKeywords in the overall description force rejection regardless
// of score, matched as case-insensitive substrings
var explicitKeywords = []string{
	"sexual intercourse",
	"genitalia",
	"explicit sexual act",
	"hardcore pornography",
}

// Config wires the analyzer's collaborators. Classifier and Analyzer
// are required; Store is required only when duplicate checks load the
// corpus themselves.
type Config struct {
	Classifier ai.ImageClassifier
	Analyzer   ai.TraitAnalyzer
	Store      storage.Storage
	Similarity similarity.Config
}

// Options controls a single analysis pass
type Options struct {
	// CheckDuplicates enables the similarity comparison.
	CheckDuplicates bool

	// ExistingSignatures, when non-nil, is used as the comparison corpus
	// instead of loading accepted items from the store.
	ExistingSignatures []similarity.Signature
}

// ContentAnalyzer runs the full per-image analysis
type ContentAnalyzer struct {
	classifier ai.ImageClassifier
	analyzer   ai.TraitAnalyzer
	store      storage.Storage
	simCfg     similarity.Config
}

// New creates a content analyzer from injected collaborators
func New(cfg Config) (*ContentAnalyzer, error) {
	if cfg.Classifier == nil {
		return nil, fmt.Errorf("image classifier is required")
	}
	if cfg.Analyzer == nil {
		return nil, fmt.Errorf("trait analyzer is required")
	}
	if err := cfg.Similarity.Validate(); err != nil {
		return nil, fmt.Errorf("invalid similarity config: %w", err)
	}
	return &ContentAnalyzer{
		classifier: cfg.Classifier,
		analyzer:   cfg.Analyzer,
		store:      cfg.Store,
		simCfg:     cfg.Similarity,
	}, nil
}

// AnalyzeImage runs classification and trait analysis concurrently,
// derives the triage fields, and optionally checks for duplicates.
// A failure in either collaborator fails the whole analysis.
func (a *ContentAnalyzer) AnalyzeImage(ctx context.Context, imageURL string, opts Options) (*types.AnalysisResult, error) {
	if imageURL == "" {
		return nil, fmt.Errorf("image URL is required")
	}

	var classification *types.SafetyClassification
	var traits *types.TraitAnalysis

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := a.classifier.Classify(gctx, imageURL)
		if err != nil {
			return fmt.Errorf("safety classification: %w", err)
		}
		classification = c
		return nil
	})
	g.Go(func() error {
		t, err := a.analyzer.Analyze(gctx, imageURL)
		if err != nil {
			return fmt.Errorf("trait analysis: %w", err)
		}
		traits = t
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &types.AnalysisResult{
		Classification: classification,
		Traits:         traits,
		QualityScore:   triageScore(classification, traits),
		IsNSFW:         isNSFW(classification),
		AnalyzedAt:     time.Now(),
	}

	if opts.CheckDuplicates {
		dup, err := a.checkDuplicate(ctx, imageURL, classification, traits, opts.ExistingSignatures)
		if err != nil {
			return nil, err
		}
		result.IsDuplicate = dup.IsDuplicate
		result.DuplicateOf = dup.MatchID
		result.Similarity = dup.Similarity
	}

	return result, nil
}

// AnalyzeBatch analyzes each URL sequentially. Failures are logged and
// skipped; the returned map holds only the successful analyses.
func (a *ContentAnalyzer) AnalyzeBatch(ctx context.Context, imageURLs []string, opts Options) (map[string]*types.AnalysisResult, error) {
	results := make(map[string]*types.AnalysisResult, len(imageURLs))
	for _, url := range imageURLs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result, err := a.AnalyzeImage(ctx, url, opts)
		if err != nil {
			slog.Warn("Skipping failed image analysis",
				"image_url", url,
				"error", err)
			continue
		}
		results[url] = result
	}
	return results, nil
}

// ShouldAutoApprove reports whether a result clears the auto-approval
// bar: triage score at or above the threshold, not a duplicate, and no
// explicit content.
func (a *ContentAnalyzer) ShouldAutoApprove(result *types.AnalysisResult, threshold float64) bool {
	if result == nil {
		return false
	}
	return result.QualityScore >= threshold &&
		!result.IsDuplicate &&
		!HasExplicitContent(result)
}

// ShouldReject reports whether a result must be rejected: duplicate,
// triage score below the floor, analyzer failure boilerplate, or
// explicit content.
func (a *ContentAnalyzer) ShouldReject(result *types.AnalysisResult, floor float64) bool {
	if result == nil {
		return true
	}
	if result.IsDuplicate {
		return true
	}
	if result.QualityScore < floor {
		return true
	}
	if result.Traits != nil && quality.HasFailureMarker(result.Traits.OverallDescription) {
		return true
	}
	return HasExplicitContent(result)
}

// HasExplicitContent reports whether the overall description contains
// an explicit-content keyword
func HasExplicitContent(result *types.AnalysisResult) bool {
	if result == nil || result.Traits == nil {
		return false
	}
	desc := strings.ToLower(result.Traits.OverallDescription)
	for _, keyword := range explicitKeywords {
		if strings.Contains(desc, keyword) {
			return true
		}
	}
	return false
}

// checkDuplicate builds a fresh engine over the comparison corpus and
// scores the candidate against it
func (a *ContentAnalyzer) checkDuplicate(ctx context.Context, imageURL string, classification *types.SafetyClassification, traits *types.TraitAnalysis, existing []similarity.Signature) (similarity.Result, error) {
	corpus := existing
	if corpus == nil {
		loaded, err := a.loadCorpusSignatures(ctx)
		if err != nil {
			return similarity.Result{}, err
		}
		corpus = loaded
	}

	engine := similarity.NewEngine(a.simCfg)
	engine.AddSignatures(corpus)

	candidate := similarity.Signature{
		URL: NormalizeImageURL(imageURL),
	}
	if classification != nil {
		candidate.Tags = tagStrings(classification.ContentTags)
	}
	if traits != nil {
		candidate.Style = traits.VisualStyle.ArtStyle
		candidate.Species = traits.SuggestedTraits.Species
		candidate.Gender = traits.SuggestedTraits.Gender
	}

	return engine.CheckDuplicate(candidate), nil
}

// loadCorpusSignatures converts the accepted items in storage into
// comparison signatures
func (a *ContentAnalyzer) loadCorpusSignatures(ctx context.Context) ([]similarity.Signature, error) {
	if a.store == nil {
		return nil, nil
	}

	items, err := a.store.ListByStatuses(ctx,
		[]types.Status{types.StatusApproved, types.StatusCompleted},
		a.simCfg.MaxCandidates)
	if err != nil {
		return nil, fmt.Errorf("loading duplicate-check corpus: %w", err)
	}

	signatures := make([]similarity.Signature, 0, len(items))
	for _, item := range items {
		signatures = append(signatures, ItemSignature(item))
	}
	return signatures, nil
}

// NormalizeImageURL strips the query string and fragment so renditions
// of the same asset (CDN resize parameters, cache busters) compare as
// the same image.
func NormalizeImageURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// ItemSignature derives a comparison signature from a persisted item
func ItemSignature(item *types.QueueItem) similarity.Signature {
	sig := similarity.Signature{
		ID:     item.ID,
		URL:    NormalizeImageURL(item.SourceURL),
		Author: item.Author,
		Tags:   tagStrings(item.ContentTags),
	}
	if item.Species != "unknown" {
		sig.Species = item.Species
	}
	if item.Gender != "unknown" {
		sig.Gender = item.Gender
	}
	return sig
}

func tagStrings(tags []types.ContentTag) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, len(tags))
	for i, tag := range tags {
		out[i] = string(tag)
	}
	return out
}

// triageScore is a fast metadata-driven estimate used before the full
// scorer runs. Base 3.0; explicit violence tags subtract, descriptive
// richness adds.
func triageScore(classification *types.SafetyClassification, traits *types.TraitAnalysis) float64 {
	score := 3.0

	if classification != nil {
		if types.HasTag(classification.ContentTags, types.TagGore) ||
			types.HasTag(classification.ContentTags, types.TagExtremeViolence) {
			score -= 1.0
		}
	}

	if traits != nil {
		if len(traits.OverallDescription) > 50 {
			score += 0.5
		}
		if len(traits.PhysicalCharacteristics.Fields()) > 3 {
			score += 0.5
		}
		if traits.VisualStyle.ArtStyle != "" {
			score += 0.5
		}
		if traits.Clothing.Outfit != "" {
			score += 0.5
		}
	}

	if score < 0 {
		return 0
	}
	if score > 5 {
		return 5
	}
	return score
}

// isNSFW reports whether any classifier tag marks the image NSFW
func isNSFW(classification *types.SafetyClassification) bool {
	if classification == nil {
		return false
	}
	for _, tag := range nsfwTags {
		if types.HasTag(classification.ContentTags, tag) {
			return true
		}
	}
	return false
}
