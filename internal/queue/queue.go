// Package queue implements the curation queue: intake filtering,
// pending-item processing, and the final classification decision that
// moves items to their terminal status.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/musekit/curator/internal/agerating"
	"github.com/musekit/curator/internal/analyzer"
	"github.com/musekit/curator/internal/quality"
	"github.com/musekit/curator/internal/storage"
	"github.com/musekit/curator/internal/types"
)

// Actors recorded in the audit trail
const (
	actorIntake   = "intake"
	actorPipeline = "pipeline"
)

// Rejection reasons for the combined quality gate
const (
	reasonQuality   = "did not meet quality standards"
	reasonDuplicate = "duplicate image detected"
)

// ProcessResult summarizes one processing pass
type ProcessResult struct {
	Processed int `json:"processed"` // items attempted, including failures
	Approved  int `json:"approved"`
	Rejected  int `json:"rejected"`
	Errors    int `json:"errors"`
}

// CurationQueue coordinates storage, analysis, rating validation, and
// scoring. All collaborators are injected; the queue holds no global
// state and multiple instances can share a store.
type CurationQueue struct {
	cfg        Config
	store      storage.Storage
	analyzer   *analyzer.ContentAnalyzer
	classifier *agerating.Classifier
	scorer     *quality.Scorer
}

// New creates a curation queue from injected collaborators. The content
// analyzer may be nil for intake-only use; processing then fails with a
// configuration error instead of needing vision credentials up front.
func New(cfg Config, store storage.Storage, contentAnalyzer *analyzer.ContentAnalyzer, ratingClassifier *agerating.Classifier, scorer *quality.Scorer) (*CurationQueue, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid queue config: %w", err)
	}
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if ratingClassifier == nil {
		return nil, fmt.Errorf("age rating classifier is required")
	}
	if scorer == nil {
		return nil, fmt.Errorf("quality scorer is required")
	}
	return &CurationQueue{
		cfg:        cfg,
		store:      store,
		analyzer:   contentAnalyzer,
		classifier: ratingClassifier,
		scorer:     scorer,
	}, nil
}

// AddToQueue admits one external image. Images rated below the intake
// threshold are silently filtered (nil, nil). Re-submitting a known
// source URL returns the existing record unchanged, so intake is
// idempotent.
func (q *CurationQueue) AddToQueue(ctx context.Context, img types.ExternalImage) (*types.QueueItem, error) {
	if err := img.Validate(); err != nil {
		return nil, fmt.Errorf("invalid external image: %w", err)
	}

	if img.Rating != nil && *img.Rating < q.cfg.MinSourceRating {
		slog.Debug("Filtering low-rated image at intake",
			"url", img.URL,
			"rating", *img.Rating,
			"minimum", q.cfg.MinSourceRating)
		return nil, nil
	}

	existing, err := q.store.GetItemBySourceURL(ctx, img.URL)
	if err != nil {
		return nil, fmt.Errorf("checking for existing item: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	item := &types.QueueItem{
		SourceURL:      img.URL,
		SourceID:       img.ID,
		SourcePlatform: img.Platform,
		SourceRating:   img.Rating,
		Author:         img.Author,
		Status:         types.StatusPending,
	}
	if err := q.store.CreateItem(ctx, item, actorIntake); err != nil {
		return nil, fmt.Errorf("creating queue item: %w", err)
	}

	slog.Info("Added image to curation queue",
		"id", item.ID,
		"url", item.SourceURL,
		"platform", item.SourcePlatform)
	return item, nil
}

// AddBatch admits a batch of external images sequentially. Failures are
// logged and skipped; filtered images are excluded from the returned
// slice.
func (q *CurationQueue) AddBatch(ctx context.Context, imgs []types.ExternalImage) ([]*types.QueueItem, error) {
	var added []*types.QueueItem
	for _, img := range imgs {
		if err := ctx.Err(); err != nil {
			return added, err
		}
		item, err := q.AddToQueue(ctx, img)
		if err != nil {
			slog.Warn("Skipping image that failed intake",
				"url", img.URL,
				"error", err)
			continue
		}
		if item != nil {
			added = append(added, item)
		}
	}
	return added, nil
}

// GetPendingItems returns pending items oldest first. A non-positive
// limit uses the configured default.
func (q *CurationQueue) GetPendingItems(ctx context.Context, limit int) ([]*types.QueueItem, error) {
	if limit <= 0 {
		limit = q.cfg.DefaultPendingLimit
	}
	return q.store.ListByStatus(ctx, types.StatusPending, limit)
}

// ProcessPendingItems runs the full analysis pipeline over pending
// items, oldest first. An item whose processing errors is marked FAILED
// with the error text and counted, and the pass continues.
func (q *CurationQueue) ProcessPendingItems(ctx context.Context, limit int) (*ProcessResult, error) {
	if limit <= 0 {
		limit = q.cfg.DefaultProcessLimit
	}

	pending, err := q.store.ListByStatus(ctx, types.StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("listing pending items: %w", err)
	}

	result := &ProcessResult{}
	for _, item := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		result.Processed++
		processed, err := q.AnalyzeAndClassify(ctx, item.ID)
		if err != nil {
			result.Errors++
			slog.Error("Processing failed, marking item FAILED",
				"id", item.ID,
				"url", item.SourceURL,
				"error", err)
			q.markFailed(ctx, item.ID, err)
			continue
		}

		switch processed.Status {
		case types.StatusApproved:
			result.Approved++
		case types.StatusRejected:
			result.Rejected++
		}
	}

	slog.Info("Processing pass complete",
		"processed", result.Processed,
		"approved", result.Approved,
		"rejected", result.Rejected,
		"errors", result.Errors)
	return result, nil
}

// AnalyzeAndClassify runs one item through analysis, rating validation,
// scoring, and the final decision, persisting the outcome. The returned
// item reflects the persisted state.
func (q *CurationQueue) AnalyzeAndClassify(ctx context.Context, itemID string) (*types.QueueItem, error) {
	if q.analyzer == nil {
		return nil, fmt.Errorf("content analyzer not configured")
	}

	item, err := q.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, itemID)
	}

	updates := map[string]interface{}{"status": types.StatusProcessing}
	if err := q.store.UpdateItem(ctx, itemID, updates, actorPipeline); err != nil {
		return nil, fmt.Errorf("marking item processing: %w", err)
	}

	analysis, err := q.analyzer.AnalyzeImage(ctx, item.SourceURL, analyzer.Options{
		CheckDuplicates: true,
	})
	if err != nil {
		return nil, fmt.Errorf("analyzing %s: %w", item.SourceURL, err)
	}

	var aiRating types.AgeRating
	var tags []types.ContentTag
	var safetyDesc string
	if analysis.Classification != nil {
		aiRating = analysis.Classification.AgeRating
		tags = analysis.Classification.ContentTags
		safetyDesc = analysis.Classification.Description
	}
	rating := q.classifier.ValidateClassification(aiRating, tags, q.cfg.AssumedAIConfidence)

	assessment := q.scorer.Score(analysis.Traits)

	status, rejectionReason := q.decide(item.ID, analysis, assessment)

	now := time.Now()
	updates = map[string]interface{}{
		"status":        status,
		"age_rating":    rating.Rating,
		"quality_score": assessment.Score,
		"content_tags":  tags,
		"description":   description(analysis, safetyDesc),
		"gender":        orUnknown(traitGender(analysis)),
		"species":       orUnknown(traitSpecies(analysis)),
		"processed_at":  now,
	}
	if status == types.StatusRejected {
		updates["rejected_at"] = now
		updates["rejection_reason"] = rejectionReason
	}
	if err := q.store.UpdateItem(ctx, itemID, updates, actorPipeline); err != nil {
		return nil, fmt.Errorf("persisting decision: %w", err)
	}

	final, err := q.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	slog.Info("Classified queue item",
		"id", itemID,
		"status", status,
		"age_rating", rating.Rating,
		"score", assessment.Score,
		"duplicate", analysis.IsDuplicate)
	return final, nil
}

// decide maps an analysis and assessment to a terminal status, applying
// the configured thresholds. The combined reject gate runs first; the
// scorer's reject tier comes next; everything else is approved, with
// the review band collapsed into approval and logged for visibility.
func (q *CurationQueue) decide(itemID string, analysis *types.AnalysisResult, assessment quality.Assessment) (types.Status, string) {
	if q.analyzer.ShouldReject(analysis, q.cfg.RejectBelowScore) {
		reason := reasonQuality
		if analysis != nil && analysis.IsDuplicate {
			reason = reasonDuplicate
		}
		return types.StatusRejected, reason
	}

	if assessment.Recommendation == quality.RecommendReject {
		return types.StatusRejected, strings.Join(assessment.Reasoning, "; ")
	}

	if q.analyzer.ShouldAutoApprove(analysis, q.cfg.AutoApproveThreshold) {
		return types.StatusApproved, ""
	}

	if assessment.Recommendation == quality.RecommendReview {
		slog.Info("Review-band item approved automatically",
			"id", itemID,
			"score", assessment.Score)
	}
	return types.StatusApproved, ""
}

// markFailed records a processing failure. Errors here are logged only:
// the original failure must not be masked by a bookkeeping error.
func (q *CurationQueue) markFailed(ctx context.Context, itemID string, cause error) {
	updates := map[string]interface{}{
		"status":           types.StatusFailed,
		"rejection_reason": cause.Error(),
		"processed_at":     time.Now(),
	}
	if err := q.store.UpdateItem(ctx, itemID, updates, actorPipeline); err != nil {
		slog.Error("Failed to mark item FAILED",
			"id", itemID,
			"error", err)
	}
}

// GetApprovedItems returns approved items not yet converted into
// characters, highest quality first.
func (q *CurationQueue) GetApprovedItems(ctx context.Context, limit int) ([]*types.QueueItem, error) {
	if limit <= 0 {
		limit = q.cfg.DefaultProcessLimit
	}
	return q.store.GetApprovedForGeneration(ctx, limit)
}

// GetStats returns per-status queue counts
func (q *CurationQueue) GetStats(ctx context.Context) (*types.Statistics, error) {
	return q.store.GetStatistics(ctx)
}

func description(analysis *types.AnalysisResult, safetyDesc string) string {
	if analysis.Traits != nil && analysis.Traits.OverallDescription != "" {
		return analysis.Traits.OverallDescription
	}
	return safetyDesc
}

func traitGender(analysis *types.AnalysisResult) string {
	if analysis.Traits == nil {
		return ""
	}
	return analysis.Traits.SuggestedTraits.Gender
}

func traitSpecies(analysis *types.AnalysisResult) string {
	if analysis.Traits == nil {
		return ""
	}
	return analysis.Traits.SuggestedTraits.Species
}

func orUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return "unknown"
	}
	return v
}
