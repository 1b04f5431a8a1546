// Package quality computes the authoritative, tunable quality score used
// by the curation queue's final classification decision.
package quality

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/musekit/curator/internal/types"
)

// Recommendation is the scorer's verdict tier
type Recommendation string

const (
	RecommendApprove Recommendation = "approve"
	RecommendReview  Recommendation = "review"
	RecommendReject  Recommendation = "reject"
)

// failureMarkers in the description zero out the clarity signal: they mean
// the upstream analyzer produced boilerplate, not observations.
var failureMarkers = []string{"Unable to analyze", "Error"}

// interestingSpecies earn a creativity bonus, matched as case-insensitive
// substrings.
var interestingSpecies = []string{"elf", "demon", "android", "robot", "alien", "dragon"}

// Thresholds holds the recommendation cutoffs. It is an immutable value
// passed at construction; scoring under different thresholds means
// constructing another scorer, which keeps concurrent pipelines free of
// shared mutable state.
type Thresholds struct {
	// Approve is the minimum score for an "approve" recommendation.
	// Default: 4.0
	Approve float64

	// Review is the minimum score for a "review" recommendation; anything
	// below is "reject".
	// Default: 2.5
	Review float64
}

// DefaultThresholds returns the default recommendation cutoffs
func DefaultThresholds() Thresholds {
	return Thresholds{
		Approve: 4.0,
		Review:  2.5,
	}
}

// Validate checks if the thresholds have valid values
func (t Thresholds) Validate() error {
	if t.Approve < 0 || t.Approve > 5 {
		return fmt.Errorf("approve threshold must be between 0 and 5 (got %.2f)", t.Approve)
	}
	if t.Review < 0 || t.Review > 5 {
		return fmt.Errorf("review threshold must be between 0 and 5 (got %.2f)", t.Review)
	}
	if t.Review > t.Approve {
		return fmt.Errorf("review threshold (%.2f) cannot exceed approve threshold (%.2f)", t.Review, t.Approve)
	}
	return nil
}

// ThresholdsFromEnv creates Thresholds from environment variables, falling
// back to defaults.
//
// Environment variables:
//   - CURATOR_QUALITY_APPROVE: Minimum score for "approve" (default: 4.0)
//   - CURATOR_QUALITY_REVIEW: Minimum score for "review" (default: 2.5)
func ThresholdsFromEnv() (Thresholds, error) {
	t := DefaultThresholds()

	if v := os.Getenv("CURATOR_QUALITY_APPROVE"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return t, fmt.Errorf("invalid value for CURATOR_QUALITY_APPROVE: %w", err)
		}
		t.Approve = parsed
	}
	if v := os.Getenv("CURATOR_QUALITY_REVIEW"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return t, fmt.Errorf("invalid value for CURATOR_QUALITY_REVIEW: %w", err)
		}
		t.Review = parsed
	}

	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("invalid thresholds from environment: %w", err)
	}
	return t, nil
}

// Factors are the four independent signals, each in [0,1]
type Factors struct {
	Composition float64 `json:"composition"`
	Clarity     float64 `json:"clarity"`
	Creativity  float64 `json:"creativity"`
	Technical   float64 `json:"technical"`
}

// Assessment is the scorer's full output for one analysis
type Assessment struct {
	Score          float64        `json:"score"`      // 0-5
	Confidence     float64        `json:"confidence"` // 0-1
	Factors        Factors        `json:"factors"`
	Reasoning      []string       `json:"reasoning"`
	Recommendation Recommendation `json:"recommendation"`
}

// Scorer computes weighted multi-factor quality assessments
type Scorer struct {
	thresholds Thresholds
}

// NewScorer creates a scorer with the given thresholds
func NewScorer(thresholds Thresholds) (*Scorer, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid thresholds: %w", err)
	}
	return &Scorer{thresholds: thresholds}, nil
}

// Thresholds returns the scorer's recommendation cutoffs
func (s *Scorer) Thresholds() Thresholds {
	return s.thresholds
}

// Score computes the weighted quality assessment for one trait analysis.
// A nil analysis scores as fully absent data rather than an error: the
// scorer must stay total over malformed or partial input.
func (s *Scorer) Score(traits *types.TraitAnalysis) Assessment {
	if traits == nil {
		traits = &types.TraitAnalysis{}
	}

	factors := Factors{
		Composition: scoreComposition(traits),
		Clarity:     scoreClarity(traits),
		Creativity:  scoreCreativity(traits),
		Technical:   scoreTechnical(traits),
	}

	weighted := 0.3*factors.Composition + 0.3*factors.Clarity +
		0.2*factors.Creativity + 0.2*factors.Technical
	score := round2(weighted * 5)

	dataPoints := countDataPoints(traits)
	confidence := round2(math.Min(float64(dataPoints)/10, 1.0))

	return Assessment{
		Score:          score,
		Confidence:     confidence,
		Factors:        factors,
		Reasoning:      buildReasoning(score, factors, dataPoints),
		Recommendation: s.recommend(score),
	}
}

// recommend maps a score to a tier via the configured thresholds
func (s *Scorer) recommend(score float64) Recommendation {
	switch {
	case score >= s.thresholds.Approve:
		return RecommendApprove
	case score >= s.thresholds.Review:
		return RecommendReview
	default:
		return RecommendReject
	}
}

func scoreComposition(traits *types.TraitAnalysis) float64 {
	score := 0.5
	if traits.VisualStyle.ArtStyle != "" {
		score += 0.2
	}
	if traits.VisualStyle.Mood != "" {
		score += 0.1
	}
	if traits.VisualStyle.ColorPalette != "" {
		score += 0.1
	}
	return clamp01(score)
}

func scoreClarity(traits *types.TraitAnalysis) float64 {
	score := 0.3
	desc := traits.OverallDescription
	if len(desc) > 100 {
		score += 0.3
	} else if len(desc) > 50 {
		score += 0.2
	}

	// Failure boilerplate overrides the length signal entirely
	if HasFailureMarker(desc) {
		score = 0.1
	}

	physBonus := 0.05 * float64(len(traits.PhysicalCharacteristics.Fields()))
	if physBonus > 0.3 {
		physBonus = 0.3
	}
	return clamp01(score + physBonus)
}

func scoreCreativity(traits *types.TraitAnalysis) float64 {
	score := 0.4
	if len(traits.SuggestedTraits.DistinctiveFeatures) > 0 {
		score += 0.2
	}
	if isInterestingSpecies(traits.SuggestedTraits.Species) {
		score += 0.2
	}
	if len(traits.Clothing.Accessories) > 0 {
		score += 0.1
	}
	return clamp01(score)
}

func scoreTechnical(traits *types.TraitAnalysis) float64 {
	score := 0.5
	if traits.Clothing.Outfit != "" {
		score += 0.2
	}
	if traits.Clothing.Style != "" {
		score += 0.1
	}
	if traits.SuggestedTraits.Occupation != "" {
		score += 0.1
	}
	if traits.SuggestedTraits.Archetype != "" {
		score += 0.1
	}
	return clamp01(score)
}

// HasFailureMarker reports whether a description is analyzer failure
// boilerplate rather than a real observation.
func HasFailureMarker(description string) bool {
	for _, marker := range failureMarkers {
		if strings.Contains(description, marker) {
			return true
		}
	}
	return false
}

func isInterestingSpecies(species string) bool {
	if species == "" {
		return false
	}
	lower := strings.ToLower(species)
	for _, s := range interestingSpecies {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// countDataPoints counts every populated field across the analysis: each
// non-empty string or non-empty list is one data point.
func countDataPoints(traits *types.TraitAnalysis) int {
	count := len(traits.PhysicalCharacteristics.Fields())

	for _, v := range []string{
		traits.VisualStyle.ArtStyle,
		traits.VisualStyle.Mood,
		traits.VisualStyle.ColorPalette,
		traits.Clothing.Outfit,
		traits.Clothing.Style,
		traits.SuggestedTraits.Occupation,
		traits.SuggestedTraits.Archetype,
		traits.SuggestedTraits.Species,
		traits.SuggestedTraits.Gender,
		traits.OverallDescription,
	} {
		if v != "" {
			count++
		}
	}

	for _, l := range [][]string{
		traits.Clothing.Accessories,
		traits.SuggestedTraits.Personality,
		traits.SuggestedTraits.DistinctiveFeatures,
	} {
		if len(l) > 0 {
			count++
		}
	}

	return count
}

// buildReasoning assembles the qualitative lines: overall band first,
// factor lines (threshold 0.7) in fixed order, data-point line last.
func buildReasoning(score float64, factors Factors, dataPoints int) []string {
	var reasoning []string

	switch {
	case score >= 4:
		reasoning = append(reasoning, "high quality image with strong character potential")
	case score >= 3:
		reasoning = append(reasoning, "good quality image")
	case score >= 2:
		reasoning = append(reasoning, "acceptable quality image")
	default:
		reasoning = append(reasoning, "low quality image")
	}

	if factors.Composition >= 0.7 {
		reasoning = append(reasoning, "good composition and visual style")
	}
	if factors.Clarity >= 0.7 {
		reasoning = append(reasoning, "clear and detailed imagery")
	}
	if factors.Creativity >= 0.7 {
		reasoning = append(reasoning, "creative and distinctive character elements")
	}
	if factors.Technical >= 0.7 {
		reasoning = append(reasoning, "strong technical detail")
	}

	reasoning = append(reasoning, fmt.Sprintf("assessment based on %d data points", dataPoints))
	return reasoning
}

func clamp01(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
