// Package agerating derives age ratings from content tags and reconciles
// them with upstream AI classifications.
//
// The rule table is the safety floor: a classification is never allowed to
// be weaker than what the content tags imply, even when an upstream model
// asserts otherwise. A stricter upstream verdict is never second-guessed by
// the simpler rule engine.
package agerating

import (
	"fmt"

	"github.com/musekit/curator/internal/types"
)

// Severity levels per content tag. Higher is more restrictive.
const (
	severitySevere = 5
	severityHigh   = 4
	severityMedium = 3
	severityLow    = 2
)

// tagSeverity maps each content tag to its severity level
var tagSeverity = map[types.ContentTag]int{
	types.TagNudity:          severitySevere,
	types.TagSexual:          severitySevere,
	types.TagViolence:        severityHigh,
	types.TagExtremeViolence: severityHigh,
	types.TagGore:            severityHigh,
	types.TagDiscrimination:  severityHigh,
	types.TagDrugs:           severityMedium,
	types.TagLanguage:        severityLow,
	types.TagAlcohol:         severityLow,
	types.TagHorror:          severityLow,
	types.TagPsychological:   severityLow,
	types.TagCrime:           severityLow,
	types.TagGambling:        severityLow,
}

// severityReason gives the human-facing explanation per severity band
var severityReason = map[int]string{
	severitySevere: "contains nudity or sexual content",
	severityHigh:   "contains violence, gore or discrimination",
	severityMedium: "contains drug-related content",
	severityLow:    "contains mild mature themes",
}

// minimumAge maps each rating to the minimum viewer age in years
var minimumAge = map[types.AgeRating]int{
	types.RatingL:        0,
	types.RatingTen:      10,
	types.RatingTwelve:   12,
	types.RatingFourteen: 14,
	types.RatingSixteen:  16,
	types.RatingEighteen: 18,
}

// Classification is the result of rule-based or reconciled rating
type Classification struct {
	Rating        types.AgeRating    `json:"rating"`
	Confidence    float64            `json:"confidence"`
	Reasoning     []string           `json:"reasoning,omitempty"`
	SuggestedTags []types.ContentTag `json:"suggested_tags,omitempty"`
}

// Classifier derives ratings from the fixed severity table. It is
// stateless; a single instance can serve any number of pipelines.
type Classifier struct{}

// NewClassifier creates a rule-based age rating classifier
func NewClassifier() *Classifier {
	return &Classifier{}
}

// ClassifyFromTags maps a tag set to a rating via the severity table.
// Severity is a max over the tags present, so the rating is monotonic in
// tag-set inclusion. An empty tag set yields the unrestricted floor with
// low confidence.
func (c *Classifier) ClassifyFromTags(tags []types.ContentTag) Classification {
	if len(tags) == 0 {
		return Classification{
			Rating:     types.RatingL,
			Confidence: 0.5,
			Reasoning:  []string{"no content tags present; defaulting to unrestricted"},
		}
	}

	maxSeverity := 0
	var reasoning []string
	seenSeverity := make(map[int]bool)
	for _, tag := range tags {
		severity, ok := tagSeverity[tag]
		if !ok {
			continue
		}
		if severity > maxSeverity {
			maxSeverity = severity
		}
		if !seenSeverity[severity] {
			seenSeverity[severity] = true
			reasoning = append(reasoning, severityReason[severity])
		}
	}

	rating, confidence := ratingForSeverity(maxSeverity)
	return Classification{
		Rating:        rating,
		Confidence:    confidence,
		Reasoning:     reasoning,
		SuggestedTags: tags,
	}
}

// ratingForSeverity maps a max severity to a rating and confidence
func ratingForSeverity(severity int) (types.AgeRating, float64) {
	switch {
	case severity >= severitySevere:
		return types.RatingEighteen, 0.95
	case severity >= severityHigh:
		return types.RatingSixteen, 0.90
	case severity >= severityMedium:
		return types.RatingFourteen, 0.85
	case severity >= severityLow:
		return types.RatingTwelve, 0.80
	default:
		return types.RatingTen, 0.70
	}
}

// ValidateClassification reconciles an upstream AI rating with the rule
// table. Low-confidence or unrecognized AI verdicts are replaced by the
// rule result. An unrestricted AI verdict is overridden whenever the tags
// imply something stricter. Any other AI verdict is trusted verbatim.
func (c *Classifier) ValidateClassification(aiRating types.AgeRating, tags []types.ContentTag, aiConfidence float64) Classification {
	if aiConfidence < 0.7 || !aiRating.IsValid() {
		return c.ClassifyFromTags(tags)
	}

	if aiRating == types.RatingL {
		ruleBased := c.ClassifyFromTags(tags)
		if ruleBased.Rating != types.RatingL {
			ruleBased.Reasoning = append(ruleBased.Reasoning,
				"overriding unrestricted AI verdict: content tags imply a stricter rating")
			return ruleBased
		}
	}

	return Classification{
		Rating:        aiRating,
		Confidence:    aiConfidence,
		Reasoning:     []string{fmt.Sprintf("trusting AI classification %s (confidence %.2f)", aiRating, aiConfidence)},
		SuggestedTags: tags,
	}
}

// MinimumAge returns the minimum viewer age in years for a rating.
// Unknown ratings are treated as the most restrictive.
func (c *Classifier) MinimumAge(rating types.AgeRating) int {
	if age, ok := minimumAge[rating]; ok {
		return age
	}
	return minimumAge[types.RatingEighteen]
}

// AppropriateForAge reports whether content at the rating is suitable for
// a viewer of the given age.
func (c *Classifier) AppropriateForAge(rating types.AgeRating, age int) bool {
	return age >= c.MinimumAge(rating)
}
