package types

import "time"

// SafetyClassification is the output of the external image safety/age
// classifier. Any backing model is acceptable as long as the rating and
// tags are drawn from the fixed enums.
type SafetyClassification struct {
	AgeRating   AgeRating    `json:"age_rating"`
	ContentTags []ContentTag `json:"content_tags,omitempty"`
	Description string       `json:"description,omitempty"`
}

// TraitAnalysis is the output of the external descriptive/physical-trait
// analyzer. Every field is optional: the empty string or nil slice means
// the analyzer provided nothing for that field, and scoring treats absence
// and emptiness identically.
type TraitAnalysis struct {
	PhysicalCharacteristics PhysicalCharacteristics `json:"physical_characteristics,omitempty"`
	VisualStyle             VisualStyle             `json:"visual_style,omitempty"`
	Clothing                Clothing                `json:"clothing,omitempty"`
	SuggestedTraits         SuggestedTraits         `json:"suggested_traits,omitempty"`
	OverallDescription      string                  `json:"overall_description,omitempty"`
}

// PhysicalCharacteristics describes the subject's appearance
type PhysicalCharacteristics struct {
	HairColor   string `json:"hair_color,omitempty"`
	EyeColor    string `json:"eye_color,omitempty"`
	SkinTone    string `json:"skin_tone,omitempty"`
	BodyType    string `json:"body_type,omitempty"`
	Height      string `json:"height,omitempty"`
	ApparentAge string `json:"apparent_age,omitempty"`
	Build       string `json:"build,omitempty"`
	Face        string `json:"face,omitempty"`
}

// Fields returns the populated physical-characteristic values in
// declaration order.
func (p PhysicalCharacteristics) Fields() []string {
	all := []string{
		p.HairColor, p.EyeColor, p.SkinTone, p.BodyType,
		p.Height, p.ApparentAge, p.Build, p.Face,
	}
	var present []string
	for _, f := range all {
		if f != "" {
			present = append(present, f)
		}
	}
	return present
}

// VisualStyle describes how the image is rendered
type VisualStyle struct {
	ArtStyle     string `json:"art_style,omitempty"`
	Mood         string `json:"mood,omitempty"`
	ColorPalette string `json:"color_palette,omitempty"`
}

// Clothing describes what the subject wears
type Clothing struct {
	Outfit      string   `json:"outfit,omitempty"`
	Style       string   `json:"style,omitempty"`
	Accessories []string `json:"accessories,omitempty"`
}

// SuggestedTraits holds character material derived from the image
type SuggestedTraits struct {
	Personality         []string `json:"personality,omitempty"`
	Occupation          string   `json:"occupation,omitempty"`
	Archetype           string   `json:"archetype,omitempty"`
	Species             string   `json:"species,omitempty"`
	Gender              string   `json:"gender,omitempty"`
	DistinctiveFeatures []string `json:"distinctive_features,omitempty"`
}

// AnalysisResult combines both collaborator outputs with the derived
// triage fields. One result is produced per queue item per processing
// attempt and is immediately reduced into the item's persisted fields.
type AnalysisResult struct {
	Classification *SafetyClassification `json:"classification"`
	Traits         *TraitAnalysis        `json:"traits"`

	// QualityScore is the analyzer's fast triage score, not the
	// authoritative scorer output the queue persists.
	QualityScore float64   `json:"quality_score"`
	IsNSFW       bool      `json:"is_nsfw"`
	IsDuplicate  bool      `json:"is_duplicate"`
	DuplicateOf  string    `json:"duplicate_of,omitempty"`
	Similarity   float64   `json:"similarity,omitempty"`
	AnalyzedAt   time.Time `json:"analyzed_at"`
}
