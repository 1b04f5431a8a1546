package ai

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/musekit/curator/internal/types"
)

const safetySystemPrompt = `You are a content safety classifier for an AI character platform. You examine a single image and return strict JSON, with no surrounding prose.`

const safetyPrompt = `Classify this image for age-appropriateness.

Return JSON with exactly these fields:
{
  "age_rating": "L" | "TEN" | "TWELVE" | "FOURTEEN" | "SIXTEEN" | "EIGHTEEN",
  "content_tags": [zero or more of: "VIOLENCE", "EXTREME_VIOLENCE", "GORE", "NUDITY", "SEXUAL", "LANGUAGE", "DRUGS", "ALCOHOL", "HORROR", "PSYCHOLOGICAL", "CRIME", "DISCRIMINATION", "GAMBLING"],
  "description": "one or two sentences describing safety-relevant content"
}

Rating guide: L is suitable for everyone; EIGHTEEN means adults only.
Apply tags for content actually depicted, not merely implied by genre.`

const traitSystemPrompt = `You are a character analyst for an AI character platform. You examine a single image of a character and return strict JSON, with no surrounding prose.`

const traitPrompt = `Analyze the character in this image in detail.

Return JSON with exactly this shape (omit fields you cannot determine):
{
  "physical_characteristics": {
    "hair_color": "", "eye_color": "", "skin_tone": "", "body_type": "",
    "height": "", "apparent_age": "", "build": "", "face": ""
  },
  "visual_style": {"art_style": "", "mood": "", "color_palette": ""},
  "clothing": {"outfit": "", "style": "", "accessories": []},
  "suggested_traits": {
    "personality": [], "occupation": "", "archetype": "",
    "species": "", "gender": "", "distinctive_features": []
  },
  "overall_description": "a thorough paragraph describing the character"
}

Be specific. "long silver hair" is useful; "hair" is not.`

// classifyResponse is the wire shape of the safety classifier output.
// Tags arrive as raw strings and are normalized before use.
type classifyResponse struct {
	AgeRating   string   `json:"age_rating"`
	ContentTags []string `json:"content_tags"`
	Description string   `json:"description"`
}

// toClassification normalizes a wire response into the typed result.
// Unknown tags are dropped with a warning. The rating is normalized but
// not rejected here: downstream validation falls back to rule-based
// classification when the model invents a rating.
func (r classifyResponse) toClassification(imageURL string) *types.SafetyClassification {
	result := &types.SafetyClassification{
		AgeRating:   types.AgeRating(strings.ToUpper(strings.TrimSpace(r.AgeRating))),
		Description: strings.TrimSpace(r.Description),
	}
	for _, raw := range r.ContentTags {
		tag := types.ContentTag(strings.ToUpper(strings.TrimSpace(raw)))
		if !tag.IsValid() {
			slog.Warn("Dropping unrecognized content tag from classifier",
				"tag", raw, "image_url", imageURL)
			continue
		}
		result.ContentTags = append(result.ContentTags, tag)
	}
	return result
}

func classifyContext(imageURL string) string {
	return fmt.Sprintf("safety classification for %s", imageURL)
}

func traitContext(imageURL string) string {
	return fmt.Sprintf("trait analysis for %s", imageURL)
}
