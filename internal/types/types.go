package types

import (
	"fmt"
	"strings"
	"time"
)

// QueueItem represents one externally sourced image moving through curation.
type QueueItem struct {
	ID              string       `json:"id"`
	SourceURL       string       `json:"source_url"`
	SourceID        string       `json:"source_id,omitempty"`
	SourcePlatform  string       `json:"source_platform,omitempty"`
	Status          Status       `json:"status"`
	AgeRating       AgeRating    `json:"age_rating,omitempty"`
	QualityScore    *float64     `json:"quality_score,omitempty"`
	ContentTags     []ContentTag `json:"content_tags,omitempty"`
	Description     string       `json:"description,omitempty"`
	SourceRating    *float64     `json:"source_rating,omitempty"`
	Author          string       `json:"author,omitempty"`
	Gender          string       `json:"gender,omitempty"`
	Species         string       `json:"species,omitempty"`
	GeneratedCharID string       `json:"generated_char_id,omitempty"`
	RejectionReason string       `json:"rejection_reason,omitempty"`
	ProcessedAt     *time.Time   `json:"processed_at,omitempty"`
	RejectedAt      *time.Time   `json:"rejected_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// Validate checks if the queue item has valid field values
func (q *QueueItem) Validate() error {
	if strings.TrimSpace(q.SourceURL) == "" {
		return fmt.Errorf("source_url is required")
	}
	if !q.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", q.Status)
	}
	if q.AgeRating != "" && !q.AgeRating.IsValid() {
		return fmt.Errorf("invalid age rating: %s", q.AgeRating)
	}
	if q.QualityScore != nil && (*q.QualityScore < 0 || *q.QualityScore > 5) {
		return fmt.Errorf("quality_score must be between 0 and 5 (got %.2f)", *q.QualityScore)
	}
	if q.SourceRating != nil && *q.SourceRating < 0 {
		return fmt.Errorf("source_rating cannot be negative (got %.2f)", *q.SourceRating)
	}
	return nil
}

// IsTerminal reports whether the item has left the automatic pipeline.
// COMPLETED is included: it is written by the external character-generation
// step after approval and is never re-entered.
func (q *QueueItem) IsTerminal() bool {
	switch q.Status {
	case StatusApproved, StatusRejected, StatusFailed, StatusCompleted:
		return true
	}
	return false
}

// Status represents the current state of a queue item
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusApproved   Status = "APPROVED"
	StatusRejected   Status = "REJECTED"
	StatusFailed     Status = "FAILED"
	StatusCompleted  Status = "COMPLETED"
)

// IsValid checks if the status value is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusApproved,
		StatusRejected, StatusFailed, StatusCompleted:
		return true
	}
	return false
}

// AgeRating is the Brazilian-style content rating ladder used across the
// platform. L is the unrestricted floor.
type AgeRating string

const (
	RatingL        AgeRating = "L"
	RatingTen      AgeRating = "TEN"
	RatingTwelve   AgeRating = "TWELVE"
	RatingFourteen AgeRating = "FOURTEEN"
	RatingSixteen  AgeRating = "SIXTEEN"
	RatingEighteen AgeRating = "EIGHTEEN"
)

// IsValid checks if the age rating value is valid
func (r AgeRating) IsValid() bool {
	switch r {
	case RatingL, RatingTen, RatingTwelve, RatingFourteen, RatingSixteen, RatingEighteen:
		return true
	}
	return false
}

// ContentTag categorizes sensitive content found in an image
type ContentTag string

const (
	TagNudity          ContentTag = "NUDITY"
	TagSexual          ContentTag = "SEXUAL"
	TagViolence        ContentTag = "VIOLENCE"
	TagExtremeViolence ContentTag = "EXTREME_VIOLENCE"
	TagGore            ContentTag = "GORE"
	TagDiscrimination  ContentTag = "DISCRIMINATION"
	TagDrugs           ContentTag = "DRUGS"
	TagLanguage        ContentTag = "LANGUAGE"
	TagAlcohol         ContentTag = "ALCOHOL"
	TagHorror          ContentTag = "HORROR"
	TagPsychological   ContentTag = "PSYCHOLOGICAL"
	TagCrime           ContentTag = "CRIME"
	TagGambling        ContentTag = "GAMBLING"
)

// IsValid checks if the content tag value is valid
func (t ContentTag) IsValid() bool {
	switch t {
	case TagNudity, TagSexual, TagViolence, TagExtremeViolence, TagGore,
		TagDiscrimination, TagDrugs, TagLanguage, TagAlcohol, TagHorror,
		TagPsychological, TagCrime, TagGambling:
		return true
	}
	return false
}

// HasTag reports whether tag appears in tags.
func HasTag(tags []ContentTag, tag ContentTag) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ExternalImage is the intake contract for source feeds. The shape was
// built against a Civitai-like feed but is treated generically.
type ExternalImage struct {
	URL      string   `json:"url"`
	ID       string   `json:"id,omitempty"`
	Platform string   `json:"platform,omitempty"`
	Rating   *float64 `json:"rating,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Author   string   `json:"author,omitempty"`
}

// Validate checks the external image has the fields intake requires
func (e *ExternalImage) Validate() error {
	if strings.TrimSpace(e.URL) == "" {
		return fmt.Errorf("url is required")
	}
	if e.Rating != nil && (*e.Rating < 0 || *e.Rating > 5) {
		return fmt.Errorf("rating must be between 0 and 5 (got %.2f)", *e.Rating)
	}
	return nil
}

// Statistics holds per-status queue counts
type Statistics struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Approved   int `json:"approved"`
	Rejected   int `json:"rejected"`
	Failed     int `json:"failed"`
	Completed  int `json:"completed"`
	Total      int `json:"total"`
}

// Validate checks that the total matches the sum of the per-status counts
func (s *Statistics) Validate() error {
	sum := s.Pending + s.Processing + s.Approved + s.Rejected + s.Failed + s.Completed
	if s.Total != sum {
		return fmt.Errorf("total (%d) does not match sum of status counts (%d)", s.Total, sum)
	}
	return nil
}
