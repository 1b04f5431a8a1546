package similarity

import (
	"fmt"
	"strings"
)

// Signature is a lightweight fingerprint of an image's metadata used for
// similarity comparison. Pixels are never consulted.
type Signature struct {
	ID      string   `json:"id"`
	URL     string   `json:"url,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Author  string   `json:"author,omitempty"`
	Style   string   `json:"style,omitempty"`
	Species string   `json:"species,omitempty"`
	Gender  string   `json:"gender,omitempty"`
}

// Result represents the outcome of checking one candidate against the store
type Result struct {
	// IsDuplicate is true when the best similarity found reached the
	// configured threshold.
	IsDuplicate bool `json:"is_duplicate"`

	// Similarity is the similarity against the reported match. When no
	// stored signature reaches the threshold this is the true global
	// maximum over all comparisons.
	Similarity float64 `json:"similarity"`

	// MatchID is the ID of the best matching stored signature, if any.
	MatchID string `json:"match_id,omitempty"`

	// Reason explains the determination
	Reason string `json:"reason,omitempty"`
}

// Engine holds an in-memory signature store and performs pairwise
// similarity scoring against it.
//
// The store is a process-local cache seeded per curation run from the
// persisted corpus of previously accepted items; the record store remains
// the source of truth. The engine is not safe for concurrent use: the
// pipeline rebuilds a fresh engine per duplicate-check pass, so no locking
// is carried here.
type Engine struct {
	cfg        Config
	signatures map[string]Signature
}

// Attribute weights for the partial-match average. The denominator counts
// the full weight whenever both sides provide the attribute; author,
// species and gender contribute only half their weight even on an exact
// match, so these corroborating signals cannot cross the threshold alone.
const (
	weightURL     = 2.0
	weightTags    = 3.0
	weightAuthor  = 1.0
	weightStyle   = 1.0
	weightSpecies = 1.0
	weightGender  = 1.0

	creditAuthor  = 0.5
	creditSpecies = 0.5
	creditGender  = 0.5
)

// NewEngine creates an engine with an empty signature store
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:        cfg,
		signatures: make(map[string]Signature),
	}
}

// AddSignature inserts or overwrites a signature keyed by its ID.
// Signatures without an ID are ignored.
func (e *Engine) AddSignature(sig Signature) {
	if sig.ID == "" {
		return
	}
	e.signatures[sig.ID] = sig
}

// AddSignatures bulk-inserts signatures with AddSignature semantics
func (e *Engine) AddSignatures(sigs []Signature) {
	for _, sig := range sigs {
		e.AddSignature(sig)
	}
}

// RemoveSignature deletes a signature by ID, reporting whether one existed
func (e *Engine) RemoveSignature(id string) bool {
	if _, ok := e.signatures[id]; !ok {
		return false
	}
	delete(e.signatures, id)
	return true
}

// Clear empties the signature store
func (e *Engine) Clear() {
	e.signatures = make(map[string]Signature)
}

// Count returns the number of stored signatures
func (e *Engine) Count() int {
	return len(e.signatures)
}

// CheckDuplicate compares the candidate against every stored signature.
// The scan short-circuits at the first signature that reaches the
// threshold; otherwise the global maximum similarity is reported.
func (e *Engine) CheckDuplicate(candidate Signature) Result {
	best := Result{}
	for id, stored := range e.signatures {
		sim := Compare(candidate, stored)
		if sim >= e.cfg.Threshold {
			return Result{
				IsDuplicate: true,
				Similarity:  sim,
				MatchID:     id,
				Reason:      fmt.Sprintf("matches stored signature %s with similarity %.2f (threshold %.2f)", id, sim, e.cfg.Threshold),
			}
		}
		if sim > best.Similarity {
			best.Similarity = sim
			best.MatchID = id
		}
	}
	best.Reason = fmt.Sprintf("no stored signature at or above threshold %.2f (best %.2f)", e.cfg.Threshold, best.Similarity)
	return best
}

// CheckBatch checks each candidate against the stored corpus and, when it
// is not a duplicate, adds it to the corpus. Earlier batch items therefore
// become discoverable duplicates for later ones, making the batch
// order-sensitive. A second O(n²) pass compares batch candidates pairwise
// (by original list position) and marks the later of any pair at or above
// the threshold as a duplicate of the earlier, overriding its corpus-pass
// result. Candidates without an ID are skipped.
func (e *Engine) CheckBatch(candidates []Signature) map[string]Result {
	results := make(map[string]Result, len(candidates))

	for _, candidate := range candidates {
		if candidate.ID == "" {
			continue
		}
		result := e.CheckDuplicate(candidate)
		if !result.IsDuplicate {
			e.AddSignature(candidate)
		}
		results[candidate.ID] = result
	}

	// Intra-batch pass: duplicates among the candidates matter even when
	// neither side matched the stored corpus.
	for i := 0; i < len(candidates); i++ {
		if candidates[i].ID == "" {
			continue
		}
		for j := i + 1; j < len(candidates); j++ {
			if candidates[j].ID == "" {
				continue
			}
			sim := Compare(candidates[i], candidates[j])
			if sim >= e.cfg.Threshold {
				results[candidates[j].ID] = Result{
					IsDuplicate: true,
					Similarity:  sim,
					MatchID:     candidates[i].ID,
					Reason:      fmt.Sprintf("duplicate of batch item %s with similarity %.2f (threshold %.2f)", candidates[i].ID, sim, e.cfg.Threshold),
				}
			}
		}
	}

	return results
}

// Compare computes the weighted partial-match average similarity between
// two signatures. Only attribute pairs present on both sides count toward
// the denominator; absence is excluded rather than treated as mismatch.
// Returns 0 when no comparable attribute exists on both sides.
func Compare(a, b Signature) float64 {
	var score, factors float64

	if a.URL != "" && b.URL != "" {
		factors += weightURL
		if a.URL == b.URL {
			score += weightURL
		}
	}

	if len(a.Tags) > 0 && len(b.Tags) > 0 {
		factors += weightTags
		score += jaccardOverlap(a.Tags, b.Tags) * weightTags
	}

	if a.Author != "" && b.Author != "" {
		factors += weightAuthor
		if a.Author == b.Author {
			score += creditAuthor
		}
	}

	if a.Style != "" && b.Style != "" {
		factors += weightStyle
		if a.Style == b.Style {
			score += weightStyle
		}
	}

	if a.Species != "" && b.Species != "" {
		factors += weightSpecies
		if a.Species == b.Species {
			score += creditSpecies
		}
	}

	if a.Gender != "" && b.Gender != "" {
		factors += weightGender
		if a.Gender == b.Gender {
			score += creditGender
		}
	}

	if factors == 0 {
		return 0
	}
	return score / factors
}

// jaccardOverlap computes |intersection| / |union| over the two tag sets,
// case-insensitively.
func jaccardOverlap(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[strings.ToLower(t)] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[strings.ToLower(t)] = struct{}{}
	}

	union := len(setA)
	intersection := 0
	for t := range setB {
		if _, ok := setA[t]; ok {
			intersection++
		} else {
			union++
		}
	}

	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
