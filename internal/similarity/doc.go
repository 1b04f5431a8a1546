// Package similarity implements metadata-signature duplicate detection for
// curated images.
//
// Images are compared by lightweight signatures (URL, tags, author, style,
// species, gender) rather than pixels. Similarity is a weighted
// partial-match average: only attributes present on both sides count toward
// the denominator, so a sparse signature is never penalized for what it
// does not carry. Corroborating-only attributes (author, species, gender)
// earn half credit on an exact match so that weak signals can never cross
// the duplicate threshold on their own.
//
// Example usage:
//
//	engine := similarity.NewEngine(similarity.DefaultConfig())
//	engine.AddSignatures(corpus)
//
//	result := engine.CheckDuplicate(candidate)
//	if result.IsDuplicate {
//	    log.Printf("duplicate of %s (similarity %.2f)", result.MatchID, result.Similarity)
//	}
package similarity
