// Package match scores candidate canonical field names against noisy
// recognized text. It is deliberately best-effort: callers must treat low
// scores as unreliable and rely on human review.
package match

// Result is the outcome of a similarity search.
type Result struct {
	Candidate string
	Score     float64
}

// Similarity computes a letter-by-letter score between two strings: the
// fraction of aligned positions whose runes agree, over the longer string's
// length. Unmatched trailing positions count as disagreements, so a length
// mismatch lowers the score. Two empty strings score 1.
func Similarity(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	longer := len(ra)
	if len(rb) > longer {
		longer = len(rb)
	}
	if longer == 0 {
		return 1
	}
	shorter := len(ra)
	if len(rb) < shorter {
		shorter = len(rb)
	}
	agree := 0
	for i := 0; i < shorter; i++ {
		if ra[i] == rb[i] {
			agree++
		}
	}
	return float64(agree) / float64(longer)
}

// Best returns the candidate with the strictly greatest similarity to text.
// The running score starts at zero, so a candidate is replaced only when it
// scores strictly higher; ties keep the first-seen candidate, and when no
// candidate scores above zero the zero Result (empty candidate) is returned.
//
// When text is empty no match is attempted and attempted is false. This keeps
// "blank because unrecognized" distinguishable from "matched an empty-string
// candidate", which both surface as an empty candidate string.
func Best(text string, candidates []string) (best Result, attempted bool) {
	if text == "" {
		return Result{}, false
	}
	for _, cand := range candidates {
		if s := Similarity(text, cand); s > best.Score {
			best = Result{Candidate: cand, Score: s}
		}
	}
	return best, true
}
