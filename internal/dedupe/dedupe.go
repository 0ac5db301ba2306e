// Package dedupe detects near-duplicate memory candidates, both via vector
// score (against retrieved neighbours) and via a stop-word-stripped Jaccard
// comparison for text-only use. Stop-word stripping is grounded on the
// orsinium-labs/stopwords dependency carried from the examples pack.
package dedupe

import (
	"regexp"
	"strings"

	"github.com/orsinium-labs/stopwords"
)

const DefaultThreshold = 0.95

var englishStopwords = stopwords.MustGet("en")

var whitespaceRE = regexp.MustCompile(`\s+`)

// Candidate is a scored neighbour returned from the vector gateway's search.
type Candidate struct {
	ID    string
	Score float64
}

// FindDuplicate returns the id of the first candidate scoring at or above
// threshold, or "" if none qualify.
func FindDuplicate(candidates []Candidate, threshold float64) string {
	for _, c := range candidates {
		if c.Score >= threshold {
			return c.ID
		}
	}
	return ""
}

// NormalizeText lowercases and collapses whitespace, for cheap exact/near
// textual comparison ahead of a vector check.
func NormalizeText(text string) string {
	lower := strings.ToLower(strings.TrimSpace(text))
	return whitespaceRE.ReplaceAllString(lower, " ")
}

// JaccardSimilarity computes a stop-word-stripped word-set Jaccard score
// between two texts, so that filler words don't dilute genuine overlap
// (e.g. "the project is going well" vs "project going well").
func JaccardSimilarity(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func wordSet(text string) map[string]bool {
	words := strings.Fields(NormalizeText(text))
	set := make(map[string]bool, len(words))
	for _, w := range words {
		if englishStopwords != nil && englishStopwords.Contains(w) {
			continue
		}
		set[w] = true
	}
	return set
}
