package memory_service

import (
	"strings"
	"unicode"
)

// extractWords extracts and normalises words from text for scoring.
// Words are converted to lowercase and split on whitespace and punctuation.
func extractWords(text string) map[string]struct{} {
	result := make(map[string]struct{})

	// Split on whitespace and iterate
	words := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})

	for _, word := range words {
		word = strings.ToLower(strings.TrimSpace(word))
		if word != "" && len(word) > 1 { // Skip single-character words
			result[word] = struct{}{}
		}
	}

	return result
}

// jaccardSimilarity computes |a ∩ b| / |a ∪ b| over two word sets.
// Returns 0 when either set is empty.
func jaccardSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	// Iterate over the smaller set for efficiency
	smaller, larger := a, b
	if len(smaller) > len(larger) {
		smaller, larger = larger, smaller
	}

	intersection := 0
	for word := range smaller {
		if _, ok := larger[word]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// tagOverlapFraction computes the fraction of tags that appear in the
// query word set. Returns 0 when there are no tags.
func tagOverlapFraction(tags []string, queryWords map[string]struct{}) float64 {
	if len(tags) == 0 || len(queryWords) == 0 {
		return 0
	}

	matched := 0
	for _, tag := range tags {
		if _, ok := queryWords[strings.ToLower(tag)]; ok {
			matched++
		}
	}

	return float64(matched) / float64(len(tags))
}
