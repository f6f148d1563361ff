package context_store

import (
	"sort"
	"strings"
	"unicode"

	"github.com/lewisedginton/travel_context_engine/internal/context_provider"
)

// extractWords extracts and normalises words from text for matching.
// Words are converted to lowercase and split on whitespace and punctuation.
func extractWords(text string) map[string]struct{} {
	result := make(map[string]struct{})

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

// wordsIntersect checks if two word sets have any common elements.
func wordsIntersect(m1, m2 map[string]struct{}) bool {
	if len(m1) == 0 || len(m2) == 0 {
		return false
	}

	// Iterate over the smaller map for efficiency
	if len(m1) > len(m2) {
		m1, m2 = m2, m1
	}

	for k := range m1 {
		if _, ok := m2[k]; ok {
			return true
		}
	}

	return false
}

// sortMemoriesByCreatedAtDesc orders entries newest first, ties by id so the
// order stays deterministic.
func sortMemoriesByCreatedAtDesc(entries []context_provider.MemoryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID < entries[j].ID
	})
}
