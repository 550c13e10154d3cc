package utils

import (
	"fmt"
	"math/rand"
	"strings"
	"unicode/utf8"
)

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// Lobby codes avoid lookalike characters so they stay easy to read out loud.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// GenerateCode returns a short human-typable lobby code.
func GenerateCode(length int, rng *rand.Rand) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = codeAlphabet[rng.Intn(len(codeAlphabet))]
	}
	return string(b)
}

// stripMarkup removes HTML-significant characters from free-form input.
func stripMarkup(s string) string {
	s = strings.ReplaceAll(s, "<", "")
	return strings.ReplaceAll(s, ">", "")
}

// truncateRunes caps s at maxLen runes. Cutting on byte offsets would split
// a multi-byte rune at the boundary and leak invalid UTF-8 into payloads.
func truncateRunes(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen])
}

// SanitizeName cleans a display name before uniqueness checks: markup
// stripped, whitespace trimmed, length capped.
func SanitizeName(name string, maxLen int) string {
	name = strings.TrimSpace(stripMarkup(name))
	return strings.TrimSpace(truncateRunes(name, maxLen))
}

// SanitizeWord cleans a submitted word. An empty result means the
// submission is silently rejected.
func SanitizeWord(word string, maxLen int) string {
	word = strings.TrimSpace(stripMarkup(word))
	return strings.TrimSpace(truncateRunes(word, maxLen))
}

// DedupeName suffixes " (n)" with the smallest n that makes the name unique
// per the taken predicate (case-insensitive on the caller's side).
func DedupeName(name string, taken func(string) bool) string {
	if !taken(name) {
		return name
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", name, n)
		if !taken(candidate) {
			return candidate
		}
	}
}
