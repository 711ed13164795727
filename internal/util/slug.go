// Package util provides common utility functions.
package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// Matches spaces, underscores, and slashes (for replacement with dashes).
	wordSeparatorRe = regexp.MustCompile(`[\s_/]+`)
	// Matches non-alphanumeric characters (except dashes).
	nonAlphanumericRe = regexp.MustCompile(`[^a-z0-9-]`)
	// Matches multiple consecutive dashes.
	multipleDashRe = regexp.MustCompile(`-+`)

	// Strips combining marks left over after NFD decomposition, so
	// "Café" slugs to "cafe" instead of dropping the accented rune.
	stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Slugify converts a display name to its canonical slug. The slug is
// the source of truth for category identity.
//
// Normalization rules:
//  1. Fold diacritics ("Café" → "Cafe")
//  2. Trim whitespace and lowercase
//  3. Replace spaces, underscores, and slashes with dashes
//  4. Remove non-alphanumeric characters (except dashes)
//  5. Collapse multiple dashes and trim leading/trailing ones
//
// Examples:
//
//	"Deep Work"      → "deep-work"
//	"deep_work"      → "deep-work"
//	"Café / Notes"   → "cafe-notes"
//	"🔥 Urgent!"     → "urgent"
func Slugify(input string) string {
	s, _, err := transform.String(stripMarks, input)
	if err != nil {
		s = input
	}

	s = strings.ToLower(strings.TrimSpace(s))
	s = wordSeparatorRe.ReplaceAllString(s, "-")
	s = nonAlphanumericRe.ReplaceAllString(s, "")
	s = multipleDashRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	return s
}

// NormalizeTagName canonicalizes a tag name: trimmed, inner whitespace
// collapsed. Tags keep their display casing (identity is per-user name,
// not slug), so only whitespace is normalized.
func NormalizeTagName(input string) string {
	return strings.Join(strings.Fields(input), " ")
}
