// Package normalize holds the canonical forms used for storage keys and lookups.
package normalize

import (
	"sort"
	"strings"
	"unicode"
)

// Email returns a normalized form of an email address suitable for
// storage and comparisons. Normalization currently trims surrounding
// whitespace and lower-cases the address.
func Email(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// PairKey returns the order-independent key for a two-party conversation:
// both ids trimmed, sorted and joined with ":". PairKey(a, b) == PairKey(b, a).
func PairKey(a, b string) string {
	ids := []string{strings.TrimSpace(a), strings.TrimSpace(b)}
	sort.Strings(ids)
	return ids[0] + ":" + ids[1]
}

// SearchTerm trims the term and collapses inner whitespace runs to a single space.
func SearchTerm(q string) string {
	return strings.Join(strings.Fields(q), " ")
}

// Username lower-cases s and keeps only letters, digits, '_' and '.'.
// Used to derive a default username from an email local part.
func Username(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
