// Package track derives deduplication identities for listening-history
// entries. A single physical play can surface with different metadata on
// different fetches (re-assigned video ids, casing changes), so every entry
// maps to an ordered list of candidate keys and a play counts as already
// known when any of them has been seen before.
package track

import (
	"regexp"
	"strings"
	"unicode"
)

// Key prefixes, highest confidence first.
const (
	nativePrefix = "native:"
	exactPrefix  = "exact:"
	normPrefix   = "norm:"
)

// featMarker matches a "featuring" delimiter at a word boundary. Everything
// from the delimiter onward is dropped during normalization.
var featMarker = regexp.MustCompile(`\b(featuring|feat\.?|ft\.?)(\s|$)`)

// CandidateKeys returns the ordered dedup keys for a play: the native id key
// when the source supplied one, the raw title+artist key, and the normalized
// title+artist key. An entry with no usable identity yields an empty slice
// and must not be scrobbled.
func CandidateKeys(title, artist, nativeID string) []string {
	var keys []string

	if nativeID != "" {
		keys = append(keys, nativePrefix+nativeID)
	}
	if title != "" && artist != "" {
		keys = append(keys, exactPrefix+title+"_"+artist)
	}

	normTitle := Normalize(title)
	normArtist := Normalize(artist)
	if normTitle != "" && normArtist != "" {
		keys = append(keys, normPrefix+normTitle+"_"+normArtist)
	}

	return keys
}

// Normalize canonicalizes a title or artist name: lowercase, trimmed,
// "feat ..." tails removed, punctuation stripped, whitespace collapsed.
// Deterministic and stateless.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	if loc := featMarker.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}
