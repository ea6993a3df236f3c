// Package textnorm provides the canonical text normalization used for
// trigger matching.
//
// Every phrase takes the same path whether it is being inserted into the
// trigger table or queried against it: lowercase, diacritics stripped,
// hyphens treated as spaces, punctuation removed, whitespace collapsed.
// The transform is idempotent - normalizing an already-normalized string
// returns it unchanged.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD, drops combining marks (accents, tildes),
// and recomposes. "rústica" -> "rustica", "pão" -> "pao".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Stopwords removed during tokenization. Kept deliberately small: it must
// never swallow quantity words ("um", "dois") or connective tokens the
// resolver inspects for additive context ("e", "com", "mais").
var stopwords = map[string]bool{
	"de": true,
	"di": true,
	"da": true,
	"do": true,
}

// Normalize returns the canonical form of a phrase.
func Normalize(s string) string {
	s = strings.ToLower(s)
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '-':
			b.WriteRune(' ')
		case r == '.' || r == ',' || r == '!' || r == '?':
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokenize normalizes a raw message and splits it into tokens, removing
// stopwords. Token order is preserved; empty input yields a nil slice.
func Tokenize(raw string) []string {
	fields := strings.Fields(Normalize(raw))
	var tokens []string
	for _, f := range fields {
		if stopwords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// NGram joins tokens[i:i+n] into a candidate phrase. Callers are expected
// to probe lengths from longest to shortest so the most specific trigger
// wins ("coca zero lata" before "coca zero").
func NGram(tokens []string, i, n int) (string, bool) {
	if i < 0 || n < 1 || i+n > len(tokens) {
		return "", false
	}
	return strings.Join(tokens[i:i+n], " "), true
}

// MaxNGram is the longest trigger phrase the resolver probes for.
const MaxNGram = 4
