package indexing

import (
	"strings"
	"unicode"
)

// Tokenize lower-cases text and splits it on every rune that is not a letter
// or digit. There is no stemming or stop-word removal. Duplicate tokens are
// kept in order of appearance.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// uniqueTokens returns the distinct tokens of text.
func uniqueTokens(text string) []string {
	tokens := Tokenize(text)
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0]
	for _, tok := range tokens {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}
