package homophone

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Token length bounds, in runes.
const (
	MinTokenLen = 2
	MaxTokenLen = 15
)

// Tokenize splits a context string into lowercase, accent-free word tokens.
// Runs of letters and underscores form tokens; digits, punctuation and
// whitespace separate them. Tokens shorter than
// [MinTokenLen] or longer than [MaxTokenLen] runes are dropped.
func Tokenize(s string) []string {
	// transform.Chain is stateful, so a fresh chain is built per call.
	stripAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripAccents, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var tokens []string
	for _, f := range strings.FieldsFunc(folded, func(r rune) bool { return r != '_' && !unicode.IsLetter(r) }) {
		if n := utf8.RuneCountInString(f); n >= MinTokenLen && n <= MaxTokenLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
