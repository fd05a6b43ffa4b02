package simclust

import (
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"
	"golang.org/x/text/unicode/norm"
)

// Compile-time checks to ensure the built-in tokenizers implement Tokenizer
var (
	_ Tokenizer[string] = WordTokenizer{}
	_ Tokenizer[string] = NGramTokenizer{}
)

// Normalize applies Unicode normalization (NFKC) and converts to lowercase.
func Normalize(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}

// WordTokenizer splits normalized text into words using UAX#29 word
// segmentation. Whitespace and punctuation segments are dropped.
type WordTokenizer struct{}

// Tokenize returns the words of s, in order, repeats included.
func (WordTokenizer) Tokenize(s string) []string {
	segments := words.FromString(Normalize(s))
	var tokens []string
	for segments.Next() {
		token := segments.Value()
		if isWord(token) {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// isWord reports whether a segment holds at least one letter or digit
func isWord(segment string) bool {
	for _, r := range segment {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// Padding runes used by NGramTokenizer when Pad is set. They are control
// characters, so they never collide with normalized text.
const (
	ngramStart = '\x02'
	ngramEnd   = '\x03'
)

// NGramTokenizer produces overlapping character n-grams of normalized text.
//
// Example: NGramTokenizer{N: 3} turns "Kansas" into
// ["kan", "ans", "nsa", "sas"].
type NGramTokenizer struct {
	// N is the gram length in runes. Values below 1 are treated as 1.
	N int

	// Pad surrounds the text with N-1 boundary markers on each side, so
	// prefixes and suffixes produce their own grams.
	Pad bool
}

// Tokenize returns the n-grams of s, repeats included. Text shorter than N
// yields itself as a single token; empty text yields no tokens.
func (t NGramTokenizer) Tokenize(s string) []string {
	n := max(t.N, 1)
	runes := []rune(Normalize(s))
	if len(runes) == 0 {
		return nil
	}

	if t.Pad && n > 1 {
		padded := make([]rune, 0, len(runes)+2*(n-1))
		for i := 0; i < n-1; i++ {
			padded = append(padded, ngramStart)
		}
		padded = append(padded, runes...)
		for i := 0; i < n-1; i++ {
			padded = append(padded, ngramEnd)
		}
		runes = padded
	}

	if len(runes) < n {
		return []string{string(runes)}
	}

	grams := make([]string, 0, len(runes)-n+1)
	for i := 0; i+n <= len(runes); i++ {
		grams = append(grams, string(runes[i:i+n]))
	}
	return grams
}
