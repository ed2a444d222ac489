package index

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// MinTokenLength is measured in runes after normalisation.
const MinTokenLength = 2

// Token is one normalised term and the byte range of the raw word it came
// from.
type Token struct {
	Text     string
	Position int
	Start    int
	End      int
}

// cases.Caser keeps state between calls and must not be shared.
var lowerPool = sync.Pool{
	New: func() any {
		c := cases.Lower(language.Und)
		return &c
	},
}

// Tokens normalises text into its indexable terms: NFKC, lower case,
// punctuation and symbols stripped, split on whitespace, terms shorter than
// MinTokenLength dropped. It is pure and idempotent.
func Tokens(text string) []string {
	analyzed := Analyze(text)
	out := make([]string, len(analyzed))
	for i, tok := range analyzed {
		out[i] = tok.Text
	}
	return out
}

// Analyze is Tokens with positions and source offsets.
func Analyze(text string) []Token {
	var tokens []Token

	start := -1
	emit := func(end int) {
		if start < 0 {
			return
		}
		if term := Normalize(text[start:end]); utf8.RuneCountInString(term) >= MinTokenLength {
			tokens = append(tokens, Token{
				Text:     term,
				Position: len(tokens),
				Start:    start,
				End:      end,
			})
		}
		start = -1
	}

	for i, r := range text {
		if unicode.IsSpace(r) {
			emit(i)
			continue
		}
		if start < 0 {
			start = i
		}
	}
	emit(len(text))

	return tokens
}

// Normalize maps one whitespace-free word to its term. The result may be
// empty when the word is all punctuation.
func Normalize(word string) string {
	caser := lowerPool.Get().(*cases.Caser)
	lowered := caser.String(norm.NFKC.String(word))
	caser.Reset()
	lowerPool.Put(caser)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
