package index

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokens(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"lowercase and split", "Implement Caching layer", []string{"implement", "caching", "layer"}},
		{"punctuation stripped", "cache, (LRU)! e.g. don't", []string{"cache", "lru", "eg", "dont"}},
		{"short tokens dropped", "a I of x y2", []string{"of", "y2"}},
		{"whitespace variants", "alpha\tbeta\n\ngamma delta", []string{"alpha", "beta", "gamma", "delta"}},
		{"compatibility forms", "ＣＡＣＨＩＮＧ ﬁle", []string{"caching", "file"}},
		{"unicode letters kept", "Überblick café", []string{"überblick", "café"}},
		{"only punctuation", "-- ... !!", []string{}},
		{"empty", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokens(tt.in))
		})
	}
}

func TestTokensIdempotent(t *testing.T) {
	inputs := []string{
		"Implement caching layer",
		"Copy-on-write SNAPSHOTS, readers/writers & ＦＵＬＬ width",
		"x",
	}

	for _, in := range inputs {
		once := Tokens(in)
		twice := Tokens(strings.Join(once, " "))
		assert.Equal(t, once, twice, in)
	}
}

func TestAnalyzeOffsets(t *testing.T) {
	text := "Caching, eviction-policy"
	toks := Analyze(text)

	if assert.Len(t, toks, 2) {
		assert.Equal(t, Token{Text: "caching", Position: 0, Start: 0, End: 8}, toks[0])
		assert.Equal(t, "Caching,", text[toks[0].Start:toks[0].End])
		assert.Equal(t, "evictionpolicy", toks[1].Text)
		assert.Equal(t, 1, toks[1].Position)
		assert.Equal(t, "eviction-policy", text[toks[1].Start:toks[1].End])
	}
}
