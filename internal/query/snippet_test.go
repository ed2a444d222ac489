package query

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alucardeht/may-la-specs/internal/index"
	"github.com/alucardeht/may-la-specs/internal/spec"
)

func highlighted(snippet string, spans []Span) []string {
	runes := []rune(snippet)
	out := make([]string, len(spans))
	for i, sp := range spans {
		out[i] = string(runes[sp.Start:sp.End])
	}
	return out
}

func TestSnippetPicksDensestCluster(t *testing.T) {
	body := "alpha " + strings.Repeat("filler ", 50) + "alpha beta, alpha " + strings.Repeat("tail ", 50)
	e := engineWith(t, &spec.Spec{ID: "A", Body: body, Status: spec.StatusActive})

	results, err := e.Search("alpha beta", Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.LessOrEqual(t, utf8.RuneCountInString(r.Snippet), 160)
	assert.Contains(t, r.Snippet, "alpha beta, alpha")
	assert.False(t, strings.HasPrefix(r.Snippet, "alpha filler"))
	assert.Equal(t, []string{"alpha", "beta", "alpha"}, highlighted(r.Snippet, r.HighlightSpans))
	assert.Equal(t, strings.TrimSpace(r.Snippet), r.Snippet)
	assert.True(t, strings.Contains(body, r.Snippet))
}

func TestSnippetRuneOffsets(t *testing.T) {
	e := engineWith(t, &spec.Spec{ID: "U", Body: "Überblick: the café (CACHING) tier", Status: spec.StatusDraft})

	results, err := e.Search("caching café", Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "Überblick: the café (CACHING) tier", r.Snippet)
	assert.Equal(t, []Span{{Start: 15, End: 19}, {Start: 21, End: 28}}, r.HighlightSpans)
	assert.Equal(t, []string{"café", "CACHING"}, highlighted(r.Snippet, r.HighlightSpans))
}

func TestSnippetWithoutBodyMatch(t *testing.T) {
	body := strings.Repeat("unrelated words ", 20)
	e := engineWith(t, &spec.Spec{ID: "T", Title: "Caching", Body: body, Status: spec.StatusDraft})

	results, err := e.Search("caching", Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Empty(t, r.HighlightSpans)
	assert.NotNil(t, r.HighlightSpans)
	assert.True(t, strings.HasPrefix(body, r.Snippet))
	assert.LessOrEqual(t, utf8.RuneCountInString(r.Snippet), 160)
	assert.True(t, strings.HasSuffix(r.Snippet, "words") || strings.HasSuffix(r.Snippet, "unrelated"))
}

func TestSnippetNarrowWindow(t *testing.T) {
	idx := index.New()
	_, err := idx.Upsert(&spec.Spec{ID: "N", Body: "one two three caching four five six", Status: spec.StatusDraft})
	require.NoError(t, err)

	results, err := NewEngine(idx, Config{SnippetWindow: 15}).Search("caching", Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.LessOrEqual(t, utf8.RuneCountInString(r.Snippet), 15)
	assert.Contains(t, r.Snippet, "caching")
	assert.Equal(t, []string{"caching"}, highlighted(r.Snippet, r.HighlightSpans))
}

func TestPad(t *testing.T) {
	tests := []struct {
		start, end, total, window int
		wantL, wantR              int
	}{
		{10, 20, 100, 30, 0, 30},
		{50, 60, 100, 30, 40, 70},
		{90, 95, 100, 30, 70, 100},
		{0, 40, 100, 30, 0, 40},
		{2, 4, 5, 30, 0, 5},
	}
	for _, tt := range tests {
		l, r := pad(tt.start, tt.end, tt.total, tt.window)
		assert.Equal(t, tt.wantL, l)
		assert.Equal(t, tt.wantR, r)
	}
}

func TestDensestCluster(t *testing.T) {
	starts := []int{0, 100, 105, 110, 300}
	ends := []int{5, 104, 109, 115, 305}

	lo, hi := densestCluster(starts, ends, 20)
	assert.Equal(t, 1, lo)
	assert.Equal(t, 3, hi)

	lo, hi = densestCluster([]int{0, 50}, []int{5, 52}, 10)
	assert.Equal(t, 1, lo, "equal counts prefer the shorter cluster")
	assert.Equal(t, 1, hi)
}
