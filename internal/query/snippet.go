package query

import (
	"unicode"
	"unicode/utf8"

	"github.com/alucardeht/may-la-specs/internal/index"
)

// buildSnippet picks the densest cluster of matched terms in the body that
// fits in window runes (shortest cluster on ties, earliest after that), pads
// it with surrounding context up to the window and snaps the edges to word
// boundaries. Specs with an empty body fall back to the title. Without any
// match in the chosen text the snippet is its leading window.
func buildSnippet(doc *index.Document, terms map[string]struct{}, window int) (string, []Span) {
	text, tokens := doc.Spec.Body, doc.BodyTokens
	if text == "" {
		text, tokens = doc.Spec.Title, doc.TitleTokens
	}
	if text == "" {
		return "", []Span{}
	}

	var matches []index.Token
	for _, tok := range tokens {
		if _, ok := terms[tok.Text]; ok {
			matches = append(matches, tok)
		}
	}

	runes := []rune(text)
	if len(matches) == 0 {
		end := snapRight(runes, min(window, len(runes)), 0)
		return string(trimSpaceRunes(runes[:end])), []Span{}
	}

	starts, ends := runeOffsets(text, matches)
	lo, hi := densestCluster(starts, ends, window)

	clusterStart, clusterEnd := starts[lo], ends[hi]
	if clusterEnd-clusterStart > window {
		clusterEnd = clusterStart + window
	}

	left, right := pad(clusterStart, clusterEnd, len(runes), window)
	left = snapLeft(runes, left, clusterStart)
	right = snapRight(runes, right, clusterEnd)
	for left < clusterStart && unicode.IsSpace(runes[left]) {
		left++
	}
	for right > clusterEnd && unicode.IsSpace(runes[right-1]) {
		right--
	}

	spans := make([]Span, 0, len(matches))
	for k := range matches {
		s, e := trimToWord(runes, starts[k], ends[k])
		if s < left || e > right || s >= e {
			continue
		}
		spans = append(spans, Span{Start: s - left, End: e - left})
	}

	return string(runes[left:right]), spans
}

// runeOffsets converts the byte ranges of tokens, sorted by Start, into rune
// offsets.
func runeOffsets(text string, tokens []index.Token) (starts, ends []int) {
	starts = make([]int, len(tokens))
	ends = make([]int, len(tokens))

	runeIdx, byteIdx := 0, 0
	for k, tok := range tokens {
		runeIdx += utf8.RuneCountInString(text[byteIdx:tok.Start])
		byteIdx = tok.Start
		starts[k] = runeIdx
		ends[k] = runeIdx + utf8.RuneCountInString(text[tok.Start:tok.End])
	}
	return starts, ends
}

func densestCluster(starts, ends []int, window int) (lo, hi int) {
	bestCount, bestLen := 0, 0
	i := 0
	for j := range starts {
		for i < j && ends[j]-starts[i] > window {
			i++
		}
		count := j - i + 1
		length := ends[j] - starts[i]
		if count > bestCount || (count == bestCount && length < bestLen) {
			bestCount, bestLen = count, length
			lo, hi = i, j
		}
	}
	return lo, hi
}

func pad(start, end, total, window int) (int, int) {
	slack := window - (end - start)
	if slack <= 0 {
		return start, end
	}

	left := start - slack/2
	right := end + (slack - slack/2)
	if left < 0 {
		right -= left
		left = 0
	}
	if right > total {
		left -= right - total
		right = total
	}
	return max(left, 0), right
}

// snapLeft moves left forward to a word start when it cuts a word, never past
// limit.
func snapLeft(runes []rune, left, limit int) int {
	if left == 0 || unicode.IsSpace(runes[left-1]) {
		return left
	}
	for i := left; i < limit; i++ {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return limit
}

// snapRight moves right back to a word end when it cuts a word, never before
// limit.
func snapRight(runes []rune, right, limit int) int {
	if right >= len(runes) || unicode.IsSpace(runes[right]) {
		return right
	}
	for i := right; i > limit; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i - 1
		}
	}
	if limit == 0 {
		return right
	}
	return limit
}

func trimToWord(runes []rune, start, end int) (int, int) {
	isWord := func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
	}
	for start < end && !isWord(runes[start]) {
		start++
	}
	for end > start && !isWord(runes[end-1]) {
		end--
	}
	return start, end
}

func trimSpaceRunes(r []rune) []rune {
	for len(r) > 0 && unicode.IsSpace(r[len(r)-1]) {
		r = r[:len(r)-1]
	}
	for len(r) > 0 && unicode.IsSpace(r[0]) {
		r = r[1:]
	}
	return r
}
