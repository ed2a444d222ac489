package query

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/alucardeht/may-la-specs/internal/index"
	"github.com/alucardeht/may-la-specs/internal/logger"
	"github.com/alucardeht/may-la-specs/internal/metrics"
	"github.com/alucardeht/may-la-specs/internal/spec"
)

var log = logger.ForComponent("query")

type Config struct {
	DefaultLimit  int `yaml:"default_limit"`
	MaxLimit      int `yaml:"max_limit"`
	SnippetWindow int `yaml:"snippet_window"`
}

func DefaultConfig() Config {
	return Config{
		DefaultLimit:  20,
		MaxLimit:      200,
		SnippetWindow: 160,
	}
}

// Options narrows one search. A zero Limit means Config.DefaultLimit and an
// empty Status means no status filter.
type Options struct {
	Limit  int         `json:"limit,omitempty"`
	Status spec.Status `json:"status,omitempty"`
}

// Span is a half-open range of rune offsets into a snippet.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type Result struct {
	SpecID         string      `json:"specId"`
	Title          string      `json:"title"`
	Status         spec.Status `json:"status"`
	UpdatedAt      time.Time   `json:"updatedAt"`
	Score          float64     `json:"score"`
	MatchedTokens  int         `json:"matchedTokens"`
	Snippet        string      `json:"snippet"`
	HighlightSpans []Span      `json:"highlightSpans"`
}

type Engine struct {
	index  *index.Index
	config Config
}

func NewEngine(idx *index.Index, config Config) *Engine {
	def := DefaultConfig()
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = def.DefaultLimit
	}
	if config.MaxLimit <= 0 {
		config.MaxLimit = def.MaxLimit
	}
	if config.DefaultLimit > config.MaxLimit {
		config.DefaultLimit = config.MaxLimit
	}
	if config.SnippetWindow <= 0 {
		config.SnippetWindow = def.SnippetWindow
	}
	return &Engine{index: idx, config: config}
}

type candidate struct {
	doc     *index.Document
	matched int
	score   float64
}

// Search ranks indexed specs against query. It reads one committed snapshot
// and has no side effects besides metrics. Queries without any indexable
// term return an empty, non-nil slice.
func (e *Engine) Search(query string, opts Options) ([]Result, error) {
	start := time.Now()
	results := e.search(query, opts)

	metrics.SearchDuration.Observe(time.Since(start).Seconds())
	metrics.SearchResults.Observe(float64(len(results)))
	log.Debug("search", "query", query, "status", opts.Status, "results", len(results))

	return results, nil
}

func (e *Engine) search(query string, opts Options) []Result {
	terms := uniqueTerms(index.Tokens(query))
	snap := e.index.Snapshot()
	if len(terms) == 0 || snap.Len() == 0 {
		return []Result{}
	}

	totalDocs := float64(snap.Len())
	candidates := make(map[string]*candidate)

	for _, term := range terms {
		df := snap.DocFrequency(term)
		if df == 0 {
			continue
		}
		idf := math.Log(1 + totalDocs/float64(df))

		postings := snap.Postings(term)
		for i := 0; i < len(postings); {
			id := postings[i].SpecID
			j := i
			for j < len(postings) && postings[j].SpecID == id {
				j++
			}
			tf := j - i
			i = j

			if opts.Status != "" && !snap.HasStatus(id, opts.Status) {
				continue
			}

			c, ok := candidates[id]
			if !ok {
				doc, _ := snap.Document(id)
				c = &candidate{doc: doc}
				candidates[id] = c
			}
			c.matched++
			c.score += float64(tf) * idf
		}
	}

	ranked := make([]*candidate, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, c)
	}
	slices.SortFunc(ranked, compareCandidates)

	limit := e.limit(opts.Limit)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	termSet := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		termSet[t] = struct{}{}
	}

	results := make([]Result, 0, len(ranked))
	for _, c := range ranked {
		s := c.doc.Spec
		snippet, spans := buildSnippet(c.doc, termSet, e.config.SnippetWindow)
		results = append(results, Result{
			SpecID:         s.ID,
			Title:          s.Title,
			Status:         s.Status,
			UpdatedAt:      s.UpdatedAt,
			Score:          c.score,
			MatchedTokens:  c.matched,
			Snippet:        snippet,
			HighlightSpans: spans,
		})
	}
	return results
}

func (e *Engine) limit(requested int) int {
	if requested <= 0 {
		return e.config.DefaultLimit
	}
	if requested > e.config.MaxLimit {
		return e.config.MaxLimit
	}
	return requested
}

// compareCandidates is a total order: distinct matched terms desc, score
// desc, updatedAt desc, spec id asc.
func compareCandidates(a, b *candidate) int {
	if a.matched != b.matched {
		return b.matched - a.matched
	}
	if a.score != b.score {
		if a.score > b.score {
			return -1
		}
		return 1
	}
	if c := b.doc.Spec.UpdatedAt.Compare(a.doc.Spec.UpdatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.doc.Spec.ID, b.doc.Spec.ID)
}

func uniqueTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := terms[:0:0]
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
