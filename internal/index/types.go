package index

import (
	"github.com/alucardeht/may-la-specs/internal/spec"
)

type Field uint8

const (
	FieldTitle Field = iota
	FieldBody
)

func (f Field) String() string {
	switch f {
	case FieldTitle:
		return "title"
	case FieldBody:
		return "body"
	default:
		return "unknown"
	}
}

// Posting is one occurrence of a term. Start and End are byte offsets into
// the field text.
type Posting struct {
	SpecID   string
	Field    Field
	Position int
	Start    int
	End      int
}

func postingLess(a, b Posting) int {
	switch {
	case a.SpecID != b.SpecID:
		if a.SpecID < b.SpecID {
			return -1
		}
		return 1
	case a.Field != b.Field:
		return int(a.Field) - int(b.Field)
	default:
		return a.Position - b.Position
	}
}

// Document is the read-only view the index keeps of one spec.
type Document struct {
	Spec        *spec.Spec
	Hash        string
	TitleTokens []Token
	BodyTokens  []Token

	ordinal  uint32
	termFreq map[string]int
}

// TermFrequency counts occurrences of term across title and body.
func (d *Document) TermFrequency(term string) int {
	return d.termFreq[term]
}

func (d *Document) Tokens(f Field) []Token {
	if f == FieldTitle {
		return d.TitleTokens
	}
	return d.BodyTokens
}

type Stats struct {
	Documents int    `json:"documents"`
	Terms     int    `json:"terms"`
	Postings  int    `json:"postings"`
	Version   uint64 `json:"version"`
}
