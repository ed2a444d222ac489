package index

import (
	"maps"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/alucardeht/may-la-specs/internal/spec"
)

// Snapshot is an immutable committed state of the index. It is safe for
// concurrent use by any number of readers.
type Snapshot struct {
	docs     map[string]*Document
	postings map[string][]Posting
	docFreq  map[string]int
	byStatus map[spec.Status]*roaring.Bitmap
	ordinals map[uint32]string

	nextOrdinal   uint32
	totalPostings int
	version       uint64
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		docs:     make(map[string]*Document),
		postings: make(map[string][]Posting),
		docFreq:  make(map[string]int),
		byStatus: make(map[spec.Status]*roaring.Bitmap),
		ordinals: make(map[uint32]string),
	}
}

func (s *Snapshot) Len() int {
	return len(s.docs)
}

func (s *Snapshot) Version() uint64 {
	return s.version
}

func (s *Snapshot) Document(id string) (*Document, bool) {
	d, ok := s.docs[id]
	return d, ok
}

// Postings returns the postings for term sorted by spec id, field and
// position. The slice must not be modified.
func (s *Snapshot) Postings(term string) []Posting {
	return s.postings[term]
}

// DocFrequency is the number of distinct specs containing term.
func (s *Snapshot) DocFrequency(term string) int {
	return s.docFreq[term]
}

// HasStatus reports whether the spec is indexed with the given status.
func (s *Snapshot) HasStatus(id string, status spec.Status) bool {
	d, ok := s.docs[id]
	if !ok {
		return false
	}
	bm, ok := s.byStatus[status]
	return ok && bm.Contains(d.ordinal)
}

// CountByStatus returns the number of indexed specs with the given status.
func (s *Snapshot) CountByStatus(status spec.Status) int {
	bm, ok := s.byStatus[status]
	if !ok {
		return 0
	}
	return int(bm.GetCardinality())
}

// WithStatus lists the ids of specs with the given status, sorted.
func (s *Snapshot) WithStatus(status spec.Status) []string {
	bm, ok := s.byStatus[status]
	if !ok {
		return nil
	}
	ids := make([]string, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		ids = append(ids, s.ordinals[it.Next()])
	}
	slices.Sort(ids)
	return ids
}

func (s *Snapshot) IDs() []string {
	ids := slices.Collect(maps.Keys(s.docs))
	slices.Sort(ids)
	return ids
}

func (s *Snapshot) Stats() Stats {
	return Stats{
		Documents: len(s.docs),
		Terms:     len(s.postings),
		Postings:  s.totalPostings,
		Version:   s.version,
	}
}

// clone copies the top-level maps. Posting slices and bitmaps stay shared
// and are replaced, never mutated, by the writer.
func (s *Snapshot) clone() *Snapshot {
	return &Snapshot{
		docs:          maps.Clone(s.docs),
		postings:      maps.Clone(s.postings),
		docFreq:       maps.Clone(s.docFreq),
		byStatus:      maps.Clone(s.byStatus),
		ordinals:      maps.Clone(s.ordinals),
		nextOrdinal:   s.nextOrdinal,
		totalPostings: s.totalPostings,
		version:       s.version,
	}
}

func (s *Snapshot) removeDoc(id string) {
	old, ok := s.docs[id]
	if !ok {
		return
	}

	for term := range old.termFreq {
		cur := s.postings[term]
		kept := make([]Posting, 0, len(cur))
		for _, p := range cur {
			if p.SpecID != id {
				kept = append(kept, p)
			}
		}
		s.totalPostings -= len(cur) - len(kept)

		if len(kept) == 0 {
			delete(s.postings, term)
			delete(s.docFreq, term)
		} else {
			s.postings[term] = kept
			s.docFreq[term]--
		}
	}

	if bm, ok := s.byStatus[old.Spec.Status]; ok {
		next := bm.Clone()
		next.Remove(old.ordinal)
		s.byStatus[old.Spec.Status] = next
	}

	delete(s.ordinals, old.ordinal)
	delete(s.docs, id)
}

func (s *Snapshot) addDoc(doc *Document) {
	s.docs[doc.Spec.ID] = doc
	s.ordinals[doc.ordinal] = doc.Spec.ID

	fresh := make(map[string][]Posting)
	appendField := func(field Field, tokens []Token) {
		for _, tok := range tokens {
			fresh[tok.Text] = append(fresh[tok.Text], Posting{
				SpecID:   doc.Spec.ID,
				Field:    field,
				Position: tok.Position,
				Start:    tok.Start,
				End:      tok.End,
			})
		}
	}
	appendField(FieldTitle, doc.TitleTokens)
	appendField(FieldBody, doc.BodyTokens)

	for term, added := range fresh {
		cur := s.postings[term]
		merged := make([]Posting, 0, len(cur)+len(added))
		merged = append(merged, cur...)
		merged = append(merged, added...)
		slices.SortFunc(merged, postingLess)

		s.postings[term] = merged
		s.docFreq[term]++
		s.totalPostings += len(added)
	}

	bm, ok := s.byStatus[doc.Spec.Status]
	var next *roaring.Bitmap
	if ok {
		next = bm.Clone()
	} else {
		next = roaring.New()
	}
	next.Add(doc.ordinal)
	s.byStatus[doc.Spec.Status] = next
}
