package index

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/alucardeht/may-la-specs/internal/logger"
	"github.com/alucardeht/may-la-specs/internal/metrics"
	"github.com/alucardeht/may-la-specs/internal/spec"
)

var log = logger.ForComponent("index")

// Index is an in-memory inverted index over spec titles and bodies.
//
// Mutations are serialised; each one builds a new Snapshot and publishes it
// atomically. Readers never block writers and never see a partial update.
type Index struct {
	mu   sync.Mutex
	snap atomic.Pointer[Snapshot]
}

func New() *Index {
	idx := &Index{}
	idx.snap.Store(emptySnapshot())
	return idx
}

// Snapshot returns the last committed state.
func (idx *Index) Snapshot() *Snapshot {
	return idx.snap.Load()
}

func (idx *Index) Len() int {
	return idx.Snapshot().Len()
}

func (idx *Index) Stats() Stats {
	return idx.Snapshot().Stats()
}

// Upsert inserts or replaces the entry for s.ID. It reports false when the
// indexed content is already identical.
func (idx *Index) Upsert(s *spec.Spec) (bool, error) {
	if s == nil || s.ID == "" {
		return false, fmt.Errorf("%w: upsert requires an id", spec.ErrInvalidSpec)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	cur := idx.snap.Load()
	hash := s.ContentHash()

	ordinal := cur.nextOrdinal
	if existing, ok := cur.docs[s.ID]; ok {
		if existing.Hash == hash {
			return false, nil
		}
		ordinal = existing.ordinal
	}

	next := cur.clone()
	next.removeDoc(s.ID)
	next.addDoc(buildDocument(s, hash, ordinal))
	if ordinal == cur.nextOrdinal {
		next.nextOrdinal++
	}

	idx.publish(next)
	log.Debug("spec indexed", "id", s.ID, "version", next.version)
	return true, nil
}

// Remove deletes every posting for id. Unknown ids are a no-op.
func (idx *Index) Remove(id string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	cur := idx.snap.Load()
	if _, ok := cur.docs[id]; !ok {
		return false
	}

	next := cur.clone()
	next.removeDoc(id)
	idx.publish(next)
	log.Debug("spec removed", "id", id, "version", next.version)
	return true
}

// Apply upserts and removes specs as one published snapshot and returns the
// number of entries that changed. Removals run after upserts.
func (idx *Index) Apply(upserts []*spec.Spec, removes []string) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	cur := idx.snap.Load()
	next := cur.clone()
	changed := 0

	for _, s := range upserts {
		if s == nil || s.ID == "" {
			continue
		}
		hash := s.ContentHash()
		ordinal := next.nextOrdinal
		if existing, ok := next.docs[s.ID]; ok {
			if existing.Hash == hash {
				continue
			}
			ordinal = existing.ordinal
			next.removeDoc(s.ID)
		} else {
			next.nextOrdinal++
		}
		next.addDoc(buildDocument(s, hash, ordinal))
		changed++
	}

	for _, id := range removes {
		if _, ok := next.docs[id]; ok {
			next.removeDoc(id)
			changed++
		}
	}

	if changed == 0 {
		return 0
	}
	idx.publish(next)
	log.Debug("index batch applied", "changed", changed, "version", next.version)
	return changed
}

// Replace swaps in an index built from specs alone. Specs without an id are
// skipped; later duplicates win.
func (idx *Index) Replace(specs []*spec.Spec) int {
	next := emptySnapshot()
	for _, s := range specs {
		if s == nil || s.ID == "" {
			continue
		}
		ordinal := next.nextOrdinal
		if existing, ok := next.docs[s.ID]; ok {
			ordinal = existing.ordinal
			next.removeDoc(s.ID)
		} else {
			next.nextOrdinal++
		}
		next.addDoc(buildDocument(s, s.ContentHash(), ordinal))
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	next.version = idx.snap.Load().version
	idx.publish(next)
	log.Info("index rebuilt", "documents", next.Len(), "terms", len(next.postings))
	return next.Len()
}

func (idx *Index) publish(next *Snapshot) {
	next.version++
	idx.snap.Store(next)
	metrics.IndexDocuments.Set(float64(next.Len()))
	metrics.IndexTerms.Set(float64(len(next.postings)))
}

func buildDocument(s *spec.Spec, hash string, ordinal uint32) *Document {
	doc := &Document{
		Spec:        s.Clone(),
		Hash:        hash,
		TitleTokens: Analyze(s.Title),
		BodyTokens:  Analyze(s.Body),
		ordinal:     ordinal,
		termFreq:    make(map[string]int),
	}
	for _, tok := range doc.TitleTokens {
		doc.termFreq[tok.Text]++
	}
	for _, tok := range doc.BodyTokens {
		doc.termFreq[tok.Text]++
	}
	return doc
}
