package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/alucardeht/may-la-specs/internal/spec"
)

// MemoryStore keeps specs in a map. Fail makes every call return a store
// unavailable error until it is cleared with Fail(nil).
type MemoryStore struct {
	mu    sync.RWMutex
	specs map[string]*spec.Spec
	err   error
}

func NewMemoryStore(specs ...*spec.Spec) *MemoryStore {
	m := &MemoryStore{specs: make(map[string]*spec.Spec, len(specs))}
	for _, s := range specs {
		if c, err := prepare(s); err == nil {
			m.specs[c.ID] = c
		}
	}
	return m
}

func (m *MemoryStore) Fail(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *MemoryStore) ListAll(ctx context.Context) ([]*spec.Spec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.check(ctx, "list specs"); err != nil {
		return nil, err
	}

	out := make([]*spec.Spec, 0, len(m.specs))
	for _, s := range m.specs {
		out = append(out, s.Clone())
	}
	slices.SortFunc(out, func(a, b *spec.Spec) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*spec.Spec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.check(ctx, "get spec"); err != nil {
		return nil, err
	}
	s, ok := m.specs[id]
	if !ok {
		return nil, notFound(id)
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Put(ctx context.Context, s *spec.Spec) error {
	c, err := prepare(s)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(ctx, "put spec"); err != nil {
		return err
	}
	m.specs[c.ID] = c
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.check(ctx, "delete spec"); err != nil {
		return err
	}
	if _, ok := m.specs[id]; !ok {
		return notFound(id)
	}
	delete(m.specs, id)
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) check(ctx context.Context, op string) error {
	if m.err != nil {
		return unavailable(op, m.err)
	}
	if err := ctx.Err(); err != nil {
		return unavailable(op, err)
	}
	return nil
}
